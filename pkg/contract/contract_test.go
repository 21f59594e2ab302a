package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samvad-hq/openapi-ff/pkg/httpclient"
)

const postSchema = `{
  "type": "object",
  "required": ["title", "body"],
  "properties": {
    "title": {"type": "string"},
    "body": {"type": "string"},
    "publish_date": {"type": "number"}
  }
}`

func TestUnknownAcceptsEverything(t *testing.T) {
	c := Unknown()
	for _, v := range []any{nil, "x", 1, map[string]any{"a": 1}} {
		if msgs := c.Validate(v); len(msgs) != 0 {
			t.Fatalf("Unknown rejected %#v: %v", v, msgs)
		}
	}
	if !IsUnknown(c) || !IsUnknown(nil) {
		t.Fatalf("IsUnknown should recognise the permissive contract")
	}
}

func TestJSONSchemaValidates(t *testing.T) {
	c, err := NewJSONSchema("post", []byte(postSchema))
	if err != nil {
		t.Fatalf("NewJSONSchema: %v", err)
	}
	if msgs := c.Validate(map[string]any{"title": "title", "body": "body"}); len(msgs) != 0 {
		t.Fatalf("expected valid post, got %v", msgs)
	}

	msgs := c.Validate(map[string]any{"title": "title", "data": "body"})
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", msgs)
	}
	if !strings.Contains(msgs[0], "body") || !strings.Contains(msgs[0], "path: /") {
		t.Fatalf("unexpected message %q", msgs[0])
	}
}

func TestJSONSchemaNormalizesStructs(t *testing.T) {
	type post struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	c, err := NewJSONSchema("post", []byte(postSchema))
	if err != nil {
		t.Fatalf("NewJSONSchema: %v", err)
	}
	if msgs := c.Validate(post{Title: "t", Body: "b"}); len(msgs) != 0 {
		t.Fatalf("struct candidate rejected: %v", msgs)
	}
}

func TestJSONSchemaRejectsBrokenSchema(t *testing.T) {
	if _, err := NewJSONSchema("broken", []byte(`{"type": 12}`)); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := NewJSONSchema(" ", []byte(postSchema)); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func loadBlogDocument(t *testing.T) *Document {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "blogposts.yaml"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc, err := LoadOpenAPI(raw)
	if err != nil {
		t.Fatalf("LoadOpenAPI: %v", err)
	}
	return doc
}

func TestOpenAPIContractForList(t *testing.T) {
	doc := loadBlogDocument(t)

	c, err := doc.ContractFor(httpclient.MethodGet, "/blogposts")
	if err != nil {
		t.Fatalf("ContractFor: %v", err)
	}
	if IsUnknown(c) {
		t.Fatalf("expected a schema-backed contract")
	}
	valid := []any{map[string]any{"title": "title", "body": "body"}}
	if msgs := c.Validate(valid); len(msgs) != 0 {
		t.Fatalf("valid list rejected: %v", msgs)
	}
	invalid := []any{map[string]any{"title": "title"}}
	if msgs := c.Validate(invalid); len(msgs) == 0 {
		t.Fatalf("expected list item without body to be rejected")
	}
}

func TestOpenAPIContractForItemAndWildcard(t *testing.T) {
	doc := loadBlogDocument(t)
	factory := doc.Factory(nil)

	item := factory(httpclient.MethodGet, "/blogposts/{post_id}")
	msgs := item.Validate(map[string]any{"title": "title", "data": "body"})
	if len(msgs) == 0 || !strings.Contains(strings.Join(msgs, ";"), "body") {
		t.Fatalf("expected missing body message, got %v", msgs)
	}

	tag := factory(httpclient.MethodGet, "/tag/{name}")
	if msgs := tag.Validate("go"); len(msgs) != 0 {
		t.Fatalf("2XX schema should accept a string: %v", msgs)
	}
	if msgs := tag.Validate(12.0); len(msgs) == 0 {
		t.Fatalf("2XX schema should reject a number")
	}
}

func TestOpenAPIContractFallsBackToUnknown(t *testing.T) {
	doc := loadBlogDocument(t)
	factory := doc.Factory(nil)

	if c := factory(httpclient.MethodDelete, "/blogposts/{post_id}"); !IsUnknown(c) {
		t.Fatalf("204 without content should not be validated")
	}
	if c := factory(httpclient.MethodGet, "/missing"); !IsUnknown(c) {
		t.Fatalf("unknown path should not be validated")
	}
	if c := factory(httpclient.MethodPost, "/blogposts"); !IsUnknown(c) {
		t.Fatalf("undeclared method should not be validated")
	}
}

func TestLoadOpenAPIRejectsGarbage(t *testing.T) {
	if _, err := LoadOpenAPI([]byte("not: [valid")); err == nil {
		t.Fatalf("expected parse error")
	}
}
