package routes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/openapi-ff/pkg/httpclient"
)

const sampleRoutes = `
routes:
  - id: list-posts
    method: GET
    path: /blogposts
  - id: get-post
    method: get
    path: /blogposts/{post_id}
    params:
      path:
        post_id: "1"
      query:
        fields: [title, body]
      header:
        " X-Trace ": " abc "
  - id: delete-post
    method: delete
    path: /blogposts/{post_id}
    enabled: false
`

func TestLoadRegistryFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(path, []byte(sampleRoutes), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 3 {
		t.Fatalf("expected 3 routes, got %d", len(reg.All()))
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "list-posts" || enabled[1].ID != "get-post" {
		t.Fatalf("unexpected enabled routes %#v", enabled)
	}

	route, ok := reg.ByID("get-post")
	if !ok {
		t.Fatalf("get-post not found")
	}
	if route.Method != httpclient.MethodGet {
		t.Fatalf("method = %s", route.Method)
	}
	if route.Params.Path["post_id"] != "1" {
		t.Fatalf("path params = %#v", route.Params.Path)
	}
	if fields, ok := route.Params.Query["fields"].([]any); !ok || len(fields) != 2 {
		t.Fatalf("query params = %#v", route.Params.Query)
	}
	if route.Params.Header["X-Trace"] != "abc" {
		t.Fatalf("headers = %#v", route.Params.Header)
	}
}

func TestParseJSON(t *testing.T) {
	reg, err := Parse([]byte(`{"routes":[{"id":"self","method":"post","path":"/self","params":{"body":{"a":1}}}]}`), ".json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	route, _ := reg.ByID("self")
	if route.Method != httpclient.MethodPost || route.Params.Body == nil {
		t.Fatalf("unexpected route %#v", route)
	}
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"bad method":   "routes:\n  - {id: a, method: fetch, path: /a}\n",
		"missing id":   "routes:\n  - {method: get, path: /a}\n",
		"relative":     "routes:\n  - {id: a, method: get, path: a}\n",
		"duplicate id": "routes:\n  - {id: a, method: get, path: /a}\n  - {id: a, method: get, path: /b}\n",
		"empty":        "routes: []\n",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw), ".yaml"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadRegistryRequiresPath(t *testing.T) {
	if _, err := LoadRegistry(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
