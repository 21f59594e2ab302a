package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaBaseURL = "https://openapi-ff.schemas.local/"

// JSONSchema validates candidates against a compiled JSON Schema.
type JSONSchema struct {
	name   string
	schema *jsonschema.Schema
}

// NewJSONSchema compiles schemaJSON (Draft 2020-12) under the given name.
func NewJSONSchema(name string, schemaJSON []byte) (*JSONSchema, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("schema name is empty")
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := schemaBaseURL + sanitizeName(name) + ".schema.json"
	if err := c.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &JSONSchema{name: name, schema: compiled}, nil
}

// Name returns the label the schema was compiled under.
func (s *JSONSchema) Name() string { return s.name }

// Validate returns one message per failing leaf keyword, formatted as
// "<message>, path: <instance location>".
func (s *JSONSchema) Validate(candidate any) []string {
	doc, err := normalize(candidate)
	if err != nil {
		return []string{fmt.Sprintf("candidate is not JSON encodable: %v", err)}
	}
	err = s.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var msgs []string
	collectLeaves(ve, &msgs)
	if len(msgs) == 0 {
		msgs = append(msgs, ve.Error())
	}
	return msgs
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("%s, path: %s", ve.Message, loc))
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}

// normalize turns arbitrary Go values into the generic JSON shape the
// validator expects.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
