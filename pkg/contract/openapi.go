package contract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	k8syaml "sigs.k8s.io/yaml"

	"github.com/samvad-hq/openapi-ff/pkg/httpclient"
)

// Document derives response contracts from an OpenAPI v3 document.
type Document struct {
	model *libopenapi.DocumentModel[v3.Document]

	mu        sync.Mutex
	contracts map[string]Contract
}

// LoadOpenAPI parses, builds and resolves an OpenAPI v3 document.
func LoadOpenAPI(content []byte) (*Document, error) {
	d, err := libopenapi.NewDocument(content)
	if err != nil {
		return nil, fmt.Errorf("create openapi document: %w", err)
	}

	model, modelErrors := d.BuildV3Model()
	if len(modelErrors) > 0 {
		return nil, fmt.Errorf("build v3 model: %w", errors.Join(modelErrors...))
	}
	if model == nil {
		return nil, errors.New("build v3 model: resulting document was nil")
	}

	resolvingErrors := model.Index.GetResolver().Resolve()
	if len(resolvingErrors) > 0 {
		errs := make([]error, 0, len(resolvingErrors))
		for i := range resolvingErrors {
			errs = append(errs, resolvingErrors[i].ErrorRef)
		}
		return nil, fmt.Errorf("resolve model references: %w", errors.Join(errs...))
	}

	return &Document{model: model, contracts: make(map[string]Contract)}, nil
}

// ContractFor returns the contract of the first declared 2xx JSON response
// of the operation. Operations without such a schema get Unknown().
func (d *Document) ContractFor(method httpclient.Method, path string) (Contract, error) {
	key := method.String() + " " + path

	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.contracts[key]; ok {
		return c, nil
	}

	schemaJSON, found, err := d.successSchema(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	var c Contract = Unknown()
	if found {
		js, err := NewJSONSchema(key, schemaJSON)
		if err != nil {
			return nil, err
		}
		c = js
	}
	d.contracts[key] = c
	return c, nil
}

// Factory adapts the document to a per-route contract factory. Routes whose
// schema cannot be compiled are logged and left unvalidated.
func (d *Document) Factory(log Logger) func(method httpclient.Method, path string) Contract {
	log = ensureLogger(log)
	return func(method httpclient.Method, path string) Contract {
		c, err := d.ContractFor(method, path)
		if err != nil {
			log.WarnObj("response contract unavailable", "contract_error", map[string]any{
				"method": method.String(),
				"path":   path,
				"error":  err.Error(),
			})
			return Unknown()
		}
		return c
	}
}

func (d *Document) successSchema(method httpclient.Method, path string) ([]byte, bool, error) {
	paths := d.model.Model.Paths
	if paths == nil || paths.PathItems == nil {
		return nil, false, nil
	}
	item, ok := paths.PathItems.Get(path)
	if !ok || item == nil {
		return nil, false, nil
	}

	var op *v3.Operation
	ops := item.GetOperations()
	for pair := ops.First(); pair != nil; pair = pair.Next() {
		if strings.EqualFold(pair.Key(), method.String()) {
			op = pair.Value()
			break
		}
	}
	if op == nil || op.Responses == nil || op.Responses.Codes == nil {
		return nil, false, nil
	}

	var (
		best     int
		resp     *v3.Response
		wildcard *v3.Response
	)
	for pair := op.Responses.Codes.First(); pair != nil; pair = pair.Next() {
		code, err := strconv.Atoi(pair.Key())
		if err != nil {
			if strings.EqualFold(pair.Key(), "2XX") {
				wildcard = pair.Value()
			}
			continue
		}
		if code >= 200 && code < 300 && (best == 0 || code < best) {
			best = code
			resp = pair.Value()
		}
	}
	if resp == nil {
		resp = wildcard
	}
	if resp == nil || resp.Content == nil {
		return nil, false, nil
	}

	var proxy *base.SchemaProxy
	for pair := resp.Content.First(); pair != nil; pair = pair.Next() {
		if isJSONMediaType(pair.Key()) && pair.Value() != nil && pair.Value().Schema != nil {
			proxy = pair.Value().Schema
			break
		}
	}
	if proxy == nil {
		return nil, false, nil
	}

	schema, err := proxy.BuildSchema()
	if err != nil {
		return nil, false, fmt.Errorf("build response schema: %w", err)
	}
	if schema == nil {
		return nil, false, nil
	}
	rendered, err := schema.RenderInline()
	if err != nil {
		return nil, false, fmt.Errorf("render response schema: %w", err)
	}
	js, err := k8syaml.YAMLToJSON(rendered)
	if err != nil {
		return nil, false, fmt.Errorf("convert response schema to json: %w", err)
	}
	return js, true, nil
}

func isJSONMediaType(mt string) bool {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json") || mt == "*/*"
}
