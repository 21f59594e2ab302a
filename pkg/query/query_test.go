package query

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/samvad-hq/openapi-ff/pkg/apieffect"
	"github.com/samvad-hq/openapi-ff/pkg/contract"
	"github.com/samvad-hq/openapi-ff/pkg/httpclient"
)

const postSchema = `{
  "type": "object",
  "required": ["title", "body"],
  "properties": {
    "title": {"type": "string"},
    "body": {"type": "string"}
  }
}`

type memCache struct {
	items map[string][]byte
	puts  int
}

func (m *memCache) Get(key string) ([]byte, bool, error) {
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memCache) Put(key string, value []byte) error {
	if m.items == nil {
		m.items = make(map[string][]byte)
	}
	m.items[key] = value
	m.puts++
	return nil
}

func newPostQuery(t *testing.T, body string, hits *atomic.Int32, opts ...Option) *Query[httpclient.Params] {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Path != "/blogposts/1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	schema, err := contract.NewJSONSchema("post", []byte(postSchema))
	if err != nil {
		t.Fatalf("NewJSONSchema: %v", err)
	}
	client, err := apieffect.CreateClient(
		httpclient.NewRestyTransport(httpclient.Options{BaseURL: srv.URL}),
		apieffect.WithContractFactory(func(httpclient.Method, string) contract.Contract { return schema }),
	)
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	fx, err := apieffect.CreateApiEffect[httpclient.Params](client, httpclient.MethodGet, "/blogposts/{post_id}")
	if err != nil {
		t.Fatalf("CreateApiEffect: %v", err)
	}
	q, err := New(fx, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return q
}

var postParams = httpclient.Params{Path: map[string]any{"post_id": "1"}}

func TestQueryStoresValidData(t *testing.T) {
	q := newPostQuery(t, `{"title":"title","body":"body"}`, nil)
	if q.Status() != StatusInitial {
		t.Fatalf("initial status = %q", q.Status())
	}

	var seen []Status
	q.Watch(func(s State) { seen = append(seen, s.Status) })

	if err := q.Start(context.Background(), postParams); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !q.Succeeded() || q.Error() != nil {
		t.Fatalf("expected success, got %+v", q.State())
	}
	data, ok := q.Data().(map[string]any)
	if !ok || data["title"] != "title" {
		t.Fatalf("data = %#v", q.Data())
	}
	if len(seen) != 2 || seen[0] != StatusPending || seen[1] != StatusDone {
		t.Fatalf("transitions = %v", seen)
	}
}

func TestQueryRejectsDataBreakingContract(t *testing.T) {
	q := newPostQuery(t, `{"title":"title"}`, nil)

	err := q.Start(context.Background(), postParams)
	var invalid *apieffect.InvalidDataError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidDataError, got %T %v", err, err)
	}
	if apieffect.KindOf(err) != apieffect.KindInvalidData {
		t.Fatalf("kind = %q", apieffect.KindOf(err))
	}
	if len(invalid.ValidationErrors) == 0 || !strings.Contains(strings.Join(invalid.ValidationErrors, " "), "body") {
		t.Fatalf("validation errors = %v", invalid.ValidationErrors)
	}
	if !q.Failed() || q.Data() != nil {
		t.Fatalf("expected failed state without data, got %+v", q.State())
	}
}

func TestQueryKeepsClassifiedFailure(t *testing.T) {
	q := newPostQuery(t, `{}`, nil)

	err := q.Start(context.Background(), httpclient.Params{Path: map[string]any{"post_id": "2"}})
	if !apieffect.IsHttpError(err) {
		t.Fatalf("expected http error, got %v", err)
	}
	if !apieffect.IsHttpError(q.Error()) {
		t.Fatalf("state error = %v", q.Error())
	}
}

func TestQueryServesFromCache(t *testing.T) {
	var hits atomic.Int32
	cache := &memCache{}
	q := newPostQuery(t, `{"title":"title","body":"body"}`, &hits, WithCache(cache, "resp:"))

	for i := 0; i < 2; i++ {
		if err := q.Start(context.Background(), postParams); err != nil {
			t.Fatalf("Start #%d: %v", i, err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("server hits = %d, want 1", hits.Load())
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts = %d", cache.puts)
	}
	if !q.State().Cached {
		t.Fatalf("second run should be served from cache")
	}
	for k := range cache.items {
		if !strings.HasPrefix(k, "resp:") {
			t.Fatalf("cache key %q missing prefix", k)
		}
	}
}

// recordingLogger keeps warn messages.
type recordingLogger struct {
	noopLogger
	warns []string
}

func (r *recordingLogger) WarnObj(msg, _ string, _ interface{}) { r.warns = append(r.warns, msg) }

func TestQueryRefetchesAndWarnsOnCorruptCacheEntry(t *testing.T) {
	var hits atomic.Int32
	cache := &memCache{}
	log := &recordingLogger{}
	q := newPostQuery(t, `{"title":"title","body":"body"}`, &hits, WithCache(cache, "resp:"), WithLogger(log))

	if err := q.Start(context.Background(), postParams); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for k := range cache.items {
		cache.items[k] = []byte("{not json")
	}
	if err := q.Start(context.Background(), postParams); err != nil {
		t.Fatalf("Start after corruption: %v", err)
	}

	if hits.Load() != 2 {
		t.Fatalf("server hits = %d, want 2", hits.Load())
	}
	if q.State().Cached {
		t.Fatalf("corrupt entry must not be served")
	}
	if len(log.warns) != 1 || log.warns[0] != "query cache entry undecodable" {
		t.Fatalf("warns = %v", log.warns)
	}
}

func TestKeyIsStablePerRequest(t *testing.T) {
	a := Key("", "get", "/blogposts", []byte(`{"a":1}`))
	b := Key("", "get", "/blogposts", []byte(`{"a":1}`))
	c := Key("", "get", "/blogposts", []byte(`{"a":2}`))
	if a != b || a == c || len(a) != 40 {
		t.Fatalf("unexpected keys %q %q %q", a, b, c)
	}
}

func TestNewRejectsNilEffect(t *testing.T) {
	if _, err := New[httpclient.Params](nil); err == nil {
		t.Fatalf("expected error for nil api effect")
	}
}
