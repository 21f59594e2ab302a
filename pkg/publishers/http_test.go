package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/openapi-ff/internal/domain"
)

// webhook captures the last request it received.
type webhook struct {
	method string
	header http.Header
	body   map[string]any
}

func newWebhook(t *testing.T, status int) (*webhook, *httptest.Server) {
	t.Helper()
	hook := &webhook{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hook.method = r.Method
		hook.header = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&hook.body); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return hook, srv
}

func apiFailureEvent() Event {
	return NewEvent(domain.ProbeResult{
		RouteID:     "get-post",
		Method:      "get",
		Path:        "/blogposts/{post_id}",
		Kind:        "API",
		Status:      500,
		StatusText:  "Internal Server Error",
		Data:        map[string]any{"code": 500.0, "message": "Error"},
		Elapsed:     42 * time.Millisecond,
		CollectedAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	})
}

func TestHTTPPublisherDeliversRouteOutcome(t *testing.T) {
	hook, srv := newWebhook(t, http.StatusAccepted)

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:            srv.URL,
			Method:         http.MethodPut,
			Headers:        map[string]string{"X-Team": "api"},
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := apiFailureEvent()
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if hook.method != http.MethodPut {
		t.Fatalf("method = %s", hook.method)
	}
	if got := hook.header.Get("X-Team"); got != "api" {
		t.Fatalf("X-Team header = %q", got)
	}
	if got := hook.header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type = %q", got)
	}

	id, _ := hook.body["id"].(string)
	if id == "" || id != evt.ID {
		t.Fatalf("id = %q, want %q", id, evt.ID)
	}
	if hook.body["route_id"] != "get-post" || hook.body["kind"] != "API" {
		t.Fatalf("unexpected route/kind in %v", hook.body)
	}
	if hook.body["status"] != 500.0 || hook.body["status_text"] != "Internal Server Error" {
		t.Fatalf("unexpected status in %v", hook.body)
	}
	if hook.body["elapsed_ms"] != 42.0 {
		t.Fatalf("elapsed_ms = %v", hook.body["elapsed_ms"])
	}
	data, ok := hook.body["data"].(map[string]any)
	if !ok || data["message"] != "Error" {
		t.Fatalf("data = %#v", hook.body["data"])
	}
}

func TestHTTPPublisherDefaultsToPost(t *testing.T) {
	hook, srv := newWebhook(t, http.StatusOK)

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, TimeoutSeconds: 2},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := NewEvent(domain.ProbeResult{RouteID: "list-posts", Kind: "SUCCESS"})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if hook.method != http.MethodPost {
		t.Fatalf("method = %s, want POST", hook.method)
	}
	if hook.body["route_id"] != "list-posts" || hook.body["kind"] != "SUCCESS" {
		t.Fatalf("unexpected body %v", hook.body)
	}
	if _, has := hook.body["status"]; has {
		t.Fatalf("success events carry no status, got %v", hook.body["status"])
	}
}

func TestHTTPPublisherReportsRejectedDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "route unknown", http.StatusBadRequest)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, TimeoutSeconds: 1},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	err = pub.Publish(context.Background(), apiFailureEvent())
	if err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
	if want := "http response status 400: route unknown"; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestHTTPPublisherRequiresConfig(t *testing.T) {
	if _, err := newHTTPPublisher(context.Background(), PublisherConfig{ID: "hook", Type: TypeHTTP}, nil); err == nil {
		t.Fatalf("expected error without http configuration")
	}
}
