package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestRestyTransportExpandsPathAndQuery(t *testing.T) {
	var gotPath, gotQuery, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Required-Header")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"title","body":"body"}`))
	}))
	defer srv.Close()

	tr := NewRestyTransport(Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	res, err := tr.Get(context.Background(), "/blogposts/{post_id}", &Params{
		Path:   map[string]any{"post_id": "1"},
		Query:  map[string]any{"version": 2},
		Header: map[string]string{"X-Required-Header": "yes"},
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotPath != "/blogposts/1" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotQuery != "version=2" {
		t.Fatalf("query = %s", gotQuery)
	}
	if gotHeader != "yes" {
		t.Fatalf("header = %s", gotHeader)
	}
	if !res.Response.OK || res.Response.Status != http.StatusOK {
		t.Fatalf("unexpected response %+v", res.Response)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || data["title"] != "title" {
		t.Fatalf("unexpected data %#v", res.Data)
	}
	if res.Error != nil {
		t.Fatalf("expected no error payload, got %#v", res.Error)
	}
}

func TestRestyTransportSendsJSONBody(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tr := NewRestyTransport(Options{BaseURL: srv.URL})
	res, err := tr.Put(context.Background(), "/comment", &Params{
		Body: map[string]any{"message": "hi", "replied_at": 1},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if received["message"] != "hi" {
		t.Fatalf("body not forwarded: %#v", received)
	}
	if !res.Response.OK || res.Data != nil {
		t.Fatalf("expected empty success, got %+v", res)
	}
}

func TestRestyTransportDecodesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":500,"message":"Error"}`))
	}))
	defer srv.Close()

	tr := NewRestyTransport(Options{BaseURL: srv.URL})
	res, err := tr.Get(context.Background(), "/blogposts", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Response.OK || res.Response.Status != 500 {
		t.Fatalf("unexpected response %+v", res.Response)
	}
	if res.Response.StatusText != "Internal Server Error" {
		t.Fatalf("status text = %q", res.Response.StatusText)
	}
	body, ok := res.Error.(map[string]any)
	if !ok || body["message"] != "Error" {
		t.Fatalf("unexpected error payload %#v", res.Error)
	}
	if res.Data != nil {
		t.Fatalf("expected no data, got %#v", res.Data)
	}
}

func TestRestyTransportEmptyErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := NewRestyTransport(Options{BaseURL: srv.URL})
	res, err := tr.Delete(context.Background(), "/tag/{name}", &Params{Path: map[string]any{"name": "go"}})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("expected empty string error payload, got %#v", res.Error)
	}
	if res.Response.Status != http.StatusNotFound {
		t.Fatalf("status = %d", res.Response.Status)
	}
}

func TestRestyTransportConnectionFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	tr := NewRestyTransport(Options{BaseURL: "http://" + addr, Timeout: time.Second})
	if _, err := tr.Get(context.Background(), "/blogposts", nil); err == nil {
		t.Fatalf("expected connection error")
	}
}

func TestTransportFuncDispatchesMethod(t *testing.T) {
	var got []Method
	tr := TransportFunc(func(_ context.Context, m Method, _ string, _ *Params) (Result, error) {
		got = append(got, m)
		return Result{}, nil
	})

	for _, m := range Methods() {
		call, err := Bind(tr, m)
		if err != nil {
			t.Fatalf("Bind(%s): %v", m, err)
		}
		if _, err := call(context.Background(), "/anyMethod", nil); err != nil {
			t.Fatalf("call %s: %v", m, err)
		}
	}
	if len(got) != len(Methods()) {
		t.Fatalf("expected %d calls, got %d", len(Methods()), len(got))
	}
	for i, m := range Methods() {
		if got[i] != m {
			t.Fatalf("call %d dispatched to %s, want %s", i, got[i], m)
		}
	}
}

func TestBindRejectsInvalidMethod(t *testing.T) {
	tr := TransportFunc(func(context.Context, Method, string, *Params) (Result, error) { return Result{}, nil })
	if _, err := Bind(tr, Method(0)); err == nil {
		t.Fatalf("expected error for zero method")
	}
	if _, err := Bind(nil, MethodGet); err == nil {
		t.Fatalf("expected error for nil transport")
	}
}

func TestRestyTransportKeepsPlainTextAsString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("123"))
	}))
	defer srv.Close()

	tr := NewRestyTransport(Options{BaseURL: srv.URL})
	res, err := tr.Get(context.Background(), "/count", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got, ok := res.Data.(string); !ok || got != "123" {
		t.Fatalf("expected string %q, got %#v", "123", res.Data)
	}
}

func TestDecodeBodyHonoursContentType(t *testing.T) {
	cases := []struct {
		name string
		ct   string
		body string
		want any
	}{
		{"json number", "application/json", "123", 123.0},
		{"problem json", "application/problem+json", `{"code":1}`, map[string]any{"code": 1.0}},
		{"plain number", "text/plain", "123", "123"},
		{"plain bool", "text/plain", "true", "true"},
		{"no type json", "", "true", true},
		{"no type text", "", "hello", "hello"},
		{"broken json", "application/json", "{oops", "{oops"},
	}
	for _, tc := range cases {
		header := http.Header{}
		if tc.ct != "" {
			header.Set("Content-Type", tc.ct)
		}
		got := decodeBody(header, []byte(tc.body))
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %#v, want %#v", tc.name, got, tc.want)
		}
	}
}
