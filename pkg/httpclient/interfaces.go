package httpclient

import (
	"context"
	"net/http"
)

// Params is the structured parameter bag of a single request.
type Params struct {
	Body   any               `json:"body,omitempty" yaml:"body"`
	Query  map[string]any    `json:"query,omitempty" yaml:"query"`
	Header map[string]string `json:"header,omitempty" yaml:"header"`
	Path   map[string]any    `json:"path,omitempty" yaml:"path"`
}

// Response carries the status line of a settled request.
type Response struct {
	OK         bool
	Status     int
	StatusText string
	Header     http.Header
}

// Result is what a transport resolves to once an HTTP response was obtained.
// Data is set for successful responses, Error for responses the server marked
// as failed. Connection-level failures are returned as the call's error instead.
type Result struct {
	Data     any
	Error    any
	Response Response
}

// MethodFunc performs a request for a single HTTP method.
type MethodFunc func(ctx context.Context, path string, params *Params) (Result, error)

// Transport exposes one callable per HTTP method so callers can inject mocks
// or different HTTP stacks.
type Transport interface {
	Get(ctx context.Context, path string, params *Params) (Result, error)
	Put(ctx context.Context, path string, params *Params) (Result, error)
	Post(ctx context.Context, path string, params *Params) (Result, error)
	Delete(ctx context.Context, path string, params *Params) (Result, error)
	Options(ctx context.Context, path string, params *Params) (Result, error)
	Head(ctx context.Context, path string, params *Params) (Result, error)
	Patch(ctx context.Context, path string, params *Params) (Result, error)
	Trace(ctx context.Context, path string, params *Params) (Result, error)
}

// TransportFunc adapts a single function to the Transport interface.
type TransportFunc func(ctx context.Context, method Method, path string, params *Params) (Result, error)

func (f TransportFunc) Get(ctx context.Context, path string, p *Params) (Result, error) {
	return f(ctx, MethodGet, path, p)
}

func (f TransportFunc) Put(ctx context.Context, path string, p *Params) (Result, error) {
	return f(ctx, MethodPut, path, p)
}

func (f TransportFunc) Post(ctx context.Context, path string, p *Params) (Result, error) {
	return f(ctx, MethodPost, path, p)
}

func (f TransportFunc) Delete(ctx context.Context, path string, p *Params) (Result, error) {
	return f(ctx, MethodDelete, path, p)
}

func (f TransportFunc) Options(ctx context.Context, path string, p *Params) (Result, error) {
	return f(ctx, MethodOptions, path, p)
}

func (f TransportFunc) Head(ctx context.Context, path string, p *Params) (Result, error) {
	return f(ctx, MethodHead, path, p)
}

func (f TransportFunc) Patch(ctx context.Context, path string, p *Params) (Result, error) {
	return f(ctx, MethodPatch, path, p)
}

func (f TransportFunc) Trace(ctx context.Context, path string, p *Params) (Result, error) {
	return f(ctx, MethodTrace, path, p)
}

// Bind returns the callable t exposes for m.
func Bind(t Transport, m Method) (MethodFunc, error) {
	if t == nil {
		return nil, errNilTransport
	}
	if !m.Valid() {
		return nil, errInvalidMethod(m)
	}
	return methodBinders[m](t), nil
}

var methodBinders = [...]func(Transport) MethodFunc{
	MethodGet:     func(t Transport) MethodFunc { return t.Get },
	MethodPut:     func(t Transport) MethodFunc { return t.Put },
	MethodPost:    func(t Transport) MethodFunc { return t.Post },
	MethodDelete:  func(t Transport) MethodFunc { return t.Delete },
	MethodOptions: func(t Transport) MethodFunc { return t.Options },
	MethodHead:    func(t Transport) MethodFunc { return t.Head },
	MethodPatch:   func(t Transport) MethodFunc { return t.Patch },
	MethodTrace:   func(t Transport) MethodFunc { return t.Trace },
}
