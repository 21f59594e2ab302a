package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures a RestyTransport.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// RestyTransport adapts resty.Client to the Transport interface.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a transport rooted at opts.BaseURL.
func NewRestyTransport(opts Options) *RestyTransport {
	c := newRestyBaseClient(opts.Timeout)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		c.SetBaseURL(strings.TrimRight(base, "/"))
	}
	if len(opts.Headers) > 0 {
		c.SetHeaders(opts.Headers)
	}
	return &RestyTransport{client: c}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

func (r *RestyTransport) Get(ctx context.Context, path string, p *Params) (Result, error) {
	return r.do(ctx, MethodGet, path, p)
}

func (r *RestyTransport) Put(ctx context.Context, path string, p *Params) (Result, error) {
	return r.do(ctx, MethodPut, path, p)
}

func (r *RestyTransport) Post(ctx context.Context, path string, p *Params) (Result, error) {
	return r.do(ctx, MethodPost, path, p)
}

func (r *RestyTransport) Delete(ctx context.Context, path string, p *Params) (Result, error) {
	return r.do(ctx, MethodDelete, path, p)
}

func (r *RestyTransport) Options(ctx context.Context, path string, p *Params) (Result, error) {
	return r.do(ctx, MethodOptions, path, p)
}

func (r *RestyTransport) Head(ctx context.Context, path string, p *Params) (Result, error) {
	return r.do(ctx, MethodHead, path, p)
}

func (r *RestyTransport) Patch(ctx context.Context, path string, p *Params) (Result, error) {
	return r.do(ctx, MethodPatch, path, p)
}

func (r *RestyTransport) Trace(ctx context.Context, path string, p *Params) (Result, error) {
	return r.do(ctx, MethodTrace, path, p)
}

// do performs the request. Only failures that left no HTTP response are
// returned as errors; every status code resolves to a Result.
func (r *RestyTransport) do(ctx context.Context, m Method, path string, p *Params) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req := r.client.R().SetContext(ctx)

	target := path
	if p != nil {
		target = ExpandPath(path, p.Path)
		if q := EncodeQuery(p.Query); len(q) > 0 {
			req.SetQueryParamsFromValues(q)
		}
		if len(p.Header) > 0 {
			req.SetHeaders(p.Header)
		}
		if p.Body != nil {
			req.SetHeader("Content-Type", "application/json")
			req.SetBody(p.Body)
		}
	}

	resp, err := req.Execute(m.Verb(), target)
	if err != nil {
		return Result{}, err
	}
	return decodeResponse(resp.StatusCode(), resp.Status(), resp.Header(), resp.Body()), nil
}

// decodeResponse splits a raw response into data or error following the
// openapi-fetch convention.
func decodeResponse(status int, statusLine string, header http.Header, body []byte) Result {
	res := Result{
		Response: Response{
			OK:         status >= 200 && status < 300,
			Status:     status,
			StatusText: statusText(status, statusLine),
			Header:     header,
		},
	}

	empty := len(bytes.TrimSpace(body)) == 0
	if res.Response.OK {
		if status == http.StatusNoContent || empty {
			return res
		}
		res.Data = decodeBody(header, body)
		return res
	}

	if empty {
		res.Error = ""
		return res
	}
	res.Error = decodeBody(header, body)
	return res
}

func decodeBody(header http.Header, body []byte) any {
	ct := strings.ToLower(strings.TrimSpace(header.Get("Content-Type")))
	if strings.Contains(ct, "json") || (ct == "" && json.Valid(body)) {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return v
		}
	}
	return string(body)
}

// statusText strips the numeric code from a status line such as "404 Not Found".
func statusText(status int, statusLine string) string {
	text := strings.TrimSpace(strings.TrimPrefix(statusLine, strconv.Itoa(status)))
	if text == "" {
		return http.StatusText(status)
	}
	return text
}
