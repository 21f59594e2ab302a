package httpclient

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is one of the HTTP verbs an OpenAPI path item can declare.
type Method uint8

const (
	MethodGet Method = iota + 1
	MethodPut
	MethodPost
	MethodDelete
	MethodOptions
	MethodHead
	MethodPatch
	MethodTrace
)

var methodNames = [...]string{
	MethodGet:     "get",
	MethodPut:     "put",
	MethodPost:    "post",
	MethodDelete:  "delete",
	MethodOptions: "options",
	MethodHead:    "head",
	MethodPatch:   "patch",
	MethodTrace:   "trace",
}

var methodVerbs = [...]string{
	MethodGet:     http.MethodGet,
	MethodPut:     http.MethodPut,
	MethodPost:    http.MethodPost,
	MethodDelete:  http.MethodDelete,
	MethodOptions: http.MethodOptions,
	MethodHead:    http.MethodHead,
	MethodPatch:   http.MethodPatch,
	MethodTrace:   http.MethodTrace,
}

// Methods lists every supported method in declaration order.
func Methods() []Method {
	return []Method{MethodGet, MethodPut, MethodPost, MethodDelete, MethodOptions, MethodHead, MethodPatch, MethodTrace}
}

// ParseMethod accepts a method name in any case ("get", "GET").
func ParseMethod(s string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Methods() {
		if methodNames[m] == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unsupported http method %q", s)
}

// Valid reports whether m is one of the declared constants.
func (m Method) Valid() bool {
	return m >= MethodGet && m <= MethodTrace
}

// String returns the lower-case name used by OpenAPI path items.
func (m Method) String() string {
	if !m.Valid() {
		return fmt.Sprintf("method(%d)", uint8(m))
	}
	return methodNames[m]
}

// Verb returns the upper-case request-line verb.
func (m Method) Verb() string {
	if !m.Valid() {
		return ""
	}
	return methodVerbs[m]
}

func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid http method %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
