package apieffect

import (
	"encoding/json"
	"reflect"

	"github.com/samvad-hq/openapi-ff/pkg/httpclient"
)

// Outcome is the settled result of one invocation: Data on success, Err
// otherwise.
type Outcome struct {
	Data any
	Err  error
}

// Kind returns KindSuccess or the tag of Err.
func (o Outcome) Kind() Kind { return KindOf(o.Err) }

// Classify maps a transport result onto exactly one outcome. A declared
// error payload wins over a failed status.
func Classify(res httpclient.Result, err error) Outcome {
	if err != nil {
		return Outcome{Err: &NetworkError{Reason: err.Error(), Cause: err}}
	}

	if declaredError(res.Error) {
		return Outcome{Err: &ApiError{
			Status:     res.Response.Status,
			StatusText: res.Response.StatusText,
			Response:   res.Error,
		}}
	}

	if !res.Response.OK {
		return Outcome{Err: &HttpError{
			Status:     res.Response.Status,
			StatusText: res.Response.StatusText,
		}}
	}

	return Outcome{Data: res.Data}
}

// declaredError treats nil, typed nils, "" and empty raw JSON as absent.
func declaredError(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case json.RawMessage:
		return len(t) > 0 && string(t) != "null"
	case []byte:
		return len(t) > 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
