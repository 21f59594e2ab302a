package apieffect

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags every outcome so callers can branch without reading messages.
type Kind string

const (
	KindSuccess     Kind = "SUCCESS"
	KindAPI         Kind = "API"
	KindHTTP        Kind = "HTTP"
	KindNetwork     Kind = "NETWORK"
	KindInvalidData Kind = "INVALID_DATA"
)

// Error is implemented by every classified failure.
type Error interface {
	error
	Kind() Kind
	Explanation() string
}

// ApiError means the server answered with an error payload the API declares.
type ApiError struct {
	Status     int
	StatusText string
	Response   any
}

func (e *ApiError) Kind() Kind { return KindAPI }

func (e *ApiError) Explanation() string {
	return "Request was finished with unsuccessful HTTP code"
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("api error: %d %s", e.Status, e.StatusText)
}

// HttpError means the response status was outside 2xx and carried no
// declared error payload.
type HttpError struct {
	Status     int
	StatusText string
}

func (e *HttpError) Kind() Kind { return KindHTTP }

func (e *HttpError) Explanation() string {
	return "Request was finished with unsuccessful HTTP code"
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("http error: %d %s", e.Status, e.StatusText)
}

// NetworkError means no HTTP response was obtained. An empty Reason marks a
// cause that carried no message.
type NetworkError struct {
	Reason string
	Cause  error
}

func (e *NetworkError) Kind() Kind { return KindNetwork }

func (e *NetworkError) Explanation() string {
	return "Request was failed due to network problems"
}

func (e *NetworkError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unknown"
	}
	return "network error: " + reason
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// InvalidDataError means a response passed classification but failed its
// validation contract.
type InvalidDataError struct {
	ValidationErrors []string
	Response         any
}

func (e *InvalidDataError) Kind() Kind { return KindInvalidData }

func (e *InvalidDataError) Explanation() string {
	return "Response was considered as invalid against a given contract"
}

func (e *InvalidDataError) Error() string {
	return "invalid data: " + strings.Join(e.ValidationErrors, "; ")
}

// KindOf returns the tag of err, KindSuccess for nil, or "" when err was not
// produced by this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var e Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return ""
}

// IsApiError reports whether err is, or wraps, an *ApiError.
func IsApiError(err error) bool { return KindOf(err) == KindAPI }

// IsHttpError reports whether err is, or wraps, an *HttpError.
func IsHttpError(err error) bool { return KindOf(err) == KindHTTP }

// IsNetworkError reports whether err is, or wraps, a *NetworkError.
func IsNetworkError(err error) bool { return KindOf(err) == KindNetwork }

// IsInvalidDataError reports whether err is, or wraps, an *InvalidDataError.
func IsInvalidDataError(err error) bool { return KindOf(err) == KindInvalidData }
