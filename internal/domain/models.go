package domain

import "time"

// ProbeResult is the settled outcome of calling one configured route.
type ProbeResult struct {
	RouteID          string
	Method           string
	Path             string
	Kind             string
	Status           int
	StatusText       string
	Reason           string
	ValidationErrors []string
	Data             any
	Cached           bool
	Elapsed          time.Duration
	CollectedAt      time.Time
}

// Succeeded reports whether the route answered with valid data.
func (r ProbeResult) Succeeded() bool { return r.Kind == "SUCCESS" }
