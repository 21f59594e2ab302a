package publishers

import (
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/openapi-ff/internal/domain"
)

// Event represents the payload published downstream for one probed route.
type Event struct {
	ID               string    `json:"id"`
	RouteID          string    `json:"route_id"`
	Method           string    `json:"method"`
	Path             string    `json:"path"`
	Kind             string    `json:"kind"`
	Status           int       `json:"status,omitempty"`
	StatusText       string    `json:"status_text,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	ValidationErrors []string  `json:"validation_errors,omitempty"`
	Data             any       `json:"data,omitempty"`
	Cached           bool      `json:"cached,omitempty"`
	ElapsedMS        int64     `json:"elapsed_ms"`
	CollectedAt      time.Time `json:"collected_at"`
}

// NewEvent constructs an Event for the given probe result.
func NewEvent(res domain.ProbeResult) Event {
	collected := res.CollectedAt
	if collected.IsZero() {
		collected = time.Now()
	}
	return Event{
		ID:               uuid.NewString(),
		RouteID:          res.RouteID,
		Method:           res.Method,
		Path:             res.Path,
		Kind:             res.Kind,
		Status:           res.Status,
		StatusText:       res.StatusText,
		Reason:           res.Reason,
		ValidationErrors: res.ValidationErrors,
		Data:             res.Data,
		Cached:           res.Cached,
		ElapsedMS:        res.Elapsed.Milliseconds(),
		CollectedAt:      collected.UTC(),
	}
}

// attributes returns the routing attributes shared by the queue publishers.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"route_id": e.RouteID,
		"kind":     e.Kind,
	}
}
