package probe

import (
	"context"

	"github.com/samvad-hq/openapi-ff/pkg/publishers"
)

// EventPublisher publishes probe outcomes downstream and reports how many
// sinks accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
