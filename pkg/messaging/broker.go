package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// Broker is where relayed outbox events are published. Consumers
// subscribe with their own clients.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

// Message is what relayed outbox events look like on the wire.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Channel maps an event type onto the channel it is published on.
func Channel(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}
