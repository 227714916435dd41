package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire wrapper around an event payload.
// MessageID is the dedup key consumers lock on, Attempts is incremented
// by the consumer on every republish.
type Envelope struct {
	EventID   string          `json:"eventId"`
	MessageID string          `json:"messageId"`
	TraceID   string          `json:"traceId"`
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Attempts  int             `json:"attempts"`
	Payload   json.RawMessage `json:"payload"`
}

type traceKey struct{}

// WithTraceID stores the correlation id for everything published
// downstream of this context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFromContext returns the stored correlation id or a fresh one
func TraceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
