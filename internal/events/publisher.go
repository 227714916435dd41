package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/walletd/internal/logger"
)

// Publisher hands completed domain events to the broker.
// Publishing is fire and forget on purpose: a committed balance mutation
// must not be undone because event delivery failed, so failures are
// logged here and never returned to the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type queuePublisher interface {
	DeclareQueue(name string) error
	Publish(ctx context.Context, queue string, body []byte, headers map[string]any) error
}

type BrokerPublisher struct {
	broker queuePublisher
	queues []string
	logger logger.Logger
}

// NewBrokerPublisher declares the fan-out queues and returns a publisher
// sending every event to all of them
func NewBrokerPublisher(broker queuePublisher, l logger.Logger, queues ...string) (*BrokerPublisher, error) {
	if len(queues) == 0 {
		queues = []string{QueueAudit, QueueNotify}
	}

	for _, q := range queues {
		if err := broker.DeclareQueue(q); err != nil {
			return nil, err
		}
	}

	return &BrokerPublisher{
		broker: broker,
		queues: queues,
		logger: l,
	}, nil
}

func (p *BrokerPublisher) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event payload", "event", event.EventName(), "error", err)
		return
	}

	env := Envelope{
		EventID:   uuid.NewString(),
		TraceID:   TraceIDFromContext(ctx),
		EventType: event.EventName(),
		Timestamp: time.Now().UTC(),
		Attempts:  0,
		Payload:   payload,
	}

	// EventID is shared across the fan-out, MessageID is not: the
	// consumers dedup on MessageID through one shared store, so a common
	// id would let the first queue's ack swallow every other copy
	for _, queue := range p.queues {
		env.MessageID = uuid.NewString()

		body, err := json.Marshal(env)
		if err != nil {
			p.logger.Error("Failed to marshal event envelope", "event", event.EventName(), "error", err)
			return
		}

		if err := p.broker.Publish(ctx, queue, body, nil); err != nil {
			p.logger.Error("Failed to publish event",
				"event", event.EventName(),
				"queue", queue,
				"message_id", env.MessageID,
				"trace_id", env.TraceID,
				"error", err,
			)
		}
	}
}
