package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/finvault/walletd/internal/events"
	"github.com/finvault/walletd/internal/logger"
)

type pusher interface {
	Push(userID uuid.UUID, v any)
}

// Notification is the frame pushed to the user's open websockets
type Notification struct {
	Type    string          `json:"type"`
	TraceID string          `json:"traceId"`
	Data    json.RawMessage `json:"data"`
}

// Notifier mirrors user facing events to the websocket hub.
// Events nobody needs to see live (transaction.created) are dropped.
type Notifier struct {
	hub    pusher
	logger logger.Logger
}

func NewNotifier(hub pusher, l logger.Logger) *Notifier {
	return &Notifier{hub: hub, logger: l}
}

func (n *Notifier) Handle(ctx context.Context, env events.Envelope) error {
	switch env.EventType {
	case events.NameTransactionCompleted,
		events.NameTransactionReversed,
		events.NameWalletBalanceUpdated:
	default:
		return nil
	}

	var ref struct {
		UserID uuid.UUID `json:"userId"`
	}
	if err := json.Unmarshal(env.Payload, &ref); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	if ref.UserID == uuid.Nil {
		return fmt.Errorf("event %s has no user to notify", env.EventID)
	}

	n.hub.Push(ref.UserID, Notification{
		Type:    env.EventType,
		TraceID: env.TraceID,
		Data:    env.Payload,
	})

	n.logger.Debug("Notification pushed", "event_type", env.EventType, "user_id", ref.UserID)
	return nil
}
