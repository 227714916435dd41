package workers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/finvault/walletd/internal/events"
	"github.com/finvault/walletd/internal/logger"
)

type fakePusher struct {
	pushes []struct {
		userID uuid.UUID
		frame  any
	}
}

func (p *fakePusher) Push(userID uuid.UUID, v any) {
	p.pushes = append(p.pushes, struct {
		userID uuid.UUID
		frame  any
	}{userID, v})
}

func envelope(t *testing.T, eventType string, payload any) events.Envelope {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	return events.Envelope{
		EventID:   "event-1",
		MessageID: "msg-1",
		TraceID:   "trace-1",
		EventType: eventType,
		Payload:   raw,
	}
}

func TestNotifier_Handle(t *testing.T) {
	userID := uuid.New()

	t.Run("pushes user facing events", func(t *testing.T) {
		hub := &fakePusher{}
		n := NewNotifier(hub, logger.NewNoOpLogger())

		env := envelope(t, events.NameWalletBalanceUpdated, map[string]any{"userId": userID})
		require.NoError(t, n.Handle(t.Context(), env))

		require.Len(t, hub.pushes, 1)
		require.Equal(t, userID, hub.pushes[0].userID)

		frame, ok := hub.pushes[0].frame.(Notification)
		require.True(t, ok)
		require.Equal(t, events.NameWalletBalanceUpdated, frame.Type)
		require.Equal(t, "trace-1", frame.TraceID)
	})

	t.Run("ignores non user facing events", func(t *testing.T) {
		hub := &fakePusher{}
		n := NewNotifier(hub, logger.NewNoOpLogger())

		env := envelope(t, events.NameTransactionCreated, map[string]any{"userId": userID})
		require.NoError(t, n.Handle(t.Context(), env))

		require.Empty(t, hub.pushes)
	})

	t.Run("fails on payload without user", func(t *testing.T) {
		hub := &fakePusher{}
		n := NewNotifier(hub, logger.NewNoOpLogger())

		env := envelope(t, events.NameTransactionCompleted, map[string]any{"other": "field"})
		require.Error(t, n.Handle(t.Context(), env), "an unroutable event should surface for retry")

		require.Empty(t, hub.pushes)
	})

	t.Run("fails on malformed payload", func(t *testing.T) {
		hub := &fakePusher{}
		n := NewNotifier(hub, logger.NewNoOpLogger())

		env := events.Envelope{EventType: events.NameTransactionCompleted, Payload: json.RawMessage("{broken")}
		require.Error(t, n.Handle(t.Context(), env))
	})
}
