// Package workers holds the handlers plugged into the resilient
// consumer: one persists the audit trail, one mirrors events to
// connected websockets.
package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/finvault/walletd/internal/events"
	"github.com/finvault/walletd/internal/logger"
	"github.com/finvault/walletd/internal/repository"
)

// Audit appends every consumed event to the audit_records table.
// Inserting is idempotent at the pipeline level: the consumer skips
// messages already marked processed.
type Audit struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewAudit(storage repository.Storage, l logger.Logger) *Audit {
	return &Audit{storage: storage, logger: l}
}

func (a *Audit) Handle(ctx context.Context, env events.Envelope) error {
	arg := repository.CreateAuditRecordParams{
		EventID:   env.EventID,
		EventType: env.EventType,
		Payload:   env.Payload,
	}

	// Reference ids are extracted best effort: a payload without them
	// is still worth recording
	var refs struct {
		TransactionID *uuid.UUID `json:"transactionId"`
		WalletID      *uuid.UUID `json:"walletId"`
		UserID        *uuid.UUID `json:"userId"`
	}
	if err := json.Unmarshal(env.Payload, &refs); err == nil {
		arg.TransactionID = refs.TransactionID
		arg.WalletID = refs.WalletID
		arg.UserID = refs.UserID
	}

	if _, err := a.storage.Audit().CreateRecord(ctx, arg); err != nil {
		return fmt.Errorf("record audit event %s: %w", env.EventID, err)
	}

	a.logger.Debug("Audit record stored", "event_id", env.EventID, "event_type", env.EventType)
	return nil
}
