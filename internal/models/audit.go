package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is an append-only copy of a consumed domain event,
// kept for reconciliation. Never updated or deleted.
type AuditRecord struct {
	ID            uuid.UUID
	EventID       string
	EventType     string
	TransactionID *uuid.UUID
	WalletID      *uuid.UUID
	UserID        *uuid.UUID
	Payload       json.RawMessage
	RecordedAt    time.Time
}
