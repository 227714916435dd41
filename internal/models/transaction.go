package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDeposit  = "DEPOSIT"
	TransactionTypeTransfer = "TRANSFER"
	TransactionTypeReversal = "REVERSAL"
)

const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusReversed  = "REVERSED"
	TransactionStatusFailed    = "FAILED"
)

// Transaction is a single ledger entry: a deposit, one leg of a transfer
// or a reversal. Amount is always positive, the direction follows from
// the type and the sender/receiver roles.
type Transaction struct {
	ID         uuid.UUID
	WalletID   uuid.UUID
	SenderID   *uuid.UUID
	ReceiverID *uuid.UUID
	Type       string
	Status     string
	Amount     decimal.Decimal

	Description string

	// Set on the original transaction once it has been reversed
	ReversedByID *uuid.UUID
	ReversedAt   *time.Time

	// Set on derived entries: a reversal points back to what it
	// reverses, a transfer's receiver leg to the sender's entry
	OriginalTransactionID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanBeReversed reports whether the transaction may still be reversed:
// only completed entries and never twice. Derived entries, a reversal or
// a transfer's receiver leg, follow their origin and are never reversed
// on their own.
func (t Transaction) CanBeReversed() bool {
	return t.Status == TransactionStatusCompleted &&
		t.Type != TransactionTypeReversal &&
		t.OriginalTransactionID == nil
}
