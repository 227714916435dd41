package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event names, the stable wire contract for downstream consumers
const (
	NameTransactionCreated   = "transaction.created"
	NameTransactionCompleted = "transaction.completed"
	NameTransactionReversed  = "transaction.reversed"
	NameWalletBalanceUpdated = "wallet.balance.updated"
)

// Queues every domain event is fanned out to, each with its own consumer
const (
	QueueAudit  = "wallet.events.audit"
	QueueNotify = "wallet.events.notify"
)

// Event is implemented by every domain event kind. One struct per kind,
// so dispatch happens on the concrete type rather than a name string.
type Event interface {
	EventName() string
}

type TransactionCreated struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	WalletID      uuid.UUID       `json:"walletId"`
	UserID        uuid.UUID       `json:"userId"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (TransactionCreated) EventName() string { return NameTransactionCreated }

type TransactionCompleted struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	WalletID      uuid.UUID       `json:"walletId"`
	UserID        uuid.UUID       `json:"userId"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	CompletedAt   time.Time       `json:"completedAt"`
}

func (TransactionCompleted) EventName() string { return NameTransactionCompleted }

type TransactionReversed struct {
	TransactionID         uuid.UUID       `json:"transactionId"`
	OriginalTransactionID uuid.UUID       `json:"originalTransactionId"`
	WalletID              uuid.UUID       `json:"walletId"`
	UserID                uuid.UUID       `json:"userId"`
	Amount                decimal.Decimal `json:"amount"`
	ReversedAt            time.Time       `json:"reversedAt"`
}

func (TransactionReversed) EventName() string { return NameTransactionReversed }

type WalletBalanceUpdated struct {
	WalletID        uuid.UUID       `json:"walletId"`
	UserID          uuid.UUID       `json:"userId"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	TransactionID   uuid.UUID       `json:"transactionId"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (WalletBalanceUpdated) EventName() string { return NameWalletBalanceUpdated }
