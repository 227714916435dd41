package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/walletd/internal/models"
)

type CreateUserParams struct {
	Email          string
	Name           string
	HashedPassword string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return apperrors.ErrEmailTaken
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Wallet repository interface
type WalletRepo interface {
	// Create wallet with zero balance
	// Creating twice for the same user returns the existing wallet unchanged
	CreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)

	// Get wallet by owner or id
	// forUpdate locks the row for the duration of the surrounding transaction
	// If wallet not found must return apperrors.ErrWalletNotFound
	GetWalletByUserID(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.Wallet, error)
	GetWalletByID(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Wallet, error)

	// Set the wallet balance to the given value and return the updated wallet
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (models.Wallet, error)

	// Remove the wallet, used on account deletion only
	DeleteWallet(ctx context.Context, id uuid.UUID) error
}

type CreateTransactionParams struct {
	WalletID              uuid.UUID
	SenderID              *uuid.UUID
	ReceiverID            *uuid.UUID
	Type                  string
	Status                string
	Amount                decimal.Decimal
	Description           string
	OriginalTransactionID *uuid.UUID
}

type UpdateTransactionParams struct {
	ID           uuid.UUID
	Status       string
	ReversedByID *uuid.UUID
	ReversedAt   *time.Time
}

type ListTransactionsOpts struct {
	WalletID uuid.UUID
	Limit    int
	Offset   int
}

// Transaction repository interface
type TransactionRepo interface {
	CreateTransaction(ctx context.Context, arg CreateTransactionParams) (models.Transaction, error)

	// If transaction not found must return apperrors.ErrTransactionNotFound
	GetTransactionByID(ctx context.Context, id uuid.UUID) (models.Transaction, error)

	// Update status (and reversal marks, when set) and return the stored row
	UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (models.Transaction, error)

	// List wallet transactions, newest first
	ListTransactions(ctx context.Context, opts ListTransactionsOpts) ([]models.Transaction, error)

	// List entries derived from the given transaction: a transfer's
	// receiver leg and, after a reversal, the reversal entry
	ListLinkedTransactions(ctx context.Context, originalID uuid.UUID) ([]models.Transaction, error)
}

type CreateAuditRecordParams struct {
	EventID       string
	EventType     string
	TransactionID *uuid.UUID
	WalletID      *uuid.UUID
	UserID        *uuid.UUID
	Payload       json.RawMessage
}

// Audit repository interface, append only
type AuditRepo interface {
	CreateRecord(ctx context.Context, arg CreateAuditRecordParams) (models.AuditRecord, error)
	ListRecords(ctx context.Context, eventType string, limit int) ([]models.AuditRecord, error)
}

// Storage bundles the repositories with a unit of work.
// InTx runs fn against repositories bound to one database transaction,
// committing when fn returns nil and rolling back otherwise.
type Storage interface {
	User() UserRepo
	Wallet() WalletRepo
	Transaction() TransactionRepo
	Audit() AuditRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}
