package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
)

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (
	id, wallet_id, sender_id, receiver_id, type, status, amount,
	description, original_transaction_id, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
RETURNING id, wallet_id, sender_id, receiver_id, type, status, amount,
	description, reversed_by_id, reversed_at, original_transaction_id,
	created_at, updated_at
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, arg repository.CreateTransactionParams) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, createTransaction,
		uuid.New(), arg.WalletID, arg.SenderID, arg.ReceiverID, arg.Type, arg.Status,
		arg.Amount, arg.Description, arg.OriginalTransactionID, time.Now(),
	)

	tr, err := pgx.CollectOneRow(rows, rowToTransaction)
	if err != nil {
		return tr, fmt.Errorf("db error: %w", err)
	}

	return tr, nil
}

const getTransactionByID = `-- name: GetTransactionByID
SELECT id, wallet_id, sender_id, receiver_id, type, status, amount,
	description, reversed_by_id, reversed_at, original_transaction_id,
	created_at, updated_at
FROM transactions
WHERE id = $1
`

func (r *TransactionRepo) GetTransactionByID(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getTransactionByID, id)
	return collectTransaction(rows)
}

// Reversal marks are written only when provided so a plain status change
// does not wipe them
const updateTransaction = `-- name: UpdateTransaction
UPDATE transactions
SET status = $2,
	reversed_by_id = COALESCE($3, reversed_by_id),
	reversed_at = COALESCE($4, reversed_at),
	updated_at = $5
WHERE id = $1
RETURNING id, wallet_id, sender_id, receiver_id, type, status, amount,
	description, reversed_by_id, reversed_at, original_transaction_id,
	created_at, updated_at
`

func (r *TransactionRepo) UpdateTransaction(ctx context.Context, arg repository.UpdateTransactionParams) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, updateTransaction, arg.ID, arg.Status, arg.ReversedByID, arg.ReversedAt, time.Now())
	return collectTransaction(rows)
}

const listTransactions = `-- name: ListTransactions
SELECT id, wallet_id, sender_id, receiver_id, type, status, amount,
	description, reversed_by_id, reversed_at, original_transaction_id,
	created_at, updated_at
FROM transactions
WHERE wallet_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (r *TransactionRepo) ListTransactions(ctx context.Context, opts repository.ListTransactionsOpts) ([]models.Transaction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, _ := r.DB.Query(ctx, listTransactions, opts.WalletID, limit, opts.Offset)
	trs, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return trs, nil
}

const listLinkedTransactions = `-- name: ListLinkedTransactions
SELECT id, wallet_id, sender_id, receiver_id, type, status, amount,
	description, reversed_by_id, reversed_at, original_transaction_id,
	created_at, updated_at
FROM transactions
WHERE original_transaction_id = $1
ORDER BY created_at
`

func (r *TransactionRepo) ListLinkedTransactions(ctx context.Context, originalID uuid.UUID) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listLinkedTransactions, originalID)
	trs, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return trs, nil
}

func collectTransaction(rows pgx.Rows) (models.Transaction, error) {
	tr, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return tr, nil
	case errors.Is(err, pgx.ErrNoRows):
		return tr, apperrors.ErrTransactionNotFound
	default:
		return tr, fmt.Errorf("db error: %w", err)
	}
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var tr models.Transaction
	err := row.Scan(
		&tr.ID, &tr.WalletID, &tr.SenderID, &tr.ReceiverID, &tr.Type, &tr.Status, &tr.Amount,
		&tr.Description, &tr.ReversedByID, &tr.ReversedAt, &tr.OriginalTransactionID,
		&tr.CreatedAt, &tr.UpdatedAt,
	)
	return tr, err
}
