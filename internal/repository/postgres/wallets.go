package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/models"
)

type WalletRepo struct {
	DB DBTX
}

// Create wallet with zero balance
// If the user already has a wallet return it as is
const createWallet = `-- name: CreateWallet
WITH insert_wallet AS (
	INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
	VALUES ($1, $2, 0, $3, $3)
	ON CONFLICT (user_id) DO NOTHING
	RETURNING *
)
SELECT * FROM insert_wallet
UNION
SELECT * FROM wallets WHERE user_id = $2
`

func (r *WalletRepo) CreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	now := time.Now()

	rows, _ := r.DB.Query(ctx, createWallet, uuid.New(), userID, now)
	w, err := pgx.CollectOneRow(rows, rowToWallet)
	if err != nil {
		return w, fmt.Errorf("db error: %w", err)
	}

	return w, nil
}

const getWalletByUserID = `-- name: GetWalletByUserID
SELECT id, user_id, balance, created_at, updated_at FROM wallets
WHERE user_id = $1
`

func (r *WalletRepo) GetWalletByUserID(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.Wallet, error) {
	query := getWalletByUserID
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, userID)
	return collectWallet(rows)
}

const getWalletByID = `-- name: GetWalletByID
SELECT id, user_id, balance, created_at, updated_at FROM wallets
WHERE id = $1
`

func (r *WalletRepo) GetWalletByID(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Wallet, error) {
	query := getWalletByID
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, id)
	return collectWallet(rows)
}

const updateBalance = `-- name: UpdateBalance
UPDATE wallets
SET balance = $2, updated_at = $3
WHERE id = $1
RETURNING id, user_id, balance, created_at, updated_at
`

func (r *WalletRepo) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, updateBalance, id, balance, time.Now())
	return collectWallet(rows)
}

const deleteWallet = `-- name: DeleteWallet
DELETE FROM wallets
WHERE id = $1
`

func (r *WalletRepo) DeleteWallet(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteWallet, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrWalletNotFound
	}

	return nil
}

func collectWallet(rows pgx.Rows) (models.Wallet, error) {
	w, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, pgx.ErrNoRows):
		return w, apperrors.ErrWalletNotFound
	default:
		return w, fmt.Errorf("db error: %w", err)
	}
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}
