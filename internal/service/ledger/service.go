// Package ledger implements the balance mutation protocol: deposits,
// transfers and reversals over the wallet/transaction repositories,
// with domain events published after every committed mutation.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/events"
	"github.com/finvault/walletd/internal/logger"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
)

type Service struct {
	storage   repository.Storage
	publisher events.Publisher
	logger    logger.Logger
}

func NewService(storage repository.Storage, publisher events.Publisher, l logger.Logger) *Service {
	return &Service{
		storage:   storage,
		publisher: publisher,
		logger:    l,
	}
}

// GetWallet returns the user's wallet, creating an empty one on first use
func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	if _, err := s.storage.User().GetUserByID(ctx, userID); err != nil {
		return models.Wallet{}, err
	}

	return s.getOrCreateWallet(ctx, userID)
}

// ListTransactions returns the user's ledger entries, newest first
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	wallet, err := s.storage.Wallet().GetWalletByUserID(ctx, userID, false)
	switch {
	case errors.Is(err, apperrors.ErrWalletNotFound):
		// No wallet yet means no history, not an error
		return []models.Transaction{}, nil
	case err != nil:
		return nil, err
	}

	return s.storage.Transaction().ListTransactions(ctx, repository.ListTransactionsOpts{
		WalletID: wallet.ID,
		Limit:    limit,
		Offset:   offset,
	})
}

func (s *Service) getOrCreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	wallet, err := s.storage.Wallet().GetWalletByUserID(ctx, userID, false)
	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, apperrors.ErrWalletNotFound):
		return s.storage.Wallet().CreateWallet(ctx, userID)
	default:
		return wallet, err
	}
}

// markFailed leaves a FAILED row behind after a rolled back mutation so
// the attempt stays auditable. Best effort: a failure here is logged,
// never allowed to shadow the original error.
func (s *Service) markFailed(ctx context.Context, transactionID uuid.UUID) {
	_, err := s.storage.Transaction().UpdateTransaction(ctx, repository.UpdateTransactionParams{
		ID:     transactionID,
		Status: models.TransactionStatusFailed,
	})
	if err != nil {
		s.logger.Error("Failed to mark transaction as failed", "transaction_id", transactionID, "error", err)
	}
}

// lockWallets locks both wallets for update in a stable order, so two
// opposite transfers between the same wallets cannot deadlock
func lockWallets(ctx context.Context, st repository.Storage, aID, bID uuid.UUID) (a models.Wallet, b models.Wallet, err error) {
	first, second := aID, bID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	firstWallet, err := st.Wallet().GetWalletByID(ctx, first, true)
	if err != nil {
		return a, b, err
	}
	secondWallet, err := st.Wallet().GetWalletByID(ctx, second, true)
	if err != nil {
		return a, b, err
	}

	if firstWallet.ID == aID {
		return firstWallet, secondWallet, nil
	}
	return secondWallet, firstWallet, nil
}

// publishLeg emits the fixed three event sequence for one completed
// ledger entry: created, completed, balance updated
func (s *Service) publishLeg(ctx context.Context, tr models.Transaction, userID uuid.UUID, previous decimal.Decimal, wallet models.Wallet) {
	s.publisher.Publish(ctx, events.TransactionCreated{
		TransactionID: tr.ID,
		WalletID:      tr.WalletID,
		UserID:        userID,
		Type:          tr.Type,
		Amount:        tr.Amount,
		Status:        tr.Status,
		CreatedAt:     tr.CreatedAt,
	})
	s.publisher.Publish(ctx, events.TransactionCompleted{
		TransactionID: tr.ID,
		WalletID:      tr.WalletID,
		UserID:        userID,
		Type:          tr.Type,
		Amount:        tr.Amount,
		NewBalance:    wallet.Balance,
		CompletedAt:   tr.UpdatedAt,
	})
	s.publisher.Publish(ctx, events.WalletBalanceUpdated{
		WalletID:        wallet.ID,
		UserID:          userID,
		PreviousBalance: previous,
		NewBalance:      wallet.Balance,
		TransactionID:   tr.ID,
		UpdatedAt:       wallet.UpdatedAt,
	})
}

func (s *Service) reloadTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	tr, err := s.storage.Transaction().GetTransactionByID(ctx, id)
	if err != nil {
		return tr, fmt.Errorf("reload transaction %s: %w", id, err)
	}

	return tr, nil
}
