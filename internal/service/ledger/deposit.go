package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
)

type DepositResult struct {
	Transaction models.Transaction
	Wallet      models.Wallet
}

// Deposit credits the user's wallet. The ledger entry is created PENDING
// before the mutation, flipped to COMPLETED with the balance change in one
// database transaction, and marked FAILED when the mutation rolls back.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (DepositResult, error) {
	var res DepositResult

	if !amount.IsPositive() {
		return res, apperrors.ErrInvalidAmount
	}

	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return res, err
	}

	wallet, err := s.getOrCreateWallet(ctx, user.ID)
	if err != nil {
		return res, fmt.Errorf("resolve wallet: %w", err)
	}

	pending, err := s.storage.Transaction().CreateTransaction(ctx, repository.CreateTransactionParams{
		WalletID:    wallet.ID,
		ReceiverID:  &user.ID,
		Type:        models.TransactionTypeDeposit,
		Status:      models.TransactionStatusPending,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return res, fmt.Errorf("create transaction: %w", err)
	}

	var previous decimal.Decimal
	var updated models.Wallet

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		locked, err := st.Wallet().GetWalletByID(ctx, wallet.ID, true)
		if err != nil {
			return err
		}

		previous = locked.Balance

		// Plain addition even when the balance is negative: a deposit
		// brings a wallet overdrawn by a reversal back toward zero
		updated, err = st.Wallet().UpdateBalance(ctx, locked.ID, locked.Balance.Add(amount))
		if err != nil {
			return err
		}

		_, err = st.Transaction().UpdateTransaction(ctx, repository.UpdateTransactionParams{
			ID:     pending.ID,
			Status: models.TransactionStatusCompleted,
		})
		return err
	})
	if err != nil {
		s.markFailed(ctx, pending.ID)
		return res, err
	}

	completed, err := s.reloadTransaction(ctx, pending.ID)
	if err != nil {
		return res, err
	}

	s.publishLeg(ctx, completed, user.ID, previous, updated)

	return DepositResult{Transaction: completed, Wallet: updated}, nil
}
