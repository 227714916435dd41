package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
)

type TransferResult struct {
	Transaction    models.Transaction
	SenderWallet   models.Wallet
	ReceiverWallet models.Wallet
}

// Transfer moves money between two users' wallets. Both balance changes,
// the receiver's ledger entry and the sender entry's completion commit in
// one database transaction with both wallet rows locked, so a concurrent
// transfer cannot spend the same funds twice.
func (s *Service) Transfer(ctx context.Context, senderID, receiverID uuid.UUID, amount decimal.Decimal, description string) (TransferResult, error) {
	var res TransferResult

	if !amount.IsPositive() {
		return res, apperrors.ErrInvalidAmount
	}
	if senderID == receiverID {
		return res, apperrors.ErrCannotTransferToSelf
	}

	sender, err := s.storage.User().GetUserByID(ctx, senderID)
	if err != nil {
		return res, err
	}

	receiver, err := s.storage.User().GetUserByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return res, apperrors.ErrReceiverNotFound
		}
		return res, err
	}

	senderWallet, err := s.getOrCreateWallet(ctx, sender.ID)
	if err != nil {
		return res, fmt.Errorf("resolve sender wallet: %w", err)
	}

	receiverWallet, err := s.getOrCreateWallet(ctx, receiver.ID)
	if err != nil {
		return res, fmt.Errorf("resolve receiver wallet: %w", err)
	}

	// Cheap rejection before any row is written. The authoritative check
	// runs again on the locked row inside the transaction.
	if senderWallet.Balance.LessThan(amount) {
		return res, apperrors.ErrInsufficientBalance
	}

	pending, err := s.storage.Transaction().CreateTransaction(ctx, repository.CreateTransactionParams{
		WalletID:    senderWallet.ID,
		SenderID:    &sender.ID,
		ReceiverID:  &receiver.ID,
		Type:        models.TransactionTypeTransfer,
		Status:      models.TransactionStatusPending,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return res, fmt.Errorf("create transaction: %w", err)
	}

	var prevSender, prevReceiver decimal.Decimal
	var updSender, updReceiver models.Wallet
	var receiverLeg models.Transaction

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		lockedSender, lockedReceiver, err := lockWallets(ctx, st, senderWallet.ID, receiverWallet.ID)
		if err != nil {
			return err
		}

		if lockedSender.Balance.LessThan(amount) {
			return apperrors.ErrInsufficientBalance
		}

		prevSender = lockedSender.Balance
		prevReceiver = lockedReceiver.Balance

		updSender, err = st.Wallet().UpdateBalance(ctx, lockedSender.ID, lockedSender.Balance.Sub(amount))
		if err != nil {
			return err
		}

		updReceiver, err = st.Wallet().UpdateBalance(ctx, lockedReceiver.ID, lockedReceiver.Balance.Add(amount))
		if err != nil {
			return err
		}

		// The receiver gets an own ledger entry for the same movement,
		// linked to the sender's entry so a reversal finds it and it can
		// never be reversed as a separate transaction
		receiverLeg, err = st.Transaction().CreateTransaction(ctx, repository.CreateTransactionParams{
			WalletID:              lockedReceiver.ID,
			SenderID:              &sender.ID,
			ReceiverID:            &receiver.ID,
			Type:                  models.TransactionTypeTransfer,
			Status:                models.TransactionStatusCompleted,
			Amount:                amount,
			Description:           description,
			OriginalTransactionID: &pending.ID,
		})
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

	// Six events per transfer, sender leg first
	s.publishLeg(ctx, completed, sender.ID, prevSender, updSender)
	s.publishLeg(ctx, receiverLeg, receiver.ID, prevReceiver, updReceiver)

	return TransferResult{
		Transaction:    completed,
		SenderWallet:   updSender,
		ReceiverWallet: updReceiver,
	}, nil
}
