package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/events"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
)

type ReverseResult struct {
	ReversalTransaction models.Transaction
	OriginalTransaction models.Transaction
}

// walletChange remembers one balance mutation made by a reversal,
// carried out of the transaction for the balance updated events
type walletChange struct {
	wallet   models.Wallet
	previous decimal.Decimal
}

// Reverse undoes a completed deposit or transfer. The reversal is its own
// REVERSAL ledger entry flowing the money the opposite direction; the
// original row is marked REVERSED so it can never be reversed again.
// Reversals are honored even when they push a balance below zero.
func (s *Service) Reverse(ctx context.Context, transactionID, reversedBy uuid.UUID, reason string) (ReverseResult, error) {
	var res ReverseResult

	original, err := s.storage.Transaction().GetTransactionByID(ctx, transactionID)
	if err != nil {
		return res, err
	}

	if !original.CanBeReversed() {
		return res, apperrors.ErrTransactionIrreversible
	}

	if reason == "" {
		reason = "Reversal of transaction " + original.ID.String()
	}

	reversal, err := s.storage.Transaction().CreateTransaction(ctx, repository.CreateTransactionParams{
		WalletID:              original.WalletID,
		SenderID:              original.ReceiverID,
		ReceiverID:            original.SenderID,
		Type:                  models.TransactionTypeReversal,
		Status:                models.TransactionStatusPending,
		Amount:                original.Amount,
		Description:           reason,
		OriginalTransactionID: &original.ID,
	})
	if err != nil {
		return res, fmt.Errorf("create reversal transaction: %w", err)
	}

	now := time.Now()
	var changes []walletChange

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		changes, err = s.undoMovement(ctx, st, original)
		if err != nil {
			return err
		}

		_, err = st.Transaction().UpdateTransaction(ctx, repository.UpdateTransactionParams{
			ID:           original.ID,
			Status:       models.TransactionStatusReversed,
			ReversedByID: &reversedBy,
			ReversedAt:   &now,
		})
		if err != nil {
			return err
		}

		// A transfer's receiver leg mirrors the reversed entry and must
		// change status with it
		if original.Type == models.TransactionTypeTransfer {
			if err := reverseLinkedLegs(ctx, st, original.ID, reversedBy, now); err != nil {
				return err
			}
		}

		_, err = st.Transaction().UpdateTransaction(ctx, repository.UpdateTransactionParams{
			ID:     reversal.ID,
			Status: models.TransactionStatusCompleted,
		})
		return err
	})
	if err != nil {
		s.markFailed(ctx, reversal.ID)
		return res, err
	}

	completed, err := s.reloadTransaction(ctx, reversal.ID)
	if err != nil {
		return res, err
	}
	reversed, err := s.reloadTransaction(ctx, original.ID)
	if err != nil {
		return res, err
	}

	s.publishReversal(ctx, completed, reversed, changes)

	return ReverseResult{ReversalTransaction: completed, OriginalTransaction: reversed}, nil
}

// reverseLinkedLegs marks the completed transfer legs derived from the
// given entry as REVERSED alongside it
func reverseLinkedLegs(ctx context.Context, st repository.Storage, originalID, reversedBy uuid.UUID, now time.Time) error {
	linked, err := st.Transaction().ListLinkedTransactions(ctx, originalID)
	if err != nil {
		return err
	}

	for _, leg := range linked {
		if leg.Type != models.TransactionTypeTransfer || leg.Status != models.TransactionStatusCompleted {
			continue
		}

		_, err = st.Transaction().UpdateTransaction(ctx, repository.UpdateTransactionParams{
			ID:           leg.ID,
			Status:       models.TransactionStatusReversed,
			ReversedByID: &reversedBy,
			ReversedAt:   &now,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// undoMovement applies the opposite balance changes of the original
// transaction on locked wallet rows and reports every wallet it touched
func (s *Service) undoMovement(ctx context.Context, st repository.Storage, original models.Transaction) ([]walletChange, error) {
	switch original.Type {
	case models.TransactionTypeDeposit:
		locked, err := st.Wallet().GetWalletByID(ctx, original.WalletID, true)
		if err != nil {
			return nil, err
		}

		updated, err := st.Wallet().UpdateBalance(ctx, locked.ID, locked.Balance.Sub(original.Amount))
		if err != nil {
			return nil, err
		}

		return []walletChange{{wallet: updated, previous: locked.Balance}}, nil

	case models.TransactionTypeTransfer:
		if original.SenderID == nil || original.ReceiverID == nil {
			return nil, fmt.Errorf("transfer %s has no participants", original.ID)
		}

		senderWallet, err := st.Wallet().GetWalletByUserID(ctx, *original.SenderID, false)
		if err != nil {
			return nil, err
		}
		receiverWallet, err := st.Wallet().GetWalletByUserID(ctx, *original.ReceiverID, false)
		if err != nil {
			return nil, err
		}

		lockedSender, lockedReceiver, err := lockWallets(ctx, st, senderWallet.ID, receiverWallet.ID)
		if err != nil {
			return nil, err
		}

		// Credit the original sender back, debit the original receiver
		updSender, err := st.Wallet().UpdateBalance(ctx, lockedSender.ID, lockedSender.Balance.Add(original.Amount))
		if err != nil {
			return nil, err
		}
		updReceiver, err := st.Wallet().UpdateBalance(ctx, lockedReceiver.ID, lockedReceiver.Balance.Sub(original.Amount))
		if err != nil {
			return nil, err
		}

		return []walletChange{
			{wallet: updSender, previous: lockedSender.Balance},
			{wallet: updReceiver, previous: lockedReceiver.Balance},
		}, nil
	}

	return nil, fmt.Errorf("transaction %s of type %s cannot be undone", original.ID, original.Type)
}

func (s *Service) publishReversal(ctx context.Context, reversal, original models.Transaction, changes []walletChange) {
	// Balance of the wallet the reversal entry lives on
	newBalance := decimal.Zero
	owner := uuid.Nil
	for _, c := range changes {
		if c.wallet.ID == reversal.WalletID {
			newBalance = c.wallet.Balance
			owner = c.wallet.UserID
		}
	}

	s.publisher.Publish(ctx, events.TransactionCreated{
		TransactionID: reversal.ID,
		WalletID:      reversal.WalletID,
		UserID:        owner,
		Type:          reversal.Type,
		Amount:        reversal.Amount,
		Status:        reversal.Status,
		CreatedAt:     reversal.CreatedAt,
	})
	s.publisher.Publish(ctx, events.TransactionCompleted{
		TransactionID: reversal.ID,
		WalletID:      reversal.WalletID,
		UserID:        owner,
		Type:          reversal.Type,
		Amount:        reversal.Amount,
		NewBalance:    newBalance,
		CompletedAt:   reversal.UpdatedAt,
	})

	reversedAt := time.Now()
	if original.ReversedAt != nil {
		reversedAt = *original.ReversedAt
	}
	s.publisher.Publish(ctx, events.TransactionReversed{
		TransactionID:         reversal.ID,
		OriginalTransactionID: original.ID,
		WalletID:              original.WalletID,
		UserID:                owner,
		Amount:                original.Amount,
		ReversedAt:            reversedAt,
	})

	for _, c := range changes {
		s.publisher.Publish(ctx, events.WalletBalanceUpdated{
			WalletID:        c.wallet.ID,
			UserID:          c.wallet.UserID,
			PreviousBalance: c.previous,
			NewBalance:      c.wallet.Balance,
			TransactionID:   reversal.ID,
			UpdatedAt:       c.wallet.UpdatedAt,
		})
	}
}
