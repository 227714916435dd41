package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
	"github.com/finvault/walletd/internal/testutil"
)

func TestTransaction(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.WithTx(outerTx, t, func(innerTx pgx.Tx) {
			fn(innerTx, NewStorage(innerTx))
		})
	}

	setupWallet := func(t *testing.T, storage repository.Storage, email string) models.Wallet {
		user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
			Email:          email,
			Name:           "test user",
			HashedPassword: "hash",
		})
		require.NoError(t, err)

		wallet, err := storage.Wallet().CreateWallet(t.Context(), user.ID)
		require.NoError(t, err)
		return wallet
	}

	t.Run("CreateTransaction", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			wallet := setupWallet(t, storage, "create-tr@example.com")

			t.Run("deposit pending", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					tr, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
						WalletID: wallet.ID,
						Type:     models.TransactionTypeDeposit,
						Status:   models.TransactionStatusPending,
						Amount:   decimal.NewFromInt(100),
					})

					require.NoError(t, err)
					require.NotEqual(t, uuid.Nil, tr.ID)
					require.Equal(t, models.TransactionStatusPending, tr.Status)
					require.Nil(t, tr.SenderID)
					require.Nil(t, tr.ReceiverID)
					require.Nil(t, tr.OriginalTransactionID)
				})
			})

			t.Run("transfer leg with participants", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					senderID, receiverID := uuid.New(), uuid.New()

					tr, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
						WalletID:   wallet.ID,
						SenderID:   &senderID,
						ReceiverID: &receiverID,
						Type:       models.TransactionTypeTransfer,
						Status:     models.TransactionStatusCompleted,
						Amount:     decimal.NewFromInt(50),
					})

					require.NoError(t, err)
					require.Equal(t, senderID, *tr.SenderID)
					require.Equal(t, receiverID, *tr.ReceiverID)
				})
			})
		})
	})

	t.Run("UpdateTransaction", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			wallet := setupWallet(t, storage, "update-tr@example.com")

			createPending := func(t *testing.T, storage repository.Storage) models.Transaction {
				tr, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
					WalletID: wallet.ID,
					Type:     models.TransactionTypeDeposit,
					Status:   models.TransactionStatusPending,
					Amount:   decimal.NewFromInt(10),
				})
				require.NoError(t, err)
				return tr
			}

			t.Run("complete", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					tr := createPending(t, storage)

					updated, err := storage.Transaction().UpdateTransaction(t.Context(), repository.UpdateTransactionParams{
						ID:     tr.ID,
						Status: models.TransactionStatusCompleted,
					})

					require.NoError(t, err)
					require.Equal(t, models.TransactionStatusCompleted, updated.Status)
					require.Nil(t, updated.ReversedByID, "plain status change should not touch reversal marks")
				})
			})

			t.Run("mark reversed", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					tr := createPending(t, storage)
					userID := uuid.New()
					now := time.Now()

					updated, err := storage.Transaction().UpdateTransaction(t.Context(), repository.UpdateTransactionParams{
						ID:           tr.ID,
						Status:       models.TransactionStatusReversed,
						ReversedByID: &userID,
						ReversedAt:   &now,
					})

					require.NoError(t, err)
					require.Equal(t, models.TransactionStatusReversed, updated.Status)
					require.Equal(t, userID, *updated.ReversedByID)
					require.NotNil(t, updated.ReversedAt)
				})
			})

			t.Run("unknown transaction", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Transaction().UpdateTransaction(t.Context(), repository.UpdateTransactionParams{
						ID:     uuid.New(),
						Status: models.TransactionStatusCompleted,
					})

					require.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
				})
			})
		})
	})

	t.Run("GetTransactionByID", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			_, err := storage.Transaction().GetTransactionByID(t.Context(), uuid.New())

			require.ErrorIs(t, err, apperrors.ErrTransactionNotFound, "should return well known error")
		})
	})

	t.Run("ListLinkedTransactions", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			wallet := setupWallet(t, storage, "linked-tr@example.com")

			original, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
				WalletID: wallet.ID,
				Type:     models.TransactionTypeTransfer,
				Status:   models.TransactionStatusCompleted,
				Amount:   decimal.NewFromInt(30),
			})
			require.NoError(t, err)

			linked, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
				WalletID:              wallet.ID,
				Type:                  models.TransactionTypeTransfer,
				Status:                models.TransactionStatusCompleted,
				Amount:                decimal.NewFromInt(30),
				OriginalTransactionID: &original.ID,
			})
			require.NoError(t, err)

			// Unlinked noise that must not show up
			_, err = storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
				WalletID: wallet.ID,
				Type:     models.TransactionTypeDeposit,
				Status:   models.TransactionStatusCompleted,
				Amount:   decimal.NewFromInt(5),
			})
			require.NoError(t, err)

			trs, err := storage.Transaction().ListLinkedTransactions(t.Context(), original.ID)

			require.NoError(t, err)
			require.Len(t, trs, 1)
			require.Equal(t, linked.ID, trs[0].ID)

			none, err := storage.Transaction().ListLinkedTransactions(t.Context(), uuid.New())
			require.NoError(t, err)
			require.Empty(t, none)
		})
	})

	t.Run("ListTransactions", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			wallet := setupWallet(t, storage, "list-tr@example.com")

			for range 3 {
				_, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
					WalletID: wallet.ID,
					Type:     models.TransactionTypeDeposit,
					Status:   models.TransactionStatusCompleted,
					Amount:   decimal.NewFromInt(5),
				})
				require.NoError(t, err)
			}

			trs, err := storage.Transaction().ListTransactions(t.Context(), repository.ListTransactionsOpts{
				WalletID: wallet.ID,
				Limit:    2,
			})

			require.NoError(t, err)
			require.Len(t, trs, 2, "limit should be respected")

			rest, err := storage.Transaction().ListTransactions(t.Context(), repository.ListTransactionsOpts{
				WalletID: wallet.ID,
				Limit:    2,
				Offset:   2,
			})

			require.NoError(t, err)
			require.Len(t, rest, 1, "offset should page through the rest")
		})
	})
}
