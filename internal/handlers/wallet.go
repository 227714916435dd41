package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/walletd/internal/handlers/render"
	"github.com/finvault/walletd/internal/handlers/userctx"
	"github.com/finvault/walletd/internal/logger"
	"github.com/finvault/walletd/internal/models"
)

type walletResponse struct {
	WalletID  uuid.UUID       `json:"walletId"`
	UserID    uuid.UUID       `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type transactionResponse struct {
	ID                    uuid.UUID       `json:"id"`
	WalletID              uuid.UUID       `json:"walletId"`
	Type                  string          `json:"type"`
	Status                string          `json:"status"`
	Amount                decimal.Decimal `json:"amount"`
	Description           string          `json:"description,omitempty"`
	SenderID              *uuid.UUID      `json:"senderId,omitempty"`
	ReceiverID            *uuid.UUID      `json:"receiverId,omitempty"`
	OriginalTransactionID *uuid.UUID      `json:"originalTransactionId,omitempty"`
	ReversedAt            *time.Time      `json:"reversedAt,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
}

func toWalletResponse(w models.Wallet) walletResponse {
	return walletResponse{
		WalletID:  w.ID,
		UserID:    w.UserID,
		Balance:   w.Balance,
		UpdatedAt: w.UpdatedAt,
	}
}

func toTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		ID:                    t.ID,
		WalletID:              t.WalletID,
		Type:                  t.Type,
		Status:                t.Status,
		Amount:                t.Amount,
		Description:           t.Description,
		SenderID:              t.SenderID,
		ReceiverID:            t.ReceiverID,
		OriginalTransactionID: t.OriginalTransactionID,
		ReversedAt:            t.ReversedAt,
		CreatedAt:             t.CreatedAt,
	}
}

func handleGetWallet(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
			return
		}

		wallet, err := ledgerService.GetWallet(r.Context(), user.ID)
		if err != nil {
			ledgerError(w, l, err)
			return
		}

		render.JSON(w, toWalletResponse(wallet))
	})
}

func handleDeposit(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Amount      decimal.Decimal `json:"amount" validate:"required"`
		Description string          `json:"description" validate:"max=255"`
	}
	type response struct {
		Transaction transactionResponse `json:"transaction"`
		Wallet      walletResponse      `json:"wallet"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		res, err := ledgerService.Deposit(r.Context(), user.ID, data.Amount, data.Description)
		if err != nil {
			ledgerError(w, l, err)
			return
		}

		render.JSONWithStatus(w, response{
			Transaction: toTransactionResponse(res.Transaction),
			Wallet:      toWalletResponse(res.Wallet),
		}, http.StatusCreated)
	})
}

func handleTransfer(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		ReceiverID  uuid.UUID       `json:"receiverId" validate:"required"`
		Amount      decimal.Decimal `json:"amount" validate:"required"`
		Description string          `json:"description" validate:"max=255"`
	}
	type response struct {
		Transaction transactionResponse `json:"transaction"`
		Wallet      walletResponse      `json:"wallet"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		res, err := ledgerService.Transfer(r.Context(), user.ID, data.ReceiverID, data.Amount, data.Description)
		if err != nil {
			ledgerError(w, l, err)
			return
		}

		render.JSONWithStatus(w, response{
			Transaction: toTransactionResponse(res.Transaction),
			Wallet:      toWalletResponse(res.SenderWallet),
		}, http.StatusCreated)
	})
}
