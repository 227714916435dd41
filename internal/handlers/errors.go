package handlers

import (
	"errors"
	"net/http"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/handlers/render"
	"github.com/finvault/walletd/internal/logger"
)

// ledgerError maps ledger errors to HTTP statuses. Anything without a
// mapping is an internal error and gets logged, the client only ever
// sees the stable codes.
func ledgerError(w http.ResponseWriter, l logger.Logger, err error) {
	var status int

	switch {
	case errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrCannotTransferToSelf):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrReceiverNotFound),
		errors.Is(err, apperrors.ErrWalletNotFound),
		errors.Is(err, apperrors.ErrTransactionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrTransactionIrreversible):
		status = http.StatusConflict
	default:
		l.Error("Unhandled ledger error", "error", err)
		render.ServiceError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
		return
	}

	var appErr *apperrors.Error
	errors.As(err, &appErr)
	render.ServiceError(w, appErr.Code, appErr.Message, status)
}
