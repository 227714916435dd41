package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/finvault/walletd/internal/handlers/render"
	"github.com/finvault/walletd/internal/handlers/userctx"
	"github.com/finvault/walletd/internal/logger"
)

func handleListTransactions(ledgerService ledgerService, l logger.Logger) http.Handler {
	type response struct {
		Transactions []transactionResponse `json:"transactions"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
			return
		}

		limit := queryInt(r, "limit", 0)
		offset := queryInt(r, "offset", 0)

		transactions, err := ledgerService.ListTransactions(r.Context(), user.ID, limit, offset)
		if err != nil {
			ledgerError(w, l, err)
			return
		}

		out := make([]transactionResponse, 0, len(transactions))
		for _, t := range transactions {
			out = append(out, toTransactionResponse(t))
		}

		render.JSON(w, response{Transactions: out})
	})
}

func handleReverse(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Reason string `json:"reason" validate:"max=255"`
	}
	type response struct {
		Transaction         transactionResponse `json:"transaction"`
		OriginalTransaction transactionResponse `json:"originalTransaction"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
			return
		}

		transactionID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "INVALID_TRANSACTION_ID", "Transaction id must be a UUID", http.StatusBadRequest)
			return
		}

		// The body is optional, an empty reason is fine
		var data request
		if r.ContentLength != 0 {
			data, err = render.BindAndValidate[request](w, r)
			if err != nil {
				return
			}
		}

		res, err := ledgerService.Reverse(r.Context(), transactionID, user.ID, data.Reason)
		if err != nil {
			ledgerError(w, l, err)
			return
		}

		render.JSONWithStatus(w, response{
			Transaction:         toTransactionResponse(res.ReversalTransaction),
			OriginalTransaction: toTransactionResponse(res.OriginalTransaction),
		}, http.StatusCreated)
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
