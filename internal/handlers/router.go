// Package handlers wires the HTTP API: authentication, wallet operations,
// transaction history and the websocket notification endpoint.
package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/walletd/internal/handlers/middleware"
	"github.com/finvault/walletd/internal/logger"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/service/auth"
	"github.com/finvault/walletd/internal/service/ledger"
	"github.com/finvault/walletd/internal/ws"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	ledgerService ledgerService,
	hub *ws.Hub,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /api/auth/register", handleRegister(authService, logger))
	mux.Handle("POST /api/auth/login", handleLogin(authService, logger))

	mux.Handle("GET /api/wallet", withAuth(handleGetWallet(ledgerService, logger)))
	mux.Handle("POST /api/wallet/deposit", withAuth(handleDeposit(ledgerService, logger)))
	mux.Handle("POST /api/wallet/transfer", withAuth(handleTransfer(ledgerService, logger)))

	mux.Handle("GET /api/transactions", withAuth(handleListTransactions(ledgerService, logger)))
	mux.Handle("POST /api/transactions/{id}/reverse", withAuth(handleReverse(ledgerService, logger)))

	mux.Handle("GET /api/ws", withAuth(handleWebsocket(hub, logger)))

	return chain(mux,
		middleware.LoggerMiddleware(logger),
	)
}

type authService interface {
	// Register user with email, name and password
	// Has to return apperrors.ErrEmailTaken if the email is in use
	Register(ctx context.Context, email, name, password string) (models.User, auth.IssuedToken, error)

	// Login with email and password
	// Has to return apperrors.ErrInvalidCredentials on any mismatch
	Login(ctx context.Context, email, password string) (models.User, auth.IssuedToken, error)

	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

type ledgerService interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)

	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (ledger.DepositResult, error)
	Transfer(ctx context.Context, senderID, receiverID uuid.UUID, amount decimal.Decimal, description string) (ledger.TransferResult, error)
	Reverse(ctx context.Context, transactionID, reversedBy uuid.UUID, reason string) (ledger.ReverseResult, error)
}
