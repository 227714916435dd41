package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/handlers/render"
	"github.com/finvault/walletd/internal/logger"
)

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Name     string `json:"name" validate:"required,min=2,max=100"`
		Password string `json:"password" validate:"required,min=8"`
	}
	type response struct {
		UserID    uuid.UUID `json:"userId"`
		Email     string    `json:"email"`
		Name      string    `json:"name"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, token, err := authService.Register(r.Context(), data.Email, data.Name, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrEmailTaken):
				render.ServiceError(w, apperrors.ErrEmailTaken.Code, "Email already registered", http.StatusConflict)
			default:
				l.Error("Failed to register user", "error", err)
				render.ServiceError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, response{
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Token:     token.Value,
			ExpiresAt: token.ExpiresAt,
		}, http.StatusCreated)
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		UserID    uuid.UUID `json:"userId"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, token, err := authService.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.ServiceError(w, apperrors.ErrInvalidCredentials.Code, "Invalid email or password", http.StatusUnauthorized)
			default:
				l.Error("Failed to login user", "error", err)
				render.ServiceError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{
			UserID:    user.ID,
			Token:     token.Value,
			ExpiresAt: token.ExpiresAt,
		})
	})
}
