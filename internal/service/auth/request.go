package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/models"
)

// Auth resolves the request to the authenticated user. The token comes
// from the Authorization header, or from the "token" query parameter for
// clients that cannot set headers, websocket handshakes mostly.
func (s *Service) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	return s.Authenticate(ctx, token)
}

func tokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if value, ok := strings.CutPrefix(header, "Bearer "); ok {
		return value
	}

	return r.URL.Query().Get("token")
}
