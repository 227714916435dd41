package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/finvault/walletd/internal/models"
)

const defaultAccessTokenTTL = 15 * time.Minute

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

// IssuedToken is a signed access token with its expiry time
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenManager issues and validates JWT access tokens
type TokenManager struct {
	// Secret key to sign access token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access token lifetime
	accessTTL time.Duration
}

func NewTokenManager(secretKey string, accessTTL time.Duration) TokenManager {
	if accessTTL == 0 {
		accessTTL = defaultAccessTokenTTL
	}

	return TokenManager{
		key:       secretKey,
		alg:       jwt.SigningMethodHS256,
		accessTTL: accessTTL,
	}
}

func (m TokenManager) Generate(user models.User) (IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: user.ID,
		},
	)

	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign access token: %w", err)
	}

	return IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Parse and validate access token
func (m TokenManager) Parse(access string) (userID uuid.UUID, err error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("parse access token: %w", err)
	}

	return claims.UserID, nil
}
