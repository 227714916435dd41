// Package auth covers registration, login and access token handling.
// Tokens are short lived JWTs signed with the service secret, there is
// no refresh flow: clients reauthenticate when the token expires.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
)

type Config struct {
	// Secret key to sign user access token payload
	SecretKey string

	// Hasher to use during registration or login, bcrypt when nil
	Hasher PasswordHasher

	// Access token lifetime
	AccessTokenTTL time.Duration
}

type Service struct {
	tokens TokenManager
	hasher PasswordHasher

	userRepo repository.UserRepo
}

func NewService(cfg Config, userRepo repository.UserRepo) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("user repo must not be nil")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	return &Service{
		tokens:   NewTokenManager(cfg.SecretKey, cfg.AccessTokenTTL),
		hasher:   hasher,
		userRepo: userRepo,
	}, nil
}

func (s *Service) Register(ctx context.Context, email, name, password string) (models.User, IssuedToken, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, IssuedToken{}, errors.Join(errors.New("password not usable"), err)
	}

	user, err := s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Email:          email,
		Name:           name,
		HashedPassword: hash,
	})
	if err != nil {
		return models.User{}, IssuedToken{}, err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return models.User{}, IssuedToken{}, err
	}

	return user, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (models.User, IssuedToken, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		// Burn a compare anyway so a missing account costs the same
		// time as a wrong password
		_ = s.hasher.Compare(dummyHash, password)
		return models.User{}, IssuedToken{}, apperrors.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, IssuedToken{}, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return models.User{}, IssuedToken{}, err
	}

	return user, token, nil
}

// Authenticate resolves an access token to the user it was issued for
func (s *Service) Authenticate(ctx context.Context, access string) (models.User, error) {
	userID, err := s.tokens.Parse(access)
	if err != nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}
	if userID == uuid.Nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	return s.userRepo.GetUserByID(ctx, userID)
}

// bcrypt hash of an unguessable throwaway value, used to equalize
// login timing when the email is unknown
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
