package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, created_at, email, name, hashed_password)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, email, name, hashed_password
`

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), time.Now(), arg.Email, arg.Name, arg.HashedPassword)
	u, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return u, apperrors.ErrEmailTaken
		}

		return u, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, email, name, hashed_password FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, email, name, hashed_password FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

func collectUser(rows pgx.Rows) (models.User, error) {
	u, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, pgx.ErrNoRows):
		return u, apperrors.ErrUserNotFound
	default:
		return u, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.Name, &u.HashedPassword)
	return u, err
}
