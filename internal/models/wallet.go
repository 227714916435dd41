package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is the per-user balance record. One wallet per user.
// Balance is signed: reversals may drive it below zero and a later
// deposit brings it back, so no non-negativity is enforced here.
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
