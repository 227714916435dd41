package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
)

type AuditRepo struct {
	DB DBTX
}

const createAuditRecord = `-- name: CreateAuditRecord
INSERT INTO audit_records (id, event_id, event_type, transaction_id, wallet_id, user_id, payload, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, event_id, event_type, transaction_id, wallet_id, user_id, payload, recorded_at
`

func (r *AuditRepo) CreateRecord(ctx context.Context, arg repository.CreateAuditRecordParams) (models.AuditRecord, error) {
	rows, _ := r.DB.Query(ctx, createAuditRecord,
		uuid.New(), arg.EventID, arg.EventType, arg.TransactionID, arg.WalletID, arg.UserID,
		arg.Payload, time.Now(),
	)

	rec, err := pgx.CollectOneRow(rows, rowToAuditRecord)
	if err != nil {
		return rec, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

const listAuditRecords = `-- name: ListAuditRecords
SELECT id, event_id, event_type, transaction_id, wallet_id, user_id, payload, recorded_at
FROM audit_records
WHERE event_type = $1
ORDER BY recorded_at DESC
LIMIT $2
`

func (r *AuditRepo) ListRecords(ctx context.Context, eventType string, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, _ := r.DB.Query(ctx, listAuditRecords, eventType, limit)
	recs, err := pgx.CollectRows(rows, rowToAuditRecord)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return recs, nil
}

func rowToAuditRecord(row pgx.CollectableRow) (models.AuditRecord, error) {
	var rec models.AuditRecord
	err := row.Scan(&rec.ID, &rec.EventID, &rec.EventType, &rec.TransactionID, &rec.WalletID, &rec.UserID, &rec.Payload, &rec.RecordedAt)
	return rec, err
}
