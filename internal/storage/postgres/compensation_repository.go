package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

type compensationRepository struct {
	db *sql.DB
}

// NewCompensationRepository создаёт PostgreSQL-реализацию журнала компенсаций.
func NewCompensationRepository(store *Store) domain.CompensationRepository {
	return &compensationRepository{db: store.DB()}
}

func (r *compensationRepository) Record(ctx context.Context, rec domain.CompensationRecord) (domain.CompensationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.Status = domain.CompensationStatusPending
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO compensation_log (
			id, order_id, user_id, amount, reason, status, attempts, last_error, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
	`, rec.ID, rec.OrderID, rec.UserID, rec.Amount, rec.Reason, string(rec.Status), rec.Attempts, rec.LastError, now); err != nil {
		return domain.CompensationRecord{}, fmt.Errorf("insert compensation record: %w", err)
	}
	return rec, nil
}

func (r *compensationRepository) ListPending(ctx context.Context, limit int) ([]domain.CompensationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultOutboxBatch
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, user_id, amount, reason, status, attempts, last_error, created_at, updated_at
		FROM compensation_log
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending compensations: %w", err)
	}
	defer rows.Close()

	result := make([]domain.CompensationRecord, 0)
	for rows.Next() {
		var (
			rec    domain.CompensationRecord
			status string
		)
		if err := rows.Scan(
			&rec.ID, &rec.OrderID, &rec.UserID, &rec.Amount, &rec.Reason,
			&status, &rec.Attempts, &rec.LastError, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan compensation record: %w", err)
		}
		rec.Status = domain.CompensationStatus(status)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compensation rows: %w", err)
	}
	return result, nil
}

func (r *compensationRepository) MarkResolved(ctx context.Context, id string) error {
	return r.update(ctx, id, `
		UPDATE compensation_log
		SET status = 'resolved', attempts = attempts + 1, last_error = '', updated_at = $2
		WHERE id = $1
	`, time.Now().UTC())
}

func (r *compensationRepository) MarkAttempt(ctx context.Context, id string, lastErr string) error {
	return r.update(ctx, id, `
		UPDATE compensation_log
		SET attempts = attempts + 1, last_error = $3, updated_at = $2
		WHERE id = $1
	`, time.Now().UTC(), lastErr)
}

func (r *compensationRepository) update(ctx context.Context, id, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update compensation record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for compensation: %w", err)
	}
	if affected == 0 {
		return domain.ErrCompensationNotFound
	}
	return nil
}

var _ domain.CompensationRepository = (*compensationRepository)(nil)
