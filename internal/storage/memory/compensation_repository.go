package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// compensationRepositoryInMemory хранит журнал невыполненных компенсаций.
type compensationRepositoryInMemory struct {
	mu      sync.RWMutex
	records map[string]domain.CompensationRecord
}

// NewCompensationRepository создаёт in-memory реализацию CompensationRepository.
func NewCompensationRepository() domain.CompensationRepository {
	return &compensationRepositoryInMemory{records: make(map[string]domain.CompensationRecord)}
}

// Record сохраняет запись со статусом pending.
func (r *compensationRepositoryInMemory) Record(ctx context.Context, rec domain.CompensationRecord) (domain.CompensationRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.CompensationRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.Status = domain.CompensationStatusPending
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.records[rec.ID] = rec
	return rec, nil
}

// ListPending возвращает до limit pending-записей, старые первыми.
func (r *compensationRepositoryInMemory) ListPending(ctx context.Context, limit int) ([]domain.CompensationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.CompensationRecord, 0)
	for _, rec := range r.records {
		if rec.Status == domain.CompensationStatusPending {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkResolved закрывает запись после успешного возврата средств.
func (r *compensationRepositoryInMemory) MarkResolved(ctx context.Context, id string) error {
	return r.update(ctx, id, func(rec *domain.CompensationRecord) {
		rec.Status = domain.CompensationStatusResolved
		rec.Attempts++
		rec.LastError = ""
	})
}

// MarkAttempt фиксирует очередную неудачную попытку.
func (r *compensationRepositoryInMemory) MarkAttempt(ctx context.Context, id string, lastErr string) error {
	return r.update(ctx, id, func(rec *domain.CompensationRecord) {
		rec.Attempts++
		rec.LastError = lastErr
	})
}

func (r *compensationRepositoryInMemory) update(ctx context.Context, id string, apply func(*domain.CompensationRecord)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.ErrCompensationNotFound
	}
	apply(&rec)
	rec.UpdatedAt = time.Now().UTC()
	r.records[id] = rec
	return nil
}

var _ domain.CompensationRepository = (*compensationRepositoryInMemory)(nil)
