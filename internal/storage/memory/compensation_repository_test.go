package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/memory"
)

func TestCompensationRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCompensationRepository()

	rec, err := repo.Record(ctx, domain.CompensationRecord{
		OrderID: "order-1",
		UserID:  1,
		Amount:  decimal.RequireFromString("13.00"),
		Reason:  "persist failed",
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if rec.ID == "" || rec.Status != domain.CompensationStatusPending {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if err := repo.MarkAttempt(ctx, rec.ID, "wallet down"); err != nil {
		t.Fatalf("mark attempt failed: %v", err)
	}

	pending, err := repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError != "wallet down" {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	if err := repo.MarkResolved(ctx, rec.ID); err != nil {
		t.Fatalf("mark resolved failed: %v", err)
	}
	pending, _ = repo.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending, got %d", len(pending))
	}

	if err := repo.MarkResolved(ctx, "missing"); !errors.Is(err, domain.ErrCompensationNotFound) {
		t.Fatalf("expected ErrCompensationNotFound, got %v", err)
	}
}
