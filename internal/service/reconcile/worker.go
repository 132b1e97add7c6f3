// Package reconcile повторяет компенсации, которые не удалось выполнить синхронно:
// возвращает пользователям деньги, списанные за несохранённые или отменённые заказы.
package reconcile

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
	"github.com/vladislavdragonenkov/foodorder/internal/service/saga"
)

const (
	defaultInterval  = 30 * time.Second
	defaultBatchSize = 50
)

// Config задаёт параметры воркера сверки.
type Config struct {
	Interval  time.Duration
	BatchSize int
	Retry     saga.RetryConfig
}

// Worker периодически перечитывает журнал компенсаций и повторяет зачисления.
type Worker struct {
	repo    domain.CompensationRepository
	wallet  domain.WalletClient
	metrics *metrics.WorkflowMetrics
	logger  *log.Entry
	cfg     Config
}

// NewWorker создаёт воркер сверки. m и logger могут быть nil.
func NewWorker(repo domain.CompensationRepository, wallet domain.WalletClient, m *metrics.WorkflowMetrics, logger *log.Entry, cfg Config) *Worker {
	if logger == nil {
		logger = log.WithField("component", "reconcile-worker")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = saga.DefaultRetryConfig()
	}
	return &Worker{repo: repo, wallet: wallet, metrics: m, logger: logger, cfg: cfg}
}

// Run обрабатывает журнал до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.WithField("interval", w.cfg.Interval).Info("reconcile worker started")
	for {
		w.ProcessOnce(ctx)

		select {
		case <-ctx.Done():
			w.logger.Info("reconcile worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce обрабатывает один батч и возвращает число закрытых записей.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	pending, err := w.repo.ListPending(ctx, w.cfg.BatchSize)
	if err != nil {
		w.logger.WithError(err).Error("failed to load pending compensations")
		return 0
	}

	resolved := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			break
		}
		if w.process(ctx, rec) {
			resolved++
		}
	}

	w.metrics.SetPendingReconcile(len(pending) - resolved)
	return resolved
}

func (w *Worker) process(ctx context.Context, rec domain.CompensationRecord) bool {
	logger := w.logger.WithFields(log.Fields{
		"compensation_id": rec.ID,
		"order_id":        rec.OrderID,
		"user_id":         rec.UserID,
		"amount":          rec.Amount.String(),
	})

	err := saga.Retry(ctx, w.cfg.Retry, logger, "reconcile.credit", func(ctx context.Context) error {
		return w.wallet.Credit(ctx, rec.UserID, rec.Amount)
	})
	if err != nil {
		w.metrics.RecordCompensation("failed")
		if markErr := w.repo.MarkAttempt(ctx, rec.ID, err.Error()); markErr != nil {
			logger.WithError(markErr).Error("failed to record reconcile attempt")
		}
		logger.WithError(err).WithField("attempts", rec.Attempts+1).Warn("reconcile credit failed")
		return false
	}

	w.metrics.RecordCompensation("reconciled")
	if err := w.repo.MarkResolved(ctx, rec.ID); err != nil {
		// Деньги уже зачислены: повторная попытка приведёт к двойному зачислению.
		logger.WithError(err).Error("credit applied but compensation not marked resolved, manual check required")
		return false
	}
	logger.Info("compensation reconciled")
	return true
}
