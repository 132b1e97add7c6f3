package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/foodorder/internal/health"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/memory"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/postgres"
)

// storageDependencies — репозитории выбранного хранилища.
type storageDependencies struct {
	carts         domain.CartRepository
	orders        domain.OrderRepository
	timeline      domain.TimelineRepository
	outbox        domain.OutboxRepository
	compensations domain.CompensationRepository

	// checker nil для in-memory хранилища.
	checker healthcheck.Checker
	closeFn func() error
}

func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		logger.Info("using in-memory storage")
		return &storageDependencies{
			carts:         memory.NewCartRepository(),
			orders:        memory.NewOrderRepository(),
			timeline:      memory.NewTimelineRepository(),
			outbox:        memory.NewOutboxRepository(),
			compensations: memory.NewCompensationRepository(),
			closeFn:       func() error { return nil },
		}, nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires %sPOSTGRES_DSN", envPrefix)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.PoolConfig{})
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		logger.Info("using postgres storage")
		return &storageDependencies{
			carts:         postgres.NewCartRepository(store),
			orders:        postgres.NewOrderRepository(store),
			timeline:      postgres.NewTimelineRepository(store),
			outbox:        postgres.NewOutboxRepository(store),
			compensations: postgres.NewCompensationRepository(store),
			checker:       healthcheck.NewPingChecker("postgres", store, true),
			closeFn:       store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
