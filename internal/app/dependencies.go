package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/foodorder/internal/health"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
	"github.com/vladislavdragonenkov/foodorder/internal/service/cart"
	"github.com/vladislavdragonenkov/foodorder/internal/service/catalog"
	"github.com/vladislavdragonenkov/foodorder/internal/service/identity"
	"github.com/vladislavdragonenkov/foodorder/internal/service/order"
	"github.com/vladislavdragonenkov/foodorder/internal/service/saga"
	"github.com/vladislavdragonenkov/foodorder/internal/service/wallet"
	"github.com/vladislavdragonenkov/foodorder/internal/snapshot"
)

// Dependencies содержит сервисы приложения поверх выбранного хранилища.
// NOTE: кошелёк, каталог и сервис пользователей здесь in-memory; в production
// их заменяют клиенты внешних систем с теми же интерфейсами domain.
type Dependencies struct {
	Wallet   *wallet.MockService
	Catalog  *catalog.MockService
	Identity *identity.MockService

	Carts  *cart.Service
	Orders *order.Service

	Metrics *metrics.WorkflowMetrics
	Logger  *log.Entry

	// walletClient — кошелёк, где списания идут через circuit breaker; общий для оформления и сверки.
	walletClient domain.WalletClient
	// checkers — проверки зависимостей для /healthz и /readyz.
	checkers map[string]healthcheck.Checker
	closers  []func() error
}

// NewDependencies собирает сервисы корзины и заказов. registerer nil означает DefaultRegisterer.
func NewDependencies(cfg Config, store *storageDependencies, registerer prometheus.Registerer, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if store == nil {
		return nil, errors.New("storage dependencies are required")
	}

	codec, err := snapshot.NewCodec(cfg.SnapshotVersion)
	if err != nil {
		return nil, fmt.Errorf("snapshot codec: %w", err)
	}

	deps := &Dependencies{
		Wallet:   wallet.NewMockService(),
		Catalog:  catalog.NewMockService(),
		Identity: identity.NewMockService(),
		Metrics:  metrics.NewWorkflowMetrics(registerer),
		Logger:   logger,
		checkers: make(map[string]healthcheck.Checker),
	}
	seedDemoData(cfg, deps)

	breaker := func(name string) *saga.CircuitBreaker {
		return saga.NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerResetTimeout, logger.WithField("breaker", name))
	}

	var catalogClient domain.CatalogClient = saga.GuardedCatalog{Next: deps.Catalog, Breaker: breaker("catalog")}
	if cfg.RedisAddr != "" {
		cache := catalog.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, 0)
		catalogClient = catalog.NewCachedClient(catalogClient, cache, cfg.CatalogCacheTTL, logger.WithField("layer", "catalog-cache"))
		deps.checkers["redis"] = healthcheck.NewPingChecker("redis", cache, false)
		deps.closers = append(deps.closers, cache.Close)
		logger.WithField("addr", cfg.RedisAddr).Info("catalog cache enabled")
	}

	deps.walletClient = saga.GuardedWallet{Next: deps.Wallet, Breaker: breaker("wallet")}
	deps.Carts = cart.NewService(store.carts, logger.WithField("layer", "cart"), deps.Metrics)
	deps.Orders, err = order.NewService(order.Dependencies{
		Cart:          deps.Carts,
		Orders:        store.orders,
		Wallet:        deps.walletClient,
		Catalog:       catalogClient,
		Identity:      saga.GuardedIdentity{Next: deps.Identity, Breaker: breaker("identity")},
		Codec:         codec,
		Timeline:      store.timeline,
		Outbox:        store.outbox,
		Compensations: store.compensations,
		Metrics:       deps.Metrics,
		Logger:        logger.WithField("layer", "order"),
	})
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	return deps, nil
}

// seedDemoData заполняет in-memory коллабораторов: пользователь i владеет адресом i.
func seedDemoData(cfg Config, deps *Dependencies) {
	for id := int64(1); id <= int64(cfg.DemoUsers); id++ {
		deps.Identity.AddUser(id)
		deps.Identity.AddAddress(id, id)
		deps.Wallet.SetBalance(id, cfg.WalletDefaultBalance)
	}
	for id := int64(1); id <= int64(cfg.DemoRestaurants); id++ {
		deps.Catalog.AddRestaurant(id, fmt.Sprintf("Restaurant #%d", id), true)
	}
}

// Close освобождает клиентов внешних систем.
func (d *Dependencies) Close() error {
	var errs []error
	for _, closeFn := range d.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// ping логирует недоступные зависимости при старте.
func ping(ctx context.Context, checkers map[string]healthcheck.Checker, logger *log.Entry) {
	for name, checker := range checkers {
		if check := checker.Check(ctx); check.Status != healthcheck.StatusHealthy {
			logger.WithFields(log.Fields{"dependency": name, "status": check.Status}).Warn(check.Message)
		}
	}
}
