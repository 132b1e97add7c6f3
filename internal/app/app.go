// Package app собирает зависимости сервиса заказов и управляет его жизненным циклом.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/foodorder/internal/health"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/foodorder/internal/service/grpc"
	"github.com/vladislavdragonenkov/foodorder/internal/service/outbox"
	"github.com/vladislavdragonenkov/foodorder/internal/service/reconcile"
	"github.com/vladislavdragonenkov/foodorder/internal/version"
)

const gracefulStopTimeout = 5 * time.Second

// Run поднимает хранилище, брокер, gRPC API и фоновые воркеры и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := initStorage(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer closeWithLog("storage", store.closeFn, logger)

	broker, err := initBroker(cfg, logger.WithField("layer", "broker"))
	if err != nil {
		return fmt.Errorf("init broker: %w", err)
	}
	defer closeWithLog("broker", broker.closeFn, logger)

	deps, err := NewDependencies(cfg, store, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	defer closeWithLog("collaborators", deps.Close, logger)

	checkers := map[string]healthcheck.Checker{}
	for name, checker := range deps.checkers {
		checkers[name] = checker
	}
	if store.checker != nil {
		checkers["postgres"] = store.checker
	}
	if broker.checker != nil {
		checkers["rabbitmq"] = broker.checker
	}
	ping(ctx, checkers, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	for name, checker := range checkers {
		healthHandler.RegisterChecker(name, checker)
	}

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	startWorkers(workersCtx, &workers, cfg, store, broker, deps, logger)
	defer func() {
		stopWorkers()
		workers.Wait()
		logger.Info("background workers stopped")
	}()

	grpcServer, healthServer := newGRPCServer(deps, logger)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC server listening on %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping gRPC server")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stoppedCh := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stoppedCh)
		}()
		select {
		case <-stoppedCh:
		case <-time.After(gracefulStopTimeout):
			logger.Warn("graceful stop timed out, forcing stop")
			grpcServer.Stop()
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newGRPCServer регистрирует API, gRPC health и prometheus-интерцепторы.
func newGRPCServer(deps *Dependencies, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	api := grpcsvc.NewFoodOrderService(deps.Carts, deps.Orders, logger.WithField("layer", "grpc"))
	grpcsvc.RegisterFoodOrderServiceServer(grpcServer, api)
	grpcMetrics.InitializeMetrics(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer, healthServer
}

// startWorkers запускает outbox и, если включён, воркер сверки компенсаций.
func startWorkers(ctx context.Context, wg *sync.WaitGroup, cfg Config, store *storageDependencies, broker *brokerDependencies, deps *Dependencies, logger *log.Entry) {
	options := []outbox.Option{
		outbox.WithLogger(logger.WithField("worker", "outbox")),
		outbox.WithMetrics(metrics.NewOutboxMetrics(nil)),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if broker.dlq != nil {
		options = append(options, outbox.WithDLQPublisher(broker.dlq))
	}
	outboxWorker := outbox.NewWorker(store.outbox, broker.publisher, options...)

	wg.Add(1)
	go func() {
		defer wg.Done()
		outboxWorker.Run(ctx)
	}()

	if !cfg.ReconcileEnabled {
		return
	}
	reconcileWorker := reconcile.NewWorker(store.compensations, deps.walletClient, deps.Metrics,
		logger.WithField("worker", "reconcile"), reconcile.Config{Interval: cfg.ReconcileInterval})

	wg.Add(1)
	go func() {
		defer wg.Done()
		reconcileWorker.Run(ctx)
	}()
}

func closeWithLog(name string, closeFn func() error, logger *log.Entry) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logger.WithError(err).WithField("resource", name).Warn("failed to close")
		return
	}
	logger.WithField("resource", name).Debug("closed")
}
