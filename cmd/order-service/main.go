package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/app"
	"github.com/vladislavdragonenkov/foodorder/internal/version"
)

const envLogLevel = "FOODORDER_LOG_LEVEL"

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level = strings.TrimSpace(level)
	if level == "" {
		log.SetLevel(log.InfoLevel)
		return nil
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.InfoLevel)
		return err
	}
	log.SetLevel(parsed)
	return nil
}

func main() {
	if err := setupLogger(os.Getenv(envLogLevel)); err != nil {
		log.WithError(err).Warn("invalid log level, using info")
	}

	cfg, err := app.LoadConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":      version.GetVersion(),
		"grpc_addr":    cfg.GRPCAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
		"broker":       cfg.Broker,
	}).Info("starting FoodOrderService")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("application exited with error")
	}

	log.Info("FoodOrderService stopped")
}
