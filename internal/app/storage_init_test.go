package app

import (
	"context"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/foodorder/internal/health"
)

func TestInitStorage_Memory(t *testing.T) {
	t.Parallel()

	store, err := initStorage(context.Background(), Config{StorageDriver: StorageDriverMemory}, log.WithField("test", "memory-storage"))
	require.NoError(t, err)
	require.NotNil(t, store.carts)
	require.NotNil(t, store.orders)
	require.NotNil(t, store.timeline)
	require.NotNil(t, store.outbox)
	require.NotNil(t, store.compensations)
	require.Nil(t, store.checker)
	require.NoError(t, store.closeFn())
}

func TestInitStorage_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initStorage(context.Background(), Config{StorageDriver: StorageDriverPostgres}, log.WithField("test", "postgres-missing-dsn"))
	require.Error(t, err)
}

func TestInitStorage_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initStorage(context.Background(), Config{StorageDriver: "sqlite"}, log.WithField("test", "unsupported-driver"))
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestInitStorage_Postgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("FOODORDER_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("FOODORDER_POSTGRES_TEST_DSN is not set")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn
	cfg.PostgresAutoMigrate = true

	store, err := initStorage(context.Background(), cfg, log.WithField("test", "postgres-init"))
	if err != nil {
		t.Skipf("postgres is not available for app integration test: %v", err)
	}
	defer func() { _ = store.closeFn() }()

	require.NotNil(t, store.checker)
	require.Equal(t, healthcheck.StatusHealthy, store.checker.Check(context.Background()).Status)
}
