package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/foodorder/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/foodorder/internal/messaging/rabbitmq"
	"github.com/vladislavdragonenkov/foodorder/internal/service/catalog"
	"github.com/vladislavdragonenkov/foodorder/internal/snapshot"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	BrokerNone     = "none"
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

const envPrefix = "FOODORDER_"

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	Broker           string
	KafkaBrokers     []string
	KafkaTopic       string
	RabbitMQURL      string
	RabbitMQExchange string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	// RedisAddr пустой — каталог без кэша.
	RedisAddr       string
	RedisPassword   string
	CatalogCacheTTL time.Duration

	SnapshotVersion snapshot.Version

	// Демо-справочники in-memory коллабораторов: пользователи и рестораны 1..N, адрес i принадлежит пользователю i.
	DemoUsers            int
	DemoRestaurants      int
	WalletDefaultBalance decimal.Decimal

	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration

	ReconcileEnabled  bool
	ReconcileInterval time.Duration
}

// DefaultConfig возвращает настройки для локального запуска без внешней инфраструктуры.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		Broker:           BrokerNone,
		KafkaTopic:       kafka.TopicOrderEvents,
		RabbitMQExchange: rabbitmq.ExchangeOrderEvents,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,

		CatalogCacheTTL: catalog.DefaultCacheTTL,

		SnapshotVersion: snapshot.DefaultVersion,

		DemoUsers:            100,
		DemoRestaurants:      20,
		WalletDefaultBalance: decimal.NewFromInt(100),

		BreakerMaxFailures:  5,
		BreakerResetTimeout: 10 * time.Second,

		ReconcileEnabled:  false,
		ReconcileInterval: 30 * time.Second,
	}
}

// LoadConfigFromEnv накладывает переменные FOODORDER_* поверх DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	var errs []string

	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				errs = append(errs, fmt.Sprintf("%s%s: expected non-negative integer, got %q", envPrefix, name, v))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: expected boolean, got %q", envPrefix, name, v))
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				errs = append(errs, fmt.Sprintf("%s%s: expected duration, got %q", envPrefix, name, v))
				return
			}
			*dst = d
		}
	}

	str("GRPC_ADDR", &cfg.GRPCAddr)
	str("METRICS_ADDR", &cfg.MetricsAddr)
	str("STORAGE_DRIVER", &cfg.StorageDriver)
	str("POSTGRES_DSN", &cfg.PostgresDSN)
	boolean("POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)

	str("BROKER", &cfg.Broker)
	if v, ok := lookup("KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = splitList(v)
	}
	str("KAFKA_TOPIC", &cfg.KafkaTopic)
	str("RABBITMQ_URL", &cfg.RabbitMQURL)
	str("RABBITMQ_EXCHANGE", &cfg.RabbitMQExchange)

	duration("OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval)
	integer("OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)
	integer("OUTBOX_MAX_ATTEMPTS", &cfg.OutboxMaxAttempts)
	duration("OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay)

	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	duration("CATALOG_CACHE_TTL", &cfg.CatalogCacheTTL)

	if v, ok := lookup("SNAPSHOT_VERSION"); ok {
		cfg.SnapshotVersion = snapshot.Version(v)
	}

	integer("DEMO_USERS", &cfg.DemoUsers)
	integer("DEMO_RESTAURANTS", &cfg.DemoRestaurants)
	if v, ok := lookup("WALLET_DEFAULT_BALANCE"); ok {
		balance, err := decimal.NewFromString(v)
		if err != nil || balance.IsNegative() {
			errs = append(errs, fmt.Sprintf("%sWALLET_DEFAULT_BALANCE: expected non-negative decimal, got %q", envPrefix, v))
		} else {
			cfg.WalletDefaultBalance = balance
		}
	}

	integer("BREAKER_MAX_FAILURES", &cfg.BreakerMaxFailures)
	duration("BREAKER_RESET_TIMEOUT", &cfg.BreakerResetTimeout)

	boolean("RECONCILE_ENABLED", &cfg.ReconcileEnabled)
	duration("RECONCILE_INTERVAL", &cfg.ReconcileInterval)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек до старта зависимостей.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires %sPOSTGRES_DSN", envPrefix)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	switch c.Broker {
	case BrokerNone, "":
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka broker requires %sKAFKA_BROKERS", envPrefix)
		}
	case BrokerRabbitMQ:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("rabbitmq broker requires %sRABBITMQ_URL", envPrefix)
		}
	default:
		return fmt.Errorf("unsupported broker %q", c.Broker)
	}

	if _, err := snapshot.NewCodec(c.SnapshotVersion); err != nil {
		return fmt.Errorf("snapshot version: %w", err)
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
