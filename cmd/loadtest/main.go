package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcsvc "github.com/vladislavdragonenkov/foodorder/internal/service/grpc"
)

type loadMode string

const (
	modePlace         loadMode = "place"
	modePlaceCancel   loadMode = "place-cancel"
	modePlaceComplete loadMode = "place-complete"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	cancelRate  int
	users       int
	restaurants int
	items       int
	unitPrice   string
	outputPath  string
}

func parseConfig(args []string) (config, error) {
	var cfg config
	var modeValue string

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m, 15m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "number of concurrent workers, each bound to its own user")
	fs.IntVar(&cfg.connections, "connections", 10, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modePlace), "load mode: place | place-cancel | place-complete")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "cancel probability in percent for place mode (0..100)")
	fs.IntVar(&cfg.users, "users", 100, "number of seeded users (ids 1..N, address i belongs to user i)")
	fs.IntVar(&cfg.restaurants, "restaurants", 20, "number of seeded restaurants (ids 1..N)")
	fs.IntVar(&cfg.items, "items", 2, "cart lines per order")
	fs.StringVar(&cfg.unitPrice, "unit-price", "0.10", "unit price of every cart line")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.users < cfg.concurrency {
		return cfg, errors.New("users must be >= concurrency")
	}
	if cfg.restaurants <= 0 {
		return cfg, errors.New("restaurants must be > 0")
	}
	if cfg.items <= 0 {
		return cfg, errors.New("items must be > 0")
	}
	if cfg.connections <= 0 {
		return cfg, errors.New("connections must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if cfg.cancelRate < 0 || cfg.cancelRate > 100 {
		return cfg, errors.New("cancel-rate must be between 0 and 100")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(cfg.unitPrice))
	if err != nil || !price.IsPositive() {
		return cfg, fmt.Errorf("unit-price must be a positive decimal, got %q", cfg.unitPrice)
	}
	cfg.unitPrice = price.StringFixed(2)

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modePlace:
		return modePlace, nil
	case modePlaceCancel:
		return modePlaceCancel, nil
	case modePlaceComplete:
		return modePlaceComplete, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]orderClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcsvc.NewClient(conn))
	}

	result, err := run(cfg, clients, os.Stdout)
	for _, conn := range conns {
		_ = conn.Close()
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// run прогоняет сценарии на пуле воркеров. Воркер i работает от имени пользователя i+1.
func run(cfg config, clients []orderClient, out io.Writer) (report, error) {
	if len(clients) == 0 {
		return report{}, errors.New("at least one client is required")
	}

	startedAt := time.Now()
	col := newCollector()
	jobs := make(chan int, cfg.concurrency*2)

	var wg sync.WaitGroup
	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		s := scenario{client: clients[workerID%len(clients)], cfg: cfg, col: col}
		userID := int64(workerID%cfg.users) + 1
		go func() {
			defer wg.Done()
			for index := range jobs {
				_ = s.run(userID, index)
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	printReport(out, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			return result, fmt.Errorf("failed to write report: %w", err)
		}
	}
	return result, nil
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}
