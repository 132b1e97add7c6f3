package saga

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// RetryConfig конфигурация для retry логики.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retry вызывает fn, пока она возвращает временную ошибку, с экспоненциальной задержкой.
// Возвращает последнюю ошибку либо ошибку контекста.
func Retry(ctx context.Context, cfg RetryConfig, logger *log.Entry, operation string, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = log.New().WithField("component", "retry")
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.WithFields(log.Fields{
					"operation": operation,
					"attempt":   attempt,
				}).Info("operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !ShouldRetry(err) {
			logger.WithError(err).WithField("operation", operation).Warn("operation failed with non-retryable error")
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		logger.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
			"delay":     delay,
		}).Warn("operation failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	logger.WithError(lastErr).WithFields(log.Fields{
		"operation":    operation,
		"max_attempts": cfg.MaxAttempts,
	}).Error("operation failed after all retry attempts")
	return lastErr
}

// ShouldRetry определяет, стоит ли повторять операцию при данной ошибке.
// Бизнес-ошибки (валидация, нехватка средств, отсутствие сущности) не повторяются.
func ShouldRetry(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrCircuitOpen):
		return false
	case errors.Is(err, domain.ErrExternalUnavailable):
		return true
	case domain.KindOf(err) != nil:
		return false
	default:
		return true
	}
}

// CircuitState — состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen возвращается, пока breaker разомкнут. Относится к ErrExternalUnavailable.
var ErrCircuitOpen = &circuitOpenError{}

type circuitOpenError struct{}

func (*circuitOpenError) Error() string { return "circuit breaker is open" }

func (*circuitOpenError) Unwrap() error { return domain.ErrExternalUnavailable }

// CircuitBreaker размыкается после maxFailures недоступностей подряд и пропускает пробный
// вызов после resetTimeout. Бизнес-ошибки зависимостей не считаются отказами.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       CircuitState
	logger      *log.Entry
}

// NewCircuitBreaker создаёт новый circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.New().WithField("component", "circuit-breaker")
	}
	if maxFailures <= 0 {
		maxFailures = 1
	}

	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        CircuitClosed,
		logger:       logger,
	}
}

// State возвращает текущее состояние breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute выполняет операцию через circuit breaker.
func (cb *CircuitBreaker) Execute(operation string, fn func() error) error {
	cb.mu.Lock()
	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.logger.WithField("operation", operation).Info("circuit breaker half-open")
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && errors.Is(err, domain.ErrExternalUnavailable) {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = CircuitOpen
			cb.logger.WithFields(log.Fields{
				"operation": operation,
				"failures":  cb.failures,
			}).Warn("circuit breaker opened")
		}
		return err
	}

	if cb.state == CircuitHalfOpen {
		cb.logger.WithField("operation", operation).Info("circuit breaker closed")
	}
	cb.state = CircuitClosed
	cb.failures = 0
	return err
}
