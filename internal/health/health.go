// Package health отдаёт JSON-состояние сервиса и его зависимостей для probe'ов.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status представляет статус компонента
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const defaultCheckTimeout = 2 * time.Second

// Check представляет проверку здоровья компонента
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response представляет ответ health check
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker интерфейс для проверки здоровья компонента
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler обрабатывает health check запросы
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
	timeout   time.Duration
}

// NewHandler создаёт новый health handler
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
		timeout:   defaultCheckTimeout,
	}
}

// RegisterChecker регистрирует проверку компонента
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// runChecks выполняет проверки параллельно с общим таймаутом.
func (h *Handler) runChecks(ctx context.Context) map[string]Check {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]Check, len(checkers))
	)
	for name, checker := range checkers {
		name, checker := name, checker
		wg.Add(1)
		go func() {
			defer wg.Done()
			check := checker.Check(ctx)
			mu.Lock()
			checks[name] = check
			mu.Unlock()
		}()
	}
	wg.Wait()
	return checks
}

func overall(checks map[string]Check) Status {
	status := StatusHealthy
	for _, check := range checks {
		if check.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if check.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}

// ServeHTTP обрабатывает HTTP запрос
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := h.runChecks(r.Context())
	overallStatus := overall(checks)

	response := Response{
		Status:        overallStatus,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler простой liveness probe (всегда возвращает 200)
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler отвечает 503, пока хотя бы одна критичная зависимость недоступна.
// Деградация некритичных зависимостей (кэш) готовности не снимает.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if overall(h.runChecks(r.Context())) == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// SimpleChecker простая проверка с функцией
type SimpleChecker struct {
	name    string
	checkFn func(ctx context.Context) error
	// failStatus — статус при ошибке: unhealthy для критичных зависимостей, degraded для остальных.
	failStatus Status
}

// NewSimpleChecker создаёт проверку критичной зависимости.
func NewSimpleChecker(name string, checkFn func(ctx context.Context) error) *SimpleChecker {
	return &SimpleChecker{name: name, checkFn: checkFn, failStatus: StatusUnhealthy}
}

// NewOptionalChecker создаёт проверку зависимости, без которой сервис работает в деградированном режиме.
func NewOptionalChecker(name string, checkFn func(ctx context.Context) error) *SimpleChecker {
	return &SimpleChecker{name: name, checkFn: checkFn, failStatus: StatusDegraded}
}

// Pinger — зависимость с проверкой соединения (postgres, redis, rabbitmq).
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingChecker проверяет зависимость через Ping.
func NewPingChecker(name string, pinger Pinger, critical bool) *SimpleChecker {
	if critical {
		return NewSimpleChecker(name, pinger.Ping)
	}
	return NewOptionalChecker(name, pinger.Ping)
}

// Check выполняет проверку
func (c *SimpleChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.checkFn(ctx)
	duration := time.Since(start)

	if err != nil {
		return Check{
			Name:       c.name,
			Status:     c.failStatus,
			Message:    err.Error(),
			DurationMs: duration.Milliseconds(),
		}
	}

	return Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: duration.Milliseconds(),
	}
}
