// Package saga содержит примитивы для многошаговых операций с внешними системами:
// стек компенсаций, retry с backoff и circuit breaker.
package saga

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// CompensateFunc отменяет эффект уже выполненного шага.
type CompensateFunc func(ctx context.Context) error

type compensation struct {
	name string
	fn   CompensateFunc
}

// Failure описывает компенсацию, которая завершилась ошибкой.
type Failure struct {
	Step string
	Err  error
}

// Stack накапливает компенсации по мере выполнения шагов и откатывает их в обратном порядке.
// Каждая компенсация выполняется не более одного раза: после Unwind стек пуст.
type Stack struct {
	mu     sync.Mutex
	steps  []compensation
	logger *log.Entry
}

// NewStack создаёт пустой стек компенсаций.
func NewStack(logger *log.Entry) *Stack {
	if logger == nil {
		logger = log.New().WithField("component", "compensation-stack")
	}
	return &Stack{logger: logger}
}

// Push регистрирует компенсацию для только что выполненного шага.
func (s *Stack) Push(name string, fn CompensateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, compensation{name: name, fn: fn})
}

// Len возвращает число зарегистрированных компенсаций.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// Discard очищает стек без выполнения компенсаций (операция завершилась успешно).
func (s *Stack) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = nil
}

// Unwind выполняет компенсации в порядке LIFO. Ошибка одной компенсации не останавливает
// остальные; все ошибки возвращаются вызывающему для записи в журнал сверки.
func (s *Stack) Unwind(ctx context.Context) []Failure {
	s.mu.Lock()
	steps := s.steps
	s.steps = nil
	s.mu.Unlock()

	var failures []Failure
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if err := step.fn(ctx); err != nil {
			s.logger.WithError(err).WithField("step", step.name).Error("compensation failed")
			failures = append(failures, Failure{Step: step.name, Err: err})
			continue
		}
		s.logger.WithField("step", step.name).Info("compensation applied")
	}
	return failures
}
