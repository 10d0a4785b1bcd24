package health

import (
	"context"
	"sync"
	"time"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result
}

// Probe adapts a function returning an error into a Checker
type Probe func(ctx context.Context) error

// Check runs the probe and times it
func (p Probe) Check(ctx context.Context) Result {
	start := time.Now()
	err := p(ctx)
	result := Result{
		Healthy:   err == nil,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

// Config contains the thresholds applied to consecutive results
type Config struct {
	// Timeout is the maximum time to wait for a health check to complete
	Timeout time.Duration

	// Retries is the number of consecutive failures before marking as unhealthy
	Retries int
}

// DefaultConfig returns a Config that reports the first failure
func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		Retries: 1,
	}
}

// Status tracks the current health of the backend across checks
type Status struct {
	// ConsecutiveFailures tracks the number of consecutive failed checks
	ConsecutiveFailures int

	// ConsecutiveSuccesses tracks the number of consecutive successful checks
	ConsecutiveSuccesses int

	// LastResult is the result of the last health check
	LastResult Result

	// Healthy indicates if the backend is currently considered healthy
	Healthy bool
}

// NewStatus creates a new Status that assumes health until proven otherwise
func NewStatus() *Status {
	return &Status{Healthy: true}
}

// Update updates the status based on a new health check result
func (s *Status) Update(result Result, config Config) {
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
		return
	}

	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
	retries := config.Retries
	if retries < 1 {
		retries = 1
	}
	if s.ConsecutiveFailures >= retries {
		s.Healthy = false
	}
}

// Monitor runs a Checker and folds each result into a Status
type Monitor struct {
	checker Checker
	config  Config

	mu     sync.Mutex
	status *Status
}

// NewMonitor creates a monitor for checker
func NewMonitor(checker Checker, config Config) *Monitor {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Monitor{
		checker: checker,
		config:  config,
		status:  NewStatus(),
	}
}

// Check runs one check under the configured timeout and returns the raw
// result together with the updated health verdict
func (m *Monitor) Check(ctx context.Context) (Result, bool) {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	result := m.checker.Check(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Update(result, m.config)
	return result, m.status.Healthy
}

// Status returns a copy of the current status
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.status
}
