// Package resilience provides fault-tolerance primitives for the dataset
// loader: a circuit breaker, exponential-backoff retry, and a context-based
// timeout wrapper.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker refuses requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls the failure threshold and recovery timing.
// Zero values fall back to the defaults.
type CircuitBreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// CircuitBreaker trips open after FailureThreshold consecutive failures.
// After ResetTimeout it lets one probe through; a probe success closes the
// circuit, a probe failure re-opens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	probeInFlight bool
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		state:  StateClosed,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn if the circuit allows it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

// CurrentState returns the breaker's state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probeInFlight = false
	cb.logger.Info("circuit manually reset")
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.cfg.ResetTimeout {
			wait := cb.cfg.ResetTimeout - time.Since(cb.lastFailure)
			return fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, cb.name, wait.Round(time.Second))
		}
		cb.state = StateHalfOpen
		cb.probeInFlight = true
		cb.logger.Info("circuit half-open, probing")
		return nil
	case StateHalfOpen:
		if cb.probeInFlight {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.probeInFlight = true
		return nil
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err == nil {
		if cb.state == StateHalfOpen {
			cb.logger.Info("circuit closed (recovered)")
		}
		cb.state = StateClosed
		cb.failures = 0
		cb.probeInFlight = false
		return
	}

	cb.lastFailure = time.Now()
	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.logger.Warn("circuit opened",
				"consecutive_failures", cb.failures,
				"threshold", cb.cfg.FailureThreshold,
			)
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.probeInFlight = false
		cb.logger.Warn("circuit re-opened (probe failed)")
	}
}
