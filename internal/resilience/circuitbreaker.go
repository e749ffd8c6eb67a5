// Package resilience guards remote judges with circuit breakers and ordered
// failover.
//
// [CircuitBreaker] trips after consecutive failures and rejects calls until a
// cool-down has passed. [FallbackGroup] holds a primary and its fallbacks,
// each behind its own breaker. [SourceFallback], [JudgeFallback] and
// [LLMFallback] specialise the group for grammar error sources, coherence
// judges and raw language-model providers, so a failing remote model degrades
// to the next one in line and finally to the offline implementation.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// rejects calls.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// has elapsed.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. A probe
	// failure re-opens the breaker; enough successes close it.
	StateHalfOpen
)

// String returns the state's label as used in logs and metric attributes.
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

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs and in OnStateChange callbacks.
	Name string

	// MaxFailures is the number of consecutive failures that opens the
	// breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes needed to close again.
	// Default: 3.
	HalfOpenMax int

	// OnStateChange, when set, is called after every transition. It runs
	// with the breaker's lock released.
	OnStateChange func(name string, from, to State)

	// now is replaced in tests.
	now func() time.Time
}

// CircuitBreaker implements the three-state circuit breaker pattern.
//
// Errors caused by the caller's own context being cancelled are passed through
// without being counted as failures.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	onChange     func(name string, from, to State)
	now          func() time.Time

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	probes          int
	probeSuccesses  int
}

// NewCircuitBreaker creates a [CircuitBreaker]. Zero-valued fields in cfg are
// replaced with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		onChange:     cfg.OnStateChange,
		now:          cfg.now,
		state:        StateClosed,
	}
}

// Name returns the breaker's label.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn unless the breaker is open. In the half-open state at most
// HalfOpenMax probes may be in flight or completed before the breaker decides.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	var pending []transition
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		pending = append(pending, cb.setState(StateHalfOpen))
	case StateHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	probe := cb.state == StateHalfOpen
	if probe {
		cb.probes++
	}
	cb.mu.Unlock()
	cb.notify(pending)

	err := fn()

	cb.mu.Lock()
	switch {
	case err == nil:
		pending = cb.recordSuccess(probe)
	case errors.Is(err, context.Canceled):
		if probe {
			cb.probes--
		}
		pending = nil
	default:
		pending = cb.recordFailure(probe)
	}
	cb.mu.Unlock()
	cb.notify(pending)
	return err
}

type transition struct{ from, to State }

// setState must be called with cb.mu held.
func (cb *CircuitBreaker) setState(to State) transition {
	t := transition{from: cb.state, to: to}
	cb.state = to
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateHalfOpen:
		cb.probes = 0
		cb.probeSuccesses = 0
	case StateClosed:
		cb.consecutiveFail = 0
	}
	return t
}

func (cb *CircuitBreaker) recordFailure(probe bool) []transition {
	if probe {
		slog.Warn("resilience: circuit breaker re-opened", "name", cb.name)
		return []transition{cb.setState(StateOpen)}
	}
	if cb.state != StateClosed {
		return nil
	}
	cb.consecutiveFail++
	if cb.consecutiveFail < cb.maxFailures {
		return nil
	}
	slog.Warn("resilience: circuit breaker opened",
		"name", cb.name,
		"consecutive_failures", cb.consecutiveFail)
	return []transition{cb.setState(StateOpen)}
}

func (cb *CircuitBreaker) recordSuccess(probe bool) []transition {
	if !probe {
		cb.consecutiveFail = 0
		return nil
	}
	if cb.state != StateHalfOpen {
		return nil
	}
	cb.probeSuccesses++
	if cb.probeSuccesses < cb.halfOpenMax {
		return nil
	}
	slog.Info("resilience: circuit breaker closed", "name", cb.name)
	return []transition{cb.setState(StateClosed)}
}

func (cb *CircuitBreaker) notify(ts []transition) {
	if cb.onChange == nil {
		return
	}
	for _, t := range ts {
		if t.from != t.to {
			cb.onChange(cb.name, t.from, t.to)
		}
	}
}

// State returns the current state. An open breaker whose reset timeout has
// elapsed reports [StateHalfOpen]; the transition itself happens on the next
// [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	t := cb.setState(StateClosed)
	cb.mu.Unlock()
	cb.notify([]transition{t})
}
