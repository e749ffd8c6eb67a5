package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or is
// behind an open circuit breaker.
var ErrAllFailed = errors.New("resilience: all entries failed")

// FallbackConfig configures a [FallbackGroup].
type FallbackConfig struct {
	// CircuitBreaker is the template for each entry's breaker. Its Name is
	// overwritten with the entry name.
	CircuitBreaker CircuitBreakerConfig

	// OnFailover, when set, is called each time an entry is passed over,
	// either because it failed or because its breaker is open.
	OnFailover func(name string, err error)
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds a primary and zero or more fallbacks of the same type,
// each behind its own [CircuitBreaker]. Entries are tried in registration
// order.
//
// Entries must be registered before the group is shared between goroutines.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first entry.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends an entry tried after all previously added ones.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Names returns the entry names in the order they are tried.
func (fg *FallbackGroup[T]) Names() []string {
	names := make([]string, len(fg.entries))
	for i, e := range fg.entries {
		names[i] = e.name
	}
	return names
}

// Primary returns the first entry.
func (fg *FallbackGroup[T]) Primary() T {
	return fg.entries[0].value
}

// Breaker returns the circuit breaker guarding the named entry, or nil.
func (fg *FallbackGroup[T]) Breaker(name string) *CircuitBreaker {
	for i := range fg.entries {
		if fg.entries[i].name == name {
			return fg.entries[i].breaker
		}
	}
	return nil
}

// Execute tries fn against each entry until one succeeds.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, _, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry of fg until one succeeds and
// returns its result together with the name of the entry that served it.
// Entries with an open breaker are skipped. A context cancellation stops the
// walk immediately and is returned unwrapped. When every entry fails the
// error wraps [ErrAllFailed] and the last failure.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, string, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, entry.name, nil
		}
		if errors.Is(err, context.Canceled) {
			return zero, entry.name, err
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("resilience: skipping entry, circuit open", "entry", entry.name)
		} else {
			slog.Warn("resilience: entry failed, trying next", "entry", entry.name, "err", err)
		}
		if fg.cfg.OnFailover != nil {
			fg.cfg.OnFailover(entry.name, err)
		}
	}
	return zero, "", fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
