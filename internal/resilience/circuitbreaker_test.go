package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var errTest = errors.New("test error")

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock, maxFailures, halfOpenMax int) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  maxFailures,
		ResetTimeout: time.Second,
		HalfOpenMax:  halfOpenMax,
		now:          clock.Now,
	})
}

func fail() error    { return errTest }
func succeed() error { return nil }

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test"})
	if cb.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", cb.maxFailures)
	}
	if cb.resetTimeout != 30*time.Second {
		t.Errorf("resetTimeout = %v, want 30s", cb.resetTimeout)
	}
	if cb.halfOpenMax != 3 {
		t.Errorf("halfOpenMax = %d, want 3", cb.halfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
	if cb.Name() != "test" {
		t.Errorf("Name = %q", cb.Name())
	}
}

func TestCircuitBreaker_Transitions(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cb := newTestBreaker(clock, 2, 2)

	steps := []struct {
		name    string
		advance time.Duration
		fn      func() error
		wantErr error
		want    State
	}{
		{"first failure stays closed", 0, fail, errTest, StateClosed},
		{"second failure opens", 0, fail, errTest, StateOpen},
		{"open rejects", 0, succeed, ErrCircuitOpen, StateOpen},
		{"timeout elapsed, first probe", time.Second, succeed, nil, StateHalfOpen},
		{"second probe closes", 0, succeed, nil, StateClosed},
		{"closed again", 0, fail, errTest, StateClosed},
	}
	for _, st := range steps {
		clock.Advance(st.advance)
		if err := cb.Execute(st.fn); !errors.Is(err, st.wantErr) {
			t.Fatalf("%s: err = %v, want %v", st.name, err, st.wantErr)
		}
		if got := cb.State(); got != st.want {
			t.Fatalf("%s: state = %v, want %v", st.name, got, st.want)
		}
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(newFakeClock(), 3, 1)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	_ = cb.Execute(succeed)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after interleaved success", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cb := newTestBreaker(clock, 1, 3)
	_ = cb.Execute(fail)

	clock.Advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after timeout", cb.State())
	}
	if err := cb.Execute(fail); !errors.Is(err, errTest) {
		t.Fatalf("probe err = %v", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", cb.State())
	}
	if err := cb.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen right after re-open", err)
	}
}

func TestCircuitBreaker_HalfOpenProbeBudget(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cb := newTestBreaker(clock, 1, 1)
	_ = cb.Execute(fail)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe err = %v, want ErrCircuitOpen", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_CancellationIsNotAFailure(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(newFakeClock(), 1, 1)
	cancelled := fmt.Errorf("complete: %w", context.Canceled)
	if err := cb.Execute(func() error { return cancelled }); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled passed through", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}

	if err := cb.Execute(func() error { return context.DeadlineExceeded }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open: deadlines count as failures", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var (
		mu  sync.Mutex
		got []string
	)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "judge",
		MaxFailures:  1,
		ResetTimeout: time.Second,
		HalfOpenMax:  1,
		now:          clock.Now,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(fail)
	clock.Advance(time.Second)
	_ = cb.Execute(succeed)
	_ = cb.Execute(fail)
	cb.Reset()

	want := []string{
		"judge:closed->open",
		"judge:open->half-open",
		"judge:half-open->closed",
		"judge:closed->open",
		"judge:open->closed",
	}
	mu.Lock()
	defer mu.Unlock()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("transitions = %v\nwant %v", got, want)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := newTestBreaker(newFakeClock(), 1, 1)
	_ = cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after Reset", cb.State())
	}
	if err := cb.Execute(succeed); err != nil {
		t.Errorf("err = %v after Reset", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tc.state), got, tc.want)
		}
	}
}
