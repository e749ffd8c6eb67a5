// Package health serves the liveness and readiness endpoints of a running
// batch.
//
//   - /healthz always returns 200 OK while the process can serve HTTP.
//   - /readyz returns 200 only when every registered [Checker] passes, and
//     503 otherwise.
//
// Bodies are JSON objects with a "status" field ("ok" or "fail") and a
// "checks" map holding each checker's outcome.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single readiness check.
const DefaultTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when the component
// is usable and must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Option configures a [Handler].
type Option func(*Handler)

// WithTimeout sets the per-check deadline. Default: [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithCheckers appends readiness checks.
func WithCheckers(cs ...Checker) Option {
	return func(h *Handler) { h.checkers = append(h.checkers, cs...) }
}

// Handler serves /healthz and /readyz. The checker list is fixed at
// construction; Handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

// New creates a [Handler].
func New(opts ...Option) *Handler {
	h := &Handler{timeout: DefaultTimeout}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz runs every checker concurrently, each under its own deadline derived
// from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	var (
		mu     sync.Mutex
		checks = make(map[string]string, len(h.checkers))
		allOK  = true
		g      errgroup.Group
	)
	for _, c := range h.checkers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
			defer cancel()
			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[c.Name] = "fail: " + err.Error()
				allOK = false
				return nil
			}
			checks[c.Name] = "ok"
			return nil
		})
	}
	_ = g.Wait()

	res, status := result{Status: "ok", Checks: checks}, http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
