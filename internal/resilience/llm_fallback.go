package resilience

import (
	"context"
	"log/slog"

	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with failover across several model
// backends, each behind its own circuit breaker.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional backend.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Group exposes the underlying group, mainly for inspecting breakers.
func (f *LLMFallback) Group() *FallbackGroup[llm.Provider] { return f.group }

// Complete sends req to the first healthy backend.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, served, err := ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
	if err == nil && served != f.group.entries[0].name {
		slog.Info("resilience: completion served by fallback", "backend", served)
	}
	return resp, err
}

// Capabilities reports the smallest context window among the backends so
// that a prompt sized for one of them fits all of them. Output limits are
// taken from the primary.
func (f *LLMFallback) Capabilities() llm.ModelCapabilities {
	caps := f.group.Primary().Capabilities()
	for _, e := range f.group.entries[1:] {
		w := e.value.Capabilities().ContextWindow
		if w > 0 && (caps.ContextWindow == 0 || w < caps.ContextWindow) {
			caps.ContextWindow = w
		}
	}
	return caps
}
