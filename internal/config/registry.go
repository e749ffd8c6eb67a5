package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
)

// ErrProviderNotRegistered is returned by [Registry.CreateLLM] when no
// factory has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// LLMFactory builds a provider from its configuration entry.
type LLMFactory func(ProviderEntry) (llm.Provider, error)

// Registry maps provider names to constructor functions. It is safe for
// concurrent use.
type Registry struct {
	mu  sync.RWMutex
	llm map[string]LLMFactory
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{llm: make(map[string]LLMFactory)}
}

// RegisterLLM registers an LLM provider factory under name. A later call
// with the same name overwrites the earlier registration.
func (r *Registry) RegisterLLM(name string, factory LLMFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// LLMNames returns the registered names in sorted order.
func (r *Registry) LLMNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llm))
	for name := range r.llm {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CreateLLM instantiates the provider registered under entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	p, err := factory(entry)
	if err != nil {
		return nil, fmt.Errorf("config: create llm/%q: %w", entry.Name, err)
	}
	return p, nil
}
