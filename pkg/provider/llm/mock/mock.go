// Package mock provides a test double for the llm.Provider interface.
//
// Set the response fields before use and inspect CompleteCalls afterwards:
//
//	p := &mock.Provider{
//	    CompleteResponse: &llm.CompletionResponse{Content: `{"errors": []}`},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/speakscore/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider. Zero values for the
// response fields make Complete return (nil, nil).
type Provider struct {
	mu sync.Mutex

	// CompleteResponse is returned by Complete.
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// CompleteFunc, if set, overrides CompleteResponse and CompleteErr.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities llm.ModelCapabilities

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the configured response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	fn, resp, err := p.CompleteFunc, p.CompleteResponse, p.CompleteErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return resp, err
}

// Capabilities returns ModelCapabilities.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ModelCapabilities
}

// Calls returns a copy of the recorded calls. Thread-safe.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.CompleteCalls))
	copy(out, p.CompleteCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}

var _ llm.Provider = (*Provider)(nil)
