package resilience

import (
	"context"
	"errors"
	"testing"

	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
	llmmock "github.com/MrWong99/speakscore/pkg/provider/llm/mock"
)

func TestLLMFallback_Complete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		primaryErr    error
		secondaryErr  error
		wantContent   string
		wantErr       error
		wantSecondary int
	}{
		{name: "primary serves", wantContent: "from primary"},
		{name: "failover", primaryErr: errors.New("primary down"), wantContent: "from secondary", wantSecondary: 1},
		{name: "all fail", primaryErr: errors.New("down"), secondaryErr: errors.New("down too"), wantErr: ErrAllFailed, wantSecondary: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			primary := &llmmock.Provider{
				CompleteResponse: &llm.CompletionResponse{Content: "from primary"},
				CompleteErr:      tc.primaryErr,
			}
			secondary := &llmmock.Provider{
				CompleteResponse: &llm.CompletionResponse{Content: "from secondary"},
				CompleteErr:      tc.secondaryErr,
			}
			fb := NewLLMFallback(primary, "primary", FallbackConfig{
				CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
			})
			fb.AddFallback("secondary", secondary)

			resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && resp.Content != tc.wantContent {
				t.Errorf("content = %q, want %q", resp.Content, tc.wantContent)
			}
			if n := len(primary.Calls()); n != 1 {
				t.Errorf("primary called %d times, want 1", n)
			}
			if n := len(secondary.Calls()); n != tc.wantSecondary {
				t.Errorf("secondary called %d times, want %d", n, tc.wantSecondary)
			}
		})
	}
}

func TestLLMFallback_Capabilities(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{ModelCapabilities: llm.ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 4096}}
	small := &llmmock.Provider{ModelCapabilities: llm.ModelCapabilities{ContextWindow: 8_192, MaxOutputTokens: 2048}}
	unknown := &llmmock.Provider{}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{})
	fb.AddFallback("small", small)
	fb.AddFallback("unknown", unknown)

	caps := fb.Capabilities()
	if caps.ContextWindow != 8_192 {
		t.Errorf("ContextWindow = %d, want smallest known window 8192", caps.ContextWindow)
	}
	if caps.MaxOutputTokens != 4096 {
		t.Errorf("MaxOutputTokens = %d, want primary's 4096", caps.MaxOutputTokens)
	}
}
