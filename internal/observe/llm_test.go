package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
	"github.com/MrWong99/speakscore/pkg/provider/llm/mock"
)

func TestInstrumentLLM(t *testing.T) {
	tp, exp := newTestTracerProvider(t)
	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	m, reader := newTestMetrics(t)
	ok := &mock.Provider{
		CompleteResponse:  &llm.CompletionResponse{Content: "{}", Usage: llm.Usage{PromptTokens: 12, CompletionTokens: 3}},
		ModelCapabilities: llm.ModelCapabilities{ContextWindow: 4096},
	}
	broken := &mock.Provider{CompleteErr: errors.New("rate limited")}

	p := InstrumentLLM(ok, "openai", m)
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{MaxTokens: 64}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := p.Capabilities().ContextWindow; got != 4096 {
		t.Errorf("Capabilities().ContextWindow = %d, want 4096", got)
	}

	q := InstrumentLLM(broken, "ollama", m)
	if _, err := q.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error from broken provider")
	}

	rm := collect(t, reader)
	if got := sumValue(t, rm, "speakscore.provider.requests", "status", "ok"); got != 1 {
		t.Errorf("ok requests = %d, want 1", got)
	}
	if got := sumValue(t, rm, "speakscore.provider.errors", "provider", "ollama"); got != 1 {
		t.Errorf("ollama errors = %d, want 1", got)
	}
	if got := histogramCount(t, rm, "speakscore.provider.duration"); got != 2 {
		t.Errorf("duration samples = %d, want 2", got)
	}

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	for _, s := range spans {
		if s.Name != "llm.complete" {
			t.Errorf("span name = %q", s.Name)
		}
	}
	if spans[0].Status.Code == codes.Error {
		t.Error("successful completion marked as error")
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("failed completion status = %v, want error", spans[1].Status.Code)
	}
}
