package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
)

// InstrumentedLLM wraps an [llm.Provider] with a span, a latency histogram
// and request/error counters per completion.
type InstrumentedLLM struct {
	next    llm.Provider
	name    string
	metrics *Metrics
}

var _ llm.Provider = (*InstrumentedLLM)(nil)

// InstrumentLLM wraps p. name is used as the "provider" attribute. A nil m
// selects [DefaultMetrics].
func InstrumentLLM(p llm.Provider, name string, m *Metrics) *InstrumentedLLM {
	if m == nil {
		m = DefaultMetrics()
	}
	return &InstrumentedLLM{next: p, name: name, metrics: m}
}

// Complete implements [llm.Provider].
func (p *InstrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, span := StartSpan(ctx, "llm.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", p.name),
			attribute.Int("llm.max_tokens", req.MaxTokens),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := p.next.Complete(ctx, req)
	p.metrics.ProviderDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", p.name)))

	if err != nil {
		Fail(span, err)
		p.metrics.RecordProviderRequest(ctx, p.name, "llm", "error")
		p.metrics.RecordProviderError(ctx, p.name, "llm")
		Logger(ctx).Warn("observe: completion failed", "provider", p.name, "err", err)
		return nil, err
	}
	p.metrics.RecordProviderRequest(ctx, p.name, "llm", "ok")
	if resp != nil {
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
			attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
		)
	}
	return resp, nil
}

// Capabilities implements [llm.Provider].
func (p *InstrumentedLLM) Capabilities() llm.ModelCapabilities {
	return p.next.Capabilities()
}
