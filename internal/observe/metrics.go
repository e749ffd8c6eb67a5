// Package observe provides the observability primitives for speakscore:
// OpenTelemetry metrics and tracing, trace-aware logging, and a text dump of
// the collected metrics for batch runs.
//
// Metrics are recorded through the OpenTelemetry Metrics API and bridged to a
// Prometheus registry by [InitProvider]. Tests should build their own
// [Metrics] with [NewMetrics] over a manual reader instead of relying on
// [DefaultMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all speakscore
// metrics.
const meterName = "github.com/MrWong99/speakscore"

// Metrics holds the metric instruments for the application. The underlying
// OTel instruments are safe for concurrent use.
type Metrics struct {
	// AnalysisDuration tracks analysis latency. Attribute "stage" is one of
	// grammar, coherence or total.
	AnalysisDuration metric.Float64Histogram

	// ProviderDuration tracks remote model latency by "provider".
	ProviderDuration metric.Float64Histogram

	// ProviderRequests counts model calls by "provider", "kind" and "status".
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts failed model calls by "provider" and "kind".
	ProviderErrors metric.Int64Counter

	// ErrorsDetected counts reported grammar errors by "category".
	ErrorsDetected metric.Int64Counter

	// CoherenceScore records final coherence scores in [0, 1].
	CoherenceScore metric.Float64Histogram

	// Transcripts counts processed transcripts by "status".
	Transcripts metric.Int64Counter

	// Fallbacks counts entries passed over by a fallback group, by
	// "component" and "entry".
	Fallbacks metric.Int64Counter

	// BreakerTransitions counts circuit breaker changes by "breaker" and "to".
	BreakerTransitions metric.Int64Counter

	// ActiveAnalyses tracks transcripts currently being analysed.
	ActiveAnalyses metric.Int64UpDownCounter
}

// latencyBuckets are histogram boundaries in seconds. Local analysis finishes
// in microseconds while remote judges take seconds.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30,
}

var scoreBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// NewMetrics creates a [Metrics] whose instruments come from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AnalysisDuration, err = m.Float64Histogram("speakscore.analysis.duration",
		metric.WithDescription("Latency of transcript analysis by stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("speakscore.provider.duration",
		metric.WithDescription("Latency of language model completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CoherenceScore, err = m.Float64Histogram("speakscore.coherence.score",
		metric.WithDescription("Distribution of final coherence scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("speakscore.provider.requests",
		metric.WithDescription("Total language model requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("speakscore.provider.errors",
		metric.WithDescription("Total language model errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.ErrorsDetected, err = m.Int64Counter("speakscore.grammar.errors",
		metric.WithDescription("Total grammar errors reported by category."),
	); err != nil {
		return nil, err
	}
	if met.Transcripts, err = m.Int64Counter("speakscore.transcripts",
		metric.WithDescription("Total transcripts processed by status."),
	); err != nil {
		return nil, err
	}
	if met.Fallbacks, err = m.Int64Counter("speakscore.fallbacks",
		metric.WithDescription("Total fallback entries passed over by component and entry."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("speakscore.breaker.transitions",
		metric.WithDescription("Total circuit breaker state changes by breaker and target state."),
	); err != nil {
		return nil, err
	}

	if met.ActiveAnalyses, err = m.Int64UpDownCounter("speakscore.active_analyses",
		metric.WithDescription("Number of transcripts currently being analysed."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest increments the provider request counter.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError increments the provider error counter.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordStage records the duration of one analysis stage in seconds.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.AnalysisDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordGrammarErrors adds n errors of the given category.
func (m *Metrics) RecordGrammarErrors(ctx context.Context, category string, n int) {
	if n <= 0 {
		return
	}
	m.ErrorsDetected.Add(ctx, int64(n), metric.WithAttributes(attribute.String("category", category)))
}

// RecordTranscript counts one processed transcript.
func (m *Metrics) RecordTranscript(ctx context.Context, status string) {
	m.Transcripts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordFallback counts one failover away from entry.
func (m *Metrics) RecordFallback(ctx context.Context, component, entry string) {
	m.Fallbacks.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("component", component),
			attribute.String("entry", entry),
		),
	)
}

// RecordBreakerTransition counts one circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, breaker, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("breaker", breaker),
			attribute.String("to", to),
		),
	)
}
