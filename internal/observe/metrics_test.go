package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumValue returns the value of the data point of the named int64 sum whose
// attribute key equals value.
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	t.Fatalf("metric %q has no data point with %s=%s", name, key, value)
	return 0
}

func histogramCount(t *testing.T, rm metricdata.ResourceMetrics, name string) uint64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric %q is not a histogram", name)
	}
	var n uint64
	for _, dp := range hist.DataPoints {
		n += dp.Count
	}
	return n
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, "grammar", 0.002)
	m.RecordStage(ctx, "total", 0.004)
	m.ProviderDuration.Record(ctx, 1.2)
	m.ProviderDuration.Record(ctx, 0.8)
	m.CoherenceScore.Record(ctx, 0.73)

	rm := collect(t, reader)
	tests := []struct {
		name string
		want uint64
	}{
		{"speakscore.analysis.duration", 2},
		{"speakscore.provider.duration", 2},
		{"speakscore.coherence.score", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := histogramCount(t, rm, tc.name); got != tc.want {
				t.Errorf("sample count = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "openai", "llm", "ok")
	m.RecordProviderRequest(ctx, "openai", "llm", "ok")
	m.RecordProviderRequest(ctx, "openai", "llm", "error")
	m.RecordProviderError(ctx, "openai", "llm")
	m.RecordGrammarErrors(ctx, "article_usage", 3)
	m.RecordGrammarErrors(ctx, "article_usage", 0)
	m.RecordTranscript(ctx, "ok")
	m.RecordFallback(ctx, "grammar", "llm")
	m.RecordBreakerTransition(ctx, "llm", "open")
	m.RecordBreakerTransition(ctx, "llm", "open")

	rm := collect(t, reader)
	tests := []struct {
		name, key, value string
		want             int64
	}{
		{"speakscore.provider.requests", "status", "ok", 2},
		{"speakscore.provider.requests", "status", "error", 1},
		{"speakscore.provider.errors", "provider", "openai", 1},
		{"speakscore.grammar.errors", "category", "article_usage", 3},
		{"speakscore.transcripts", "status", "ok", 1},
		{"speakscore.fallbacks", "entry", "llm", 1},
		{"speakscore.breaker.transitions", "to", "open", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name+"/"+tc.value, func(t *testing.T) {
			if got := sumValue(t, rm, tc.name, tc.key, tc.value); got != tc.want {
				t.Errorf("value = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestActiveAnalyses(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveAnalyses.Add(ctx, 1)
	m.ActiveAnalyses.Add(ctx, 1)
	m.ActiveAnalyses.Add(ctx, -1, metric.WithAttributes())

	rm := collect(t, reader)
	met := findMetric(rm, "speakscore.active_analyses")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatal("metric is not a sum with data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("gauge value = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
