package observe

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// ProviderConfig configures the OpenTelemetry SDK providers.
type ProviderConfig struct {
	// ServiceName is the service name reported in telemetry. Default:
	// "speakscore".
	ServiceName string

	// ServiceVersion is the service version reported in telemetry.
	ServiceVersion string

	// Registry receives the bridged metrics. When nil a fresh registry is
	// created; it is returned from [InitProvider] either way.
	Registry *prometheus.Registry

	// TraceExporter is an optional span exporter. When nil, spans are
	// recorded but not exported.
	TraceExporter sdktrace.SpanExporter
}

// Telemetry is the result of [InitProvider].
type Telemetry struct {
	// Registry holds every metric recorded through the global meter
	// provider. Pass it to [WriteMetrics] to dump them.
	Registry *prometheus.Registry

	// Metrics is built over the new meter provider.
	Metrics *Metrics

	shutdown []func(context.Context) error
}

// Shutdown flushes and closes the exporters.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InitProvider initialises the OTel SDK. It sets up a
// [sdkmetric.MeterProvider] exporting into a Prometheus registry and a
// [sdktrace.TracerProvider] using the configured exporter. Both are
// registered as the global providers.
//
// Call [Telemetry.Shutdown] in a defer from main().
func InitProvider(ctx context.Context, cfg ProviderConfig) (*Telemetry, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "speakscore"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	t := &Telemetry{Registry: cfg.Registry}

	promExp, err := promexporter.New(promexporter.WithRegisterer(cfg.Registry))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(mp)
	t.shutdown = append(t.shutdown, mp.Shutdown)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	t.shutdown = append(t.shutdown, tp.Shutdown)

	if t.Metrics, err = NewMetrics(mp); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	return t, nil
}
