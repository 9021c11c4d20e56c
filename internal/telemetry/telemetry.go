// Package telemetry wires the nsyte.files.* counters (internal/progress) to an OTLP
// metrics exporter, grounded in the teacher's own otel stack declaration: the
// teacher's go.mod already names go.opentelemetry.io/otel/sdk and
// otlpmetric/otlpmetrichttp, but no teacher package actually constructs a
// MeterProvider from them. This package gives that stack a home.
package telemetry

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// EnvEndpoint is the OTLP endpoint variable. Export stays disabled unless it is set,
// since most local syncs run without a collector listening.
const EnvEndpoint = "NSYTE_OTLP_ENDPOINT"

// ExportInterval is how often accumulated counters are pushed to the collector.
const ExportInterval = 15 * time.Second

// Provider owns the process's MeterProvider for the duration of one run command.
type Provider struct {
	mp *sdkmetric.MeterProvider
}

// New builds a Provider. With no NSYTE_OTLP_ENDPOINT set it returns a
// Provider backed by the no-op meter, so callers never need a nil check or an
// env-var branch of their own.
func New(ctx context.Context) (*Provider, error) {
	endpoint := os.Getenv(EnvEndpoint)
	if endpoint == "" {
		return &Provider{}, nil
	}

	exporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(ExportInterval))),
	)
	return &Provider{mp: mp}, nil
}

// Meter returns the nsyte meter, falling back to the no-op implementation when no
// exporter is configured.
func (p *Provider) Meter() metric.Meter {
	if p.mp == nil {
		return noopmetric.NewMeterProvider().Meter("nsyte")
	}
	return p.mp.Meter("nsyte")
}

// Shutdown flushes and stops the underlying exporter, if one was started.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.mp == nil {
		return nil
	}
	return p.mp.Shutdown(ctx)
}
