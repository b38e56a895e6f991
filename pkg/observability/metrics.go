package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	metricSymbolsParsed  = "convsym.symbols.parsed"
	metricSymbolsEmitted = "convsym.symbols.emitted"
	metricSymbolsSkipped = "convsym.symbols.skipped"
	metricOutputBytes    = "convsym.output.bytes"

	attrReason = "reason"
)

// Skip reasons reported by convsym_symbols_skipped_total.
const (
	ReasonFiltered  = "filtered"
	ReasonDuplicate = "duplicate"
	ReasonCapacity  = "capacity"
)

// ConversionStats summarizes one conversion run.
type ConversionStats struct {
	Parsed      int
	Emitted     int
	OutputBytes int
	// Skipped counts symbols left out of the output, keyed by reason.
	Skipped map[string]int
}

// ConversionMetrics records conversion counters through OTel instruments
// backed by a private Prometheus registry, so a run can be exported as a
// node-exporter textfile without a scrape endpoint.
type ConversionMetrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	parsed      metric.Int64Counter
	emitted     metric.Int64Counter
	skipped     metric.Int64Counter
	outputBytes metric.Int64Counter
}

// NewConversionMetrics creates the instruments and their registry.
// Each call creates an independent registry to avoid collector conflicts.
func NewConversionMetrics() (*ConversionMetrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
		promexporter.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	mt := provider.Meter(meterName)

	cm := &ConversionMetrics{registry: registry, provider: provider}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&cm.parsed, metricSymbolsParsed, "Symbols accepted into the symbol table"},
		{&cm.emitted, metricSymbolsEmitted, "Symbols present in the output"},
		{&cm.skipped, metricSymbolsSkipped, "Symbols left out of the output by reason"},
		{&cm.outputBytes, metricOutputBytes, "Bytes written to the output"},
	}

	for _, c := range counters {
		*c.dst, err = mt.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("create %s: %w", c.name, err), provider.Shutdown(context.Background()))
		}
	}

	return cm, nil
}

// Record adds stats to the counters. Safe to call on a nil receiver (no-op).
func (cm *ConversionMetrics) Record(ctx context.Context, stats ConversionStats) {
	if cm == nil {
		return
	}

	cm.parsed.Add(ctx, int64(stats.Parsed))
	cm.emitted.Add(ctx, int64(stats.Emitted))
	cm.outputBytes.Add(ctx, int64(stats.OutputBytes))

	for _, reason := range []string{ReasonFiltered, ReasonDuplicate, ReasonCapacity} {
		cm.skipped.Add(ctx, int64(stats.Skipped[reason]), metric.WithAttributes(attribute.String(attrReason, reason)))
	}
}

// Gatherer exposes the registry backing the counters.
func (cm *ConversionMetrics) Gatherer() prometheus.Gatherer {
	return cm.registry
}

// WriteTextfile writes the counters in Prometheus text exposition format.
// The file is written atomically.
func (cm *ConversionMetrics) WriteTextfile(path string) error {
	err := prometheus.WriteToTextfile(path, cm.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}

// Shutdown releases the meter provider.
func (cm *ConversionMetrics) Shutdown(ctx context.Context) error {
	if cm == nil {
		return nil
	}

	return cm.provider.Shutdown(ctx)
}
