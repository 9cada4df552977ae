package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	meter = otel.Meter("perfumepal/business")

	// Blend metrics
	BlendRunsTotal     metric.Int64Counter
	BlendStageDuration metric.Float64Histogram

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// AI metrics
	AIGenerationDuration metric.Float64Histogram

	// Model output needed the brace fallback to parse
	ExtractFallbackTotal metric.Int64Counter
)

// Instruments start as no-ops so packages can record before Init runs (tests, tools).
func init() {
	setNoop()
}

func setNoop() {
	m := noop.NewMeterProvider().Meter("perfumepal/business")
	BlendRunsTotal, _ = m.Int64Counter("blend.runs.total")
	BlendStageDuration, _ = m.Float64Histogram("blend.stage.duration")
	ExternalAPICallsTotal, _ = m.Int64Counter("external.api.calls.total")
	ExternalAPIDuration, _ = m.Float64Histogram("external.api.duration")
	AIGenerationDuration, _ = m.Float64Histogram("ai.generation.duration")
	ExtractFallbackTotal, _ = m.Int64Counter("extract.fallback.total")
}

func Init() error {
	var err error

	// Blend metrics
	BlendRunsTotal, err = meter.Int64Counter(
		"blend.runs.total",
		metric.WithDescription("Total number of blend pipeline runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	BlendStageDuration, err = meter.Float64Histogram(
		"blend.stage.duration",
		metric.WithDescription("Duration of a single blend pipeline stage"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 20, 30, 60),
	)
	if err != nil {
		return err
	}

	// External API metrics
	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	// AI metrics
	AIGenerationDuration, err = meter.Float64Histogram(
		"ai.generation.duration",
		metric.WithDescription("Duration of model text generation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	ExtractFallbackTotal, err = meter.Int64Counter(
		"extract.fallback.total",
		metric.WithDescription("Model responses that only parsed after brace extraction"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}
