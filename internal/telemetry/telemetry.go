package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// endpoint is a parsed OTLP collector address.
type endpoint struct {
	host      string
	insecure  bool
	tracePath string
	logPath   string
}

// parseEndpoint splits an OTLP URL into host, scheme and signal paths.
// A bare "/otlp" base path maps to the Grafana Cloud layout.
func parseEndpoint(otlpEndpoint string) endpoint {
	ep := endpoint{host: otlpEndpoint, tracePath: "/v1/traces", logPath: "/v1/logs"}
	basePath := ""

	if ep.host != "" {
		if strings.HasPrefix(ep.host, "https://") {
			ep.host = strings.TrimPrefix(ep.host, "https://")
		} else if strings.HasPrefix(ep.host, "http://") {
			ep.host = strings.TrimPrefix(ep.host, "http://")
			ep.insecure = true
		}

		if idx := strings.Index(ep.host, "/"); idx > 0 {
			basePath = ep.host[idx:]
			ep.host = ep.host[:idx]
		}
	}

	if basePath == "/otlp" {
		ep.tracePath = "/otlp/v1/traces"
		ep.logPath = "/otlp/v1/logs"
	} else if basePath != "" {
		basePath = strings.TrimSuffix(basePath, "/v1/traces")
		basePath = strings.TrimSuffix(basePath, "/v1/logs")
		basePath = strings.TrimSuffix(basePath, "/")
		ep.tracePath = basePath + "/v1/traces"
		ep.logPath = basePath + "/v1/logs"
	}
	return ep
}

// InitTelemetry initializes OpenTelemetry with OTLP exporter
// Returns shutdown function and error
func InitTelemetry(ctx context.Context, serviceName, serviceVersion, env, otlpEndpoint string, headers map[string]string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.DeploymentEnvironmentKey.String(env),
		),
	)
	if err != nil {
		return nil, err
	}

	ep := parseEndpoint(otlpEndpoint)

	var traceOpts []otlptracehttp.Option
	var logOpts []otlploghttp.Option
	if ep.host != "" {
		traceOpts = append(traceOpts, otlptracehttp.WithEndpoint(ep.host))
		logOpts = append(logOpts, otlploghttp.WithEndpoint(ep.host))
	}
	traceOpts = append(traceOpts, otlptracehttp.WithURLPath(ep.tracePath))
	logOpts = append(logOpts, otlploghttp.WithURLPath(ep.logPath))

	if len(headers) > 0 {
		traceOpts = append(traceOpts, otlptracehttp.WithHeaders(headers))
		logOpts = append(logOpts, otlploghttp.WithHeaders(headers))
	}

	if ep.insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		logOpts = append(logOpts, otlploghttp.WithInsecure())
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, err
	}

	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	slog.Info("Telemetry initialized",
		"endpoint", ep.host,
		"trace_path", ep.tracePath,
		"log_path", ep.logPath,
		"insecure", ep.insecure,
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), lp.Shutdown(ctx))
	}, nil
}

// Tracer returns a tracer with the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
