// Package httpclient builds the outbound HTTP clients used for model calls.
// Every round trip gets an OTel client span named after the model provider
// and is counted in the external API metrics.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/perfumepal/blender/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const providerKey contextKey = "httpclient.provider"

// WithProvider tags outbound requests made with ctx with a model provider name.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey, provider)
}

// Provider returns the provider name stored by WithProvider.
func Provider(ctx context.Context) string {
	provider, _ := ctx.Value(providerKey).(string)
	return provider
}

// modelTransport records provider attributes, span status and call metrics
// for each request to a model API.
type modelTransport struct {
	base http.RoundTripper
}

func (t *modelTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	provider := Provider(ctx)
	if provider != "" {
		span.SetAttributes(attribute.String("llm.provider", provider))
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	outcome := "error"
	if err == nil {
		outcome = statusClass(resp.StatusCode)
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	)
	metrics.ExternalAPICallsTotal.Add(ctx, 1, attrs)
	metrics.ExternalAPIDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP status %d", resp.StatusCode))
	}
	return resp, nil
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

func newTransport(base http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(&modelTransport{base: base},
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			// Path only; query strings stay out of span names.
			if provider := Provider(r.Context()); provider != "" {
				return fmt.Sprintf("%s: %s %s", provider, r.Method, r.URL.Path)
			}
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
	)
}

// NewInstrumentedClient returns a client for model APIs with the given overall timeout.
func NewInstrumentedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: newTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// WrapClient instruments an injected client, e.g. one pointed at a test server.
func WrapClient(client *http.Client) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = newTransport(base)
	return client
}
