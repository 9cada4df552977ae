// Package telemetry provides OpenTelemetry initialization and helpers
// for tracing the perfume blend service.
//
// Traces and logs are exported over OTLP HTTP. The endpoint may point at a
// plain collector, Grafana Cloud ("/otlp" base path) or any collector that
// serves the standard /v1/traces and /v1/logs paths under a prefix.
package telemetry
