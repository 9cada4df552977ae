package telemetry

import (
	"context"
	"testing"
)

func TestInitTelemetry(t *testing.T) {
	// Test with empty endpoint (should not fail, just no telemetry)
	shutdown, err := InitTelemetry(context.Background(), "test-service", "v1.0.0", "test", "", nil)
	if err != nil {
		t.Fatalf("InitTelemetry failed: %v", err)
	}
	if shutdown != nil {
		defer shutdown(context.Background())
	}
}

func TestTracer(t *testing.T) {
	tracer := Tracer("test-tracer")
	if tracer == nil {
		t.Fatal("Tracer returned nil")
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		host      string
		insecure  bool
		tracePath string
		logPath   string
	}{
		{"empty", "", "", false, "/v1/traces", "/v1/logs"},
		{"plain http", "http://localhost:4318", "localhost:4318", true, "/v1/traces", "/v1/logs"},
		{"grafana cloud", "https://otlp-gateway.grafana.net/otlp", "otlp-gateway.grafana.net", false, "/otlp/v1/traces", "/otlp/v1/logs"},
		{"custom prefix", "https://collector.example.com/ingest/v1/traces", "collector.example.com", false, "/ingest/v1/traces", "/ingest/v1/logs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := parseEndpoint(tt.in)
			if ep.host != tt.host {
				t.Errorf("host = %q, want %q", ep.host, tt.host)
			}
			if ep.insecure != tt.insecure {
				t.Errorf("insecure = %v, want %v", ep.insecure, tt.insecure)
			}
			if ep.tracePath != tt.tracePath {
				t.Errorf("tracePath = %q, want %q", ep.tracePath, tt.tracePath)
			}
			if ep.logPath != tt.logPath {
				t.Errorf("logPath = %q, want %q", ep.logPath, tt.logPath)
			}
		})
	}
}
