package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported tracing exporter") {
		t.Fatalf("expected unsupported exporter error, got %v", err)
	}
}

func TestStdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	exp, err := exporterFromConfig(context.Background(), TracingConfig{Exporter: "stdout"}, &buf)
	if err != nil {
		t.Fatalf("exporterFromConfig: %v", err)
	}
	if err := exp.Shutdown(context.Background()); err != nil {
		t.Fatalf("exporter shutdown: %v", err)
	}
}

func TestTracingConfigNormalized(t *testing.T) {
	cfg := TracingConfig{Exporter: "OTLP", SampleRatio: 3}.normalized()
	if cfg.ServiceName != "ephem-registry" || cfg.Exporter != "otlp" || cfg.SampleRatio != 1 {
		t.Fatalf("unexpected normalized config: %+v", cfg)
	}
}

func TestShutdownWithTimeoutNil(t *testing.T) {
	ShutdownWithTimeout(context.Background(), nil, nil)
}
