package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
)

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := TracingConfig{
		Enabled:     true,
		ServiceName: "rlnc-dashboard-test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Output:      &buf,
	}
	shutdown, err := InitTracing(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := Tracer("test").Start(context.Background(), "unit-span")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, nil)

	if !strings.Contains(buf.String(), "unit-span") {
		t.Fatalf("stdout exporter output missing span name: %q", buf.String())
	}

	// Leave the global provider in its disabled state for other tests.
	if _, err := InitTracing(context.Background(), TracingConfig{}, nil); err != nil {
		t.Fatalf("reset tracing: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin", SampleRatio: 1}, nil)
	if err == nil {
		t.Fatalf("InitTracing(zipkin) = nil error, want error")
	}
}

func TestTracingConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     TracingConfig
		wantErr bool
	}{
		{"defaults", TracingConfig{Exporter: "stdout", SampleRatio: 1}, false},
		{"otlp", TracingConfig{Exporter: "otlp", SampleRatio: 0.5}, false},
		{"ratio", TracingConfig{Exporter: "stdout", SampleRatio: 1.5}, true},
		{"exporter", TracingConfig{Exporter: "jaeger", SampleRatio: 1}, true},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: Validate() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}
