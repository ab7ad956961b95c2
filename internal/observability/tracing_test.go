package observability

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracerProviderExportsSpans(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	tp, err := NewTracerProvider(ctx, DefaultTracingConfig(), &buf)
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}

	_, span := TracerFrom(tp, "sim").Start(ctx, "sim.Run")
	span.End()
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"Name": "sim.Run"`) {
		t.Errorf("exported spans missing sim.Run:\n%s", out)
	}
	if !strings.Contains(out, "github.com/san-kum/bodysim/sim") {
		t.Errorf("exported spans missing tracer scope:\n%s", out)
	}
}

func TestInitTracingWritesToFile(t *testing.T) {
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trace.json")
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Output = path

	shutdown, err := InitTracing(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := Tracer("sim").Start(ctx, "sim.StartSimulation")
	span.End()
	ShutdownWithTimeout(ctx, shutdown, nil)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "sim.StartSimulation") {
		t.Errorf("trace file missing span:\n%s", data)
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), DefaultTracingConfig(), nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown: %v", err)
	}
}

func TestTracingConfigValidate(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.SampleRatio = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected sample ratio error")
	}
	cfg.SampleRatio = 0.25
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid ratio rejected: %v", err)
	}
}
