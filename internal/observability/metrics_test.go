package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSimulatorCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimulatorCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulatorCollector: %v", err)
	}

	c.SetState(1)
	c.SetFrame(42)
	c.SetActiveBodies(3)
	c.ObserveStep(2 * time.Millisecond)
	c.ObserveFlush(10)
	c.ObserveFlush(0)
	c.IncControllerFailures()
	c.IncRuns(false)
	c.IncRuns(true)
	c.IncRuns(true)

	if got := testutil.ToFloat64(c.State); got != 1 {
		t.Errorf("simulator_state = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Frame); got != 42 {
		t.Errorf("simulator_frame = %v, want 42", got)
	}
	if got := testutil.ToFloat64(c.Flushes); got != 1 {
		t.Errorf("simulator_flushes_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.FlushedFrames); got != 10 {
		t.Errorf("simulator_flushed_frames_total = %v, want 10", got)
	}
	if got := testutil.ToFloat64(c.Runs.WithLabelValues("abnormal")); got != 2 {
		t.Errorf("abnormal runs = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(c.StepDuration); got != 1 {
		t.Errorf("step histogram series = %d, want 1", got)
	}
}

func TestSimulatorCollectorReusesRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimulatorCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewSimulatorCollector(reg)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	second.IncControllerFailures()
	if got := testutil.ToFloat64(first.ControllerFailures); got != 1 {
		t.Errorf("shared counter = %v, want 1", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *SimulatorCollector
	c.SetState(2)
	c.SetFrame(1)
	c.ObserveStep(time.Second)
	c.ObserveFlush(1)
	c.IncRuns(true)
	if c.Gatherer() != nil {
		t.Error("nil collector should have no gatherer")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimulatorCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	c.SetFrame(7)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "simulator_frame 7") {
		t.Errorf("metrics output missing frame gauge:\n%s", rr.Body.String())
	}
}
