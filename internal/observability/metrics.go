// Package observability exposes simulator metrics to Prometheus.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimulatorCollector exposes simulation engine metrics. A nil collector is
// valid and records nothing.
type SimulatorCollector struct {
	gatherer prometheus.Gatherer

	State              prometheus.Gauge
	Frame              prometheus.Gauge
	ActiveBodies       prometheus.Gauge
	StepDuration       prometheus.Histogram
	Flushes            prometheus.Counter
	FlushedFrames      prometheus.Counter
	ControllerFailures prometheus.Counter
	Runs               *prometheus.CounterVec
}

// NewSimulatorCollector registers simulator metrics against the provided
// registerer.
func NewSimulatorCollector(reg prometheus.Registerer) (*SimulatorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	state, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulator_state",
		Help: "Simulator state: 0 idle, 1 running, 2 paused.",
	}), "simulator_state")
	if err != nil {
		return nil, err
	}

	frame, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulator_frame",
		Help: "Last frame computed by the simulation goroutine.",
	}), "simulator_frame")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulator_active_bodies",
		Help: "Number of bodies taking part in the dynamics step.",
	}), "simulator_active_bodies")
	if err != nil {
		return nil, err
	}

	step, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulator_step_duration_seconds",
		Help:    "Wall time of one simulation step including hooks.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}), "simulator_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	flushes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_flushes_total",
		Help: "Flushes that published at least one frame.",
	}), "simulator_flushes_total")
	if err != nil {
		return nil, err
	}

	flushed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_flushed_frames_total",
		Help: "Body frames published to body items.",
	}), "simulator_flushed_frames_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_controller_failures_total",
		Help: "Controllers that failed during a run.",
	}), "simulator_controller_failures_total")
	if err != nil {
		return nil, err
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_runs_total",
		Help: "Finished runs by outcome.",
	}, []string{"outcome"}), "simulator_runs_total")
	if err != nil {
		return nil, err
	}

	return &SimulatorCollector{
		gatherer:           gatherer,
		State:              state,
		Frame:              frame,
		ActiveBodies:       active,
		StepDuration:       step,
		Flushes:            flushes,
		FlushedFrames:      flushed,
		ControllerFailures: failures,
		Runs:               runs,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimulatorCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the gathered metrics in the Prometheus text format.
func (c *SimulatorCollector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *SimulatorCollector) SetState(state int) {
	if c == nil || c.State == nil {
		return
	}
	c.State.Set(float64(state))
}

func (c *SimulatorCollector) SetFrame(frame int) {
	if c == nil || c.Frame == nil {
		return
	}
	c.Frame.Set(float64(frame))
}

func (c *SimulatorCollector) SetActiveBodies(n int) {
	if c == nil || c.ActiveBodies == nil {
		return
	}
	c.ActiveBodies.Set(float64(n))
}

func (c *SimulatorCollector) ObserveStep(d time.Duration) {
	if c == nil || c.StepDuration == nil {
		return
	}
	c.StepDuration.Observe(d.Seconds())
}

// ObserveFlush records a flush that published frames body frames.
func (c *SimulatorCollector) ObserveFlush(frames int) {
	if c == nil || frames <= 0 {
		return
	}
	if c.Flushes != nil {
		c.Flushes.Inc()
	}
	if c.FlushedFrames != nil {
		c.FlushedFrames.Add(float64(frames))
	}
}

func (c *SimulatorCollector) IncControllerFailures() {
	if c == nil || c.ControllerFailures == nil {
		return
	}
	c.ControllerFailures.Inc()
}

// IncRuns counts a finished run.
func (c *SimulatorCollector) IncRuns(abnormal bool) {
	if c == nil || c.Runs == nil {
		return
	}
	outcome := "normal"
	if abnormal {
		outcome = "abnormal"
	}
	c.Runs.WithLabelValues(outcome).Inc()
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
