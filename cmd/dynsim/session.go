package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/san-kum/bodysim/internal/backend"
	"github.com/san-kum/bodysim/internal/collision"
	"github.com/san-kum/bodysim/internal/config"
	"github.com/san-kum/bodysim/internal/control"
	"github.com/san-kum/bodysim/internal/item"
	"github.com/san-kum/bodysim/internal/metrics"
	"github.com/san-kum/bodysim/internal/models"
	"github.com/san-kum/bodysim/internal/observability"
	"github.com/san-kum/bodysim/internal/sim"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadConfig resolves the run configuration: defaults, then the preset,
// then the config file, then any flag set on the command line.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.World = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.World, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.World))
		}
		cfg = p
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			fileCfg.World = args[0]
		}
		cfg = fileCfg
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Sim.TimeStep = dt
	}
	if flags.Changed("time") {
		cfg.Sim.TimeRange = sim.TimeRangeSpecified
		cfg.Sim.TimeLength = duration
	}
	if flags.Changed("theta") {
		cfg.Model.Theta = theta
	}
	if flags.Changed("theta2") {
		cfg.Model.Theta2 = theta2
	}
	if flags.Changed("links") {
		cfg.Model.Links = links
	}
	if flags.Changed("count") {
		cfg.Model.Count = count
	}
	if flags.Changed("hover") {
		cfg.Model.Hover = hover
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("kp") {
		cfg.ControllerParams.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.ControllerParams.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.ControllerParams.Kd = kd
	}
	if flags.Changed("target") {
		cfg.ControllerParams.Target = target
	}
	if flags.Changed("contacts") {
		cfg.Contacts = contacts
	}
	if flags.Changed("recording") {
		mode, err := sim.ParseRecordingMode(recording)
		if err != nil {
			return nil, err
		}
		cfg.Sim.Recording = mode
	}
	if flags.Changed("tail") {
		cfg.Sim.TailFrames = tailFrames
	}
	if flags.Changed("realtime") {
		cfg.Sim.RealtimeSync = realtime
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("trace") {
		applyTraceFlag(&cfg.Tracing)
	}
	if flags.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is one configured world and the simulator that runs it.
type session struct {
	cfg   *config.Config
	log   *zap.Logger
	sim   *sim.Simulator
	world *item.World

	metrics map[string]*metrics.Set
	hooks   []int
}

func newSession(cfg *config.Config, log *zap.Logger, collector *observability.SimulatorCollector) (*session, error) {
	opts := []backend.Option{
		backend.WithIntegrator(cfg.Integrator),
		backend.WithLogger(log.Named("backend")),
	}
	if cfg.Contacts {
		opts = append(opts, backend.WithContacts(backend.DefaultContactStiffness))
	}
	be, err := backend.New(opts...)
	if err != nil {
		return nil, err
	}

	bodies, err := models.Build(cfg.World, cfg.Model)
	if err != nil {
		return nil, err
	}

	world := item.NewWorld(cfg.World)
	if cfg.Sim.TimeRange == sim.TimeRangeTimeline {
		world.Timeline().SetRange(0, cfg.Sim.TimeLength)
	}
	for _, b := range bodies {
		bi := item.NewBodyItem(b)
		if err := world.AddBody(bi); err != nil {
			return nil, err
		}
		if cfg.Controller == "none" || b.IsStaticModel() || b.NumJoints() == 0 {
			continue
		}
		c, err := control.New(cfg.Controller, cfg.ControlParams())
		if err != nil {
			return nil, err
		}
		bi.AttachController(c, true)
	}

	s := sim.New(be, cfg.Sim)
	s.SetLogger(log.Named("sim"))
	s.SetCollector(collector)
	s.SetWorld(world)
	if cfg.Contacts || cfg.Sim.SelfCollision {
		s.SetCollisionDetectorFactory(collision.NewSphereFactory())
	}

	return &session{cfg: cfg, log: log, sim: s, world: world}, nil
}

// prepare installs the hooks of the next run. Hooks are cleared when a run
// ends, so it is called once per run.
func (ss *session) prepare() {
	ss.metrics = make(map[string]*metrics.Set)
	ss.hooks = nil
	for _, bi := range ss.world.Bodies() {
		if bi.Body().IsStaticModel() {
			continue
		}
		ss.metrics[bi.Name()] = metrics.Attach(ss.sim, bi, metrics.Default(ss.sim)...)
	}
	ss.hooks = append(ss.hooks, ss.sim.AddMidDynamicsFunc(ss.applyRotors))
}

// start prepares and starts a fresh run. A failed start withdraws the hooks
// it registered.
func (ss *session) start(ctx context.Context) error {
	ss.prepare()
	if err := ss.sim.StartSimulation(ctx, true); err != nil {
		ss.unprepare()
		return err
	}
	return nil
}

func (ss *session) unprepare() {
	for _, set := range ss.metrics {
		set.Detach()
	}
	for _, id := range ss.hooks {
		ss.sim.RemoveMidDynamicsFunc(id)
	}
	ss.metrics, ss.hooks = nil, nil
}

func (ss *session) applyRotors() {
	for _, sb := range ss.sim.SimulationBodies() {
		if sb.IsActive() && sb.Body().ModelName() == "drone" {
			models.ApplyRotorThrust(sb.Body())
		}
	}
}

// wait blocks until the run ends. A cancelled ctx stops the run.
func (ss *session) wait(ctx context.Context) sim.FinishInfo {
	select {
	case <-ss.sim.Done():
	case <-ctx.Done():
		ss.log.Info("interrupted, stopping simulation")
		ss.sim.StopSimulation()
	}
	return ss.sim.Wait()
}

// metricValues merges the metrics of every body. With a single dynamic
// body the names are bare, otherwise they are prefixed with the body name.
func (ss *session) metricValues() map[string]float64 {
	out := make(map[string]float64)
	for name, set := range ss.metrics {
		for k, v := range set.Values() {
			if len(ss.metrics) > 1 {
				k = name + "." + k
			}
			out[k] = v
		}
	}
	return out
}

// serveMetrics exposes a fresh collector on addr until the returned stop
// function is called. An empty addr disables it.
func serveMetrics(addr string, log *zap.Logger) (*observability.SimulatorCollector, func(), error) {
	if addr == "" {
		return nil, func() {}, nil
	}
	collector, err := observability.NewSimulatorCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return collector, stop, nil
}

func applyTraceFlag(cfg *observability.TracingConfig) {
	cfg.Enabled = true
	cfg.Output = ""
	if traceOutput != "-" {
		cfg.Output = traceOutput
	}
}

// startTracing installs the tracer provider for the command and returns its
// shutdown.
func startTracing(ctx context.Context, cfg observability.TracingConfig, log *zap.Logger) (func(), error) {
	shutdown, err := observability.InitTracing(ctx, cfg, log.Named("tracing"))
	if err != nil {
		return nil, err
	}
	return func() { observability.ShutdownWithTimeout(context.Background(), shutdown, log) }, nil
}
