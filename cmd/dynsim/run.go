package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/san-kum/bodysim/internal/automation"
	"github.com/san-kum/bodysim/internal/config"
	"github.com/san-kum/bodysim/internal/logging"
	"github.com/san-kum/bodysim/internal/optim"
	"github.com/san-kum/bodysim/internal/sim"
	"github.com/san-kum/bodysim/internal/storage"
	"github.com/san-kum/bodysim/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Sim.TimeRange == sim.TimeRangeUnlimited {
		fmt.Println("time range is unlimited; press ctrl+c to stop")
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	stopTracing, err := startTracing(cmd.Context(), cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer stopTracing()

	collector, stopMetrics, err := serveMetrics(cfg.Metrics.Addr, log)
	if err != nil {
		return err
	}
	defer stopMetrics()

	ss, err := newSession(cfg, log, collector)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	fmt.Printf("running %s simulation...\n", cfg.World)
	start := time.Now()
	if err := ss.start(ctx); err != nil {
		return err
	}
	finish := ss.wait(ctx)
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("frames: %d (%.3fs simulated)\n", finish.Frame, finish.Time)
	if finish.Abnormal {
		fmt.Printf("finished abnormally: %v\n", finish.Err)
	}

	values := ss.metricValues()
	if !noSave {
		runID, err := saveRun(cfg, ss, finish, values, log)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, values[name])
	}

	if finish.Abnormal {
		return finish.Err
	}
	return nil
}

func saveRun(cfg *config.Config, ss *session, finish sim.FinishInfo, values map[string]float64, log *zap.Logger) (string, error) {
	return saveRunAs(cfg, preset, ss, finish, values, log)
}

func saveRunAs(cfg *config.Config, label string, ss *session, finish sim.FinishInfo, values map[string]float64, log *zap.Logger) (string, error) {
	st := storage.New(cfg.DataDir)
	st.SetLogger(log.Named("storage"))
	if err := st.Init(); err != nil {
		return "", err
	}

	var tracks []storage.Track
	for _, bi := range ss.world.Bodies() {
		if bi.Body().IsStaticModel() {
			continue
		}
		tracks = append(tracks, storage.Track{Body: bi.Name(), Frames: bi.Recording().Frames()})
	}

	meta := storage.RunMetadata{
		World:      cfg.World,
		Preset:     label,
		TimeStep:   cfg.Sim.TimeStep,
		Frames:     finish.Frame,
		Duration:   finish.Time,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller,
		Recording:  cfg.Sim.Recording.String(),
		Abnormal:   finish.Abnormal,
		Metrics:    values,
	}
	if finish.Err != nil {
		meta.Error = finish.Err.Error()
	}
	return st.Save(meta, tracks)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("realtime") {
		cfg.Sim.RealtimeSync = true
	}
	cfg.Sim.AllLinkPositionOutput = true
	if !cmd.Flags().Changed("recording") {
		cfg.Sim.Recording = sim.RecordNone
	}

	// The terminal belongs to the view, so logs go to a file.
	logFile, err := os.Create("dynsim-live.log")
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := logging.NewWriter(logFile, cfg.Logging.Level)
	defer log.Sync()

	if cfg.Tracing.Enabled && cfg.Tracing.Output == "" {
		cfg.Tracing.Output = "dynsim-live-trace.json"
	}
	stopTracing, err := startTracing(cmd.Context(), cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer stopTracing()

	collector, stopMetrics, err := serveMetrics(cfg.Metrics.Addr, log)
	if err != nil {
		return err
	}
	defer stopMetrics()

	ss, err := newSession(cfg, log, collector)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	mon := tui.NewMonitor(ss.sim, ss.world)
	defer mon.Close()

	if err := ss.start(ctx); err != nil {
		return err
	}
	finish, err := mon.Run(ctx, tui.Options{Scale: scale})
	ss.sim.StopSimulation()
	if err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Printf("stopped at frame %d (%.3fs)\n", finish.Frame, finish.Time)
	return nil
}

func benchWorld(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Sim.TimeRange == sim.TimeRangeUnlimited {
		return fmt.Errorf("bench needs a bounded time range")
	}
	cfg.Sim.RealtimeSync = false
	cfg.Sim.Recording = sim.RecordNone

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	stopTracing, err := startTracing(cmd.Context(), cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer stopTracing()

	ens := sim.NewEnsemble(func(idx int) (*sim.Simulator, error) {
		ss, err := newSession(cfg, log.With(zap.Int("member", idx)), nil)
		if err != nil {
			return nil, err
		}
		ss.prepare()
		return ss.sim, nil
	}, numRuns)
	ens.SetLimit(parallel)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	fmt.Printf("running %d %s simulations...\n", numRuns, cfg.World)
	start := time.Now()
	results, err := ens.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	frames, simulated := 0, 0.0
	for _, r := range results {
		frames += r.Frame
		simulated += r.Time
	}
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("frames: %d total, %.0f frames/s\n", frames, float64(frames)/elapsed.Seconds())
	fmt.Printf("realtime factor: %.1fx\n", simulated/elapsed.Seconds())
	return nil
}

func tuneWorld(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Sim.TimeRange == sim.TimeRangeUnlimited {
		return fmt.Errorf("tune needs a bounded time range")
	}
	if cfg.Controller == "none" {
		cfg.Controller = "pid"
	}
	cfg.Sim.RealtimeSync = false
	cfg.Sim.Recording = sim.RecordNone

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	stopTracing, err := startTracing(cmd.Context(), cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer stopTracing()

	grid := optim.NewGridSearch([]string{"kp", "kd"}, [][]float64{kpRange, kdRange})
	grid.SetParallel(parallel)

	trial := func(params map[string]float64) (*sim.Simulator, func() float64, error) {
		c := *cfg
		c.ControllerParams.Kp = params["kp"]
		c.ControllerParams.Kd = params["kd"]
		ss, err := newSession(&c, log.With(zap.Float64("kp", params["kp"]), zap.Float64("kd", params["kd"])), nil)
		if err != nil {
			return nil, nil, err
		}
		ss.prepare()
		score := func() float64 {
			v, ok := ss.metricValues()[tuneMetric]
			if !ok {
				return math.NaN()
			}
			return v
		}
		return ss.sim, score, nil
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	fmt.Printf("tuning %s over %d gain pairs, minimizing %s...\n", cfg.World, len(grid.Points()), tuneMetric)
	start := time.Now()
	res, err := grid.Search(ctx, trial)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KP\tKD\tSCORE")
	for _, i := range res.Ranked() {
		fmt.Fprintf(w, "%.3f\t%.3f\t%.6f\n", res.Points[i]["kp"], res.Points[i]["kd"], res.Scores[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest: kp=%.3f kd=%.3f (%s %.6f)\n", res.Params["kp"], res.Params["kd"], tuneMetric, res.Score)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	lcfg := config.DefaultConfig().Logging
	if cmd.Flags().Changed("log-level") {
		lcfg.Level = logLevel
	}
	log, err := logging.New(lcfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	tcfg := config.DefaultConfig().Tracing
	if cmd.Flags().Changed("trace") {
		applyTraceFlag(&tcfg)
	}
	stopTracing, err := startTracing(cmd.Context(), tcfg, log)
	if err != nil {
		return err
	}
	defer stopTracing()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	if sc.Name != "" {
		fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	}
	for i, step := range sc.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("data") {
			cfg.DataDir = dataDir
		}

		fmt.Printf("[%d/%d] %s (%s)\n", i+1, len(sc.Steps), step.Name, cfg.World)
		ss, err := newSession(cfg, log.With(zap.String("step", step.Name)), nil)
		if err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		if err := ss.start(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		finish := ss.wait(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		runID, err := saveRunAs(cfg, step.Name, ss, finish, ss.metricValues(), log)
		if err != nil {
			return err
		}
		status := "ok"
		if finish.Abnormal {
			status = fmt.Sprintf("abnormal: %v", finish.Err)
		}
		fmt.Printf("      %d frames, run %s, %s\n", finish.Frame, runID, status)
	}
	return nil
}
