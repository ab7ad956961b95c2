package main

import (
	"os"

	"github.com/san-kum/bodysim/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	dataDir     string
	dt          float64
	duration    float64
	theta       float64
	theta2      float64
	links       int
	count       int
	hover       bool
	integrator  string
	controller  string
	kp          float64
	ki          float64
	kd          float64
	target      float64
	contacts    bool
	recording   string
	tailFrames  int
	realtime    bool
	metricsAddr string
	logLevel    string
	traceOutput string
	configFile  string
	preset      string
	noSave      bool
	// plot
	bodyName  string
	plotJoint int
	joint     int
	poincare  int
	svgPath   string
	// bench
	numRuns  int
	parallel int
	// live
	scale float64
	// tune
	kpRange    []float64
	kdRange    []float64
	tuneMetric string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "dynsim",
		Short:        "articulated body simulation lab",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	addTraceFlag(rootCmd.PersistentFlags())

	runCmd := &cobra.Command{
		Use:   "run [world]",
		Short: "run simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [world]",
		Short: "run simulation with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().Float64Var(&scale, "scale", 8, "cells per meter")

	benchCmd := &cobra.Command{
		Use:   "bench [world]",
		Short: "run an ensemble of simulations in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchWorld,
	}
	addRunFlags(benchCmd)
	benchCmd.Flags().IntVar(&numRuns, "runs", 8, "number of runs")
	benchCmd.Flags().IntVar(&parallel, "parallel", 0, "runs at once (0 = unlimited)")

	tuneCmd := &cobra.Command{
		Use:   "tune [world]",
		Short: "grid search controller gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneWorld,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&kpRange, "kp-range", []float64{5, 10, 20, 40}, "kp values to try")
	tuneCmd.Flags().Float64SliceVar(&kdRange, "kd-range", []float64{1, 2, 5, 8}, "kd values to try")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "energy", "metric to minimize")
	tuneCmd.Flags().IntVar(&parallel, "parallel", 0, "runs at once (0 = unlimited)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a yaml scenario and store each run",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a joint of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&bodyName, "body", "", "body to plot (default: first recorded)")
	plotCmd.Flags().IntVar(&plotJoint, "joint", -1, "joint to plot (default: all, up to 6)")
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the first plotted series to this svg file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&bodyName, "body", "", "body to analyze (default: first recorded)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot of a joint",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&bodyName, "body", "", "body to plot (default: first recorded)")
	phaseCmd.Flags().IntVar(&joint, "joint", 0, "joint to plot")
	phaseCmd.Flags().IntVar(&poincare, "poincare", -1, "sample when this joint crosses zero going up")
	phaseCmd.Flags().StringVar(&svgPath, "svg", "", "also write the portrait to this svg file")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [world]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "print or save the resolved configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showConfig,
	}
	configCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	configCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, tuneCmd, scenarioCmd, listCmd, plotCmd, analyzeCmd, phaseCmd, exportCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&dt, "dt", 0.001, "timestep")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration in simulated seconds")
	f.Float64Var(&theta, "theta", config.DefaultTheta, "initial angle")
	f.Float64Var(&theta2, "theta2", config.DefaultTheta, "second angle (double_pendulum)")
	f.IntVar(&links, "links", 5, "links (chain)")
	f.IntVar(&count, "count", 3, "balls (balls)")
	f.BoolVar(&hover, "hover", false, "drone rotors start at hover thrust")
	f.StringVar(&integrator, "integrator", "rk4", "integrator")
	f.StringVar(&controller, "controller", "none", "controller")
	f.Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	f.Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	f.Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
	f.Float64Var(&target, "target", 0.0, "pid target")
	f.BoolVar(&contacts, "contacts", false, "enable contact forces")
	f.StringVar(&recording, "recording", "full", "recording mode: full, tail or off")
	f.IntVar(&tailFrames, "tail", 1000, "frames kept in tail recording mode")
	f.BoolVar(&realtime, "realtime", false, "sync simulated time with wall time")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
}

// addTraceFlag binds --trace. Without a value spans go to stderr.
func addTraceFlag(fs *pflag.FlagSet) {
	fs.StringVar(&traceOutput, "trace", "", "export trace spans to this file (- for stderr)")
	fs.Lookup("trace").NoOptDefVal = "-"
}
