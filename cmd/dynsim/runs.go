package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/bodysim/internal/analysis"
	"github.com/san-kum/bodysim/internal/config"
	"github.com/san-kum/bodysim/internal/export"
	"github.com/san-kum/bodysim/internal/models"
	"github.com/san-kum/bodysim/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const maxPlots = 6

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWORLD\tTIME\tFRAMES\tDURATION\tDT\tINTEG\tCTRL\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Abnormal {
			status = "abnormal"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2fs\t%.4fs\t%s\t%s\t%s\n",
			run.ID,
			run.World,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Duration,
			run.TimeStep,
			run.Integrator,
			run.Controller,
			status,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, name, series, err := loadSeries(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("world: %s\n", meta.World)
	fmt.Printf("body: %s\n", name)
	fmt.Printf("samples: %d\n\n", len(series.Frames))

	numJoints := len(series.Q[0])
	if numJoints == 0 {
		data := make([]float64, len(series.Root))
		for i, p := range series.Root {
			data[i] = p[2]
		}
		printPlot(data, "root height")
		return writeSeriesSVG(series.Times, data)
	}

	first, last := 0, min(numJoints, maxPlots)
	if plotJoint >= 0 {
		if plotJoint >= numJoints {
			return fmt.Errorf("joint %d out of range (body has %d)", plotJoint, numJoints)
		}
		first, last = plotJoint, plotJoint+1
	}
	for j := first; j < last; j++ {
		data := make([]float64, len(series.Q))
		for i, q := range series.Q {
			data[i] = q[j]
		}
		printPlot(data, fmt.Sprintf("q%d vs time", j))
		if j == first {
			if err := writeSeriesSVG(series.Times, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeSeriesSVG(times, values []float64) error {
	if svgPath == "" {
		return nil
	}
	f, err := os.Create(svgPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.TimeSeriesSVG(f, times, values, 800, 400); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgPath)
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printPlot(data []float64, caption string) {
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)
	fmt.Println()
}

// loadSeries loads the track selected by --body, defaulting to the first
// recorded body.
func loadSeries(runID string) (*storage.RunMetadata, string, *storage.Series, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, "", nil, err
	}
	if len(meta.Bodies) == 0 {
		return nil, "", nil, fmt.Errorf("run %s has no recorded bodies", runID)
	}
	name := bodyName
	if name == "" {
		name = meta.Bodies[0]
	}
	series, err := st.LoadTrack(runID, name)
	if err != nil {
		return nil, "", nil, err
	}
	if len(series.Frames) == 0 {
		return nil, "", nil, fmt.Errorf("no data for body %s", name)
	}
	return meta, name, series, nil
}

func column(rows [][]float64, j int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r[j]
	}
	return out
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, name, series, err := loadSeries(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("body: %s\n\n", name)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOINT\tFREQ\tPERIOD\tMIN\tMAX")
	for j := 0; j < min(len(series.Q[0]), maxPlots); j++ {
		q := column(series.Q, j)
		lo, hi := q[0], q[0]
		for _, v := range q {
			lo, hi = min(lo, v), max(hi, v)
		}
		f, err := analysis.DominantFrequency(q, meta.TimeStep)
		if err != nil || f == 0 {
			fmt.Fprintf(w, "q%d\t-\t-\t%.4f\t%.4f\n", j, lo, hi)
			continue
		}
		fmt.Fprintf(w, "q%d\t%.4f Hz\t%.4fs\t%.4f\t%.4f\n", j, f, 1/f, lo, hi)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(meta.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for _, k := range sortedKeys(meta.Metrics) {
			fmt.Printf("  %s: %.6f\n", k, meta.Metrics[k])
		}
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	_, name, series, err := loadSeries(args[0])
	if err != nil {
		return err
	}
	j := max(joint, 0)
	if j >= len(series.Q[0]) {
		return fmt.Errorf("joint %d out of range (body has %d)", j, len(series.Q[0]))
	}

	q, dq := column(series.Q, j), column(series.DQ, j)
	portrait := analysis.NewPhasePortrait(q, dq)
	title := fmt.Sprintf("%s q%d vs dq%d", name, j, j)
	if poincare >= 0 {
		if poincare >= len(series.Q[0]) {
			return fmt.Errorf("joint %d out of range (body has %d)", poincare, len(series.Q[0]))
		}
		portrait = analysis.NewPoincareSection(column(series.Q, poincare), q, dq, 0)
		title = fmt.Sprintf("%s poincare section at q%d = 0 (%d crossings)", name, poincare, len(portrait.Points))
	}

	fmt.Println(title)
	fmt.Print(portrait.ASCII(70, 25))
	if svgPath != "" {
		svg := export.TrajectorySVG(portrait.Points, 600, 600, "")
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	return st.Export(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	worlds := models.Names()
	if len(args) > 0 {
		worlds = args[:1]
	}
	for _, world := range worlds {
		presets := config.ListPresets(world)
		if len(presets) == 0 {
			if len(args) > 0 {
				fmt.Printf("no presets for world: %s\n", world)
			}
			continue
		}
		fmt.Printf("presets for %s:\n", world)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

// showConfig prints the resolved configuration, or saves it when a path is
// given.
func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		if err := config.Save(args[0], cfg); err != nil {
			return err
		}
		fmt.Printf("saved %s\n", args[0])
		return nil
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
