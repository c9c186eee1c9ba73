package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/boundembed/internal/dataset"
	"github.com/san-kum/boundembed/internal/export"
	"github.com/san-kum/boundembed/internal/storage"
	"github.com/san-kum/boundembed/internal/viz"
)

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	syn := cfg.Dataset.Synthetic
	if len(args) > 0 {
		syn.Name = args[0]
	}
	if cmd.Flags().Changed("seed") {
		syn.Seed = seed
	}
	if genPoints > 0 {
		syn.Points = genPoints
	}
	if genDims > 0 {
		syn.Dims = genDims
	}
	if genSlack > 0 {
		syn.Slack = genSlack
	}

	ds, err := dataset.Generate(syn)
	if err != nil {
		return err
	}
	if err := dataset.Save(cfg.Dataset.Dir, ds); err != nil {
		return err
	}

	log.Info().Str("dataset", ds.Name).Int("points", ds.Len()).Str("dir", cfg.Dataset.Dir).Msg("dataset written")
	fmt.Printf("wrote %s (%d records) to %s\n", ds.Name, ds.Len(), cfg.Dataset.Dir)
	return nil
}

func listDatasets(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	names, err := dataset.NewDirLoader(cfg.Dataset.Dir).List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no datasets found")
		return nil
	}
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	runs, err := storage.New(cfg.Sweep.OutputDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tDATASET\tTIME\tN\tITERS\tERROR\tSTATUS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.3e\t%s\n",
			run.ID,
			run.Kind,
			run.Dataset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Points,
			run.Iterations,
			run.FinalError,
			run.Status,
		)
	}

	return w.Flush()
}

func loadRun(cmd *cobra.Command, runID string) (*storage.Store, *storage.RunMetadata, error) {
	cfg, _, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	st := storage.New(cfg.Sweep.OutputDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return st, meta, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	st, meta, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	lines := []string{
		viz.Title.Render(meta.ID),
		viz.Field("kind", meta.Kind),
		viz.Field("dataset", meta.Dataset),
		viz.Field("time", meta.Timestamp.Format("2006-01-02 15:04:05")),
		viz.Field("seed", meta.Seed),
		viz.Field("k", meta.K),
		viz.Field("max iter", meta.MaxIter),
		viz.Field("tolerance", meta.Tolerance),
		viz.Field("check every", meta.CheckEvery),
	}

	if meta.Kind == storage.KindSweep {
		sum, err := st.LoadSweep(meta.ID)
		if err != nil {
			return err
		}
		lines = append(lines, viz.Field("sizes", fmt.Sprint(sum.Points)))
		lines = append(lines, viz.MetricLabel.Render("final error")+viz.Sparkline(sum.FinalError, 40))
		fmt.Println(viz.Panel.Render(strings.Join(lines, "\n")))
		return nil
	}

	lines = append(lines,
		viz.Field("points", meta.Points),
		viz.Field("status", meta.Status),
		viz.Field("iterations", meta.Iterations),
		viz.Field("final error", fmt.Sprintf("%.6g", meta.FinalError)),
	)
	lines = append(lines, viz.MetricLines(meta.Metrics)...)
	fmt.Println(viz.Panel.Render(strings.Join(lines, "\n")))

	coords, err := st.LoadCoords(meta.ID)
	if err == nil && len(coords) > 0 {
		fmt.Println(viz.Scatter(coords, 40, 16))
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, meta, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("dataset: %s\n\n", meta.Dataset)

	if meta.Kind == storage.KindSweep {
		sum, err := st.LoadSweep(meta.ID)
		if err != nil {
			return err
		}
		if sum.Len() == 0 {
			return fmt.Errorf("no data to plot")
		}
		fmt.Println(viz.PlotSweep(sum.Points, sum.Iterations, sum.FinalError))
		return nil
	}

	trace, err := st.LoadTrace(meta.ID)
	if err != nil {
		return err
	}
	if len(trace) == 0 {
		return fmt.Errorf("no data to plot")
	}
	fmt.Printf("iterations: %d\n\n", len(trace))
	fmt.Println(viz.PlotTrace(trace, "error vs iteration", logScale))
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st, meta, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	var svg string
	switch svgKind {
	case "trace":
		if meta.Kind == storage.KindSweep {
			sum, err := st.LoadSweep(meta.ID)
			if err != nil {
				return err
			}
			svg = export.TraceToSVG(sum.FinalError, 800, 400, true, "#00ff88")
		} else {
			trace, err := st.LoadTrace(meta.ID)
			if err != nil {
				return err
			}
			svg = export.TraceToSVG(trace, 800, 400, true, "#00ff88")
		}
	case "coords":
		coords, err := st.LoadCoords(meta.ID)
		if err != nil {
			return err
		}
		svg = export.ScatterToSVG(coords, nil, 600, 600)
	case "canvas":
		coords, err := st.LoadCoords(meta.ID)
		if err != nil {
			return err
		}
		svg = export.CanvasToSVG(viz.Scatter(coords, 60, 30), 4)
	default:
		return fmt.Errorf("unknown svg kind: %s (trace, coords or canvas)", svgKind)
	}

	path := outPath
	if path == "" {
		path = fmt.Sprintf("%s_%s.svg", meta.ID, svgKind)
	}
	if err := export.WriteFile(path, svg); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", path)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st, meta, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	data, err := st.Collect(meta.ID)
	if err != nil {
		return err
	}

	if outPath == "" {
		return storage.EncodeJSON(os.Stdout, data)
	}
	if err := storage.ExportJSON(outPath, data); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outPath)
	return nil
}
