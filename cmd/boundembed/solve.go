package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/boundembed/internal/config"
	"github.com/san-kum/boundembed/internal/experiment"
	"github.com/san-kum/boundembed/internal/solver"
	"github.com/san-kum/boundembed/internal/storage"
	"github.com/san-kum/boundembed/internal/viz"
)

func runMetadata(cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Dataset:    cfg.Dataset.Name,
		Embedder:   cfg.Sweep.Embedder,
		Timestamp:  time.Now(),
		Seed:       cfg.Solver.Seed,
		K:          cfg.Sweep.K,
		MaxIter:    cfg.Solver.MaxIter,
		Tolerance:  cfg.Solver.Tolerance,
		CheckEvery: cfg.Solver.CheckEvery,
	}
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	st := storage.New(cfg.Sweep.OutputDir)
	return st, st.Init()
}

// pathExample is three nodes on a path with [0, 2] boxes on both edges.
func pathExample() solver.Problem {
	return solver.Problem{
		I:     mat.NewDense(2, 3, []float64{1, -1, 0, 0, 1, -1}),
		L:     []float64{0, 0},
		U:     []float64{2, 2},
		Score: []float64{3, 1, 2},
	}
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	meta := runMetadata(cfg)

	if example {
		res, err := solver.Solve(ctx, pathExample(), cfg.SolverSettings(log))
		if err != nil {
			return err
		}
		meta.Dataset = "path-example"
		meta.Points = len(res.X)
		meta.Status = res.Status.String()
		meta.Iterations = res.Iterations
		meta.FinalError = res.FinalError()

		runID, err := st.SaveRun(meta, res.Errors, nil)
		if err != nil {
			return err
		}
		fmt.Println(viz.Summary("path example", res, nil))
		fmt.Printf("x: %.6g\n", res.X)
		fmt.Printf("run id: %s\n", runID)
		return nil
	}

	exp := experiment.FromConfig(cfg, log)
	fmt.Printf("embedding %d records of %s...\n", numPoints, cfg.Dataset.Name)

	out, err := exp.Run(ctx, numPoints)
	if err != nil {
		return err
	}

	res := out.Output.Solve
	meta.Points = out.Data.Len()
	meta.Status = res.Status.String()
	meta.Iterations = res.Iterations
	meta.FinalError = res.FinalError()
	meta.Metrics = out.Metrics

	runID, err := st.SaveRun(meta, res.Errors, out.Output.Coords)
	if err != nil {
		return err
	}

	fmt.Println(viz.Summary(fmt.Sprintf("%s, n=%d", cfg.Dataset.Name, meta.Points), res, out.Metrics))
	fmt.Printf("completed in %v\n", out.Elapsed)
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	w, err := st.NewSweep(runMetadata(cfg))
	if err != nil {
		return err
	}

	if !live {
		exp := experiment.FromConfig(cfg, log)
		steps, err := exp.Sweep(ctx, w)
		fmt.Printf("sweep id: %s (%d/%d sizes)\n", w.ID(), w.Summary().Len(), len(cfg.Sweep.Points))
		printSweep(steps)
		return err
	}

	// The live view owns the terminal; logs would tear it.
	exp := experiment.FromConfig(cfg, zerolog.Nop())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(viz.NewSweepModel("sweep "+w.ID(), len(cfg.Sweep.Points), cancel))
	exp.AddObserver(viz.NewProgramObserver(p))

	err = runLive(
		func() error { _, err := p.Run(); return err },
		func() error { _, err := exp.Sweep(ctx, w); return err },
		func(err error) { p.Send(viz.SweepDoneMsg{Err: err}) },
		cancel,
	)
	fmt.Printf("sweep id: %s (%d/%d sizes)\n", w.ID(), w.Summary().Len(), len(cfg.Sweep.Points))
	return err
}

// runLive runs sweep in the background while view holds the terminal. Leaving
// the view cancels the sweep; the sweep's error is returned once it has
// stopped.
func runLive(view, sweep func() error, done func(error), cancel context.CancelFunc) error {
	errc := make(chan error, 1)
	go func() {
		err := sweep()
		done(err)
		errc <- err
	}()

	viewErr := view()
	cancel()
	sweepErr := <-errc
	if viewErr != nil {
		return viewErr
	}
	return sweepErr
}

func printSweep(steps []experiment.Step) {
	for _, s := range steps {
		if s.Err != nil {
			fmt.Printf("  n=%-6d failed: %v\n", s.Points, s.Err)
			continue
		}
		fmt.Printf("  n=%-6d %-9s iters=%-7d err=%.3e  %v\n",
			s.Points, s.Status, s.Iterations, s.FinalError, s.Elapsed.Round(time.Millisecond))
	}
}

func runTrials(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := experiment.FromConfig(cfg, log)
	sum, err := exp.Trials(ctx, numPoints, cfg.Sweep.Trials)
	if err != nil {
		return err
	}

	fmt.Printf("%d seeds from %d on n=%d: %d converged\n", len(sum.Results), cfg.Solver.Seed, sum.Points, sum.Converged)
	for i, r := range sum.Results {
		fmt.Printf("  seed %-4d %s  iters=%-7d err=%.3e\n", cfg.Solver.Seed+int64(i), viz.StatusBadge(r.Status), r.Iterations, r.FinalError())
	}
	fmt.Println()
	fmt.Println(viz.PlotTrace(sum.Median, "median error", true))
	return nil
}
