package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/boundembed/internal/automation"
	"github.com/san-kum/boundembed/internal/experiment"
	"github.com/san-kum/boundembed/internal/optim"
)

var (
	gridSpecs []string
	objective string
	noSave    bool
)

// parseGrid reads "name=v1,v2,..." specs.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad grid spec %q (want name=v1,v2)", spec)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad value in %q: %w", spec, err)
			}
			vals = append(vals, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	names, ranges, err := parseGrid(gridSpecs)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("searching %d grid points on n=%d for lowest %s...\n", g.Size(), numPoints, objective)
	best, val, trials, err := g.Search(ctx, func(params map[string]float64) (*experiment.Experiment, error) {
		c, err := optim.Apply(cfg, params)
		if err != nil {
			return nil, err
		}
		return experiment.FromConfig(c, log), nil
	}, numPoints, objective)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PARAMS\t%s\n", strings.ToUpper(objective))
	for _, tr := range trials {
		if tr.Err != nil {
			fmt.Fprintf(w, "%s\tfailed: %v\n", optim.Describe(tr.Params), tr.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.6g\n", optim.Describe(tr.Params), tr.Value)
	}
	w.Flush()

	if err != nil {
		return err
	}
	fmt.Printf("\nbest: %s (%s=%.6g)\n", optim.Describe(best), objective, val)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if noSave {
		st = nil
	}

	results, err := automation.RunScenario(ctx, sc, cfg, st, log)
	for i, r := range results {
		solve := r.Outcome.Output.Solve
		fmt.Printf("  step %d n=%-6d %-9s iters=%-7d err=%.3e  %s\n",
			i+1, r.Outcome.Data.Len(), solve.Status, solve.Iterations, solve.FinalError(), r.RunID)
	}
	return err
}
