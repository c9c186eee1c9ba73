package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/boundembed/internal/config"
	"github.com/san-kum/boundembed/internal/dataset"
	"github.com/san-kum/boundembed/internal/experiment"
	"github.com/san-kum/boundembed/internal/logging"
	"github.com/san-kum/boundembed/internal/optim"
	"github.com/san-kum/boundembed/internal/solver"
)

var (
	runsDir    string
	configFile string
	preset     string
	logLevel   string
	seed       int64
	maxIter    int
	tolerance  float64
	checkEvery int
	k          int
	points     []int
	datasetArg string
	embedder   string
	evalMode   string
	dataDir    string
	numPoints  int
	runs       int
	live       bool
	example    bool
	logScale   bool
	outPath    string
	svgKind    string
	genPoints  int
	genDims    int
	genSlack   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "boundembed",
		Short:         "bound-constrained score embedding lab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&runsDir, "store", "", "run output directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	solverFlags := func(cmd *cobra.Command) {
		cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
		cmd.Flags().IntVar(&maxIter, "max-iter", solver.DefaultMaxIter, "iteration budget")
		cmd.Flags().Float64Var(&tolerance, "tol", solver.DefaultTolerance, "convergence tolerance")
		cmd.Flags().IntVar(&checkEvery, "check-every", solver.DefaultCheckEvery, "convergence check cadence")
		cmd.Flags().IntVar(&k, "k", config.DefaultK, "neighbours per point in the data graph")
		cmd.Flags().StringVar(&datasetArg, "dataset", "", "dataset name")
		cmd.Flags().StringVar(&dataDir, "data", "", "dataset directory")
		cmd.Flags().StringVar(&embedder, "embedder", config.DefaultEmbedder, "embedder: polar or polar_gd")
		cmd.Flags().StringVar(&evalMode, "mode", "distance", "quantity the metrics compare: distance or correlation")
	}

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "embed the first N records of a dataset",
		RunE:  runSolve,
	}
	solverFlags(solveCmd)
	solveCmd.Flags().IntVar(&numPoints, "n", 100, "number of records")
	solveCmd.Flags().BoolVar(&example, "example", false, "solve the three node path example instead")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep over point counts, persisting after each size",
		RunE:  runSweep,
	}
	solverFlags(sweepCmd)
	sweepCmd.Flags().IntSliceVar(&points, "points", nil, "point counts to sweep")
	sweepCmd.Flags().BoolVar(&live, "live", false, "show a live progress view")

	trialsCmd := &cobra.Command{
		Use:   "trials",
		Short: "solve one problem under several seeds",
		RunE:  runTrials,
	}
	solverFlags(trialsCmd)
	trialsCmd.Flags().IntVar(&numPoints, "n", 100, "number of records")
	trialsCmd.Flags().IntVar(&runs, "seeds", 0, "number of seeds (default from config)")

	generateCmd := &cobra.Command{
		Use:   "generate [name]",
		Short: "write a synthetic dataset with distance and correlation bounds",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVar(&dataDir, "data", "", "dataset directory")
	generateCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	generateCmd.Flags().IntVar(&genPoints, "points", 0, "number of records")
	generateCmd.Flags().IntVar(&genDims, "dims", 0, "feature dimensions")
	generateCmd.Flags().Float64Var(&genSlack, "slack", 0, "relative half width of the distance bounds")

	datasetsCmd := &cobra.Command{
		Use:   "datasets",
		Short: "list datasets in the dataset directory",
		RunE:  listDatasets,
	}
	datasetsCmd.Flags().StringVar(&dataDir, "data", "", "dataset directory")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a solve trace or sweep",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&logScale, "log", true, "plot errors on a log10 scale")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a trace or embedding to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&outPath, "out", "", "output path (default <run_id>_<kind>.svg)")
	exportSVGCmd.Flags().StringVar(&svgKind, "kind", "trace", "trace, coords or canvas")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&outPath, "out", "", "output path (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets, embedders and metrics",
		Run: func(cmd *cobra.Command, args []string) {
			printCatalog(os.Stdout, experiment.NewRegistry())
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search solver and graph settings",
		RunE:  runTune,
	}
	solverFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&numPoints, "n", 100, "number of records")
	tuneCmd.Flags().StringArrayVar(&gridSpecs, "grid", []string{"k=6,8,10"}, "parameter grid, name=v1,v2 (repeatable)")
	tuneCmd.Flags().StringVar(&objective, "objective", optim.ObjectiveFinalError, "value to minimise: final_error, iterations or a metric name")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted scenario of solves",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store step results")

	rootCmd.AddCommand(tuneCmd, batchCmd)
	rootCmd.AddCommand(solveCmd, sweepCmd, trialsCmd, generateCmd, datasetsCmd, listCmd, showCmd, plotCmd, exportSVGCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := explain(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// printCatalog lists what --preset, --embedder and sweep.metrics accept.
func printCatalog(w io.Writer, reg *experiment.Registry) {
	for _, section := range []struct {
		title string
		names []string
	}{
		{"presets", config.ListPresets()},
		{"embedders", reg.ListEmbedders()},
		{"metrics", reg.ListMetrics()},
	} {
		fmt.Fprintf(w, "%s:\n", section.title)
		for _, name := range section.names {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}

// explain suggests a fix for the failures users run into most.
func explain(err error) string {
	var in *solver.InputError
	var sing *solver.SingularityError
	switch {
	case errors.As(err, &in):
		return fmt.Sprintf("check the %s setting", in.Field)
	case errors.As(err, &sing):
		return "the data graph is likely disconnected; raise --k"
	case errors.Is(err, dataset.ErrDataNotFound):
		return "run `boundembed generate` or point --data at a dataset directory"
	}
	return ""
}

// loadSettings resolves defaults, then the preset, then the config file,
// then explicitly set flags.
func loadSettings(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg := config.DefaultConfig()

	if preset != "" && !cfg.Apply(preset) {
		return nil, zerolog.Nop(), fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}

	if configFile != "" {
		if err := cfg.Merge(configFile); err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Solver.Seed = seed
	}
	if flags.Changed("max-iter") {
		cfg.Solver.MaxIter = maxIter
	}
	if flags.Changed("tol") {
		cfg.Solver.Tolerance = tolerance
	}
	if flags.Changed("check-every") {
		cfg.Solver.CheckEvery = checkEvery
	}
	if flags.Changed("k") {
		cfg.Sweep.K = k
	}
	if flags.Changed("points") && cmd.Name() != "generate" {
		cfg.Sweep.Points = points
	}
	if flags.Changed("seeds") {
		cfg.Sweep.Trials = runs
	}
	if flags.Changed("embedder") {
		cfg.Sweep.Embedder = embedder
	}
	if flags.Changed("mode") {
		cfg.Sweep.Mode = evalMode
	}
	if flags.Changed("dataset") {
		cfg.Dataset.Name = datasetArg
	}
	if flags.Changed("data") {
		cfg.Dataset.Dir = dataDir
	}
	if runsDir != "" {
		cfg.Sweep.OutputDir = runsDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}

	var log zerolog.Logger
	var err error
	if cfg.Logging.JSON {
		log, err = logging.JSON(cfg.Logging.Level, os.Stderr)
	} else {
		log, err = logging.New(cfg.Logging.Level, os.Stderr)
	}
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}
