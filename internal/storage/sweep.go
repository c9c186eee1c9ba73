package storage

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"
)

// Sweep artifact names. Each is a single-column CSV rewritten after every step.
const (
	ArtifactPoints     = "n_points"
	ArtifactIterations = "iterations"
	ArtifactFinalError = "final_error"
)

// SweepSummary is the persisted outcome of a point-count sweep.
type SweepSummary struct {
	Meta       RunMetadata
	Points     []int
	Iterations []int
	FinalError []float64
}

func (s SweepSummary) Len() int {
	return len(s.Points)
}

// SweepWriter accumulates sweep steps and persists all three artifacts after
// each one, so an interrupted sweep leaves a consistent prefix on disk.
type SweepWriter struct {
	id      string
	dir     string
	summary SweepSummary
}

func (s *Store) NewSweep(meta RunMetadata) (*SweepWriter, error) {
	runID, runDir, err := s.newRunDir(KindSweep)
	if err != nil {
		return nil, err
	}

	meta.ID = runID
	meta.Kind = KindSweep
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	w := &SweepWriter{id: runID, dir: runDir, summary: SweepSummary{Meta: meta}}
	if err := w.flush(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *SweepWriter) ID() string {
	return w.id
}

func (w *SweepWriter) Dir() string {
	return w.dir
}

// Append records one completed sweep step and rewrites the artifacts.
func (w *SweepWriter) Append(points, iterations int, finalError float64) error {
	w.summary.Points = append(w.summary.Points, points)
	w.summary.Iterations = append(w.summary.Iterations, iterations)
	w.summary.FinalError = append(w.summary.FinalError, finalError)
	w.summary.Meta.Points = points
	w.summary.Meta.Iterations = iterations
	w.summary.Meta.FinalError = finalError
	return w.flush()
}

func (w *SweepWriter) Summary() SweepSummary {
	return w.summary
}

func (w *SweepWriter) flush() error {
	sum := &w.summary
	points := make([]string, len(sum.Points))
	iters := make([]string, len(sum.Iterations))
	errs := make([]string, len(sum.FinalError))
	for i := range sum.Points {
		points[i] = strconv.Itoa(sum.Points[i])
		iters[i] = strconv.Itoa(sum.Iterations[i])
		errs[i] = formatFloat(sum.FinalError[i])
	}

	artifacts := []struct {
		name   string
		values []string
	}{
		{ArtifactPoints, points},
		{ArtifactIterations, iters},
		{ArtifactFinalError, errs},
	}
	for _, a := range artifacts {
		rows := make([][]string, 0, len(a.values)+1)
		rows = append(rows, []string{a.name})
		for _, v := range a.values {
			rows = append(rows, []string{v})
		}
		if err := writeCSV(filepath.Join(w.dir, a.name+".csv"), rows); err != nil {
			return fmt.Errorf("storage: write %s: %w", a.name, err)
		}
	}

	return writeJSON(filepath.Join(w.dir, metadataFile), sum.Meta)
}

// LoadSweep reads the artifacts of a sweep run. Artifacts of unequal length
// are truncated to the shortest.
func (s *Store) LoadSweep(runID string) (*SweepSummary, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	if meta.Kind != KindSweep {
		return nil, fmt.Errorf("storage: run %s is a %s run, not a sweep", runID, meta.Kind)
	}

	dir := filepath.Join(s.baseDir, runID)
	cols := make([][]string, 3)
	for i, name := range []string{ArtifactPoints, ArtifactIterations, ArtifactFinalError} {
		records, err := readCSV(filepath.Join(dir, name+".csv"))
		if err != nil {
			return nil, fmt.Errorf("storage: read %s: %w", name, err)
		}
		for _, r := range records {
			if len(r) > 0 {
				cols[i] = append(cols[i], r[0])
			}
		}
	}

	n := min(len(cols[0]), len(cols[1]), len(cols[2]))
	sum := &SweepSummary{
		Meta:       *meta,
		Points:     make([]int, n),
		Iterations: make([]int, n),
		FinalError: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		if sum.Points[i], err = strconv.Atoi(cols[0][i]); err != nil {
			return nil, fmt.Errorf("storage: bad %s value: %w", ArtifactPoints, err)
		}
		if sum.Iterations[i], err = strconv.Atoi(cols[1][i]); err != nil {
			return nil, fmt.Errorf("storage: bad %s value: %w", ArtifactIterations, err)
		}
		if sum.FinalError[i], err = strconv.ParseFloat(cols[2][i], 64); err != nil {
			return nil, fmt.Errorf("storage: bad %s value: %w", ArtifactFinalError, err)
		}
	}
	return sum, nil
}
