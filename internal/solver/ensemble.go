package solver

import (
	"context"
	"sort"
	"sync"
)

// Ensemble solves one problem under consecutive seeds in parallel.
type Ensemble struct {
	cfg       Config
	numRuns   int
	seedStart int64
}

// NewEnsemble copies cfg for every run; cfg.Sampler must be nil or safe for
// concurrent use.
func NewEnsemble(cfg Config, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{cfg: cfg, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, p Problem) ([]*Result, error) {
	if e.numRuns < 1 {
		return nil, invalid("numRuns", "must be positive, got %d", e.numRuns)
	}
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := e.cfg
			cfgCopy.Seed = e.seedStart + int64(idx)
			cfgCopy.Observer = nil

			results[idx], errs[idx] = Solve(ctx, p, cfgCopy)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// MedianTrace returns, for every iteration reached by at least one run, the
// median error across the runs that reached it.
func MedianTrace(results []*Result) []float64 {
	longest := 0
	for _, r := range results {
		longest = max(longest, len(r.Errors))
	}
	out := make([]float64, longest)
	buf := make([]float64, 0, len(results))
	for i := range out {
		buf = buf[:0]
		for _, r := range results {
			if i < len(r.Errors) {
				buf = append(buf, r.Errors[i])
			}
		}
		out[i] = median(buf)
	}
	return out
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sort.Float64s(v)
	mid := len(v) / 2
	if len(v)%2 == 1 {
		return v[mid]
	}
	return (v[mid-1] + v[mid]) / 2
}
