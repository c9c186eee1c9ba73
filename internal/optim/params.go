package optim

import (
	"fmt"

	"github.com/san-kum/boundembed/internal/config"
)

// Tunable parameter names.
var Params = []string{"k", "tolerance", "max_iter", "check_every", "max_condition", "seed"}

// Apply writes grid parameters into a copy of base.
func Apply(base *config.Config, params map[string]float64) (*config.Config, error) {
	cfg := *base
	cfg.Sweep.Points = append([]int(nil), base.Sweep.Points...)
	cfg.Sweep.Metrics = append([]string(nil), base.Sweep.Metrics...)

	for name, v := range params {
		switch name {
		case "k":
			cfg.Sweep.K = int(v)
		case "tolerance":
			cfg.Solver.Tolerance = v
		case "max_iter":
			cfg.Solver.MaxIter = int(v)
		case "check_every":
			cfg.Solver.CheckEvery = int(v)
		case "max_condition":
			cfg.Solver.MaxCondition = v
		case "seed":
			cfg.Solver.Seed = int64(v)
		default:
			return nil, fmt.Errorf("optim: unknown parameter %q (tunable: %v)", name, Params)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
