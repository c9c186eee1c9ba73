package solver

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/boundembed/internal/logging"
)

// Descend solves p by full-batch projected gradient descent on
// ½‖I·x − clamp(I·x, L, U)‖² under the same gauge as [Solve]:
//
//	x ← x − γ·Iᵀ(I·x − clamp(I·x, L, U)),  γ = 1 / (2·max diag(IᵀI))
//
// The reported error is ‖Iᵀ(I·x − clamp(I·x, L, U))‖ / √(n−1). Descend needs
// no pseudoinverse, so disconnected systems are accepted. Sampler and Seed
// are ignored.
func Descend(ctx context.Context, p Problem, cfg Config) (*Result, error) {
	if err := validate(p, cfg); err != nil {
		return nil, err
	}
	_, n := p.I.Dims()
	log := logging.Component(cfg.Logger, "descent")

	g := gauge{anchor: floats.MinIdx(p.Score), n: n}
	sys := newSystem(p.I, g)

	gamma := 0.0
	if d := floats.Max(append([]float64{0}, sys.colNorm2...)); d > 0 {
		gamma = 1 / (2 * d)
	}
	scale := 1.0
	if sys.k > 0 {
		scale = 1 / math.Sqrt(float64(sys.k))
	}

	log.Debug().
		Int("rows", sys.m).
		Int("nodes", n).
		Int("anchor", g.anchor).
		Float64("step", gamma).
		Int("max_iter", cfg.MaxIter).
		Msg("descent started")
	start := time.Now()

	x := make([]float64, sys.k)
	meas := make([]float64, sys.m)
	resid := make([]float64, sys.m)
	grad := make([]float64, sys.k)

	res := &Result{
		Errors: make([]float64, 0, min(cfg.MaxIter, 1<<16)),
		Anchor: g.anchor,
		Status: StatusMaxIter,
	}

	for it := 0; it < cfg.MaxIter; it++ {
		sys.mulVec(meas, x)
		Clamp(resid, meas, p.L, p.U)
		floats.SubTo(resid, meas, resid)
		sys.mulTransVec(grad, resid)
		e := scale * floats.Norm(grad, 2)
		res.Errors = append(res.Errors, e)

		if cfg.Observer != nil {
			cfg.Observer.OnIteration(it, e)
		}

		if it%cfg.CheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				log.Warn().Int("iteration", it).Err(err).Msg("descent canceled")
				return nil, &CancelError{Iteration: it, Cause: err}
			}
			if e < cfg.Tolerance {
				res.Status = StatusConverged
				break
			}
		}

		floats.AddScaled(x, -gamma, grad)
	}

	res.X = g.expand(x)
	res.Iterations = len(res.Errors)

	log.Debug().
		Stringer("status", res.Status).
		Int("iterations", res.Iterations).
		Float64("final_error", res.FinalError()).
		Dur("elapsed", time.Since(start)).
		Msg("descent finished")

	return res, nil
}
