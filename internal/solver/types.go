package solver

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultMaxIter      = 100000
	DefaultTolerance    = 1e-4
	DefaultCheckEvery   = 1000
	DefaultMaxCondition = 1e12
)

// Problem is one box-constrained measurement system.
type Problem struct {
	// I is the m × n measurement matrix; row e defines measurement e.
	I mat.Matrix
	// L and U bound every measurement: L[e] <= (I·x)[e] <= U[e].
	L, U []float64
	// Score picks the anchor node (arg-min, first occurrence).
	Score []float64
}

// Observer is notified after every iteration. It must not retain err beyond
// the call or block for long.
type Observer interface {
	OnIteration(iter int, err float64)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(iter int, err float64)

func (f ObserverFunc) OnIteration(iter int, err float64) { f(iter, err) }

type Config struct {
	MaxIter   int
	Tolerance float64
	// CheckEvery is the cadence of the stopping and cancellation check.
	// Iteration i is a check iteration when i%CheckEvery == 0.
	CheckEvery int
	// MaxCondition bounds the condition number accepted for the pseudoinverse.
	MaxCondition float64
	Seed         int64
	// Sampler draws the node sequence; nil uses a categorical sampler seeded
	// from Seed.
	Sampler  Sampler
	Observer Observer
	Logger   zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxIter:      DefaultMaxIter,
		Tolerance:    DefaultTolerance,
		CheckEvery:   DefaultCheckEvery,
		MaxCondition: DefaultMaxCondition,
		Logger:       zerolog.Nop(),
	}
}

// Status is the terminal state of a successful solve.
type Status int

const (
	// StatusConverged means a check iteration saw the error drop below the
	// tolerance.
	StatusConverged Status = iota
	// StatusMaxIter means the iteration budget ran out first. The result is
	// still the best current estimate.
	StatusMaxIter
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusMaxIter:
		return "max_iter"
	default:
		return "unknown"
	}
}

type Result struct {
	// X has one value per column of the original matrix; X[Anchor] == 0.
	X []float64
	// Errors holds one residual per executed iteration.
	Errors     []float64
	Iterations int
	Anchor     int
	Status     Status
}

// FinalError returns the last residual of the trace.
func (r *Result) FinalError() float64 {
	if len(r.Errors) == 0 {
		return 0
	}
	return r.Errors[len(r.Errors)-1]
}

// Converged reports whether the solve stopped on the tolerance.
func (r *Result) Converged() bool { return r.Status == StatusConverged }
