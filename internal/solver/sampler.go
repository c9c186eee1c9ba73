package solver

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws a fixed-length sequence of indices in [0, len(weights)).
type Sampler interface {
	Sample(weights []float64, count int) ([]int, error)
}

// CategoricalSampler draws indices independently with replacement, with
// probability proportional to their weight.
type CategoricalSampler struct {
	src rand.Source
}

func NewCategoricalSampler(src rand.Source) *CategoricalSampler {
	return &CategoricalSampler{src: src}
}

func (s *CategoricalSampler) Sample(weights []float64, count int) ([]int, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("sampler: no weights")
	}
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("sampler: negative weight %g at %d", w, i)
		}
	}
	if floats.Sum(weights) <= 0 {
		return nil, fmt.Errorf("sampler: weights sum to zero")
	}

	dist := distuv.NewCategorical(weights, s.src)
	seq := make([]int, count)
	for i := range seq {
		seq[i] = int(dist.Rand())
	}
	return seq, nil
}

// FixedSampler replays a literal sequence, repeating it when count exceeds
// its length. Weights only bound the valid index range.
type FixedSampler []int

func (s FixedSampler) Sample(weights []float64, count int) ([]int, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("sampler: empty fixed sequence")
	}
	seq := make([]int, count)
	for i := range seq {
		idx := s[i%len(s)]
		if idx < 0 || idx >= len(weights) {
			return nil, fmt.Errorf("sampler: index %d out of range [0, %d)", idx, len(weights))
		}
		seq[i] = idx
	}
	return seq, nil
}

// Seeded PCG streams. Node sampling and row selection use separate streams so
// swapping the sampler leaves row choices unchanged.
const (
	nodeStream uint64 = 0x6e6f6465
	rowStream  uint64 = 0x726f7773
)

func newSource(seed int64, stream uint64) rand.Source {
	return rand.NewPCG(uint64(seed), stream)
}
