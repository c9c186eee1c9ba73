package metrics

import "math"

// Stress compares embedded values with the midpoints of their bounds:
// sqrt(Σ(emb − mid)² / Σ mid²).
type Stress struct {
	num, den float64
}

func NewStress() *Stress {
	return &Stress{}
}

func (s *Stress) Name() string {
	return "stress"
}

func (s *Stress) Observe(sm Sample) {
	mid := (sm.Lower + sm.Upper) / 2
	d := sm.Embedded - mid
	s.num += d * d
	s.den += mid * mid
}

func (s *Stress) Value() float64 {
	if s.den == 0 {
		return 0
	}
	return math.Sqrt(s.num / s.den)
}

func (s *Stress) Reset() {
	s.num = 0
	s.den = 0
}
