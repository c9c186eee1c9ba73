// Package metrics scores an embedding against the bounds it was built from.
//
// Every edge of the data graph yields one [Sample]: the embedded value of the
// pair (distance or correlation, depending on [Mode]) next to its bounds.
// Metrics accumulate samples and report a scalar.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/boundembed/internal/bounds"
	"github.com/san-kum/boundembed/internal/knn"
)

// Mode selects which pairwise quantity is compared against its bounds.
type Mode string

const (
	ModeDistance    Mode = "distance"
	ModeCorrelation Mode = "correlation"
)

type Sample struct {
	Lo, Hi   int
	Embedded float64
	Lower    float64
	Upper    float64
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Input is everything an evaluation needs.
type Input struct {
	Coords *mat.Dense
	Edges  []knn.Edge
	Dist   bounds.Pair
	Corr   bounds.Pair
	Mode   Mode
}

// Evaluate resets every metric, feeds it one sample per edge and returns the
// values by name.
func Evaluate(in Input, ms ...Metric) (map[string]float64, error) {
	var pair bounds.Pair
	var value func(a, b []float64) float64
	switch in.Mode {
	case ModeDistance, "":
		pair, value = in.Dist, distance
	case ModeCorrelation:
		pair, value = in.Corr, cosine
	default:
		return nil, fmt.Errorf("metrics: unknown mode %q", in.Mode)
	}
	if pair.Lower == nil || pair.Upper == nil {
		return nil, fmt.Errorf("metrics: no %s bounds", in.Mode)
	}
	l, u, err := bounds.Edge(in.Edges, pair)
	if err != nil {
		return nil, err
	}

	for _, m := range ms {
		m.Reset()
	}
	a := make([]float64, 2)
	b := make([]float64, 2)
	for e, ed := range in.Edges {
		mat.Row(a, ed.Lo, in.Coords)
		mat.Row(b, ed.Hi, in.Coords)
		s := Sample{Lo: ed.Lo, Hi: ed.Hi, Embedded: value(a, b), Lower: l[e], Upper: u[e]}
		for _, m := range ms {
			m.Observe(s)
		}
	}

	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out, nil
}

func distance(a, b []float64) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

func cosine(a, b []float64) float64 {
	na, nb := math.Hypot(a[0], a[1]), math.Hypot(b[0], b[1])
	if na == 0 || nb == 0 {
		return 0
	}
	return (a[0]*b[0] + a[1]*b[1]) / (na * nb)
}

// excursion is how far v lies outside [lo, hi]; zero inside.
func excursion(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	default:
		return 0
	}
}
