// Package bounds derives per-edge measurement boxes from pairwise distance
// bounds.
//
// Distance bounds between two points translate into bounds on their
// correlation through the law of cosines, and correlation bounds translate
// into bounds on the angle between them. [Edge] gathers the entries of a
// bound matrix that a measurement graph actually uses.
package bounds

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/boundembed/internal/knn"
)

var (
	ErrAsymmetric = errors.New("bounds: distance matrices should be symmetric")
	ErrZeroNorm   = errors.New("bounds: remove zero-norm points")
	ErrShape      = errors.New("bounds: shape mismatch")
)

// Pair is a lower/upper bound matrix pair.
type Pair struct {
	Lower, Upper *mat.Dense
}

// Correlation turns distance bounds into correlation bounds:
//
//	upper(i,j) = (|i|² + |j|² − dLo(i,j)²) / (2|i||j|)
//	lower(i,j) = (|i|² + |j|² − dHi(i,j)²) / (2|i||j|)
func Correlation(data mat.Matrix, dist Pair) (Pair, error) {
	n, _ := data.Dims()
	if err := checkSquare(n, dist.Lower, dist.Upper); err != nil {
		return Pair{}, err
	}
	if !symmetric(dist.Lower) || !symmetric(dist.Upper) {
		return Pair{}, ErrAsymmetric
	}

	norms := Norms(data)
	for i, v := range norms {
		if v == 0 {
			return Pair{}, fmt.Errorf("%w: row %d", ErrZeroNorm, i)
		}
	}

	lo := mat.NewDense(n, n, nil)
	hi := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sq := norms[i]*norms[i] + norms[j]*norms[j]
			den := 2 * norms[i] * norms[j]
			dl, du := dist.Lower.At(i, j), dist.Upper.At(i, j)
			hi.Set(i, j, (sq-dl*dl)/den)
			lo.Set(i, j, (sq-du*du)/den)
		}
	}
	return Pair{Lower: lo, Upper: hi}, nil
}

// Angles turns correlation bounds into angle bounds. acos is decreasing, so
// the upper correlation yields the lower angle. Correlations are clipped to
// [-1, 1] first.
func Angles(corr Pair) Pair {
	r, c := corr.Lower.Dims()
	lo := mat.NewDense(r, c, nil)
	hi := mat.NewDense(r, c, nil)
	lo.Apply(func(i, j int, _ float64) float64 { return safeAcos(corr.Upper.At(i, j)) }, lo)
	hi.Apply(func(i, j int, _ float64) float64 { return safeAcos(corr.Lower.At(i, j)) }, hi)
	return Pair{Lower: lo, Upper: hi}
}

// Edge gathers the bounds of every edge: l[e] = lower(Lo, Hi), u[e] = upper(Lo, Hi).
func Edge(edges []knn.Edge, p Pair) (l, u []float64, err error) {
	r, c := p.Lower.Dims()
	l = make([]float64, len(edges))
	u = make([]float64, len(edges))
	for e, ed := range edges {
		if ed.Lo >= r || ed.Hi >= c {
			return nil, nil, fmt.Errorf("%w: edge %d-%d outside %dx%d", ErrShape, ed.Lo, ed.Hi, r, c)
		}
		l[e] = p.Lower.At(ed.Lo, ed.Hi)
		u[e] = p.Upper.At(ed.Lo, ed.Hi)
	}
	return l, u, nil
}

// Slice returns views of the leading n×n blocks.
func (p Pair) Slice(n int) Pair {
	return Pair{
		Lower: p.Lower.Slice(0, n, 0, n).(*mat.Dense),
		Upper: p.Upper.Slice(0, n, 0, n).(*mat.Dense),
	}
}

// Norms returns the Euclidean norm of every row of data.
func Norms(data mat.Matrix) []float64 {
	r, c := data.Dims()
	out := make([]float64, r)
	row := make([]float64, c)
	for i := range out {
		mat.Row(row, i, data)
		out[i] = floats.Norm(row, 2)
	}
	return out
}

func checkSquare(n int, ms ...*mat.Dense) error {
	for _, m := range ms {
		if m == nil {
			return fmt.Errorf("%w: missing bound matrix", ErrShape)
		}
		r, c := m.Dims()
		if r != n || c != n {
			return fmt.Errorf("%w: bound matrix is %dx%d, want %dx%d", ErrShape, r, c, n, n)
		}
	}
	return nil
}

func symmetric(m *mat.Dense) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			if m.At(i, j) != m.At(j, i) {
				return false
			}
		}
	}
	return true
}

func safeAcos(c float64) float64 {
	return math.Acos(math.Max(-1, math.Min(1, c)))
}
