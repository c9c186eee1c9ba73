package solver

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// gauge maps between full node indices and the reduced indices left after
// the anchor column is removed.
type gauge struct {
	anchor int
	n      int
}

func (g gauge) full(r int) int {
	if r >= g.anchor {
		return r + 1
	}
	return r
}

func (g gauge) reduced(f int) (int, bool) {
	switch {
	case f == g.anchor:
		return 0, false
	case f > g.anchor:
		return f - 1, true
	default:
		return f, true
	}
}

// expand writes the reduced vector into a full-length vector with the anchor
// pinned to zero.
func (g gauge) expand(x []float64) []float64 {
	out := make([]float64, g.n)
	for r, v := range x {
		out[g.full(r)] = v
	}
	return out
}

type entry struct {
	col int
	val float64
}

// system is the reduced measurement matrix in row-sparse form with a
// column → incident rows index.
type system struct {
	m, k     int
	rows     [][]entry
	cols     [][]int
	rowNorm2 []float64
	colNorm2 []float64
	dense    *mat.Dense
}

func newSystem(a mat.Matrix, g gauge) *system {
	m, _ := a.Dims()
	k := g.n - 1
	s := &system{
		m:        m,
		k:        k,
		rows:     make([][]entry, m),
		cols:     make([][]int, k),
		rowNorm2: make([]float64, m),
		colNorm2: make([]float64, k),
	}
	if k > 0 {
		s.dense = mat.NewDense(m, k, nil)
	}
	for e := 0; e < m; e++ {
		for r := 0; r < k; r++ {
			v := a.At(e, g.full(r))
			if v == 0 {
				continue
			}
			s.dense.Set(e, r, v)
			s.rows[e] = append(s.rows[e], entry{col: r, val: v})
			s.cols[r] = append(s.cols[r], e)
			s.rowNorm2[e] += v * v
			s.colNorm2[r] += v * v
		}
	}
	return s
}

// mulVec computes dst = A·x.
func (s *system) mulVec(dst, x []float64) {
	for e, row := range s.rows {
		dst[e] = s.dot(row, x)
	}
}

// mulTransVec computes dst = Aᵀ·y.
func (s *system) mulTransVec(dst, y []float64) {
	floats.Scale(0, dst)
	for e, row := range s.rows {
		if y[e] == 0 {
			continue
		}
		for _, en := range row {
			dst[en.col] += en.val * y[e]
		}
	}
}

func (s *system) dot(row []entry, x []float64) float64 {
	sum := 0.0
	for _, en := range row {
		sum += en.val * x[en.col]
	}
	return sum
}
