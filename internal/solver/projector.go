package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// projector holds P = I_m − A·pinv(A), the orthogonal projector onto the
// complement of the column space of A.
type projector struct {
	p *mat.Dense
}

func newProjector(s *system, maxCond float64) (*projector, error) {
	if s.k == 0 || s.m == 0 {
		return nil, &SingularityError{Rows: s.m, Cols: s.k, Condition: math.Inf(1), Reason: "empty reduced matrix"}
	}

	var svd mat.SVD
	if ok := svd.Factorize(s.dense, mat.SVDThin); !ok {
		return nil, &SingularityError{Rows: s.m, Cols: s.k, Condition: math.Inf(1), Reason: "SVD did not converge"}
	}
	values := svd.Values(nil)

	// Fewer rows than columns leaves a null space the anchor cannot remove.
	cond := math.Inf(1)
	if len(values) == s.k && values[len(values)-1] > 0 {
		cond = values[0] / values[len(values)-1]
	}
	if cond > maxCond {
		return nil, &SingularityError{Rows: s.m, Cols: s.k, Condition: cond, Limit: maxCond}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// pinv(A) = V·Σ⁻¹·Uᵀ
	vr, _ := v.Dims()
	for j, sv := range values {
		for i := 0; i < vr; i++ {
			v.Set(i, j, v.At(i, j)/sv)
		}
	}
	var pinv mat.Dense
	pinv.Mul(&v, u.T())

	var reach mat.Dense
	reach.Mul(s.dense, &pinv)

	p := mat.NewDense(s.m, s.m, nil)
	for i := 0; i < s.m; i++ {
		p.Set(i, i, 1)
	}
	p.Sub(p, &reach)

	return &projector{p: p}, nil
}

// component returns (P·y)[e].
func (pr *projector) component(e int, y mat.Vector) float64 {
	return mat.Dot(pr.p.RowView(e), y)
}
