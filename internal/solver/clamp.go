package solver

import "math"

// Clamp projects v elementwise into [l, u] and writes the result to dst.
// dst may alias v. If dst is nil a new slice is allocated.
func Clamp(dst, v, l, u []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(v))
	}
	for i, x := range v {
		dst[i] = clamp(x, l[i], u[i])
	}
	return dst
}

// clamp evaluates max(lo, min(x, hi)). With lo > hi the result is lo.
func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}
