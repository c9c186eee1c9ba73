// Package solver reconstructs node values from interval-bounded linear
// measurements.
//
// A measurement matrix I (m × n) maps node values x to measurements I·x, and
// every measurement e carries a box [L[e], U[e]]. [Solve] looks for an x whose
// measurements sit inside their boxes using a randomized row-projection
// (Kaczmarz-type) method with a dual correction:
//
//   - the node with the lowest score is pinned to zero (gauge fixing)
//   - a sequence of nodes is drawn up front, weighted by squared column norm
//   - each step projects x onto one box constraint incident to the sampled node,
//     offset by the component of the target that no assignment can reach
//
// # Example
//
//	p := solver.Problem{I: inc, L: lo, U: hi, Score: score}
//	cfg := solver.DefaultConfig()
//	cfg.Seed = 7
//	res, err := solver.Solve(ctx, p, cfg)
//
// # Thread Safety
//
// A call to [Solve] owns all of its state. Independent calls may run in
// parallel; [Ensemble] does this for a range of seeds.
package solver
