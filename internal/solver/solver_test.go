package solver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/boundembed/internal/solver"
)

// pathProblem is the three-node path 0 - 1 - 2 with node 1 as anchor.
func pathProblem(lo, hi float64) solver.Problem {
	return solver.Problem{
		I: mat.NewDense(2, 3, []float64{
			1, -1, 0,
			0, 1, -1,
		}),
		L:     []float64{lo, lo},
		U:     []float64{hi, hi},
		Score: []float64{3, 1, 2},
	}
}

// feasibleProblem builds an edge-difference system around a hidden x* so that
// every measurement of x* sits inside its box.
func feasibleProblem(n int, edges [][2]int, slack float64, seed uint64) (solver.Problem, []float64) {
	rng := rand.New(rand.NewPCG(seed, 1))
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = rng.Float64()*6 - 3
	}
	score := make([]float64, n)
	for i := range score {
		score[i] = rng.Float64()
	}

	inc := mat.NewDense(len(edges), n, nil)
	lo := make([]float64, len(edges))
	hi := make([]float64, len(edges))
	for e, ed := range edges {
		inc.Set(e, ed[0], -1)
		inc.Set(e, ed[1], 1)
		d := xs[ed[1]] - xs[ed[0]]
		lo[e] = d - slack
		hi[e] = d + slack
	}
	return solver.Problem{I: inc, L: lo, U: hi, Score: score}, xs
}

func cycleEdges(n int) [][2]int {
	edges := make([][2]int, 0, n+4)
	for i := 0; i+1 < n; i++ {
		edges = append(edges, [2]int{i, i + 1})
	}
	return append(edges, [2]int{0, 3}, [2]int{2, 6}, [2]int{1, 7}, [2]int{4, 7})
}

func config(seed int64) solver.Config {
	cfg := solver.DefaultConfig()
	cfg.Seed = seed
	cfg.CheckEvery = 1
	cfg.Tolerance = 1e-6
	cfg.MaxIter = 20000
	return cfg
}

func edgeDiffs(x []float64, p solver.Problem) []float64 {
	m, n := p.I.Dims()
	out := make([]float64, m)
	for e := 0; e < m; e++ {
		for j := 0; j < n; j++ {
			out[e] += p.I.At(e, j) * x[j]
		}
	}
	return out
}

var _ = Describe("Solve", func() {
	ctx := context.Background()

	Describe("input validation", func() {
		DescribeTable("rejects inconsistent problems",
			func(mutate func(*solver.Problem, *solver.Config), field string) {
				p := pathProblem(0, 2)
				cfg := config(1)
				mutate(&p, &cfg)

				res, err := solver.Solve(ctx, p, cfg)
				Expect(res).To(BeNil())
				Expect(err).To(MatchError(solver.ErrInvalidInput))
				var ie *solver.InputError
				Expect(err).To(BeAssignableToTypeOf(ie))
				Expect(err.(*solver.InputError).Field).To(Equal(field))
			},
			Entry("nil matrix", func(p *solver.Problem, _ *solver.Config) { p.I = nil }, "I"),
			Entry("short lower bound", func(p *solver.Problem, _ *solver.Config) { p.L = p.L[:1] }, "L"),
			Entry("long upper bound", func(p *solver.Problem, _ *solver.Config) { p.U = append(p.U, 1) }, "U"),
			Entry("score length", func(p *solver.Problem, _ *solver.Config) { p.Score = p.Score[:2] }, "Score"),
			Entry("zero max iter", func(_ *solver.Problem, c *solver.Config) { c.MaxIter = 0 }, "MaxIter"),
			Entry("zero tolerance", func(_ *solver.Problem, c *solver.Config) { c.Tolerance = 0 }, "Tolerance"),
			Entry("negative tolerance", func(_ *solver.Problem, c *solver.Config) { c.Tolerance = -1 }, "Tolerance"),
			Entry("zero cadence", func(_ *solver.Problem, c *solver.Config) { c.CheckEvery = 0 }, "CheckEvery"),
			Entry("NaN score", func(p *solver.Problem, _ *solver.Config) { p.Score = []float64{1, math.NaN(), 2} }, "Score"),
		)

		It("does not reject inverted boxes", func() {
			res, err := solver.Solve(ctx, pathProblem(2, 0), config(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.X).To(HaveLen(3))
		})
	})

	Describe("the three-node path", func() {
		It("fixes the anchor and stays inside the bounds", func() {
			p := pathProblem(0, 2)
			res, err := solver.Solve(ctx, p, config(3))
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Anchor).To(Equal(1))
			Expect(res.X).To(HaveLen(3))
			Expect(res.X[1]).To(Equal(0.0))
			for _, d := range edgeDiffs(res.X, p) {
				Expect(d).To(BeNumerically(">=", 0))
				Expect(d).To(BeNumerically("<=", 2))
			}
			Expect(len(res.Errors)).To(BeNumerically("<=", 20000))
		})

		It("follows the projection steps exactly for a fixed node sequence", func() {
			p := pathProblem(1, 2)
			cfg := config(1)
			cfg.Sampler = solver.FixedSampler{0, 1}

			res, err := solver.Solve(ctx, p, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Status).To(Equal(solver.StatusConverged))
			Expect(res.Errors).To(HaveLen(3))
			Expect(res.Errors[0]).To(BeNumerically("~", math.Sqrt(2.0/3.0), 1e-12))
			Expect(res.Errors[1]).To(BeNumerically("~", 1/math.Sqrt(3), 1e-12))
			Expect(res.Errors[2]).To(BeNumerically("<", 1e-12))
			Expect(res.X[0]).To(BeNumerically("~", 1, 1e-12))
			Expect(res.X[1]).To(Equal(0.0))
			Expect(res.X[2]).To(BeNumerically("~", -1, 1e-12))
		})
	})

	Describe("check cadence", func() {
		It("stops on the first check iteration when x = 0 is already feasible", func() {
			for _, every := range []int{1, 7, 1000} {
				cfg := config(1)
				cfg.CheckEvery = every
				res, err := solver.Solve(ctx, pathProblem(-1, 1), cfg)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Errors).To(HaveLen(1))
				Expect(res.Iterations).To(Equal(1))
				Expect(res.Converged()).To(BeTrue())
				Expect(res.X).To(Equal([]float64{0, 0, 0}))
			}
		})

		It("only stops on iterations that are multiples of the cadence", func() {
			cfg := config(1)
			cfg.CheckEvery = 5
			cfg.Sampler = solver.FixedSampler{0, 1}

			res, err := solver.Solve(ctx, pathProblem(1, 2), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(solver.StatusConverged))
			Expect(res.Errors).To(HaveLen(6))
			Expect(res.Errors[2:]).To(HaveEach(BeNumerically("<", 1e-12)))
		})

		It("reports max_iter without an error when the budget runs out", func() {
			cfg := config(1)
			cfg.MaxIter = 2
			cfg.Sampler = solver.FixedSampler{0}

			res, err := solver.Solve(ctx, pathProblem(1, 2), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(solver.StatusMaxIter))
			Expect(res.Errors).To(HaveLen(2))
			Expect(res.FinalError()).To(BeNumerically(">", 0))
		})
	})

	Describe("feasibility recovery", func() {
		It("converges on a feasible cyclic system", func() {
			p, _ := feasibleProblem(8, cycleEdges(8), 0.1, 11)
			res, err := solver.Solve(ctx, p, config(5))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(solver.StatusConverged))
			Expect(res.FinalError()).To(BeNumerically("<", 1e-6))

			for e, d := range edgeDiffs(res.X, p) {
				Expect(d).To(BeNumerically(">=", p.L[e]-1e-4))
				Expect(d).To(BeNumerically("<=", p.U[e]+1e-4))
			}
		})

		It("converges on a feasible tree", func() {
			edges := [][2]int{{0, 1}, {1, 2}, {1, 3}, {3, 4}, {0, 5}}
			p, _ := feasibleProblem(6, edges, 0.05, 3)
			res, err := solver.Solve(ctx, p, config(9))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged()).To(BeTrue())
		})
	})

	Describe("gauge and shape", func() {
		It("returns n values with the anchor pinned to zero", func() {
			for seed := uint64(1); seed <= 5; seed++ {
				p, _ := feasibleProblem(8, cycleEdges(8), 0.2, seed)
				res, err := solver.Solve(ctx, p, config(int64(seed)))
				Expect(err).NotTo(HaveOccurred())

				anchor := 0
				for i, s := range p.Score {
					if s < p.Score[anchor] {
						anchor = i
					}
				}
				Expect(res.Anchor).To(Equal(anchor))
				Expect(res.X).To(HaveLen(8))
				Expect(res.X[anchor]).To(Equal(0.0))
			}
		})

		It("breaks score ties by first occurrence", func() {
			p := pathProblem(0, 2)
			p.Score = []float64{1, 1, 1}
			res, err := solver.Solve(ctx, p, config(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Anchor).To(Equal(0))
		})
	})

	Describe("determinism", func() {
		It("produces bit-identical results for the same seed", func() {
			p, _ := feasibleProblem(8, cycleEdges(8), 0.1, 4)
			cfg := config(42)
			cfg.MaxIter = 500
			cfg.Tolerance = 1e-12

			a, err := solver.Solve(ctx, p, cfg)
			Expect(err).NotTo(HaveOccurred())
			b, err := solver.Solve(ctx, p, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.X).To(Equal(b.X))
			Expect(a.Errors).To(Equal(b.Errors))
		})
	})

	Describe("statistical decrease", func() {
		It("lowers the median error across seeds", func() {
			p, _ := feasibleProblem(8, cycleEdges(8), 0.1, 8)
			cfg := config(0)
			cfg.MaxIter = 400
			cfg.CheckEvery = 100

			results, err := solver.NewEnsemble(cfg, 9, 100).Run(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(9))

			trace := solver.MedianTrace(results)
			Expect(trace[len(trace)-1]).To(BeNumerically("<", trace[0]))
		})
	})

	Describe("failure states", func() {
		It("rejects a single-node system as singular", func() {
			p := solver.Problem{
				I:     mat.NewDense(1, 1, []float64{1}),
				L:     []float64{0},
				U:     []float64{1},
				Score: []float64{0},
			}
			_, err := solver.Solve(ctx, p, config(1))
			Expect(err).To(MatchError(solver.ErrSingular))
		})

		It("rejects a disconnected measurement graph", func() {
			p := solver.Problem{
				I: mat.NewDense(2, 4, []float64{
					-1, 1, 0, 0,
					0, 0, -1, 1,
				}),
				L:     []float64{0, 0},
				U:     []float64{1, 1},
				Score: []float64{0, 1, 2, 3},
			}
			_, err := solver.Solve(ctx, p, config(1))
			Expect(err).To(MatchError(solver.ErrSingular))
		})

		It("honours a tighter condition limit", func() {
			p, _ := feasibleProblem(8, cycleEdges(8), 0.1, 2)
			cfg := config(1)
			cfg.MaxCondition = 1.0001
			_, err := solver.Solve(ctx, p, cfg)
			Expect(err).To(MatchError(solver.ErrSingular))
		})

		It("stops on a canceled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			res, err := solver.Solve(cctx, pathProblem(1, 2), config(1))
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(solver.ErrCanceled))
			Expect(err).To(MatchError(context.Canceled))
		})

		It("rejects a fixed sequence outside the reduced range", func() {
			cfg := config(1)
			cfg.Sampler = solver.FixedSampler{5}
			_, err := solver.Solve(ctx, pathProblem(1, 2), cfg)
			Expect(err).To(MatchError(solver.ErrInvalidInput))
		})
	})

	Describe("observer", func() {
		It("sees every iteration", func() {
			var seen []float64
			cfg := config(1)
			cfg.Sampler = solver.FixedSampler{0, 1}
			cfg.Observer = solver.ObserverFunc(func(_ int, e float64) { seen = append(seen, e) })

			res, err := solver.Solve(ctx, pathProblem(1, 2), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(Equal(res.Errors))
		})
	})
})

var _ = Describe("Descend", func() {
	ctx := context.Background()

	It("halves the error every step on the three-node path", func() {
		p := pathProblem(1, 2)
		res, err := solver.Descend(ctx, p, config(1))
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Status).To(Equal(solver.StatusConverged))
		Expect(res.Anchor).To(Equal(1))
		Expect(res.Errors[0]).To(BeNumerically("~", 1, 1e-12))
		Expect(res.Errors[1]).To(BeNumerically("~", 0.5, 1e-12))
		Expect(res.Errors[2]).To(BeNumerically("~", 0.25, 1e-12))
		Expect(res.Errors).To(HaveLen(21))
		Expect(res.X[1]).To(Equal(0.0))
		Expect(res.X[0]).To(BeNumerically("~", 1, 1e-5))
		Expect(res.X[2]).To(BeNumerically("~", -1, 1e-5))
	})

	It("stops on the first check iteration when x = 0 is already feasible", func() {
		res, err := solver.Descend(ctx, pathProblem(-1, 1), config(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Iterations).To(Equal(1))
		Expect(res.X).To(Equal([]float64{0, 0, 0}))
	})

	It("converges on a feasible cyclic system", func() {
		p, _ := feasibleProblem(8, cycleEdges(8), 0.1, 11)
		cfg := config(1)
		cfg.MaxIter = 200000
		cfg.CheckEvery = 1000

		res, err := solver.Descend(ctx, p, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(solver.StatusConverged))
		Expect(res.FinalError()).To(BeNumerically("<", 1e-6))
		Expect((res.Iterations - 1) % 1000).To(Equal(0))

		for e, d := range edgeDiffs(res.X, p) {
			Expect(d).To(BeNumerically(">=", p.L[e]-1e-4))
			Expect(d).To(BeNumerically("<=", p.U[e]+1e-4))
		}
	})

	It("accepts a disconnected measurement graph", func() {
		p := solver.Problem{
			I: mat.NewDense(2, 4, []float64{
				-1, 1, 0, 0,
				0, 0, -1, 1,
			}),
			L:     []float64{1, 1},
			U:     []float64{2, 2},
			Score: []float64{0, 1, 2, 3},
		}
		res, err := solver.Descend(ctx, p, config(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Converged()).To(BeTrue())
		for _, d := range edgeDiffs(res.X, p) {
			Expect(d).To(BeNumerically("~", 1, 1e-5))
		}
	})

	It("rejects invalid input like Solve", func() {
		cfg := config(1)
		cfg.Tolerance = 0
		_, err := solver.Descend(ctx, pathProblem(0, 2), cfg)
		Expect(err).To(MatchError(solver.ErrInvalidInput))
	})

	It("stops on a canceled context", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res, err := solver.Descend(cctx, pathProblem(1, 2), config(1))
		Expect(res).To(BeNil())
		Expect(err).To(MatchError(solver.ErrCanceled))
	})
})

var _ = Describe("logging", func() {
	DescribeTable("tags every event with the solver component",
		func(solve func(context.Context, solver.Problem, solver.Config) (*solver.Result, error), component string) {
			var buf bytes.Buffer
			cfg := config(1)
			cfg.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)

			_, err := solve(context.Background(), pathProblem(1, 2), cfg)
			Expect(err).NotTo(HaveOccurred())

			lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
			Expect(len(lines)).To(BeNumerically(">=", 2))
			for _, line := range lines {
				var event map[string]any
				Expect(json.Unmarshal(line, &event)).To(Succeed())
				Expect(event).To(HaveKeyWithValue("component", component))
			}
		},
		Entry("randomized", solver.Solve, "solver"),
		Entry("descent", solver.Descend, "descent"),
	)
})
