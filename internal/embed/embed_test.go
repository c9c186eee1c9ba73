package embed

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/boundembed/internal/dataset"
	"github.com/san-kum/boundembed/internal/solver"
)

func TestPolarize(t *testing.T) {
	c := Polarize([]float64{1, 2}, []float64{0, math.Pi / 2})
	if math.Abs(c.At(0, 0)-1) > 1e-12 || math.Abs(c.At(0, 1)) > 1e-12 {
		t.Errorf("point 0 = (%v, %v), want (1, 0)", c.At(0, 0), c.At(0, 1))
	}
	if math.Abs(c.At(1, 0)) > 1e-12 || math.Abs(c.At(1, 1)-2) > 1e-12 {
		t.Errorf("point 1 = (%v, %v), want (0, 2)", c.At(1, 0), c.At(1, 1))
	}
}

func synthetic(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	cfg := dataset.DefaultSyntheticConfig()
	cfg.Points = n
	cfg.Dims = 2
	ds, err := dataset.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return ds
}

func TestPolar_Embed(t *testing.T) {
	ds := synthetic(t, 30)
	cfg := solver.DefaultConfig()
	cfg.Seed = 3

	out, err := NewPolar(cfg).Embed(context.Background(), Input{
		Data:      ds.Data,
		Score:     ds.Score,
		K:         8,
		MaxIter:   3000,
		Tolerance: 1e-3,
		Dist:      ds.Dist,
		Corr:      ds.Corr,
	})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	r, c := out.Coords.Dims()
	if r != 30 || c != 2 {
		t.Fatalf("coords are %dx%d, want 30x2", r, c)
	}
	if len(out.Errors) == 0 || len(out.Errors) > 3000 {
		t.Errorf("unexpected trace length %d", len(out.Errors))
	}
	if len(out.Edges) < 30*8/2 {
		t.Errorf("expected at least %d edges, got %d", 30*8/2, len(out.Edges))
	}

	// The anchor sits on the positive x-axis at its own norm.
	a := out.Solve.Anchor
	norm := mat.Norm(ds.Data.RowView(a), 2)
	if math.Abs(out.Coords.At(a, 0)-norm) > 1e-9 || out.Coords.At(a, 1) != 0 {
		t.Errorf("anchor at (%v, %v), want (%v, 0)", out.Coords.At(a, 0), out.Coords.At(a, 1), norm)
	}

	for i := 0; i < 30; i++ {
		if out.AvgDist.At(i, i) != 0 {
			t.Fatalf("avg distance diagonal should be zero")
		}
	}
}

func TestPolar_Errors(t *testing.T) {
	ds := synthetic(t, 6)
	p := NewPolar(solver.DefaultConfig())

	_, err := p.Embed(context.Background(), Input{Data: ds.Data, Score: ds.Score[:3], K: 4, Dist: ds.Dist, Corr: ds.Corr})
	if err == nil {
		t.Error("expected error for score length mismatch")
	}

	_, err = p.Embed(context.Background(), Input{Data: ds.Data, Score: ds.Score, K: 6, Dist: ds.Dist, Corr: ds.Corr})
	if err == nil {
		t.Error("expected error for k >= n")
	}

	_, err = p.Embed(context.Background(), Input{Data: ds.Data, Score: ds.Score, K: 4, Dist: ds.Dist, Corr: ds.Corr, Tolerance: -1})
	if err != nil {
		t.Errorf("non-positive override should fall back to the config: %v", err)
	}

	_, err = p.Embed(context.Background(), Input{Data: ds.Data, Score: ds.Score, K: 4, Dist: ds.Dist})
	if err == nil || errors.Is(err, solver.ErrInvalidInput) {
		t.Errorf("expected missing-bounds error, got %v", err)
	}
}

func TestProblem(t *testing.T) {
	ds := synthetic(t, 12)

	prob, g, err := Problem(Input{Data: ds.Data, Score: ds.Score, K: 4, Dist: ds.Dist, Corr: ds.Corr})
	if err != nil {
		t.Fatalf("Problem: %v", err)
	}

	m, n := prob.I.Dims()
	if n != 12 || m != len(g.Edges) {
		t.Fatalf("incidence is %dx%d, want %dx12", m, n, len(g.Edges))
	}
	if len(prob.L) != m || len(prob.U) != m {
		t.Fatalf("bounds have %d/%d entries, want %d", len(prob.L), len(prob.U), m)
	}
	for e, edge := range g.Edges {
		if prob.I.At(e, edge.Lo) != -1 || prob.I.At(e, edge.Hi) != 1 {
			t.Errorf("row %d does not encode edge %v", e, edge)
		}
		if ds.Score[edge.Lo] > ds.Score[edge.Hi] {
			t.Errorf("edge %v is not score ordered", edge)
		}
		if prob.L[e] > prob.U[e]+1e-12 || prob.L[e] < 0 || prob.U[e] > math.Pi {
			t.Errorf("edge %d angle bounds [%v, %v] out of range", e, prob.L[e], prob.U[e])
		}
	}

	if _, _, err := Problem(Input{Score: ds.Score}); err == nil {
		t.Error("expected error for missing data")
	}
}

func TestPolarDescent_Embed(t *testing.T) {
	ds := synthetic(t, 30)
	cfg := solver.DefaultConfig()
	cfg.CheckEvery = 100

	in := Input{
		Data:      ds.Data,
		Score:     ds.Score,
		K:         8,
		MaxIter:   2000,
		Tolerance: 1e-3,
		Dist:      ds.Dist,
		Corr:      ds.Corr,
	}
	out, err := NewPolarDescent(cfg).Embed(context.Background(), in)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	r, c := out.Coords.Dims()
	if r != 30 || c != 2 {
		t.Fatalf("coords are %dx%d, want 30x2", r, c)
	}
	if len(out.Errors) == 0 || len(out.Errors) > 2000 {
		t.Errorf("unexpected trace length %d", len(out.Errors))
	}
	if out.Solve.X[out.Solve.Anchor] != 0 {
		t.Errorf("anchor angle = %v, want 0", out.Solve.X[out.Solve.Anchor])
	}
	if last := out.Errors[len(out.Errors)-1]; last > out.Errors[0] {
		t.Errorf("descent error grew from %g to %g", out.Errors[0], last)
	}

	// Same graph as the randomized solver.
	ref, err := NewPolar(cfg).Embed(context.Background(), in)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(ref.Edges) != len(out.Edges) {
		t.Errorf("edge count %d, want %d", len(out.Edges), len(ref.Edges))
	}
}
