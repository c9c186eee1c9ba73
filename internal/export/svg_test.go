package export

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/boundembed/internal/knn"
	"github.com/san-kum/boundembed/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	if CanvasToSVG(nil, 1) != "" {
		t.Error("nil canvas should produce nothing")
	}

	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	svg := CanvasToSVG(c, 2)
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if !strings.Contains(svg, `width="8" height="8"`) {
		t.Errorf("unexpected size in %q", svg[:120])
	}
}

func TestTraceToSVG(t *testing.T) {
	svg := TraceToSVG([]float64{1, 0.1, 0.01}, 200, 100, true, "#00ff00")
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not a complete document")
	}
	if n := strings.Count(svg, " L"); n != 2 {
		t.Errorf("expected 2 segments, got %d", n)
	}

	if TraceToSVG([]float64{1}, 200, 100, false, "#fff") != "" {
		t.Error("single point trace should produce nothing")
	}
	if TraceToSVG([]float64{0, -1, 1}, 200, 100, true, "#fff") != "" {
		t.Error("log trace with one positive value should produce nothing")
	}
}

func TestFrame(t *testing.T) {
	f := newFrame(0, 10, 0, 10, 120, 120)

	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

	x, y := f.at(0, 0)
	if !near(x, 10) || !near(y, 110) {
		t.Errorf("origin at (%v, %v), want (10, 110)", x, y)
	}
	x, y = f.at(10, 10)
	if !near(x, 110) || !near(y, 10) {
		t.Errorf("corner at (%v, %v), want (110, 10)", x, y)
	}
}

func TestScatterToSVG(t *testing.T) {
	pts := [][]float64{{0, 0}, {1, 0}, {0, 1}}
	edges := []knn.Edge{{Lo: 0, Hi: 1}, {Lo: 0, Hi: 2}, {Lo: 0, Hi: 9}}

	svg := ScatterToSVG(pts, edges, 300, 300)
	if n := strings.Count(svg, "<circle"); n != 3 {
		t.Errorf("expected 3 points, got %d", n)
	}
	if n := strings.Count(svg, "<line"); n != 2 {
		t.Errorf("expected 2 edges, got %d", n)
	}

	if ScatterToSVG([][]float64{{1}}, nil, 10, 10) != "" {
		t.Error("1D rows should produce nothing")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(filepath.Join(dir, "empty.svg"), ""); err == nil {
		t.Error("expected error for empty document")
	}

	path := filepath.Join(dir, "trace.svg")
	if err := WriteFile(path, TraceToSVG([]float64{2, 1}, 50, 50, false, "#fff")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}
