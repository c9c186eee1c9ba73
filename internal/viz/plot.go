package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
)

const (
	plotWidth  = 80
	plotHeight = 12
)

// PlotTrace plots an error trace. With logScale the values are plotted as
// log10; non-positive errors are clamped to the smallest positive one.
func PlotTrace(trace []float64, caption string, logScale bool) string {
	if len(trace) == 0 {
		return Subtle.Render("(empty trace)")
	}

	data := trace
	if logScale {
		data = log10(trace)
		caption += " (log10)"
	}

	return asciigraph.Plot(data,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
	)
}

// PlotSweep plots final error and iteration count against the point counts.
func PlotSweep(points, iterations []int, finalError []float64) string {
	if len(points) == 0 {
		return Subtle.Render("(empty sweep)")
	}

	iters := make([]float64, len(iterations))
	for i, v := range iterations {
		iters[i] = float64(v)
	}

	caption := fmt.Sprintf("n_points %d..%d", points[0], points[len(points)-1])
	errPlot := asciigraph.Plot(log10(finalError),
		asciigraph.Height(plotHeight/2),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("final_error (log10), "+caption),
	)
	iterPlot := asciigraph.Plot(iters,
		asciigraph.Height(plotHeight/2),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("iterations, "+caption),
	)
	return errPlot + "\n\n" + iterPlot
}

func log10(values []float64) []float64 {
	floor := math.Inf(1)
	for _, v := range values {
		if v > 0 {
			floor = math.Min(floor, v)
		}
	}
	if math.IsInf(floor, 1) {
		floor = 1
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Log10(math.Max(v, floor))
	}
	return out
}
