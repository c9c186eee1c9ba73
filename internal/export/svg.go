// Package export writes traces and embeddings as standalone SVG documents.
package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/san-kum/boundembed/internal/knn"
	"github.com/san-kum/boundembed/internal/viz"
)

const (
	background = "#0a0a0a"
	padding    = 0.1
)

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// frame maps data coordinates into a width x height viewport with padding on
// every side. The y axis points up.
type frame struct {
	minX, minY     float64
	rangeX, rangeY float64
	width, height  float64
}

func newFrame(minX, maxX, minY, maxY float64, width, height int) frame {
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * padding
	minY -= rangeY * padding
	return frame{
		minX: minX, minY: minY,
		rangeX: rangeX * (1 + 2*padding), rangeY: rangeY * (1 + 2*padding),
		width: float64(width), height: float64(height),
	}
}

func (f frame) at(x, y float64) (float64, float64) {
	return (x - f.minX) / f.rangeX * f.width, f.height - (y-f.minY)/f.rangeY*f.height
}

// CanvasToSVG converts a Braille canvas to SVG, one circle per raised dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := int(float64(canvas.Width) * scale * 2)
	height := int(float64(canvas.Height) * scale * 4)

	var sb strings.Builder
	header(&sb, width, height)
	sb.WriteString("<g fill=\"#00ff00\">\n")

	r := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TraceToSVG draws an error trace as a polyline. With logScale the y axis is
// log10 of the error; non-positive values are dropped.
func TraceToSVG(trace []float64, width, height int, logScale bool, strokeColor string) string {
	xs := make([]float64, 0, len(trace))
	ys := make([]float64, 0, len(trace))
	for i, v := range trace {
		if logScale {
			if v <= 0 {
				continue
			}
			v = math.Log10(v)
		}
		xs = append(xs, float64(i))
		ys = append(ys, v)
	}
	if len(xs) < 2 {
		return ""
	}

	f := newFrame(xs[0], xs[len(xs)-1], minOf(ys), maxOf(ys), width, height)

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i := range xs {
		x, y := f.at(xs[i], ys[i])
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// ScatterToSVG draws embedded points, and the data graph edges between them
// when edges is non-empty.
func ScatterToSVG(points [][]float64, edges []knn.Edge, width, height int) string {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if len(p) >= 2 {
			xs = append(xs, p[0])
			ys = append(ys, p[1])
		}
	}
	if len(xs) == 0 || len(xs) != len(points) {
		return ""
	}

	f := newFrame(minOf(xs), maxOf(xs), minOf(ys), maxOf(ys), width, height)

	var sb strings.Builder
	header(&sb, width, height)

	if len(edges) > 0 {
		sb.WriteString("<g stroke=\"#444466\" stroke-width=\"0.5\">\n")
		for _, e := range edges {
			if e.Lo >= len(points) || e.Hi >= len(points) {
				continue
			}
			x1, y1 := f.at(xs[e.Lo], ys[e.Lo])
			x2, y2 := f.at(xs[e.Hi], ys[e.Hi])
			fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\"/>\n", x1, y1, x2, y2)
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("<g fill=\"#00ccff\">\n")
	for i := range xs {
		x, y := f.at(xs[i], ys[i])
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"2.5\"/>\n", x, y)
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// WriteFile writes an SVG document, refusing empty ones.
func WriteFile(path, svg string) error {
	if svg == "" {
		return fmt.Errorf("export: nothing to draw")
	}
	return os.WriteFile(path, []byte(svg), 0644)
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		m = math.Max(m, x)
	}
	return m
}
