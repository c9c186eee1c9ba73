// Package knn builds the k-nearest-neighbour data graph over a distance
// matrix and turns it into a score-ordered incidence matrix.
package knn

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotSquare = errors.New("knn: distance matrix must be square")
	ErrBadK      = errors.New("knn: neighbour count out of range")
)

// Edge joins two nodes. Lo has the lower score (ties broken by index).
type Edge struct {
	Lo, Hi int
}

// Build connects every node to its k nearest neighbours under dm, excluding
// itself. The result is undirected: an edge found from both ends appears once.
func Build(dm mat.Matrix, k int) (*simple.UndirectedGraph, error) {
	r, c := dm.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: got %dx%d", ErrNotSquare, r, c)
	}
	if k < 1 || k >= r {
		return nil, fmt.Errorf("%w: k=%d for %d points", ErrBadK, k, r)
	}

	g := simple.NewUndirectedGraph()
	for i := 0; i < r; i++ {
		g.AddNode(simple.Node(i))
	}

	others := make([]int, 0, r-1)
	for i := 0; i < r; i++ {
		others = others[:0]
		for j := 0; j < r; j++ {
			if j != i {
				others = append(others, j)
			}
		}
		sort.SliceStable(others, func(a, b int) bool {
			return dm.At(i, others[a]) < dm.At(i, others[b])
		})
		for _, j := range others[:k] {
			g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
		}
	}
	return g, nil
}

// EdgeLister is an undirected graph that can enumerate its edges.
type EdgeLister interface {
	graph.Undirected
	Edges() graph.Edges
}

// Edges returns the edges of g oriented by score and sorted by (Lo, Hi).
func Edges(g EdgeLister, score []float64) ([]Edge, error) {
	before := func(a, b int) bool {
		if score[a] != score[b] {
			return score[a] < score[b]
		}
		return a < b
	}

	var out []Edge
	for _, e := range graph.EdgesOf(g.Edges()) {
		a, b := int(e.From().ID()), int(e.To().ID())
		if a < 0 || a >= len(score) || b < 0 || b >= len(score) {
			return nil, fmt.Errorf("knn: node %d-%d has no score (%d scores)", a, b, len(score))
		}
		if before(b, a) {
			a, b = b, a
		}
		out = append(out, Edge{Lo: a, Hi: b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lo != out[j].Lo {
			return out[i].Lo < out[j].Lo
		}
		return out[i].Hi < out[j].Hi
	})
	return out, nil
}

// Incidence returns the (edges × n) matrix with -1 at the lower-score end and
// +1 at the higher-score end of every edge.
func Incidence(edges []Edge, n int) (*mat.Dense, error) {
	if len(edges) == 0 || n < 1 {
		return nil, fmt.Errorf("knn: empty graph (%d edges, %d nodes)", len(edges), n)
	}
	inc := mat.NewDense(len(edges), n, nil)
	for e, ed := range edges {
		if ed.Lo >= n || ed.Hi >= n {
			return nil, fmt.Errorf("knn: edge %d-%d outside %d nodes", ed.Lo, ed.Hi, n)
		}
		inc.Set(e, ed.Lo, -1)
		inc.Set(e, ed.Hi, 1)
	}
	return inc, nil
}

// Mean returns (a+b)/2, the distance matrix the graph is built on.
func Mean(a, b mat.Matrix) *mat.Dense {
	var m mat.Dense
	m.Add(a, b)
	m.Scale(0.5, &m)
	return &m
}
