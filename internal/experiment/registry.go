package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/boundembed/internal/embed"
	"github.com/san-kum/boundembed/internal/metrics"
	"github.com/san-kum/boundembed/internal/solver"
)

// DefaultViolationTolerance is the slack allowed before a pair counts as
// violating its bounds.
const DefaultViolationTolerance = 1e-6

// Registered embedder names.
const (
	EmbedderPolar        = "polar"
	EmbedderPolarDescent = "polar_gd"
)

type Registry struct {
	embedders map[string]func(solver.Config) embed.Embedder
	metrics   map[string]func() metrics.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		embedders: make(map[string]func(solver.Config) embed.Embedder),
		metrics:   make(map[string]func() metrics.Metric),
	}

	r.embedders[EmbedderPolar] = func(cfg solver.Config) embed.Embedder { return embed.NewPolar(cfg) }
	r.embedders[EmbedderPolarDescent] = func(cfg solver.Config) embed.Embedder { return embed.NewPolarDescent(cfg) }

	r.metrics["violation_rate"] = func() metrics.Metric { return metrics.NewViolation(DefaultViolationTolerance) }
	r.metrics["max_excursion"] = func() metrics.Metric { return metrics.NewMaxExcursion() }
	r.metrics["stress"] = func() metrics.Metric { return metrics.NewStress() }

	return r
}

func (r *Registry) RegisterEmbedder(name string, fn func(solver.Config) embed.Embedder) {
	r.embedders[name] = fn
}

func (r *Registry) RegisterMetric(name string, fn func() metrics.Metric) {
	r.metrics[name] = fn
}

func (r *Registry) GetEmbedder(name string, cfg solver.Config) (embed.Embedder, error) {
	fn, ok := r.embedders[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedder: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) GetMetrics(names []string) ([]metrics.Metric, error) {
	out := make([]metrics.Metric, 0, len(names))
	for _, name := range names {
		fn, ok := r.metrics[name]
		if !ok {
			return nil, fmt.Errorf("unknown metric: %s", name)
		}
		out = append(out, fn())
	}
	return out, nil
}

func (r *Registry) ListEmbedders() []string {
	return sortedKeys(r.embedders)
}

func (r *Registry) ListMetrics() []string {
	return sortedKeys(r.metrics)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
