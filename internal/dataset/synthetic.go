package dataset

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/boundembed/internal/bounds"
)

// SyntheticConfig describes a generated dataset. Distances are exact pairwise
// Euclidean distances widened by a relative slack on both sides.
type SyntheticConfig struct {
	Name   string  `yaml:"name"`
	Points int     `yaml:"points"`
	Dims   int     `yaml:"dims"`
	Slack  float64 `yaml:"slack"`
	Offset float64 `yaml:"offset"`
	Seed   int64   `yaml:"seed"`
}

func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Name:   "synthetic",
		Points: 200,
		Dims:   8,
		Slack:  0.05,
		Offset: 3,
		Seed:   1,
	}
}

// Generate builds a dataset of Points records in Dims dimensions. Records are
// drawn around a common offset so no record has zero norm.
func Generate(cfg SyntheticConfig) (*Dataset, error) {
	if cfg.Points < 2 || cfg.Dims < 1 {
		return nil, fmt.Errorf("dataset: need at least 2 points and 1 dimension, got %d and %d", cfg.Points, cfg.Dims)
	}
	if cfg.Slack < 0 || cfg.Slack >= 1 {
		return nil, fmt.Errorf("dataset: slack must be in [0, 1), got %g", cfg.Slack)
	}

	src := rand.NewPCG(uint64(cfg.Seed), 0x64617461)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}

	n := cfg.Points
	data := mat.NewDense(n, cfg.Dims, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < cfg.Dims; j++ {
			data.Set(i, j, cfg.Offset+normal.Rand())
		}
	}

	score := make([]float64, n)
	for i := range score {
		score[i] = uniform.Rand()
	}

	lo := mat.NewDense(n, n, nil)
	hi := mat.NewDense(n, n, nil)
	row := make([]float64, cfg.Dims)
	other := make([]float64, cfg.Dims)
	for i := 0; i < n; i++ {
		mat.Row(row, i, data)
		for j := i + 1; j < n; j++ {
			mat.Row(other, j, data)
			d := floats.Distance(row, other, 2)
			lo.Set(i, j, d*(1-cfg.Slack))
			lo.Set(j, i, d*(1-cfg.Slack))
			hi.Set(i, j, d*(1+cfg.Slack))
			hi.Set(j, i, d*(1+cfg.Slack))
		}
	}

	dist := bounds.Pair{Lower: lo, Upper: hi}
	corr, err := bounds.Correlation(data, dist)
	if err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = "synthetic"
	}
	return &Dataset{Name: name, Data: data, Score: score, Dist: dist, Corr: corr}, nil
}

// SyntheticLoader serves one generated dataset under its configured name.
type SyntheticLoader struct {
	cfg  SyntheticConfig
	full *Dataset
}

func NewSyntheticLoader(cfg SyntheticConfig) *SyntheticLoader {
	if cfg.Name == "" {
		cfg.Name = "synthetic"
	}
	return &SyntheticLoader{cfg: cfg}
}

func (l *SyntheticLoader) Load(name string, n int) (*Dataset, error) {
	if name != l.cfg.Name {
		return nil, fmt.Errorf("%w: dataset %q (synthetic source serves %q)", ErrDataNotFound, name, l.cfg.Name)
	}
	if l.full == nil {
		ds, err := Generate(l.cfg)
		if err != nil {
			return nil, err
		}
		l.full = ds
	}
	return l.full.Slice(n)
}
