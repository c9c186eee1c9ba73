package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/boundembed/internal/bounds"
)

// ErrDataNotFound indicates a missing dataset or bound artifact.
var ErrDataNotFound = errors.New("dataset: data not found")

// Artifact names inside a dataset directory.
const (
	ArtifactData      = "data"
	ArtifactScore     = "score"
	ArtifactDistLower = "dm_lb"
	ArtifactDistUpper = "dm_ub"
	ArtifactCorrLower = "cm_lb"
	ArtifactCorrUpper = "cm_ub"

	fileExt = ".bmx"
)

// Dataset is the first N records of a named dataset with their bounds.
type Dataset struct {
	Name  string
	Data  *mat.Dense
	Score []float64
	Dist  bounds.Pair
	Corr  bounds.Pair
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	r, _ := d.Data.Dims()
	return r
}

// Slice returns the first n records. The returned dataset shares memory with d.
func (d *Dataset) Slice(n int) (*Dataset, error) {
	if n < 1 || n > d.Len() {
		return nil, fmt.Errorf("dataset: cannot slice %d records from %q (%d available)", n, d.Name, d.Len())
	}
	_, c := d.Data.Dims()
	return &Dataset{
		Name:  d.Name,
		Data:  d.Data.Slice(0, n, 0, c).(*mat.Dense),
		Score: d.Score[:n],
		Dist:  d.Dist.Slice(n),
		Corr:  d.Corr.Slice(n),
	}, nil
}

// Loader supplies the first n records of a named dataset. Implementations
// are deterministic given (name, n).
type Loader interface {
	Load(name string, n int) (*Dataset, error)
}

// DirLoader reads datasets from matrix files under a base directory.
type DirLoader struct {
	baseDir string
}

func NewDirLoader(baseDir string) *DirLoader {
	return &DirLoader{baseDir: baseDir}
}

func (l *DirLoader) path(name, artifact string) string {
	return filepath.Join(l.baseDir, name, artifact+fileExt)
}

func (l *DirLoader) Load(name string, n int) (*Dataset, error) {
	if _, err := os.Stat(filepath.Join(l.baseDir, name)); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: dataset %q in %s", ErrDataNotFound, name, l.baseDir)
		}
		return nil, err
	}

	read := func(artifact string, rows, cols int) (*mat.Dense, error) {
		m, err := ReadMatrix(l.path(name, artifact), rows, cols)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s/%s", ErrDataNotFound, name, artifact)
			}
			return nil, fmt.Errorf("%s/%s: %w", name, artifact, err)
		}
		return m, nil
	}

	data, err := read(ArtifactData, n, 0)
	if err != nil {
		return nil, err
	}
	score, err := read(ArtifactScore, n, 1)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Name: name, Data: data, Score: mat.Col(nil, 0, score)}
	for _, t := range []struct {
		artifact string
		dst      **mat.Dense
	}{
		{ArtifactDistLower, &ds.Dist.Lower},
		{ArtifactDistUpper, &ds.Dist.Upper},
		{ArtifactCorrLower, &ds.Corr.Lower},
		{ArtifactCorrUpper, &ds.Corr.Upper},
	} {
		m, err := read(t.artifact, n, n)
		if err != nil {
			return nil, err
		}
		*t.dst = m
	}
	return ds, nil
}

// List returns the dataset names under the base directory.
func (l *DirLoader) List() ([]string, error) {
	entries, err := os.ReadDir(l.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(l.path(e.Name(), ArtifactData)); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Save writes every artifact of ds under baseDir/ds.Name.
func Save(baseDir string, ds *Dataset) error {
	if ds.Data == nil || ds.Dist.Lower == nil || ds.Dist.Upper == nil || ds.Corr.Lower == nil || ds.Corr.Upper == nil {
		return fmt.Errorf("dataset: %q is missing artifacts", ds.Name)
	}
	dir := filepath.Join(baseDir, ds.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	score := mat.NewDense(len(ds.Score), 1, append([]float64(nil), ds.Score...))
	for artifact, m := range map[string]mat.Matrix{
		ArtifactData:      ds.Data,
		ArtifactScore:     score,
		ArtifactDistLower: ds.Dist.Lower,
		ArtifactDistUpper: ds.Dist.Upper,
		ArtifactCorrLower: ds.Corr.Lower,
		ArtifactCorrUpper: ds.Corr.Upper,
	} {
		if err := WriteMatrix(filepath.Join(dir, artifact+fileExt), m); err != nil {
			return fmt.Errorf("write %s: %w", artifact, err)
		}
	}
	return nil
}
