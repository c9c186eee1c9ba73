package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	meta := RunMetadata{
		Dataset:    "synthetic",
		Seed:       42,
		Points:     3,
		MaxIter:    100,
		Tolerance:  1e-4,
		CheckEvery: 1,
		Status:     "converged",
		Iterations: 2,
		FinalError: 0.25,
		Metrics:    map[string]float64{"violation_rate": 0.5},
	}
	coords := mat.NewDense(3, 2, []float64{0, 0, 1, 0, 0, 1})

	runID, err := st.SaveRun(meta, []float64{1, 0.25}, coords)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	got, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, KindSolve, got.Kind)
	assert.Equal(t, runID, got.ID)
	assert.Equal(t, int64(42), got.Seed)
	assert.Equal(t, 0.5, got.Metrics["violation_rate"])
	assert.False(t, got.Timestamp.IsZero())

	trace, err := st.LoadTrace(runID)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0.25}, trace)

	pts, err := st.LoadCoords(runID)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}, {1, 0}, {0, 1}}, pts)
}

func TestStoreSaveWithoutCoords(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.SaveRun(RunMetadata{Dataset: "path"}, []float64{0.5}, nil)
	require.NoError(t, err)

	_, err = st.LoadCoords(runID)
	assert.True(t, os.IsNotExist(err))

	data, err := st.Collect(runID)
	require.NoError(t, err)
	assert.Nil(t, data.Coords)
	assert.Equal(t, []float64{0.5}, data.Trace)
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	for i := 0; i < 3; i++ {
		_, err := st.SaveRun(RunMetadata{Dataset: "synthetic", Seed: int64(i)}, []float64{1}, nil)
		require.NoError(t, err)
	}

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i := 1; i < len(runs); i++ {
		assert.False(t, runs[i].Timestamp.Before(runs[i-1].Timestamp))
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSweepPersistsEachStep(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	w, err := st.NewSweep(RunMetadata{Dataset: "synthetic", MaxIter: 50})
	require.NoError(t, err)

	sum, err := st.LoadSweep(w.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Len())

	require.NoError(t, w.Append(10, 40, 0.5))

	sum, err = st.LoadSweep(w.ID())
	require.NoError(t, err)
	assert.Equal(t, []int{10}, sum.Points)
	assert.Equal(t, []int{40}, sum.Iterations)
	assert.Equal(t, []float64{0.5}, sum.FinalError)

	require.NoError(t, w.Append(20, 50, 0.125))

	sum, err = st.LoadSweep(w.ID())
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, sum.Points)
	assert.Equal(t, []int{40, 50}, sum.Iterations)
	assert.Equal(t, []float64{0.5, 0.125}, sum.FinalError)
	assert.Equal(t, KindSweep, sum.Meta.Kind)
	assert.Equal(t, 20, sum.Meta.Points)

	for _, name := range []string{ArtifactPoints, ArtifactIterations, ArtifactFinalError} {
		_, err := os.Stat(filepath.Join(w.Dir(), name+".csv"))
		assert.NoError(t, err, name)
	}
}

func TestLoadSweepRejectsSolveRun(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.SaveRun(RunMetadata{}, []float64{1}, nil)
	require.NoError(t, err)

	_, err = st.LoadSweep(runID)
	assert.Error(t, err)
}

func TestLoadSweepTruncatesToShortestArtifact(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	w, err := st.NewSweep(RunMetadata{})
	require.NoError(t, err)
	require.NoError(t, w.Append(10, 1, 0.1))
	require.NoError(t, w.Append(20, 2, 0.2))

	path := filepath.Join(w.Dir(), ArtifactFinalError+".csv")
	require.NoError(t, os.WriteFile(path, []byte("final_error\n0.1\n"), 0644))

	sum, err := st.LoadSweep(w.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Len())
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	w, err := st.NewSweep(RunMetadata{Dataset: "synthetic"})
	require.NoError(t, err)
	require.NoError(t, w.Append(10, 7, 0.01))

	data, err := st.Collect(w.ID())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, ExportJSON(path, data))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "n_points")
	assert.Contains(t, decoded, "final_error")
	assert.NotContains(t, decoded, "trace")

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, data))
	assert.JSONEq(t, string(raw), buf.String())
}
