package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Run kinds.
const (
	KindSolve = "solve"
	KindSweep = "sweep"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
	coordsFile   = "coords.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"`
	Dataset    string             `json:"dataset"`
	Embedder   string             `json:"embedder,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Points     int                `json:"points,omitempty"`
	K          int                `json:"k,omitempty"`
	MaxIter    int                `json:"max_iter"`
	Tolerance  float64            `json:"tolerance"`
	CheckEvery int                `json:"check_every"`
	Status     string             `json:"status,omitempty"`
	Iterations int                `json:"iterations,omitempty"`
	FinalError float64            `json:"final_error,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

func (s *Store) newRunDir(kind string) (string, string, error) {
	runID := fmt.Sprintf("%s_%d", kind, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", "", err
	}
	return runID, runDir, nil
}

// SaveRun stores one solve: its metadata, error trace and coordinates.
// coords may be nil.
func (s *Store) SaveRun(meta RunMetadata, trace []float64, coords mat.Matrix) (string, error) {
	runID, runDir, err := s.newRunDir(KindSolve)
	if err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Kind = KindSolve
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	rows := make([][]string, 0, len(trace)+1)
	rows = append(rows, []string{"iteration", "error"})
	for i, e := range trace {
		rows = append(rows, []string{strconv.Itoa(i), formatFloat(e)})
	}
	if err := writeCSV(filepath.Join(runDir, traceFile), rows); err != nil {
		return "", err
	}

	if coords != nil {
		r, c := coords.Dims()
		rows = rows[:0]
		header := []string{"index"}
		for j := 0; j < c; j++ {
			header = append(header, fmt.Sprintf("x%d", j))
		}
		rows = append(rows, header)
		for i := 0; i < r; i++ {
			row := []string{strconv.Itoa(i)}
			for j := 0; j < c; j++ {
				row = append(row, formatFloat(coords.At(i, j)))
			}
			rows = append(rows, row)
		}
		if err := writeCSV(filepath.Join(runDir, coordsFile), rows); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// List returns the metadata of every stored run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTrace returns the error trace of a solve run.
func (s *Store) LoadTrace(runID string) ([]float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		return nil, err
	}

	trace := make([]float64, 0, len(records))
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		trace = append(trace, v)
	}
	return trace, nil
}

// LoadCoords returns the stored coordinates of a solve run, one row per point.
func (s *Store) LoadCoords(runID string) ([][]float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, coordsFile))
	if err != nil {
		return nil, err
	}

	coords := make([][]float64, 0, len(records))
	for _, record := range records {
		row := make([]float64, 0, len(record))
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: bad coordinate %q: %w", field, err)
			}
			row = append(row, v)
		}
		coords = append(coords, row)
	}
	return coords, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, append(data, '\n'))
}

func writeCSV(path string, rows [][]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// readCSV returns all records after the header row.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}

// writeAtomic replaces path so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
