package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Meta       RunMetadata `json:"meta"`
	Trace      []float64   `json:"trace,omitempty"`
	Coords     [][]float64 `json:"coords,omitempty"`
	Points     []int       `json:"n_points,omitempty"`
	Iterations []int       `json:"iterations,omitempty"`
	FinalError []float64   `json:"final_error,omitempty"`
}

// Collect gathers everything stored for a run into one document.
func (s *Store) Collect(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	data := &ExportData{Meta: *meta}
	switch meta.Kind {
	case KindSweep:
		sum, err := s.LoadSweep(runID)
		if err != nil {
			return nil, err
		}
		data.Points = sum.Points
		data.Iterations = sum.Iterations
		data.FinalError = sum.FinalError
	default:
		if data.Trace, err = s.LoadTrace(runID); err != nil {
			return nil, err
		}
		if coords, err := s.LoadCoords(runID); err == nil {
			data.Coords = coords
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return data, nil
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return EncodeJSON(file, data)
}

func EncodeJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
