package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	RunMetadata
	Tracks map[string]*Series `json:"tracks"`
}

// Export writes a run with all of its tracks as indented JSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}

	data := ExportData{RunMetadata: *meta, Tracks: make(map[string]*Series, len(meta.Bodies))}
	for _, name := range meta.Bodies {
		series, err := s.LoadTrack(runID, name)
		if err != nil {
			return err
		}
		data.Tracks[name] = series
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
