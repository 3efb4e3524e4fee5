package storage

import (
	"encoding/json"
	"os"

	"github.com/san-kum/clifford/internal/sim"
)

type ExportData struct {
	Run    RunMetadata      `json:"run"`
	Frames []sim.FrameStats `json:"frames"`
}

// ExportJSON writes a stored run's metadata and frame statistics as one
// JSON document.
func (s *Store) ExportJSON(runID, path string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Frames: frames})
}
