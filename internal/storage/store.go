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

	"github.com/san-kum/clifford/internal/dynamo"
	"github.com/san-kum/clifford/internal/sim"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
)

var framesHeader = []string{"frame", "iterations", "elapsed_ns", "total_iters", "touched", "maxed", "clamped"}

// Store keeps one directory per rendering session. Only statistics are
// written; pixel data never leaves the process.
type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Source      string             `json:"source"`
	Seed        int64              `json:"seed"`
	Params      dynamo.Params      `json:"params"`
	Start       dynamo.Point       `json:"start"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Calibration int                `json:"calibration"`
	BudgetMs    int64              `json:"budget_ms"`
	Frames      int                `json:"frames"`
	Bounds      sim.Bounds         `json:"bounds"`
	Metrics     map[string]float64 `json:"metrics"`
}

// RunInfo describes how a session was set up.
type RunInfo struct {
	Width, Height int
	Start         dynamo.Point
	Source        dynamo.ParamSource
	Session       sim.SessionConfig
}

func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nothing to save")
	}

	ts := s.now()
	runID := fmt.Sprintf("%s_%d", info.Source.Kind, ts.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Timestamp:   ts,
		Source:      info.Source.Kind.String(),
		Seed:        info.Source.Seed,
		Params:      result.Params,
		Start:       info.Start,
		Width:       info.Width,
		Height:      info.Height,
		Calibration: info.Session.CalibrationSamples,
		BudgetMs:    info.Session.FrameBudget.Milliseconds(),
		Frames:      len(result.Frames),
		Bounds:      result.Bounds,
		Metrics:     result.Metrics,
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, framesFile), result.Frames); err != nil {
		return "", err
	}
	return runID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeFrames(path string, frames []sim.FrameStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(framesHeader); err != nil {
		return err
	}
	for _, fs := range frames {
		row := []string{
			strconv.Itoa(fs.Frame),
			strconv.Itoa(fs.Iterations),
			strconv.FormatInt(fs.Elapsed.Nanoseconds(), 10),
			strconv.FormatUint(fs.TotalIters, 10),
			strconv.Itoa(fs.Touched),
			strconv.Itoa(fs.Maxed),
			strconv.Itoa(fs.Clamped),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns stored runs, oldest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
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

func (s *Store) LoadFrames(runID string) ([]sim.FrameStats, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(framesHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.FrameStats{}, nil
	}

	frames := make([]sim.FrameStats, 0, len(records)-1)
	for i, record := range records[1:] {
		fs, err := parseFrame(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", framesFile, i+2, err)
		}
		frames = append(frames, fs)
	}
	return frames, nil
}

func parseFrame(record []string) (sim.FrameStats, error) {
	var ints [7]int64
	for j, field := range record {
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return sim.FrameStats{}, err
		}
		ints[j] = v
	}
	return sim.FrameStats{
		Frame:      int(ints[0]),
		Iterations: int(ints[1]),
		Elapsed:    time.Duration(ints[2]),
		TotalIters: uint64(ints[3]),
		Touched:    int(ints[4]),
		Maxed:      int(ints[5]),
		Clamped:    int(ints[6]),
	}, nil
}

// Delete removes a stored run.
func (s *Store) Delete(runID string) error {
	dir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
