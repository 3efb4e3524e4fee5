package sim

import (
	"time"

	"github.com/san-kum/clifford/internal/dynamo"
)

// BatchSize is the number of iterations between clock polls in Render.
const BatchSize = 1024

// Sentinel bounds: inverted so that the first real sample widens them.
const (
	unsetMin = 10.0
	unsetMax = -10.0
)

// Bounds is the calibrated visible region in map coordinates.
type Bounds struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
}

func (b Bounds) XRange() float64 { return b.XMax - b.XMin }
func (b Bounds) YRange() float64 { return b.YMax - b.YMin }

// CanvasConfig describes a canvas at construction time.
type CanvasConfig struct {
	Width  int
	Height int
	Start  dynamo.Point
	Source dynamo.ParamSource
}

// Clock is a monotonic time source polled by Render.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock; time.Time carries a monotonic reading.
var SystemClock Clock = systemClock{}

// FrameStats describes one accumulation pass.
type FrameStats struct {
	Frame      int           `json:"frame"`
	Iterations int           `json:"iterations"`
	Elapsed    time.Duration `json:"elapsed"`
	TotalIters uint64        `json:"total_iters"`
	Touched    int           `json:"touched"`
	Maxed      int           `json:"maxed"`
	Clamped    int           `json:"clamped"`
}

// Observer is notified after every frame.
type Observer interface {
	OnFrame(s FrameStats)
}

type Metric interface {
	Name() string
	Observe(s FrameStats, area int)
	Value() float64
	Reset()
}

// SessionConfig controls the calibrate-then-render loop.
type SessionConfig struct {
	CalibrationSamples int
	FrameBudget        time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		CalibrationSamples: 100000,
		FrameBudget:        15 * time.Millisecond,
	}
}

type Result struct {
	Params  dynamo.Params      `json:"params"`
	Bounds  Bounds             `json:"bounds"`
	Frames  []FrameStats       `json:"frames"`
	Metrics map[string]float64 `json:"metrics"`
}
