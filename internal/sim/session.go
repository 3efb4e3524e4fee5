package sim

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/clifford/internal/dynamo"
)

// Session drives a canvas through one calibration pass followed by any
// number of time-budgeted frames, keeping the iteration bookkeeping and
// notifying observers and metrics after each frame.
type Session struct {
	canvas    *Canvas
	cfg       SessionConfig
	metrics   []Metric
	observers []Observer
	logger    *log.Logger
	frame     int
	started   bool
}

type SessionOption func(*Session)

func WithSessionLogger(l *log.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSession(canvas *Canvas, cfg SessionConfig, opts ...SessionOption) *Session {
	s := &Session{
		canvas:    canvas,
		cfg:       cfg,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Session) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Session) Canvas() *Canvas                { return s.canvas }
func (s *Session) Config() SessionConfig          { return s.cfg }
func (s *Session) Started() bool                  { return s.started }
func (s *Session) SetFrameBudget(d time.Duration) { s.cfg.FrameBudget = d }

// Start runs the calibration pass. It must succeed before Frame is called.
func (s *Session) Start() error {
	if err := s.validateConfig(); err != nil {
		return err
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	start := time.Now()
	if err := s.canvas.Calibrate(s.cfg.CalibrationSamples); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	s.started = true

	b := s.canvas.Bounds()
	s.logger.Info("calibration complete",
		"samples", s.cfg.CalibrationSamples,
		"elapsed", time.Since(start),
		"x", fmt.Sprintf("[%.4f, %.4f]", b.XMin, b.XMax),
		"y", fmt.Sprintf("[%.4f, %.4f]", b.YMin, b.YMax))
	return nil
}

// Recalibrate widens the bounds with n more samples from the current orbit.
func (s *Session) Recalibrate(n int) error {
	if err := s.canvas.Calibrate(n); err != nil {
		return fmt.Errorf("recalibrate: %w", err)
	}
	s.started = true
	return nil
}

// Frame runs one accumulation pass with the configured budget.
func (s *Session) Frame() (FrameStats, error) {
	if !s.started {
		return FrameStats{}, dynamo.ErrNotCalibrated
	}

	start := time.Now()
	n, err := s.canvas.Render(s.cfg.FrameBudget)
	s.canvas.SetIters(s.canvas.Iters() + uint64(n))
	if err != nil {
		return FrameStats{}, fmt.Errorf("frame %d: %w", s.frame, err)
	}

	stats := FrameStats{
		Frame:      s.frame,
		Iterations: n,
		Elapsed:    time.Since(start),
		TotalIters: s.canvas.Iters(),
		Touched:    s.canvas.Touched(),
		Maxed:      s.canvas.Maxed(),
		Clamped:    s.canvas.Clamped(),
	}
	s.frame++

	area := s.canvas.Width() * s.canvas.Height()
	for _, m := range s.metrics {
		m.Observe(stats, area)
	}
	for _, obs := range s.observers {
		obs.OnFrame(stats)
	}

	s.logger.Debug("frame", "n", stats.Frame, "iters", n, "touched", stats.Touched, "maxed", stats.Maxed)
	return stats, nil
}

// Run calibrates if needed and renders frames until the count is reached
// or ctx is done. Cancellation is observed between frames only.
func (s *Session) Run(ctx context.Context, frames int) (*Result, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("frames must be positive, got %d", frames)
	}
	if !s.started {
		if err := s.Start(); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Params:  s.canvas.Params(),
		Frames:  make([]FrameStats, 0, frames),
		Metrics: make(map[string]float64),
	}

	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			s.collect(result)
			return result, ctx.Err()
		default:
		}

		stats, err := s.Frame()
		if err != nil {
			s.collect(result)
			return result, err
		}
		result.Frames = append(result.Frames, stats)
	}

	s.collect(result)
	return result, nil
}

func (s *Session) collect(result *Result) {
	result.Bounds = s.canvas.Bounds()
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Session) validateConfig() error {
	if s.canvas == nil {
		return fmt.Errorf("session has no canvas")
	}
	if s.cfg.CalibrationSamples <= 0 {
		return fmt.Errorf("calibration samples must be positive, got %d", s.cfg.CalibrationSamples)
	}
	return nil
}
