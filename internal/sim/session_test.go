package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/san-kum/clifford/internal/dynamo"
)

type testMetric struct {
	frames int
	iters  int
}

func (m *testMetric) Name() string { return "test" }
func (m *testMetric) Observe(s FrameStats, area int) {
	m.frames++
	m.iters += s.Iterations
}
func (m *testMetric) Value() float64 { return float64(m.iters) }
func (m *testMetric) Reset() {
	m.frames = 0
	m.iters = 0
}

type recordingObserver struct {
	stats []FrameStats
}

func (o *recordingObserver) OnFrame(s FrameStats) { o.stats = append(o.stats, s) }

func newTestSession(t *testing.T) *Session {
	t.Helper()
	clk := &stepClock{now: time.Unix(0, 0), step: time.Millisecond}
	c := newTestCanvas(t, 32, 32, WithClock(clk))
	return NewSession(c, SessionConfig{CalibrationSamples: 10000, FrameBudget: 2 * time.Millisecond})
}

func TestSessionRun(t *testing.T) {
	s := newTestSession(t)
	metric := &testMetric{}
	obs := &recordingObserver{}
	s.AddMetric(metric)
	s.AddObserver(obs)

	result, err := s.Run(context.Background(), 5)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Frames) != 5 {
		t.Errorf("expected 5 frames, got %d", len(result.Frames))
	}
	if len(obs.stats) != 5 {
		t.Errorf("expected 5 observer calls, got %d", len(obs.stats))
	}
	if metric.frames != 5 {
		t.Errorf("expected 5 metric observations, got %d", metric.frames)
	}

	var total uint64
	for i, f := range result.Frames {
		if f.Frame != i {
			t.Errorf("frame %d has index %d", i, f.Frame)
		}
		if f.Iterations != 2*BatchSize {
			t.Errorf("frame %d: expected %d iterations, got %d", i, 2*BatchSize, f.Iterations)
		}
		total += uint64(f.Iterations)
		if f.TotalIters != total {
			t.Errorf("frame %d: expected total %d, got %d", i, total, f.TotalIters)
		}
	}
	if s.Canvas().Iters() != total {
		t.Errorf("expected canvas iters %d, got %d", total, s.Canvas().Iters())
	}
	if result.Metrics["test"] != float64(total) {
		t.Errorf("expected metric %d, got %f", total, result.Metrics["test"])
	}
	if result.Params != dynamo.CanonicalParams {
		t.Errorf("unexpected params %v", result.Params)
	}
}

func TestSessionFrameBeforeStart(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Frame(); !errors.Is(err, dynamo.ErrNotCalibrated) {
		t.Errorf("expected ErrNotCalibrated, got %v", err)
	}
}

func TestSessionInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SessionConfig
		frames int
	}{
		{"zero samples", SessionConfig{CalibrationSamples: 0}, 1},
		{"negative samples", SessionConfig{CalibrationSamples: -1}, 1},
		{"zero frames", SessionConfig{CalibrationSamples: 100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCanvas(t, 8, 8)
			s := NewSession(c, tt.cfg)
			if _, err := s.Run(context.Background(), tt.frames); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSessionRunCanceled(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Run(ctx, 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result == nil || len(result.Frames) != 0 {
		t.Errorf("expected empty partial result, got %+v", result)
	}
}

func TestSessionRecalibrateWidens(t *testing.T) {
	s := newTestSession(t)
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	before := s.Canvas().Bounds()

	if err := s.Recalibrate(1000); err != nil {
		t.Fatalf("recalibrate failed: %v", err)
	}
	after := s.Canvas().Bounds()
	if after.XRange() < before.XRange() || after.YRange() < before.YRange() {
		t.Errorf("bounds shrank: %v -> %v", before, after)
	}
}

func TestSessionSetFrameBudget(t *testing.T) {
	s := newTestSession(t)
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	s.SetFrameBudget(4 * time.Millisecond)
	stats, err := s.Frame()
	if err != nil {
		t.Fatalf("frame failed: %v", err)
	}
	if stats.Iterations != 4*BatchSize {
		t.Errorf("expected %d iterations, got %d", 4*BatchSize, stats.Iterations)
	}
}

func TestFramePool(t *testing.T) {
	c := newTestCanvas(t, 4, 3)
	pool := NewFramePool(4, 3)

	b := pool.Snapshot(c)
	if len(b) != 4*3*4 {
		t.Fatalf("expected %d bytes, got %d", 4*3*4, len(b))
	}
	for i, v := range b {
		if v != 255 {
			t.Fatalf("byte %d: expected 255, got %d", i, v)
		}
	}
	pool.Put(b)

	if got := pool.Get(); len(got) != 4*3*4 {
		t.Errorf("pool returned wrong size: %d", len(got))
	}
}
