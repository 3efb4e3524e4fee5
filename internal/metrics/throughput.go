package metrics

import (
	"time"

	"github.com/san-kum/clifford/internal/sim"
)

// Throughput is the mean number of iterations per second across frames.
type Throughput struct {
	name    string
	iters   int
	elapsed time.Duration
}

func NewThroughput() *Throughput {
	return &Throughput{name: "throughput"}
}

func (t *Throughput) Name() string {
	return t.name
}

func (t *Throughput) Observe(s sim.FrameStats, area int) {
	t.iters += s.Iterations
	t.elapsed += s.Elapsed
}

func (t *Throughput) Value() float64 {
	if t.elapsed <= 0 {
		return 0
	}
	return float64(t.iters) / t.elapsed.Seconds()
}

func (t *Throughput) Reset() {
	t.iters = 0
	t.elapsed = 0
}

// Default returns the metrics every session records.
func Default() []sim.Metric {
	return []sim.Metric{
		NewCoverage(),
		NewSaturation(),
		NewThroughput(),
	}
}
