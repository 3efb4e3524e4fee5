package metrics

import "github.com/san-kum/clifford/internal/sim"

// Coverage is the fraction of the canvas visited at least once.
type Coverage struct {
	name    string
	touched int
	area    int
}

func NewCoverage() *Coverage {
	return &Coverage{name: "coverage"}
}

func (c *Coverage) Name() string {
	return c.name
}

func (c *Coverage) Observe(s sim.FrameStats, area int) {
	c.touched = s.Touched
	c.area = area
}

func (c *Coverage) Value() float64 {
	if c.area == 0 {
		return 0
	}
	return float64(c.touched) / float64(c.area)
}

func (c *Coverage) Reset() {
	c.touched = 0
	c.area = 0
}
