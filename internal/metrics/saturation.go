package metrics

import "github.com/san-kum/clifford/internal/sim"

// Saturation is the fraction of visited pixels that have reached black.
type Saturation struct {
	name    string
	touched int
	maxed   int
}

func NewSaturation() *Saturation {
	return &Saturation{name: "saturation"}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(st sim.FrameStats, area int) {
	s.touched = st.Touched
	s.maxed = st.Maxed
}

func (s *Saturation) Value() float64 {
	if s.touched == 0 {
		return 0
	}
	return float64(s.maxed) / float64(s.touched)
}

func (s *Saturation) Reset() {
	s.touched = 0
	s.maxed = 0
}
