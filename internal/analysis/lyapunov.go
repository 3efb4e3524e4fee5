package analysis

import (
	"math"

	"github.com/san-kum/clifford/internal/dynamo"
)

// LyapunovTransient is the number of steps discarded before measuring.
const LyapunovTransient = 1000

// Thresholds used by Classify.
const (
	ChaoticThreshold = 0.01
	StableThreshold  = -0.01
)

// LyapunovExponent estimates the largest Lyapunov exponent of the map using
// the trajectory separation method. A positive value indicates chaos.
//
// Algorithm:
// 1. Run two trajectories separated by perturbation along x
// 2. Measure their separation after each step
// 3. Renormalize the separation back to perturbation
// 4. λ ≈ mean of ln(|δ(n)|/|δ(0)|) per step
func LyapunovExponent(p dynamo.Params, start dynamo.Point, n int, perturbation float64) float64 {
	if n <= 0 || perturbation <= 0 || !p.IsValid() || !start.IsValid() {
		return 0
	}

	g := dynamo.NewGenerator(start, p)
	for i := 0; i < LyapunovTransient; i++ {
		g.Step()
	}

	x := g.Current()
	xp := dynamo.Point{X: x.X + perturbation, Y: x.Y}
	d0 := perturbation

	sumLog := 0.0
	count := 0

	for i := 0; i < n; i++ {
		x = dynamo.Next(p, x)
		xp = dynamo.Next(p, xp)
		if !x.IsValid() || !xp.IsValid() {
			break
		}

		dx, dy := xp.X-x.X, xp.Y-x.Y
		sep := math.Hypot(dx, dy)
		if sep == 0 {
			// Both orbits collapsed onto the same point; reseed the offset.
			xp = dynamo.Point{X: x.X + d0, Y: x.Y}
			continue
		}

		sumLog += math.Log(sep / d0)
		count++

		scale := d0 / sep
		xp = dynamo.Point{X: x.X + dx*scale, Y: x.Y + dy*scale}
	}

	if count == 0 {
		return 0
	}
	return sumLog / float64(count)
}

// Classify names the regime suggested by a Lyapunov exponent.
func Classify(lambda float64) string {
	switch {
	case lambda > ChaoticThreshold:
		return "chaotic"
	case lambda < StableThreshold:
		return "fixed point"
	default:
		return "periodic"
	}
}
