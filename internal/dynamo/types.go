package dynamo

import (
	"fmt"
	"math"
	"math/rand"
)

// Point is a position in map coordinates.
type Point struct {
	X, Y float64
}

// IsValid reports whether both coordinates are finite.
func (p Point) IsValid() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Params holds the four map coefficients.
type Params struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
	C float64 `json:"c" yaml:"c"`
	D float64 `json:"d" yaml:"d"`
}

func (p Params) IsValid() bool {
	return isFinite(p.A) && isFinite(p.B) && isFinite(p.C) && isFinite(p.D)
}

func (p Params) String() string {
	return fmt.Sprintf("a=%.6f b=%.6f c=%.6f d=%.6f", p.A, p.B, p.C, p.D)
}

// Get returns the coefficient with the given single-letter name.
func (p Params) Get(name string) (float64, error) {
	switch name {
	case "a":
		return p.A, nil
	case "b":
		return p.B, nil
	case "c":
		return p.C, nil
	case "d":
		return p.D, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownParam, name)
}

// With returns a copy of p with one coefficient replaced.
func (p Params) With(name string, value float64) (Params, error) {
	switch name {
	case "a":
		p.A = value
	case "b":
		p.B = value
	case "c":
		p.C = value
	case "d":
		p.D = value
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return p, nil
}

// DefaultStart is the conventional initial point of an orbit.
var DefaultStart = Point{X: 0.1, Y: 0.1}

// CanonicalParams produce the reproducible demo orbit.
var CanonicalParams = Params{
	A: -2.3983540752995394,
	B: -1.8137134453341095,
	C: 0.010788338377923257,
	D: 1.0113015602664608,
}

// Sampling ranges for randomized parameters.
const (
	RandomABMin = -3.0
	RandomABMax = 3.0
	RandomCDMin = -0.5
	RandomCDMax = 1.5
)

// SourceKind enumerates where a canvas gets its parameters from.
type SourceKind int

const (
	SourceFixed SourceKind = iota
	SourceRandomized
)

func (k SourceKind) String() string {
	switch k {
	case SourceFixed:
		return "fixed"
	case SourceRandomized:
		return "random"
	}
	return "unknown"
}

// ParamSource selects the coefficients once, before any iteration happens.
type ParamSource struct {
	Kind   SourceKind
	Params Params
	Seed   int64
}

// Fixed returns a source that always resolves to p.
func Fixed(p Params) ParamSource {
	return ParamSource{Kind: SourceFixed, Params: p}
}

// Randomized returns a source that samples coefficients from seed.
func Randomized(seed int64) ParamSource {
	return ParamSource{Kind: SourceRandomized, Seed: seed}
}

// Resolve produces the concrete coefficients. Randomized sources are
// deterministic for a given seed.
func (s ParamSource) Resolve() (Params, error) {
	var p Params
	switch s.Kind {
	case SourceFixed:
		p = s.Params
	case SourceRandomized:
		rng := rand.New(rand.NewSource(s.Seed))
		p = Params{
			A: uniform(rng, RandomABMin, RandomABMax),
			B: uniform(rng, RandomABMin, RandomABMax),
			C: uniform(rng, RandomCDMin, RandomCDMax),
			D: uniform(rng, RandomCDMin, RandomCDMax),
		}
	default:
		return Params{}, ErrUnknownSource
	}
	if !p.IsValid() {
		return Params{}, ErrInvalidParams
	}
	return p, nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
