package dynamo

import "math"

// Generator produces the orbit of a point under the map.
type Generator struct {
	p      Point
	params Params
}

func NewGenerator(start Point, params Params) *Generator {
	return &Generator{p: start, params: params}
}

// Step returns the current point and advances the generator by one
// application of the map.
func (g *Generator) Step() Point {
	cur := g.p
	g.p = Next(g.params, cur)
	return cur
}

// Next applies the map once to pt.
func Next(p Params, pt Point) Point {
	return Point{
		X: math.Sin(p.B*pt.Y) - p.C*math.Sin(p.B*pt.X),
		Y: math.Sin(p.A*pt.X) + p.D*math.Cos(p.A*pt.Y),
	}
}

// Current returns the point the next Step will yield.
func (g *Generator) Current() Point { return g.p }

func (g *Generator) Params() Params { return g.params }
