package analysis

import (
	"github.com/san-kum/clifford/internal/dynamo"
)

// Orbit is a recorded run of the map.
type Orbit struct {
	Params dynamo.Params
	Points []dynamo.Point
}

// GenerateOrbit discards transient steps from start, then records n points.
func GenerateOrbit(p dynamo.Params, start dynamo.Point, transient, n int) *Orbit {
	if n <= 0 {
		return nil
	}
	g := dynamo.NewGenerator(start, p)
	for i := 0; i < transient; i++ {
		g.Step()
	}

	orbit := &Orbit{Params: p, Points: make([]dynamo.Point, 0, n)}
	for i := 0; i < n; i++ {
		pt := g.Step()
		if !pt.IsValid() {
			break
		}
		orbit.Points = append(orbit.Points, pt)
	}
	return orbit
}

// OrbitToASCII plots the orbit points, padded by 10% on each side.
func OrbitToASCII(orbit *Orbit, width, height int) string {
	if orbit == nil || len(orbit.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := orbit.Points[0].X, orbit.Points[0].X
	minY, maxY := orbit.Points[0].Y, orbit.Points[0].Y
	for _, p := range orbit.Points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	g := newGrid(width, height)

	// Axes first so points draw over them
	if minX <= 0 && minX+rangeX >= 0 {
		col := int(-minX / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			g.set(col, row, '│')
		}
	}
	if minY <= 0 && minY+rangeY >= 0 {
		row := height - 1 - int(-minY/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			g.set(col, row, '─')
		}
	}

	for _, p := range orbit.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		g.set(col, row, '•')
	}
	return g.String()
}

// OrbitSpread is the fraction of cells on a grid x grid lattice over the
// orbit's bounding box that hold at least one point. Orbits that collapse
// to a few points score near zero.
func OrbitSpread(orbit *Orbit, grid int) float64 {
	if orbit == nil || len(orbit.Points) == 0 || grid <= 0 {
		return 0
	}

	minX, maxX := orbit.Points[0].X, orbit.Points[0].X
	minY, maxY := orbit.Points[0].Y, orbit.Points[0].Y
	for _, p := range orbit.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 || rangeY == 0 {
		return 0
	}

	seen := make(map[int]struct{})
	for _, p := range orbit.Points {
		col := min(int((p.X-minX)/rangeX*float64(grid)), grid-1)
		row := min(int((p.Y-minY)/rangeY*float64(grid)), grid-1)
		seen[row*grid+col] = struct{}{}
	}
	return float64(len(seen)) / float64(grid*grid)
}
