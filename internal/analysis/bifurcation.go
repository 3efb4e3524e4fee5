package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/clifford/internal/dynamo"
)

// BifurcationPoint holds the distinct x values visited for one parameter value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// BifurcationDiagram sweeps one coefficient of base and records the distinct
// x coordinates the orbit settles on.
//
// Parameters:
// - base: coefficients held fixed during the sweep
// - param: coefficient to sweep ("a", "b", "c" or "d")
// - min, max: range to sweep
// - steps: number of parameter values to test
// - transient, record: iterations discarded, then recorded
func BifurcationDiagram(
	base dynamo.Params,
	param string,
	min, max float64,
	steps, transient, record int,
	start dynamo.Point,
) ([]BifurcationPoint, error) {
	if _, err := base.Get(param); err != nil {
		return nil, err
	}
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil, fmt.Errorf("sweep range: %w", dynamo.ErrInvalidParams)
	}
	if !start.IsValid() {
		return nil, dynamo.ErrInvalidPoint
	}
	if steps <= 1 {
		steps = 2
	}
	stride := (max - min) / float64(steps-1)

	results := make([]BifurcationPoint, 0, steps)
	for i := 0; i < steps; i++ {
		v := min + float64(i)*stride
		p, _ := base.With(param, v)

		g := dynamo.NewGenerator(start, p)
		for j := 0; j < transient; j++ {
			g.Step()
		}

		values := make([]float64, 0, 64)
		seen := make(map[int]bool)
		for j := 0; j < record; j++ {
			pt := g.Step()
			if !pt.IsValid() {
				break
			}
			// Quantize to find distinct values
			key := int(pt.X * 1000)
			if !seen[key] {
				seen[key] = true
				values = append(values, pt.X)
			}
		}

		results = append(results, BifurcationPoint{Param: v, Values: values})
	}
	return results, nil
}

// BifurcationToASCII converts bifurcation data to ASCII art.
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	found := false
	for _, p := range data {
		for _, v := range p.Values {
			if !found {
				minVal, maxVal = v, v
				found = true
				continue
			}
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if !found {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	grid := newGrid(width, height)
	for i, p := range data {
		col := i * width / len(data)
		if col >= width {
			col = width - 1
		}
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			grid.set(col, row, '•')
		}
	}
	return grid.String()
}

type grid [][]rune

func newGrid(width, height int) grid {
	g := make(grid, height)
	for i := range g {
		g[i] = []rune(strings.Repeat(" ", width))
	}
	return g
}

func (g grid) set(col, row int, r rune) {
	if row >= 0 && row < len(g) && col >= 0 && col < len(g[row]) {
		g[row][col] = r
	}
}

func (g grid) String() string {
	var sb strings.Builder
	for _, row := range g {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
