package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/clifford/internal/dynamo"
)

// Objective scores one set of coefficients; higher is better.
type Objective func(ctx context.Context, p dynamo.Params) (float64, error)

type Candidate struct {
	Params dynamo.Params
	Score  float64
}

// GridSearch evaluates every combination of the given coefficient values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("need one range per parameter, got %d names and %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if _, err := (dynamo.Params{}).Get(name); err != nil {
			return nil, err
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search scores every grid point, starting from base for the coefficients
// not being searched, and returns the best keep candidates, best first.
// Points whose objective fails or is not finite are skipped.
func (g *GridSearch) Search(ctx context.Context, base dynamo.Params, objective Objective, keep int) ([]Candidate, error) {
	var all []Candidate
	if err := g.searchRecursive(ctx, 0, base, objective, &all); err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if keep > 0 && len(all) > keep {
		all = all[:keep]
	}
	return all, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current dynamo.Params,
	objective Objective,
	out *[]Candidate,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		score, err := objective(ctx, current)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			return nil
		}
		*out = append(*out, Candidate{Params: current, Score: score})
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next, err := current.With(name, val)
		if err != nil {
			return err
		}
		if err := g.searchRecursive(ctx, depth+1, next, objective, out); err != nil {
			return err
		}
	}
	return nil
}

// Linspace returns n evenly spaced values from min to max inclusive.
func Linspace(min, max float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{min}
	}
	out := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range out {
		out[i] = min + float64(i)*step
	}
	out[n-1] = max
	return out
}
