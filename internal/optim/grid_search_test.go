package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/san-kum/clifford/internal/dynamo"
)

func TestLinspace(t *testing.T) {
	g := NewWithT(t)
	g.Expect(Linspace(0, 1, 5)).To(Equal([]float64{0, 0.25, 0.5, 0.75, 1}))
	g.Expect(Linspace(2, 3, 1)).To(Equal([]float64{2}))
	g.Expect(Linspace(0, 1, 0)).To(BeNil())
}

func TestNewGridSearchValidation(t *testing.T) {
	tests := []struct {
		name   string
		params []string
		ranges [][]float64
	}{
		{"no params", nil, nil},
		{"length mismatch", []string{"a", "b"}, [][]float64{{1}}},
		{"unknown param", []string{"z"}, [][]float64{{1}}},
		{"empty range", []string{"a"}, [][]float64{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGridSearch(tt.params, tt.ranges); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSearchFindsMaximum(t *testing.T) {
	g := NewWithT(t)
	gs, err := NewGridSearch([]string{"a", "b"}, [][]float64{Linspace(-2, 2, 5), Linspace(-2, 2, 5)})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(gs.Size()).To(Equal(25))

	// Peak at a=1, b=-1.
	objective := func(_ context.Context, p dynamo.Params) (float64, error) {
		return -((p.A-1)*(p.A-1) + (p.B+1)*(p.B+1)), nil
	}

	base := dynamo.Params{C: 0.3, D: 0.7}
	best, err := gs.Search(context.Background(), base, objective, 3)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(best).To(HaveLen(3))
	g.Expect(best[0].Params).To(Equal(dynamo.Params{A: 1, B: -1, C: 0.3, D: 0.7}))
	g.Expect(best[0].Score).To(BeNumerically("==", 0))
	g.Expect(best[1].Score).To(BeNumerically("<=", best[0].Score))
	g.Expect(best[2].Score).To(BeNumerically("<=", best[1].Score))
}

func TestSearchSkipsFailures(t *testing.T) {
	gs, err := NewGridSearch([]string{"c"}, [][]float64{{0, 1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}

	objective := func(_ context.Context, p dynamo.Params) (float64, error) {
		switch p.C {
		case 1:
			return 0, errors.New("diverged")
		case 2:
			return math.NaN(), nil
		}
		return p.C, nil
	}

	got, err := gs.Search(context.Background(), dynamo.Params{}, objective, 0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 2 || got[0].Params.C != 3 || got[1].Params.C != 0 {
		t.Errorf("unexpected candidates %+v", got)
	}
}

func TestSearchCanceled(t *testing.T) {
	gs, err := NewGridSearch([]string{"a"}, [][]float64{Linspace(0, 1, 10)})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = gs.Search(ctx, dynamo.Params{}, func(context.Context, dynamo.Params) (float64, error) {
		return 1, nil
	}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
