package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/san-kum/clifford/internal/config"
	"github.com/san-kum/clifford/internal/dynamo"
	"github.com/san-kum/clifford/internal/storage"
)

const scenarioYAML = `name: tour
description: two quick renders
steps:
  - name: canonical
    preset: canonical
  - seed: 7
    width: 24
`

func smallBase() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Width, cfg.Height = 32, 32
	cfg.Calibration = 2000
	cfg.BudgetMs = 1
	cfg.Frames = 2
	return cfg
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	g := NewWithT(t)
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sc.Name).To(Equal("tour"))
	g.Expect(sc.Steps).To(HaveLen(2))
	g.Expect(sc.Steps[0].Preset).To(Equal("canonical"))
	g.Expect(*sc.Steps[1].Seed).To(Equal(int64(7)))

	_, err = LoadScenario(writeScenario(t, "name: empty\n"))
	g.Expect(err).To(HaveOccurred())
}

func TestStepConfig(t *testing.T) {
	g := NewWithT(t)
	base := smallBase()

	seed := int64(9)
	cfg, err := ScenarioStep{Seed: &seed, Frames: 5}.Config(base)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Params.Source).To(Equal(config.SourceRandom))
	g.Expect(cfg.Params.Seed).To(Equal(int64(9)))
	g.Expect(cfg.Frames).To(Equal(5))
	g.Expect(cfg.Width).To(Equal(32))
	g.Expect(base.Frames).To(Equal(2), "base must not change")

	p := dynamo.Params{A: 1, B: 2, C: 0.1, D: 0.2}
	cfg, err = ScenarioStep{Params: &p}.Config(base)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.FixedParams()).To(Equal(p))

	_, err = ScenarioStep{Preset: "nope"}.Config(base)
	g.Expect(errors.Is(err, dynamo.ErrUnknownPreset)).To(BeTrue())
}

func TestRunScenarioSaves(t *testing.T) {
	g := NewWithT(t)
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	g.Expect(err).NotTo(HaveOccurred())

	st := storage.New(t.TempDir())
	g.Expect(st.Init()).To(Succeed())

	r := &Runner{Base: smallBase(), Store: st}
	results, err := r.RunScenario(context.Background(), sc)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results).To(HaveLen(2))
	g.Expect(results[0].Name).To(Equal("canonical"))
	g.Expect(results[1].Name).To(Equal("step-2"))
	g.Expect(results[0].Result.Params).To(Equal(dynamo.CanonicalParams))
	g.Expect(results[1].Config.Width).To(Equal(24))

	runs, err := st.List()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(HaveLen(2))
	for _, res := range results {
		g.Expect(res.RunID).NotTo(BeEmpty())
		g.Expect(res.Result.Frames).To(HaveLen(2))
	}
}

func TestRunScenarioStopsOnFailure(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{{Name: "ok"}, {Name: "bad", Preset: "missing"}}}
	r := &Runner{Base: smallBase()}

	results, err := r.RunScenario(context.Background(), sc)
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if len(results) != 1 {
		t.Errorf("expected 1 completed step, got %d", len(results))
	}
	if results[0].RunID != "" {
		t.Error("expected no run id without a store")
	}
}
