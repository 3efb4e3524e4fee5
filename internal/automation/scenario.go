// Package automation runs scripted sequences of headless renders.
package automation

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/san-kum/clifford/internal/config"
	"github.com/san-kum/clifford/internal/dynamo"
	"github.com/san-kum/clifford/internal/metrics"
	"github.com/san-kum/clifford/internal/sim"
	"github.com/san-kum/clifford/internal/storage"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted render sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep overrides the base config for one render. Zero values keep
// the base value.
type ScenarioStep struct {
	Name        string         `yaml:"name"`
	Preset      string         `yaml:"preset"`
	Params      *dynamo.Params `yaml:"params"`
	Seed        *int64         `yaml:"seed"`
	Width       int            `yaml:"width"`
	Height      int            `yaml:"height"`
	Calibration int            `yaml:"calibration"`
	BudgetMs    int            `yaml:"budget_ms"`
	Frames      int            `yaml:"frames"`
}

type StepResult struct {
	Name   string
	RunID  string
	Config *config.Config
	Result *sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Config applies the step's overrides to a copy of base.
func (s ScenarioStep) Config(base *config.Config) (*config.Config, error) {
	cfg := *base

	if s.Preset != "" {
		p, ok := config.GetPreset(s.Preset)
		if !ok {
			return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownPreset, s.Preset)
		}
		cfg.SetParams(p)
	}
	if s.Params != nil {
		cfg.SetParams(*s.Params)
	}
	if s.Seed != nil {
		cfg.Params.Source = config.SourceRandom
		cfg.Params.Seed = *s.Seed
	}

	override := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	override(&cfg.Width, s.Width)
	override(&cfg.Height, s.Height)
	override(&cfg.Calibration, s.Calibration)
	override(&cfg.BudgetMs, s.BudgetMs)
	override(&cfg.Frames, s.Frames)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Runner struct {
	Base   *config.Config
	Store  *storage.Store // nil disables saving
	Logger *log.Logger
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the results gathered so far.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		logger.Info("running step", "n", i+1, "of", len(scenario.Steps), "name", name)

		cfg, err := step.Config(r.Base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		sr, err := r.runStep(ctx, cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		sr.Name = name
		results = append(results, sr)
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, cfg *config.Config, logger *log.Logger) (StepResult, error) {
	cc, err := cfg.CanvasConfig()
	if err != nil {
		return StepResult{}, err
	}
	canvas, err := sim.NewCanvas(cc, sim.WithLogger(logger))
	if err != nil {
		return StepResult{}, err
	}
	session := sim.NewSession(canvas, cfg.SessionConfig(), sim.WithSessionLogger(logger))
	for _, m := range metrics.Default() {
		session.AddMetric(m)
	}

	result, err := session.Run(ctx, cfg.Frames)
	if err != nil {
		return StepResult{}, err
	}

	sr := StepResult{Config: cfg, Result: result}
	if r.Store == nil {
		return sr, nil
	}
	sr.RunID, err = r.Store.Save(storage.RunInfo{
		Width:   cfg.Width,
		Height:  cfg.Height,
		Start:   cfg.StartPoint(),
		Source:  cc.Source,
		Session: cfg.SessionConfig(),
	}, result)
	return sr, err
}
