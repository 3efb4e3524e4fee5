package config

import (
	"fmt"
	"os"
	"time"

	"github.com/san-kum/clifford/internal/dynamo"
	"github.com/san-kum/clifford/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth       = 800
	DefaultHeight      = 800
	DefaultCalibration = 100000
	DefaultBudgetMs    = 15
	DefaultFrames      = 200
	DefaultLogLevel    = "info"
)

// Parameter source names accepted in config files and flags.
const (
	SourceFixed  = "fixed"
	SourceRandom = "random"
)

type Config struct {
	Width       int          `yaml:"width"`
	Height      int          `yaml:"height"`
	Start       StartConfig  `yaml:"start"`
	Params      ParamsConfig `yaml:"params"`
	Calibration int          `yaml:"calibration"`
	BudgetMs    int          `yaml:"budget_ms"`
	Frames      int          `yaml:"frames"`
	LogLevel    string       `yaml:"log_level"`
}

type StartConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type ParamsConfig struct {
	Source string  `yaml:"source"`
	A      float64 `yaml:"a"`
	B      float64 `yaml:"b"`
	C      float64 `yaml:"c"`
	D      float64 `yaml:"d"`
	Seed   int64   `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Start: StartConfig{
			X: dynamo.DefaultStart.X,
			Y: dynamo.DefaultStart.Y,
		},
		Params: ParamsConfig{
			Source: SourceFixed,
			A:      dynamo.CanonicalParams.A,
			B:      dynamo.CanonicalParams.B,
			C:      dynamo.CanonicalParams.C,
			D:      dynamo.CanonicalParams.D,
		},
		Calibration: DefaultCalibration,
		BudgetMs:    DefaultBudgetMs,
		Frames:      DefaultFrames,
		LogLevel:    DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Calibration <= 0 {
		return fmt.Errorf("calibration samples must be positive, got %d", c.Calibration)
	}
	if c.BudgetMs < 0 {
		return fmt.Errorf("budget_ms must not be negative, got %d", c.BudgetMs)
	}
	if c.Frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", c.Frames)
	}
	if _, err := c.ParamSource(); err != nil {
		return err
	}
	return nil
}

// ParamSource converts the params section into a dynamo.ParamSource.
func (c *Config) ParamSource() (dynamo.ParamSource, error) {
	switch c.Params.Source {
	case SourceFixed, "":
		return dynamo.Fixed(c.FixedParams()), nil
	case SourceRandom:
		return dynamo.Randomized(c.Params.Seed), nil
	}
	return dynamo.ParamSource{}, fmt.Errorf("%w: %q (want %s or %s)", dynamo.ErrUnknownSource, c.Params.Source, SourceFixed, SourceRandom)
}

func (c *Config) FixedParams() dynamo.Params {
	return dynamo.Params{A: c.Params.A, B: c.Params.B, C: c.Params.C, D: c.Params.D}
}

// SetParams switches the config to a fixed source with p.
func (c *Config) SetParams(p dynamo.Params) {
	c.Params.Source = SourceFixed
	c.Params.A, c.Params.B, c.Params.C, c.Params.D = p.A, p.B, p.C, p.D
}

func (c *Config) StartPoint() dynamo.Point {
	return dynamo.Point{X: c.Start.X, Y: c.Start.Y}
}

func (c *Config) Budget() time.Duration {
	return time.Duration(c.BudgetMs) * time.Millisecond
}

func (c *Config) CanvasConfig() (sim.CanvasConfig, error) {
	src, err := c.ParamSource()
	if err != nil {
		return sim.CanvasConfig{}, err
	}
	return sim.CanvasConfig{
		Width:  c.Width,
		Height: c.Height,
		Start:  c.StartPoint(),
		Source: src,
	}, nil
}

func (c *Config) SessionConfig() sim.SessionConfig {
	return sim.SessionConfig{
		CalibrationSamples: c.Calibration,
		FrameBudget:        c.Budget(),
	}
}
