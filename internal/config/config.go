package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Harro4135/pidlab/internal/controller"
	"github.com/Harro4135/pidlab/internal/loop"
)

const (
	DefaultDt          = 0.1
	DefaultDuration    = 20.0
	DefaultHistorySize = 100
	DefaultSetpoint    = 1.0
	DefaultKp          = 2.0
	DefaultKi          = 0.5
	DefaultKd          = 0.1
)

type Config struct {
	Dt          float64            `yaml:"dt"`
	Duration    float64            `yaml:"duration"`
	HistorySize int                `yaml:"history_size"`
	Setpoint    float64            `yaml:"setpoint"`
	Disturbance float64            `yaml:"disturbance"`
	Controllers []ControllerConfig `yaml:"controllers"`
}

type ControllerConfig struct {
	Name string  `yaml:"name"`
	Mode string  `yaml:"mode"`
	Kp   float64 `yaml:"kp"`
	Ki   float64 `yaml:"ki"`
	Kd   float64 `yaml:"kd"`
}

func DefaultConfig() *Config {
	return &Config{
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		HistorySize: DefaultHistorySize,
		Setpoint:    DefaultSetpoint,
		Controllers: []ControllerConfig{
			{Name: "pid", Mode: "pid", Kp: DefaultKp, Ki: DefaultKi, Kd: DefaultKd},
		},
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
	if err := cfg.Validate(); err != nil {
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

// Validate rejects configurations the engine would reject later, so bad
// files fail at the boundary instead of mid-run.
func (c *Config) Validate() error {
	if math.IsNaN(c.Dt) || math.IsInf(c.Dt, 0) || c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive and finite, got %g", c.Dt)
	}
	if math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) || c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive and finite, got %g", c.Duration)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("config: history_size must be positive, got %d", c.HistorySize)
	}
	if math.IsNaN(c.Setpoint) || math.IsInf(c.Setpoint, 0) {
		return fmt.Errorf("config: setpoint must be finite")
	}
	if math.IsNaN(c.Disturbance) || math.IsInf(c.Disturbance, 0) {
		return fmt.Errorf("config: disturbance must be finite")
	}
	if len(c.Controllers) == 0 {
		return fmt.Errorf("config: at least one controller required")
	}

	seen := make(map[string]bool, len(c.Controllers))
	for _, cc := range c.Controllers {
		if cc.Name == "" {
			return fmt.Errorf("config: controller name must not be empty")
		}
		if seen[cc.Name] {
			return fmt.Errorf("config: duplicate controller name %q", cc.Name)
		}
		seen[cc.Name] = true
		if _, err := controller.ParseMode(cc.Mode); err != nil {
			return fmt.Errorf("config: controller %q: %w", cc.Name, err)
		}
	}
	return nil
}

// LoopConfig maps the file values onto the engine's config.
func (c *Config) LoopConfig() loop.Config {
	return loop.Config{Dt: c.Dt, HistorySize: c.HistorySize}
}

// BuildControllers constructs the configured controllers.
func (c *Config) BuildControllers() ([]*controller.Controller, error) {
	out := make([]*controller.Controller, 0, len(c.Controllers))
	for _, cc := range c.Controllers {
		mode, err := controller.ParseMode(cc.Mode)
		if err != nil {
			return nil, fmt.Errorf("config: controller %q: %w", cc.Name, err)
		}
		out = append(out, controller.New(cc.Name, cc.Kp, cc.Ki, cc.Kd, mode))
	}
	return out, nil
}
