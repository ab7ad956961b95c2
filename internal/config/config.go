package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/san-kum/bodysim/internal/control"
	"github.com/san-kum/bodysim/internal/integrators"
	"github.com/san-kum/bodysim/internal/logging"
	"github.com/san-kum/bodysim/internal/models"
	"github.com/san-kum/bodysim/internal/observability"
	"github.com/san-kum/bodysim/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDuration = 10.0
	DefaultTheta    = 0.5
	DefaultKp       = 10.0
	DefaultKi       = 0.1
	DefaultKd       = 5.0
	DefaultDataDir  = "runs"
)

type Config struct {
	World            string                      `yaml:"world"`
	Model            models.Params               `yaml:"model"`
	Integrator       string                      `yaml:"integrator"`
	Controller       string                      `yaml:"controller"`
	ControllerParams ControllerConfig            `yaml:"controller_params"`
	Contacts         bool                        `yaml:"contacts"`
	Sim              sim.Config                  `yaml:"sim"`
	Logging          logging.Config              `yaml:"logging"`
	Metrics          MetricsConfig               `yaml:"metrics"`
	Tracing          observability.TracingConfig `yaml:"tracing"`
	DataDir          string                      `yaml:"data_dir"`
}

type ControllerConfig struct {
	Kp       float64 `yaml:"kp"`
	Ki       float64 `yaml:"ki"`
	Kd       float64 `yaml:"kd"`
	Target   float64 `yaml:"target"`
	Duration float64 `yaml:"duration"`
}

type MetricsConfig struct {
	// Addr serves Prometheus metrics while a run is active; empty disables.
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	simCfg := sim.DefaultConfig()
	simCfg.TimeRange = sim.TimeRangeSpecified
	simCfg.TimeLength = DefaultDuration

	return &Config{
		World:      "pendulum",
		Integrator: "rk4",
		Controller: "none",
		Model: models.Params{
			Theta:  DefaultTheta,
			Theta2: DefaultTheta,
		},
		ControllerParams: ControllerConfig{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
		Sim:     simCfg,
		Logging: logging.DefaultConfig(),
		Tracing: observability.DefaultTracingConfig(),
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
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

// Validate checks every name against its registry and the simulator
// section against its own rules.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(models.Names(), c.World) {
		errs = append(errs, fmt.Errorf("unknown world %q", c.World))
	}
	if _, err := integrators.ByName(c.Integrator); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(control.Names(), c.Controller) {
		errs = append(errs, fmt.Errorf("unknown controller %q", c.Controller))
	}
	if err := c.Sim.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) ControlParams() control.Params {
	return control.Params{
		Kp:       c.ControllerParams.Kp,
		Ki:       c.ControllerParams.Ki,
		Kd:       c.ControllerParams.Kd,
		Target:   c.ControllerParams.Target,
		Duration: c.ControllerParams.Duration,
	}
}
