// Package automation loads scripted sequences of runs.
package automation

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/bodysim/internal/config"
	"gopkg.in/yaml.v3"
)

// Scenario is a named list of runs executed in order.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step starts from the defaults of World, or from one of its presets, and
// overlays Config. Only the keys present in Config change.
type Step struct {
	Name   string    `yaml:"name"`
	World  string    `yaml:"world"`
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Steps) == 0 {
		return nil, errors.New("scenario has no steps")
	}
	for i := range sc.Steps {
		if sc.Steps[i].Name == "" {
			sc.Steps[i].Name = fmt.Sprintf("step%d", i+1)
		}
	}
	return &sc, nil
}

// Resolve builds and validates the configuration of the step.
func (st *Step) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if st.World != "" {
		cfg.World = st.World
	}
	if st.Preset != "" {
		p := config.GetPreset(cfg.World, st.Preset)
		if p == nil {
			return nil, fmt.Errorf("%s: unknown preset %s for %s", st.Name, st.Preset, cfg.World)
		}
		cfg = p
	}
	if !st.Config.IsZero() {
		if err := st.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", st.Name, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", st.Name, err)
	}
	return cfg, nil
}
