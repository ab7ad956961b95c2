package config

import (
	"sort"

	"github.com/san-kum/bodysim/internal/models"
	"github.com/san-kum/bodysim/internal/sim"
)

func preset(world string, apply func(c *Config)) *Config {
	c := DefaultConfig()
	c.World = world
	apply(c)
	return c
}

func specified(c *Config, dt, seconds float64) {
	c.Sim.TimeStep = dt
	c.Sim.TimeRange = sim.TimeRangeSpecified
	c.Sim.TimeLength = seconds
}

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"small": preset("pendulum", func(c *Config) {
			c.Model = models.Params{Theta: 0.2}
			specified(c, 0.001, 20)
		}),
		"large": preset("pendulum", func(c *Config) {
			c.Model = models.Params{Theta: 2.5}
			specified(c, 0.001, 20)
		}),
		"damped": preset("pendulum", func(c *Config) {
			c.Model = models.Params{Theta: 1.0, Damping: 0.3}
			specified(c, 0.001, 30)
		}),
		"balance": preset("pendulum", func(c *Config) {
			c.Model = models.Params{Theta: 0.3}
			c.Controller = "pid"
			c.ControllerParams = ControllerConfig{Kp: 40, Ki: 0.5, Kd: 8}
			specified(c, 0.001, 10)
		}),
	},
	"double_pendulum": {
		"symmetric": preset("double_pendulum", func(c *Config) {
			c.Model = models.Params{Theta: 1.5, Theta2: 1.5}
			specified(c, 0.0005, 30)
		}),
		"chaos": preset("double_pendulum", func(c *Config) {
			c.Model = models.Params{Theta: 3.0, Theta2: 3.0}
			specified(c, 0.0005, 60)
		}),
		"gentle": preset("double_pendulum", func(c *Config) {
			c.Model = models.Params{Theta: 0.3, Theta2: 0.3}
			specified(c, 0.001, 30)
		}),
	},
	"chain": {
		"swing": preset("chain", func(c *Config) {
			c.Model = models.Params{Links: 5, Theta: 1.0, Damping: 0.05}
			specified(c, 0.0005, 20)
		}),
		"tail": preset("chain", func(c *Config) {
			c.Model = models.Params{Links: 8, Theta: 1.2}
			specified(c, 0.0005, 120)
			c.Sim.Recording = sim.RecordTail
			c.Sim.TailFrames = 5000
		}),
	},
	"drone": {
		"drop": preset("drone", func(c *Config) {
			c.Model = models.Params{Height: 3}
			c.Contacts = true
			specified(c, 0.001, 3)
		}),
	},
	"balls": {
		"pile": preset("balls", func(c *Config) {
			c.Model = models.Params{Count: 5, Height: 1}
			c.Contacts = true
			c.Integrator = "symplectic"
			specified(c, 0.001, 5)
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(world, name string) *Config {
	worldPresets, ok := Presets[world]
	if !ok {
		return nil
	}
	cfg, ok := worldPresets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(world string) []string {
	worldPresets, ok := Presets[world]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(worldPresets))
	for name := range worldPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
