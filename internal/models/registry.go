package models

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
)

// Params are the knobs shared by the world builders. Zero values fall back
// to the builder defaults.
type Params struct {
	Mass    float64 `yaml:"mass"`
	Length  float64 `yaml:"length"`
	Damping float64 `yaml:"damping"`
	Theta   float64 `yaml:"theta"`
	Theta2  float64 `yaml:"theta2"`
	Links   int     `yaml:"links"`
	Count   int     `yaml:"count"`
	Height  float64 `yaml:"height"`
	Thrust  float64 `yaml:"thrust"` // per rotor, newtons
	Hover   bool    `yaml:"hover"`  // overrides Thrust with the hover thrust
}

type builder func(p Params) []*body.Body

var builders = map[string]builder{
	"pendulum": func(p Params) []*body.Body {
		m := NewPendulum()
		m.Mass = or(p.Mass, m.Mass)
		m.Length = or(p.Length, m.Length)
		m.Damping = p.Damping
		m.Theta = p.Theta
		return []*body.Body{m.Body("pendulum")}
	},
	"double_pendulum": func(p Params) []*body.Body {
		m := NewDoublePendulum()
		m.M1 = or(p.Mass, m.M1)
		m.M2 = m.M1
		m.L1 = or(p.Length, m.L1)
		m.L2 = m.L1
		m.Theta1, m.Theta2 = p.Theta, p.Theta2
		return []*body.Body{m.Body("double_pendulum")}
	},
	"chain": func(p Params) []*body.Body {
		n := p.Links
		if n <= 0 {
			n = 5
		}
		m := NewChain(n)
		m.Mass = or(p.Mass, m.Mass)
		m.Length = or(p.Length, m.Length)
		m.Damping = p.Damping
		m.Theta = p.Theta
		return []*body.Body{m.Body("chain")}
	},
	"drone": func(p Params) []*body.Body {
		m := NewDrone()
		m.Mass = or(p.Mass, m.Mass)
		m.Height = or(p.Height, m.Height)
		b := m.Body("drone")
		thrust := p.Thrust
		if p.Hover {
			thrust = m.HoverThrust()
		}
		SetThrust(b, thrust)
		return []*body.Body{b, Floor("floor", 0)}
	},
	"balls": func(p Params) []*body.Body {
		n := p.Count
		if n <= 0 {
			n = 3
		}
		mass := or(p.Mass, DefaultMass)
		height := or(p.Height, 1)
		bodies := []*body.Body{Floor("floor", 0)}
		for i := 0; i < n; i++ {
			pos := mgl64.Vec3{float64(i) * 0.5, 0, height + 0.3*float64(i)}
			bodies = append(bodies, Ball(fmt.Sprintf("ball%d", i), mass, 0.1, pos))
		}
		return bodies
	},
}

// Build returns the bodies of the named world.
func Build(name string, p Params) ([]*body.Body, error) {
	fn, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(p), nil
}

func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func or(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
