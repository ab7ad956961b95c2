package control

import (
	"fmt"
	"sort"
)

// Params configures a controller built by name.
type Params struct {
	Kp, Ki, Kd float64
	Target     float64
	Duration   float64
	Gains      [][]float64
}

var factories = map[string]func(p Params) Controller{
	"none":   func(Params) Controller { return NewNone() },
	"pid":    func(p Params) Controller { return NewPID(p.Kp, p.Ki, p.Kd, p.Target) },
	"manual": func(p Params) Controller { return NewManual(p.Duration) },
	"lqr": func(p Params) Controller {
		if len(p.Gains) == 0 {
			return NewPendulumLQR()
		}
		return NewLQR(p.Gains, nil)
	},
	"lqr_double": func(Params) Controller { return NewDoublePendulumLQR() },
}

func New(name string, p Params) (Controller, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(p), nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
