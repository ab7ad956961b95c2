// Package metrics computes per-body run statistics by observing the
// simulated body after every step.
package metrics

import (
	"sync"

	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/item"
	"github.com/san-kum/bodysim/internal/sim"
)

type Metric interface {
	Name() string
	// Observe is called on the simulation goroutine with the live clone.
	Observe(b *body.Body, t float64)
	Value() float64
	Reset()
}

// Set is a group of metrics observing one body through a post-dynamics
// hook.
type Set struct {
	s  *sim.Simulator
	bi *item.BodyItem
	id int

	mu      sync.Mutex
	metrics []Metric
	sb      *sim.SimulationBody
}

// Attach registers ms on the body of bi for the next run. Hooks are cleared
// when a run ends, so Attach is called once per run.
func Attach(s *sim.Simulator, bi *item.BodyItem, ms ...Metric) *Set {
	set := &Set{s: s, bi: bi, metrics: ms}
	set.id = s.AddPostDynamicsFunc(set.observe)
	return set
}

func (set *Set) observe() {
	if set.sb == nil {
		set.sb = set.s.FindSimulationBody(set.bi)
		if set.sb == nil {
			return
		}
	}
	t := set.s.CurrentTime() + set.sb.TimeStep()

	set.mu.Lock()
	defer set.mu.Unlock()
	for _, m := range set.metrics {
		m.Observe(set.sb.Body(), t)
	}
}

// Values returns the current value of every metric by name.
func (set *Set) Values() map[string]float64 {
	set.mu.Lock()
	defer set.mu.Unlock()
	values := make(map[string]float64, len(set.metrics))
	for _, m := range set.metrics {
		values[m.Name()] = m.Value()
	}
	return values
}

func (set *Set) Detach() {
	set.s.RemovePostDynamicsFunc(set.id)
}

// Default returns the standard metric group for a body under gravity g.
func Default(s *sim.Simulator) []Metric {
	g := s.Gravity()
	return []Metric{
		NewEnergy(g),
		NewEnergyDrift(g),
		NewControlEffort(),
		NewStability(DefaultStabilityThreshold),
	}
}
