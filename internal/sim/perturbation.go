package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/item"
)

// ElasticStringStiffness is the spring constant of a virtual elastic string
// per kilogram of body mass.
const ElasticStringStiffness = 100.0

type perturbationKey struct {
	item *item.BodyItem
	link int
}

type externalForce struct {
	key      perturbationKey
	seq      uint64
	point    mgl64.Vec3 // link coordinates
	force    mgl64.Vec3 // world coordinates
	duration float64    // simulated seconds, 0 = until cleared
}

type elasticString struct {
	key    perturbationKey
	attach mgl64.Vec3 // link coordinates
	goal   mgl64.Vec3 // world coordinates
}

type forcedPosition struct {
	item *item.BodyItem
	T    mgl64.Mat4
}

// perturbations is an immutable command table. Writers build a modified copy
// and swap it in; the simulation goroutine loads it once per step.
type perturbations struct {
	forces  []externalForce
	strings []elasticString
	forced  []forcedPosition
}

func (p *perturbations) clone() *perturbations {
	if p == nil {
		return &perturbations{}
	}
	return &perturbations{
		forces:  append([]externalForce(nil), p.forces...),
		strings: append([]elasticString(nil), p.strings...),
		forced:  append([]forcedPosition(nil), p.forced...),
	}
}

func (p *perturbations) withForce(f externalForce) *perturbations {
	next := p.clone()
	for i := range next.forces {
		if next.forces[i].key == f.key {
			next.forces[i] = f
			return next
		}
	}
	next.forces = append(next.forces, f)
	return next
}

func (p *perturbations) withString(s elasticString) *perturbations {
	next := p.clone()
	for i := range next.strings {
		if next.strings[i].key == s.key {
			next.strings[i] = s
			return next
		}
	}
	next.strings = append(next.strings, s)
	return next
}

func (p *perturbations) withForced(f forcedPosition) *perturbations {
	next := p.clone()
	for i := range next.forced {
		if next.forced[i].item == f.item {
			next.forced[i] = f
			return next
		}
	}
	next.forced = append(next.forced, f)
	return next
}

func (p *perturbations) isForced(bi *item.BodyItem) bool {
	if p == nil {
		return false
	}
	for _, f := range p.forced {
		if f.item == bi {
			return true
		}
	}
	return false
}

func (p *perturbations) empty() bool {
	return p == nil || len(p.forces)+len(p.strings)+len(p.forced) == 0
}
