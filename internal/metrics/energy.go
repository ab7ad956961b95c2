package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
)

const velocityEpsilon = 1e-6

// MechanicalEnergy is the kinetic plus potential energy of b under gravity
// g, treating every link as a point mass at its centre of mass. It moves the
// joints to estimate velocities and restores them before returning.
func MechanicalEnergy(b *body.Body, g mgl64.Vec3) float64 {
	links := b.Links()
	joints := b.Joints()
	pos := make([]mgl64.Vec3, len(links))
	for i, l := range links {
		pos[i] = l.WorldCOM()
	}

	q := make([]float64, len(joints))
	for i, j := range joints {
		q[i] = j.Joint.Q
		j.Joint.Q += velocityEpsilon * j.Joint.DQ
	}
	b.CalcForwardKinematics()

	root := b.RootLink().V
	energy := 0.0
	for i, l := range links {
		v := l.WorldCOM().Sub(pos[i]).Mul(1 / velocityEpsilon).Add(root)
		energy += 0.5*l.Mass*v.Dot(v) - l.Mass*g.Dot(pos[i])
	}

	for i, j := range joints {
		j.Joint.Q = q[i]
	}
	b.CalcForwardKinematics()
	return energy
}

// Energy is the mean mechanical energy over the run.
type Energy struct {
	name        string
	gravity     mgl64.Vec3
	samples     int
	totalEnergy float64
}

func NewEnergy(gravity mgl64.Vec3) *Energy {
	return &Energy{name: "energy", gravity: gravity}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(b *body.Body, t float64) {
	e.totalEnergy += MechanicalEnergy(b, e.gravity)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation from the first observed
// energy.
type EnergyDrift struct {
	name          string
	gravity       mgl64.Vec3
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(gravity mgl64.Vec3) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", gravity: gravity}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(b *body.Body, t float64) {
	energy := MechanicalEnergy(b, e.gravity)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
