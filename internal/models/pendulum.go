package models

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/dynamo"
)

const (
	DefaultMass    = 1.0
	DefaultLength  = 1.0
	DefaultGravity = 9.80665
)

var (
	_ dynamo.Hamiltonian = (*Pendulum)(nil)
	_ dynamo.Hamiltonian = (*DoublePendulum)(nil)
)

// pivotAxis is the joint axis of every planar model. With links hanging
// along -z, a positive angle swings the bob towards -x.
var pivotAxis = mgl64.Vec3{0, 1, 0}

// Pendulum is a point mass on a massless rod hinged at the world origin.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
	Theta   float64 // initial angle
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    DefaultMass,
		Length:  DefaultLength,
		Gravity: DefaultGravity,
	}
}

func (p *Pendulum) Body(name string) *body.Body {
	base := body.NewLink("base")
	rod := pointMassLink("rod", p.Mass, p.Length, p.Damping)
	rod.QInitial = p.Theta
	base.AppendChild(rod)
	b := body.New(name, base)
	b.SetModelName("pendulum")
	b.InitializeState()
	return b
}

// The closed-form equations below are the reference the joint-space backend
// is checked against.

func (p *Pendulum) StateDim() int   { return 2 }
func (p *Pendulum) ControlDim() int { return 1 }

func (p *Pendulum) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta, omega := x[0], x[1]

	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) / (p.Mass * p.Length * p.Length)

	return dynamo.State{omega, alpha}
}

func (p *Pendulum) Energy(x dynamo.State) float64 {
	theta, omega := x[0], x[1]
	ke := 0.5 * p.Mass * p.Length * p.Length * omega * omega
	pe := -p.Mass * p.Gravity * p.Length * math.Cos(theta)
	return ke + pe
}

// SmallAnglePeriod is 2π·sqrt(L/g).
func (p *Pendulum) SmallAnglePeriod() float64 {
	return 2 * math.Pi * math.Sqrt(p.Length/p.Gravity)
}

// pointMassLink is a revolute link about pivotAxis whose mass sits at
// length along -z.
func pointMassLink(name string, mass, length, damping float64) *body.Link {
	l := body.NewLink(name)
	l.JointType = body.JointRevolute
	l.JointAxis = pivotAxis
	l.Mass = mass
	l.COM = mgl64.Vec3{0, 0, -length}
	l.Inertia = mgl64.Mat3{}
	l.Shape = &body.Geometry{Name: name, Radius: 0.05 + 0.05*mass, Center: l.COM}
	if damping > 0 {
		l.SetInfo("damping", damping)
	}
	return l
}
