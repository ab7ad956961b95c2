package models

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/dynamo"
)

// DoublePendulum is two point masses on massless rods. Its body uses a
// relative second joint; the closed-form equations use absolute angles.
type DoublePendulum struct {
	M1, M2         float64
	L1, L2         float64
	Gravity        float64
	Theta1, Theta2 float64 // initial absolute angles
}

func NewDoublePendulum() *DoublePendulum {
	return &DoublePendulum{
		M1: DefaultMass, M2: DefaultMass,
		L1: DefaultLength, L2: DefaultLength,
		Gravity: DefaultGravity,
	}
}

func (d *DoublePendulum) Body(name string) *body.Body {
	base := body.NewLink("base")
	upper := pointMassLink("upper", d.M1, d.L1, 0)
	upper.QInitial = d.Theta1
	lower := pointMassLink("lower", d.M2, d.L2, 0)
	lower.Offset = mgl64.Translate3D(0, 0, -d.L1)
	lower.QInitial = d.Theta2 - d.Theta1
	base.AppendChild(upper)
	upper.AppendChild(lower)

	b := body.New(name, base)
	b.SetModelName("double_pendulum")
	b.InitializeState()
	return b
}

// AbsoluteState converts joint state [q1, q2, dq1, dq2] to the absolute
// angle state used by Derive and Energy.
func AbsoluteState(q1, q2, dq1, dq2 float64) dynamo.State {
	return dynamo.State{q1, q1 + q2, dq1, dq1 + dq2}
}

func (d *DoublePendulum) StateDim() int   { return 4 }
func (d *DoublePendulum) ControlDim() int { return 1 }

func (d *DoublePendulum) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta1, theta2, omega1, omega2 := x[0], x[1], x[2], x[3]
	m1, m2, l1, l2, g := d.M1, d.M2, d.L1, d.L2, d.Gravity

	delta := theta2 - theta1
	sinD, cosD := math.Sin(delta), math.Cos(delta)

	tau := 0.0
	if len(u) > 0 {
		tau = u[0]
	}

	den1 := (m1+m2)*l1 - m2*l1*cosD*cosD
	den2 := (l2 / l1) * den1

	alpha1 := (m2*l1*omega1*omega1*sinD*cosD +
		m2*g*math.Sin(theta2)*cosD +
		m2*l2*omega2*omega2*sinD -
		(m1+m2)*g*math.Sin(theta1) + tau) / den1

	alpha2 := (-m2*l2*omega2*omega2*sinD*cosD +
		(m1+m2)*g*math.Sin(theta1)*cosD -
		(m1+m2)*l1*omega1*omega1*sinD -
		(m1+m2)*g*math.Sin(theta2)) / den2

	return dynamo.State{omega1, omega2, alpha1, alpha2}
}

func (d *DoublePendulum) Energy(x dynamo.State) float64 {
	theta1, theta2, omega1, omega2 := x[0], x[1], x[2], x[3]
	m1, m2, l1, l2, g := d.M1, d.M2, d.L1, d.L2, d.Gravity

	v1sq := l1 * l1 * omega1 * omega1
	v2sq := l1*l1*omega1*omega1 + l2*l2*omega2*omega2 +
		2*l1*l2*omega1*omega2*math.Cos(theta1-theta2)

	ke := 0.5*m1*v1sq + 0.5*m2*v2sq
	y1 := -l1 * math.Cos(theta1)
	y2 := y1 - l2*math.Cos(theta2)
	pe := m1*g*y1 + m2*g*y2

	return ke + pe
}
