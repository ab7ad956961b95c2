package backend

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/dynamo"
)

// DampingKey is the link info key holding a viscous joint damping
// coefficient.
const DampingKey = "damping"

const biasEpsilon = 1e-6

// bodySystem is the joint-space ODE of one body. The state is
// [q..., dq...]; the control is the joint effort vector.
type bodySystem struct {
	b       *body.Body
	joints  []*body.Link
	gravity mgl64.Vec3
	integ   dynamo.Integrator

	x  dynamo.State
	u  dynamo.Control
	dx dynamo.State

	mass []float64
	rhs  []float64
	jv   []mgl64.Vec3 // per link: n linear Jacobian columns at the COM
	jw   []mgl64.Vec3 // per link: n angular Jacobian columns
	jvd  []mgl64.Vec3 // Jacobian at q + ε·dq, for the bias term
	jwd  []mgl64.Vec3
}

func newBodySystem(b *body.Body, gravity mgl64.Vec3, integ dynamo.Integrator) *bodySystem {
	joints := b.Joints()
	n := len(joints)
	links := b.NumLinks()
	return &bodySystem{
		b:       b,
		joints:  joints,
		gravity: gravity,
		integ:   integ,
		x:       make(dynamo.State, 2*n),
		u:       make(dynamo.Control, n),
		dx:      make(dynamo.State, 2*n),
		mass:    make([]float64, n*n),
		rhs:     make([]float64, n),
		jv:      make([]mgl64.Vec3, links*n),
		jw:      make([]mgl64.Vec3, links*n),
		jvd:     make([]mgl64.Vec3, links*n),
		jwd:     make([]mgl64.Vec3, links*n),
	}
}

func (s *bodySystem) StateDim() int   { return 2 * len(s.joints) }
func (s *bodySystem) ControlDim() int { return len(s.joints) }

// step advances the joints by dt and leaves the body at the new state. It
// reports false when the state stops being finite.
func (s *bodySystem) step(t, dt float64) bool {
	n := len(s.joints)
	if n == 0 {
		return true
	}
	for i, j := range s.joints {
		s.x[i] = j.Joint.Q
		s.x[n+i] = j.Joint.DQ
		s.u[i] = j.Limits.ClampEffort(j.Joint.U)
	}

	next := s.integ.Step(s, s.x, s.u, t, dt)
	if !next.IsValid() {
		return false
	}
	s.derive(next, s.u)
	for i, j := range s.joints {
		j.Joint.Q = next[i]
		j.Joint.DQ = next[n+i]
		j.Joint.DDQ = s.dx[n+i]
	}
	s.setJoints(next[:n])
	return true
}

// Derive evaluates the joint accelerations at x. It moves the body's links,
// so the caller restores the final state after integration.
func (s *bodySystem) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	out := make(dynamo.State, len(x))
	copy(out, s.derive(x, u))
	return out
}

func (s *bodySystem) derive(x dynamo.State, u dynamo.Control) dynamo.State {
	n := len(s.joints)
	q, dq := x[:n], x[n:]

	s.setJoints(q)
	s.jacobians(s.jv, s.jw)

	// J(q + ε·dq) gives dJ/dt·dq by a forward difference.
	for i := range s.joints {
		s.joints[i].Joint.Q = q[i] + biasEpsilon*dq[i]
	}
	s.b.CalcForwardKinematics()
	s.jacobians(s.jvd, s.jwd)
	s.setJoints(q)

	for i := range s.mass {
		s.mass[i] = 0
	}
	for i := range s.rhs {
		s.rhs[i] = 0
	}
	for i, j := range s.joints {
		tau := 0.0
		if i < len(u) {
			tau = u[i]
		}
		s.rhs[i] = tau - j.InfoFloat(DampingKey, 0)*dq[i]
	}

	for li, l := range s.b.Links() {
		jv := s.jv[li*n : (li+1)*n]
		jw := s.jw[li*n : (li+1)*n]
		R := l.Rotation()
		Iw := R.Mul3(l.Inertia).Mul3(R.Transpose())

		var acc, w, alpha mgl64.Vec3
		for k := 0; k < n; k++ {
			w = w.Add(jw[k].Mul(dq[k]))
			acc = acc.Add(s.jvd[li*n+k].Sub(jv[k]).Mul(dq[k] / biasEpsilon))
			alpha = alpha.Add(s.jwd[li*n+k].Sub(jw[k]).Mul(dq[k] / biasEpsilon))
		}

		// bias forces expressed at the COM
		fBias := acc.Mul(l.Mass).Sub(s.gravity.Mul(l.Mass))
		tBias := Iw.Mul3x1(alpha).Add(w.Cross(Iw.Mul3x1(w)))

		// external wrench, torque taken about the link origin
		extF := l.ExtForce
		extT := l.ExtTorque.Add(l.Position().Sub(l.WorldCOM()).Cross(l.ExtForce))

		for r := 0; r < n; r++ {
			s.rhs[r] -= jv[r].Dot(fBias) + jw[r].Dot(tBias)
			s.rhs[r] += jv[r].Dot(extF) + jw[r].Dot(extT)
			for c := 0; c < n; c++ {
				s.mass[r*n+c] += l.Mass*jv[r].Dot(jv[c]) + jw[r].Dot(Iw.Mul3x1(jw[c]))
			}
		}
	}

	for i := range dq {
		s.dx[i] = dq[i]
	}
	if !solve(s.mass, s.rhs, n) {
		for i := range s.rhs {
			s.rhs[i] = 0
		}
	}
	copy(s.dx[n:], s.rhs)
	return s.dx
}

func (s *bodySystem) setJoints(q []float64) {
	for i, j := range s.joints {
		j.Joint.Q = q[i]
	}
	s.b.CalcForwardKinematics()
}

// jacobians fills the COM Jacobian columns of every link for the current
// link transforms.
func (s *bodySystem) jacobians(jv, jw []mgl64.Vec3) {
	n := len(s.joints)
	for li, l := range s.b.Links() {
		row := li * n
		for k := 0; k < n; k++ {
			jv[row+k] = mgl64.Vec3{}
			jw[row+k] = mgl64.Vec3{}
		}
		com := l.WorldCOM()
		for a := l; a != nil && a.Body() == s.b; a = a.Parent() {
			if a.JointID < 0 {
				continue
			}
			axis := a.Rotation().Mul3x1(a.JointAxis.Normalize())
			switch a.JointType {
			case body.JointRevolute:
				jw[row+a.JointID] = axis
				jv[row+a.JointID] = axis.Cross(com.Sub(a.Position()))
			case body.JointPrismatic:
				jv[row+a.JointID] = axis
			}
		}
	}
}
