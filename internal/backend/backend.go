package backend

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/collision"
	"github.com/san-kum/bodysim/internal/integrators"
	"github.com/san-kum/bodysim/internal/sim"
	"go.uber.org/zap"
)

const (
	DefaultIntegrator       = "rk4"
	DefaultContactStiffness = 1e4
)

// JointSpace is the reference sim.Backend. All of its methods except
// FinalizeSimulation run on the simulation goroutine.
type JointSpace struct {
	integrator string
	gravity    mgl64.Vec3
	contacts   bool
	stiffness  float64
	log        *zap.Logger

	dt      float64
	systems map[*sim.SimulationBody]*bodySystem
	pairs   []collision.LinkPair
	steps   int
}

type Option func(*JointSpace)

func WithIntegrator(name string) Option {
	return func(j *JointSpace) { j.integrator = name }
}

func WithGravity(g mgl64.Vec3) Option {
	return func(j *JointSpace) { j.gravity = g }
}

// WithContacts enables penalty contact forces from the collision detector.
func WithContacts(stiffness float64) Option {
	return func(j *JointSpace) {
		j.contacts = true
		j.stiffness = stiffness
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(j *JointSpace) {
		if l != nil {
			j.log = l
		}
	}
}

func New(opts ...Option) (*JointSpace, error) {
	j := &JointSpace{
		integrator: DefaultIntegrator,
		gravity:    sim.DefaultGravity,
		stiffness:  DefaultContactStiffness,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	if _, err := integrators.ByName(j.integrator); err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	return j, nil
}

func (j *JointSpace) Gravity() mgl64.Vec3 { return j.gravity }

func (j *JointSpace) WantsContacts() bool { return j.contacts }

// SetContacts receives the pairs found for the coming step. The slice is
// only valid until the step returns.
func (j *JointSpace) SetContacts(pairs []collision.LinkPair) { j.pairs = pairs }

func (j *JointSpace) InitializeSimulation(bodies []*sim.SimulationBody) bool {
	j.systems = make(map[*sim.SimulationBody]*bodySystem, len(bodies))
	j.pairs = nil
	j.steps = 0
	if len(bodies) > 0 {
		j.dt = bodies[0].TimeStep()
	}
	for _, sb := range bodies {
		if _, err := j.system(sb); err != nil {
			j.log.Error("backend initialization failed", zap.String("body", sb.Body().Name()), zap.Error(err))
			return false
		}
	}
	j.log.Debug("backend initialized",
		zap.Int("bodies", len(bodies)), zap.String("integrator", j.integrator), zap.Float64("dt", j.dt))
	return true
}

func (j *JointSpace) system(sb *sim.SimulationBody) (*bodySystem, error) {
	if s, ok := j.systems[sb]; ok {
		return s, nil
	}
	integ, err := integrators.ByName(j.integrator)
	if err != nil {
		return nil, err
	}
	s := newBodySystem(sb.Body(), j.gravity, integ)
	j.systems[sb] = s
	return s, nil
}

func (j *JointSpace) StepSimulation(active []*sim.SimulationBody) bool {
	if j.contacts {
		j.applyContacts()
	}
	for _, sb := range active {
		s, err := j.system(sb)
		if err != nil {
			return false
		}
		t := sb.CurrentTime()
		if root := sb.Body().RootLink(); root.JointType == body.JointFree && !root.HasParentBody() {
			if !j.stepFreeRoot(sb.Body()) {
				j.log.Error("free root state diverged", zap.String("body", sb.Body().Name()))
				return false
			}
		}
		if !s.step(t, j.dt) {
			j.log.Error("joint state diverged", zap.String("body", sb.Body().Name()), zap.Float64("time", t))
			return false
		}
	}
	j.steps++
	return true
}

// applyContacts turns penetration depth into a spring force pushing the
// links apart along the contact normal.
func (j *JointSpace) applyContacts() {
	for _, p := range j.pairs {
		for _, c := range p.Contacts {
			if c.Depth <= 0 {
				continue
			}
			f := c.Normal.Mul(j.stiffness * c.Depth)
			if !p.LinkB.Body().IsStaticModel() {
				p.LinkB.AddExternalForce(c.Point, f)
			}
			if !p.LinkA.Body().IsStaticModel() {
				p.LinkA.AddExternalForce(c.Point, f.Mul(-1))
			}
		}
	}
}

// stepFreeRoot moves a free-floating root as one rigid body carrying the
// whole tree, using semi-implicit Euler.
func (j *JointSpace) stepFreeRoot(b *body.Body) bool {
	root := b.RootLink()
	m := b.TotalMass()
	if m <= 0 {
		return true
	}
	com := b.CenterOfMass()

	force := j.gravity.Mul(m)
	var torque mgl64.Vec3
	for _, l := range b.Links() {
		force = force.Add(l.ExtForce)
		torque = torque.Add(l.ExtTorque).Add(l.Position().Sub(com).Cross(l.ExtForce))
	}

	root.V = root.V.Add(force.Mul(j.dt / m))
	R := root.Rotation()
	inertia := R.Mul3(root.Inertia).Mul3(R.Transpose())
	if inertia.Det() != 0 {
		root.W = root.W.Add(inertia.Inv().Mul3x1(torque).Mul(j.dt))
	}

	pos := root.Position().Add(root.V.Mul(j.dt))
	if angle := root.W.Len() * j.dt; angle > 0 {
		R = mgl64.HomogRotate3D(angle, root.W.Normalize()).Mat3().Mul3(R)
	}
	T := R.Mat4()
	T.SetCol(3, pos.Vec4(1))
	root.T = T
	b.CalcForwardKinematics()

	for _, v := range [...]float64{pos[0], pos[1], pos[2], root.V.Len(), root.W.Len()} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (j *JointSpace) InitializeThread() {
	j.log.Debug("simulation thread started")
}

func (j *JointSpace) FinalizeThread() {
	j.log.Debug("simulation thread finished", zap.Int("steps", j.steps))
}

// FinalizeSimulation drops the per-body systems.
func (j *JointSpace) FinalizeSimulation() {
	j.systems = nil
	j.pairs = nil
}

var (
	_ sim.Backend         = (*JointSpace)(nil)
	_ sim.GravitySource   = (*JointSpace)(nil)
	_ sim.ContactConsumer = (*JointSpace)(nil)
	_ sim.ThreadHooks     = (*JointSpace)(nil)
	_ sim.Finalizer       = (*JointSpace)(nil)
)
