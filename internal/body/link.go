package body

import "github.com/go-gl/mathgl/mgl64"

type JointType int

const (
	JointRevolute JointType = iota
	JointPrismatic
	JointFree
	JointFixed
	JointPseudoContinuousTrack
)

var jointTypeNames = map[JointType]string{
	JointRevolute:              "revolute",
	JointPrismatic:             "prismatic",
	JointFree:                  "free",
	JointFixed:                 "fixed",
	JointPseudoContinuousTrack: "pseudo_continuous_track",
}

func (t JointType) String() string {
	if name, ok := jointTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// JointState is the complete kinematic and dynamic state of one joint.
type JointState struct {
	Q        float64 // displacement
	DQ       float64 // velocity
	DDQ      float64 // acceleration
	U        float64 // effort
	QTarget  float64
	DQTarget float64
}

type JointLimits struct {
	QLower, QUpper   float64
	DQLower, DQUpper float64
	ULower, UUpper   float64
}

// ClampEffort limits u to the effort range. A zero range means unlimited.
func (l JointLimits) ClampEffort(u float64) float64 {
	if l.ULower == 0 && l.UUpper == 0 {
		return u
	}
	return mgl64.Clamp(u, l.ULower, l.UUpper)
}

// Geometry is the collision shape of a link. It is shared between links and
// bodies that reference the same instance.
type Geometry struct {
	Name   string
	Radius float64
	Center mgl64.Vec3 // in link coordinates
}

// MaterialTable maps material names to friction/restitution pairs.
type MaterialTable struct {
	Friction    map[string]float64
	Restitution map[string]float64
}

type Link struct {
	index   int
	name    string
	parent  *Link
	sibling *Link
	child   *Link
	body    *Body

	JointType JointType
	JointID   int
	JointAxis mgl64.Vec3

	// Offset is the transform from the parent link frame at zero displacement.
	Offset mgl64.Mat4
	// T is the world transform, valid after CalcForwardKinematics.
	T mgl64.Mat4
	// V and W are the world linear and angular velocities of a free root.
	V, W mgl64.Vec3

	Joint    JointState
	Limits   JointLimits
	QInitial float64

	Mass    float64
	COM     mgl64.Vec3 // in link coordinates
	Inertia mgl64.Mat3 // about COM, in link coordinates

	// ExtForce and ExtTorque are in world coordinates. ExtTorque is taken
	// about the link origin.
	ExtForce  mgl64.Vec3
	ExtTorque mgl64.Vec3

	Shape    *Geometry
	Material string
	Info     map[string]any
}

func NewLink(name string) *Link {
	return &Link{
		index:     -1,
		name:      name,
		JointType: JointFixed,
		JointID:   -1,
		JointAxis: mgl64.Vec3{0, 0, 1},
		Offset:    mgl64.Ident4(),
		T:         mgl64.Ident4(),
		Inertia:   mgl64.Ident3(),
		Info:      make(map[string]any),
	}
}

func (l *Link) Index() int     { return l.index }
func (l *Link) Name() string   { return l.name }
func (l *Link) Parent() *Link  { return l.parent }
func (l *Link) Sibling() *Link { return l.sibling }
func (l *Link) Child() *Link   { return l.child }
func (l *Link) Body() *Body    { return l.body }

func (l *Link) IsRoot() bool { return l.parent == nil }

// IsBodyRoot reports whether l is the root of its body, including a body
// mounted onto a link of another body.
func (l *Link) IsBodyRoot() bool {
	return l.parent == nil || l.parent.body != l.body
}

// HasParentBody reports whether l is attached to a link of another body.
func (l *Link) HasParentBody() bool {
	return l.parent != nil && l.parent.body != l.body
}

func (l *Link) IsFixedJoint() bool {
	return l.JointType >= JointFixed
}

// IsStatic reports whether the link cannot move in world space.
func (l *Link) IsStatic() bool {
	for link := l; link != nil; link = link.parent {
		if !link.IsFixedJoint() {
			return false
		}
	}
	return true
}

// AppendChild adds child as the last child of l.
func (l *Link) AppendChild(child *Link) {
	child.parent = l
	child.sibling = nil
	if l.child == nil {
		l.child = child
		return
	}
	last := l.child
	for last.sibling != nil {
		last = last.sibling
	}
	last.sibling = child
}

func (l *Link) Position() mgl64.Vec3 {
	return l.T.Col(3).Vec3()
}

func (l *Link) Rotation() mgl64.Mat3 {
	return l.T.Mat3()
}

// WorldCOM returns the centre of mass in world coordinates.
func (l *Link) WorldCOM() mgl64.Vec3 {
	return mgl64.TransformCoordinate(l.COM, l.T)
}

// WorldPoint transforms a point from link to world coordinates.
func (l *Link) WorldPoint(local mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(local, l.T)
}

// AddExternalForce accumulates a world force f acting at the world point p.
func (l *Link) AddExternalForce(p, f mgl64.Vec3) {
	l.ExtForce = l.ExtForce.Add(f)
	l.ExtTorque = l.ExtTorque.Add(p.Sub(l.Position()).Cross(f))
}

func (l *Link) ClearExternalForces() {
	l.ExtForce = mgl64.Vec3{}
	l.ExtTorque = mgl64.Vec3{}
}

// JointTransform returns the displacement transform of the joint at q.
func (l *Link) JointTransform() mgl64.Mat4 {
	switch l.JointType {
	case JointRevolute:
		return mgl64.HomogRotate3D(l.Joint.Q, l.JointAxis.Normalize())
	case JointPrismatic:
		return mgl64.Translate3D(l.JointAxis.Mul(l.Joint.Q).Elem())
	default:
		return mgl64.Ident4()
	}
}

func (l *Link) InfoFloat(key string, def float64) float64 {
	if v, ok := l.Info[key].(float64); ok {
		return v
	}
	return def
}

func (l *Link) SetInfo(key string, value any) {
	if l.Info == nil {
		l.Info = make(map[string]any)
	}
	l.Info[key] = value
}
