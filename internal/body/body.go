package body

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Device is a sensor or actuator attached to a link.
type Device struct {
	Name      string
	Kind      string
	LinkIndex int
	On        bool
	Values    []float64
}

func (d *Device) clone() *Device {
	c := *d
	c.Values = append([]float64(nil), d.Values...)
	return &c
}

type Body struct {
	name        string
	modelName   string
	root        *Link
	links       []*Link
	joints      []*Link
	devices     []*Device
	materials   *MaterialTable
	staticModel bool
}

func New(name string, root *Link) *Body {
	b := &Body{name: name, modelName: name}
	b.SetRootLink(root)
	return b
}

func (b *Body) Name() string              { return b.name }
func (b *Body) SetName(name string)       { b.name = name }
func (b *Body) ModelName() string         { return b.modelName }
func (b *Body) SetModelName(name string)  { b.modelName = name }
func (b *Body) RootLink() *Link           { return b.root }
func (b *Body) NumLinks() int             { return len(b.links) }
func (b *Body) Links() []*Link            { return b.links }
func (b *Body) NumJoints() int            { return len(b.joints) }
func (b *Body) Devices() []*Device        { return b.devices }
func (b *Body) Materials() *MaterialTable { return b.materials }

func (b *Body) SetMaterials(m *MaterialTable) { b.materials = m }

func (b *Body) AddDevice(d *Device) {
	b.devices = append(b.devices, d)
}

// SetStaticModel marks the whole body as fixed in the world.
func (b *Body) SetStaticModel(on bool) { b.staticModel = on }

// IsStaticModel reports whether no link of the body can move.
func (b *Body) IsStaticModel() bool {
	if b.staticModel {
		return true
	}
	return b.root != nil && b.root.IsFixedJoint() && len(b.joints) == 0
}

func (b *Body) SetRootLink(root *Link) {
	b.root = root
	b.UpdateLinkTree()
}

// UpdateLinkTree assigns link indices in depth-first order and joint ids in
// the same order for movable joints. It must be called after every change to
// the tree shape.
func (b *Body) UpdateLinkTree() {
	b.links = b.links[:0]
	b.joints = b.joints[:0]
	if b.root == nil {
		return
	}
	var visit func(l *Link)
	visit = func(l *Link) {
		l.index = len(b.links)
		l.body = b
		b.links = append(b.links, l)
		if l.JointType == JointRevolute || l.JointType == JointPrismatic {
			l.JointID = len(b.joints)
			b.joints = append(b.joints, l)
		} else {
			l.JointID = -1
		}
		for c := l.child; c != nil; c = c.sibling {
			visit(c)
		}
	}
	visit(b.root)
}

func (b *Body) Link(index int) *Link {
	if index < 0 || index >= len(b.links) {
		return nil
	}
	return b.links[index]
}

// LinkByName is a linear search and is not meant for the simulation path.
func (b *Body) LinkByName(name string) *Link {
	for _, l := range b.links {
		if l.name == name {
			return l
		}
	}
	return nil
}

func (b *Body) Joint(id int) *Link {
	if id < 0 || id >= len(b.joints) {
		return nil
	}
	return b.joints[id]
}

func (b *Body) Joints() []*Link { return b.joints }

// Mount attaches the root of b to parent, a link of another body.
func (b *Body) Mount(parent *Link, offset mgl64.Mat4) error {
	if parent == nil {
		return fmt.Errorf("mount %s: nil parent link", b.name)
	}
	if parent.body == b {
		return fmt.Errorf("mount %s: parent link belongs to the same body", b.name)
	}
	b.root.parent = parent
	b.root.Offset = offset
	return nil
}

// Unmount detaches b from its parent body, keeping the current world pose.
func (b *Body) Unmount() {
	if b.root.HasParentBody() {
		b.root.parent = nil
	}
}

func (b *Body) ParentBodyLink() *Link {
	if b.root != nil && b.root.HasParentBody() {
		return b.root.parent
	}
	return nil
}

func (b *Body) SetRootPose(T mgl64.Mat4) {
	b.root.T = T
}

// InitializeState resets every joint to its initial displacement.
func (b *Body) InitializeState() {
	for _, j := range b.joints {
		j.Joint = JointState{Q: j.QInitial, QTarget: j.QInitial}
	}
	b.root.V = mgl64.Vec3{}
	b.root.W = mgl64.Vec3{}
	b.ClearExternalForces()
}

func (b *Body) ClearExternalForces() {
	for _, l := range b.links {
		l.ClearExternalForces()
	}
}

// CalcForwardKinematics updates the world transforms of all links from the
// root pose and the joint displacements.
func (b *Body) CalcForwardKinematics() {
	for _, l := range b.links {
		if l == b.root && !l.HasParentBody() {
			continue
		}
		l.T = l.parent.T.Mul4(l.Offset).Mul4(l.JointTransform())
	}
}

func (b *Body) TotalMass() float64 {
	m := 0.0
	for _, l := range b.links {
		m += l.Mass
	}
	return m
}

// CenterOfMass returns the world centre of mass of the body.
func (b *Body) CenterOfMass() mgl64.Vec3 {
	total := 0.0
	var c mgl64.Vec3
	for _, l := range b.links {
		c = c.Add(l.WorldCOM().Mul(l.Mass))
		total += l.Mass
	}
	if total == 0 {
		return b.root.Position()
	}
	return c.Mul(1 / total)
}
