package models

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
)

// RotorKind is the device kind of a drone rotor. Values[0] is its thrust in
// newtons along the rotor link's +z axis.
const RotorKind = "rotor"

// Drone is a free-flying quadrotor: a hub with four fixed rotor arms.
type Drone struct {
	Mass      float64 // total
	ArmLength float64
	Height    float64 // initial hub height
	Gravity   float64
}

func NewDrone() *Drone {
	return &Drone{
		Mass:      DefaultMass,
		ArmLength: 0.25,
		Height:    1,
		Gravity:   DefaultGravity,
	}
}

func (d *Drone) Body(name string) *body.Body {
	hub := body.NewLink("hub")
	hub.JointType = body.JointFree
	hub.Mass = d.Mass * 0.6
	hub.Inertia = mgl64.Ident3().Mul(0.01)
	hub.Shape = &body.Geometry{Name: "hub", Radius: d.ArmLength * 0.5}

	arms := [4]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0, -1, 0}}
	for i, dir := range arms {
		arm := body.NewLink(fmt.Sprintf("rotor%d", i))
		arm.Offset = mgl64.Translate3D(dir.Mul(d.ArmLength).Elem())
		arm.Mass = d.Mass * 0.1
		arm.Inertia = mgl64.Mat3{}
		hub.AppendChild(arm)
	}

	b := body.New(name, hub)
	b.SetModelName("drone")
	for i := range arms {
		b.AddDevice(&body.Device{
			Name:      fmt.Sprintf("rotor%d", i),
			Kind:      RotorKind,
			LinkIndex: b.LinkByName(fmt.Sprintf("rotor%d", i)).Index(),
			On:        true,
			Values:    []float64{0},
		})
	}
	b.SetRootPose(mgl64.Translate3D(0, 0, d.Height))
	b.CalcForwardKinematics()
	return b
}

// HoverThrust is the per-rotor thrust that balances gravity.
func (d *Drone) HoverThrust() float64 {
	return d.Mass * d.Gravity / 4
}

// ApplyRotorThrust adds the thrust of every running rotor of b as an external
// force. It is meant to run as a mid-dynamics hook.
func ApplyRotorThrust(b *body.Body) {
	for _, dev := range b.Devices() {
		if dev.Kind != RotorKind || !dev.On || len(dev.Values) == 0 {
			continue
		}
		l := b.Link(dev.LinkIndex)
		if l == nil {
			continue
		}
		thrust := math.Max(0, dev.Values[0])
		up := l.Rotation().Mul3x1(mgl64.Vec3{0, 0, 1})
		l.AddExternalForce(l.Position(), up.Mul(thrust))
	}
}

// SetThrust sets the thrust of every rotor of b.
func SetThrust(b *body.Body, thrust float64) {
	for _, dev := range b.Devices() {
		if dev.Kind == RotorKind && len(dev.Values) > 0 {
			dev.Values[0] = thrust
		}
	}
}
