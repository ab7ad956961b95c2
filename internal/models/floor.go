package models

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
)

// FloorRadius is the radius of the sphere standing in for the floor plane.
const FloorRadius = 1000.0

// Floor is a static body whose collision sphere has its top at height z.
func Floor(name string, z float64) *body.Body {
	l := body.NewLink("floor")
	l.Shape = &body.Geometry{Name: "floor", Radius: FloorRadius, Center: mgl64.Vec3{0, 0, -FloorRadius}}
	b := body.New(name, l)
	b.SetModelName("floor")
	b.SetStaticModel(true)
	b.SetRootPose(mgl64.Translate3D(0, 0, z))
	return b
}

// Ball is a free-floating sphere starting at pos.
func Ball(name string, mass, radius float64, pos mgl64.Vec3) *body.Body {
	l := body.NewLink("ball")
	l.JointType = body.JointFree
	l.Mass = mass
	l.Inertia = mgl64.Ident3().Mul(0.4 * mass * radius * radius)
	l.Shape = &body.Geometry{Name: "ball", Radius: radius}
	b := body.New(name, l)
	b.SetModelName("ball")
	b.SetRootPose(mgl64.Translate3D(pos.Elem()))
	return b
}
