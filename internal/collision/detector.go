// Package collision finds contacts between the links of simulated bodies.
package collision

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
)

type Contact struct {
	Point  mgl64.Vec3 // world position
	Normal mgl64.Vec3 // from link A towards link B
	Depth  float64
}

// LinkPair is one colliding pair of links with its contact points.
type LinkPair struct {
	LinkA, LinkB *body.Link
	Contacts     []Contact
}

func (p LinkPair) IsSelfCollision() bool {
	return p.LinkA.Body() == p.LinkB.Body()
}

// Detector is the capability the simulator needs from a collision library.
// Bodies are registered once per run; Detect is called once per step after
// link transforms are up to date.
type Detector interface {
	Name() string
	AddBody(b *body.Body, selfCollision bool)
	MakeReady() bool
	Detect(fn func(pair LinkPair))
	Clear()
}

// Factory builds a detector on first need.
type Factory func() (Detector, error)
