package models

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
)

// Chain is n equal point-mass links hanging from a fixed base.
type Chain struct {
	Links   int
	Mass    float64 // per link
	Length  float64 // per link
	Damping float64
	Theta   float64 // initial angle of the first joint
}

func NewChain(n int) *Chain {
	return &Chain{Links: n, Mass: DefaultMass, Length: DefaultLength / float64(max(n, 1))}
}

func (c *Chain) Body(name string) *body.Body {
	base := body.NewLink("base")
	parent := base
	for i := 0; i < c.Links; i++ {
		l := pointMassLink(fmt.Sprintf("link%d", i), c.Mass, c.Length, c.Damping)
		if i > 0 {
			l.Offset = mgl64.Translate3D(0, 0, -c.Length)
		} else {
			l.QInitial = c.Theta
		}
		parent.AppendChild(l)
		parent = l
	}
	b := body.New(name, base)
	b.SetModelName("chain")
	b.InitializeState()
	return b
}
