package collision

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
)

type sphereLink struct {
	link   *body.Link
	radius float64
	static bool
}

type sphereBody struct {
	body          *body.Body
	selfCollision bool
	links         []sphereLink
}

// SphereDetector tests the bounding spheres of link shapes. Links without a
// shape never collide and adjacent links of the same body are skipped.
type SphereDetector struct {
	bodies []*sphereBody
	ready  bool
	pairs  int
}

func NewSphereDetector() *SphereDetector {
	return &SphereDetector{}
}

func NewSphereFactory() Factory {
	return func() (Detector, error) { return NewSphereDetector(), nil }
}

func (d *SphereDetector) Name() string { return "sphere" }

func (d *SphereDetector) AddBody(b *body.Body, selfCollision bool) {
	sb := &sphereBody{body: b, selfCollision: selfCollision}
	for _, l := range b.Links() {
		if l.Shape == nil || l.Shape.Radius <= 0 {
			continue
		}
		sb.links = append(sb.links, sphereLink{link: l, radius: l.Shape.Radius, static: l.IsStatic()})
	}
	d.bodies = append(d.bodies, sb)
	d.ready = false
}

// MakeReady reports whether there is at least one candidate pair.
func (d *SphereDetector) MakeReady() bool {
	d.pairs = 0
	for i, a := range d.bodies {
		if a.selfCollision {
			n := len(a.links)
			d.pairs += n * (n - 1) / 2
		}
		for _, b := range d.bodies[i+1:] {
			d.pairs += len(a.links) * len(b.links)
		}
	}
	d.ready = true
	return d.pairs > 0
}

func (d *SphereDetector) Detect(fn func(pair LinkPair)) {
	if !d.ready {
		d.MakeReady()
	}
	for i, a := range d.bodies {
		if a.selfCollision {
			for x := 0; x < len(a.links); x++ {
				for y := x + 1; y < len(a.links); y++ {
					la, lb := a.links[x], a.links[y]
					if adjacent(la.link, lb.link) {
						continue
					}
					d.test(la, lb, fn)
				}
			}
		}
		for _, b := range d.bodies[i+1:] {
			for _, la := range a.links {
				for _, lb := range b.links {
					d.test(la, lb, fn)
				}
			}
		}
	}
}

func (d *SphereDetector) test(a, b sphereLink, fn func(LinkPair)) {
	if a.static && b.static {
		return
	}
	ca := a.link.WorldPoint(a.link.Shape.Center)
	cb := b.link.WorldPoint(b.link.Shape.Center)
	delta := cb.Sub(ca)
	dist := delta.Len()
	depth := a.radius + b.radius - dist
	if depth <= 0 {
		return
	}
	normal := mgl64.Vec3{0, 0, 1}
	if dist > 0 {
		normal = delta.Mul(1 / dist)
	}
	fn(LinkPair{
		LinkA: a.link,
		LinkB: b.link,
		Contacts: []Contact{{
			Point:  ca.Add(normal.Mul(a.radius - depth/2)),
			Normal: normal,
			Depth:  depth,
		}},
	})
}

func (d *SphereDetector) Clear() {
	d.bodies = nil
	d.ready = false
	d.pairs = 0
}

func adjacent(a, b *body.Link) bool {
	return a.Parent() == b || b.Parent() == a
}
