package tui

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
)

const (
	canvasWidth  = 70
	canvasHeight = 20
)

// canvas is a side view of the world: x to the right, z up.
type canvas struct {
	cells [][]rune
	scale float64 // cells per meter
	ox    int
	oz    int
	trail []cell
}

type cell struct{ x, y int }

func newCanvas(scale float64) *canvas {
	cells := make([][]rune, canvasHeight)
	for i := range cells {
		cells[i] = make([]rune, canvasWidth)
	}
	return &canvas{
		cells: cells,
		scale: scale,
		ox:    canvasWidth / 2,
		oz:    canvasHeight / 3,
		trail: make([]cell, 0, 40),
	}
}

func (c *canvas) clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = ' '
		}
	}
}

func (c *canvas) set(x, y int, r rune) {
	if x >= 0 && x < canvasWidth && y >= 0 && y < canvasHeight {
		c.cells[y][x] = r
	}
}

// project maps a world point onto the canvas. Characters are about twice as
// tall as wide, so z is halved.
func (c *canvas) project(p mgl64.Vec3) cell {
	return cell{
		x: c.ox + int(p.X()*c.scale),
		y: c.oz - int(p.Z()*c.scale/2),
	}
}

func (c *canvas) line(a, b cell, r rune) {
	x1, y1, x2, y2 := a.x, a.y, b.x, b.y
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		c.set(x1, y1, r)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawBody draws the links of s, chained in index order, or just the root
// when link positions were not output. The tip of the first body leaves a
// trail.
func (c *canvas) drawBody(s body.Snapshot, traced bool) {
	pts := make([]cell, 0, len(s.Links)+1)
	if len(s.Links) == 0 {
		pts = append(pts, c.project(s.Root.Position))
	}
	for _, l := range s.Links {
		pts = append(pts, c.project(l.Position))
	}
	for i := 1; i < len(pts); i++ {
		c.line(pts[i-1], pts[i], '|')
	}
	c.set(pts[0].x, pts[0].y, '+')
	tip := pts[len(pts)-1]
	if traced {
		c.trail = append(c.trail, tip)
		if len(c.trail) > 40 {
			c.trail = c.trail[1:]
		}
	}
	c.set(tip.x, tip.y, 'O')
}

func (c *canvas) drawTrail() {
	for i, p := range c.trail {
		if c.cells[clamp(p.y, canvasHeight)][clamp(p.x, canvasWidth)] != ' ' {
			continue
		}
		if i < len(c.trail)/2 {
			c.set(p.x, p.y, '.')
		} else {
			c.set(p.x, p.y, 'o')
		}
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
