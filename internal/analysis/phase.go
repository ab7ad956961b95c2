package analysis

import (
	"strings"
)

type Point struct{ X, Y float64 }

// PhasePortrait is a trajectory projected onto two coordinates.
type PhasePortrait struct {
	Points []Point
}

// NewPhasePortrait pairs x and y sample by sample. The longer series is
// truncated.
func NewPhasePortrait(x, y []float64) *PhasePortrait {
	n := min(len(x), len(y))
	p := &PhasePortrait{Points: make([]Point, n)}
	for i := 0; i < n; i++ {
		p.Points[i] = Point{x[i], y[i]}
	}
	return p
}

// ASCII draws the portrait on a width x height grid, with axes where they
// cross the visible area.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	col := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	for _, pt := range p.Points {
		r, c := row(pt.Y), col(pt.X)
		if r >= 0 && r < height && c >= 0 && c < width {
			grid[r][c] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := 0; r < height; r++ {
			if grid[r][c] == ' ' {
				grid[r][c] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := 0; c < width; c++ {
			if grid[r][c] == ' ' {
				grid[r][c] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, line := range grid {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// NewPoincareSection samples (x, y) each time cross passes threshold going
// up, interpolating between the two samples around the crossing.
func NewPoincareSection(cross, x, y []float64, threshold float64) *PhasePortrait {
	n := min(len(cross), len(x), len(y))
	p := &PhasePortrait{}
	for i := 1; i < n; i++ {
		prev, curr := cross[i-1], cross[i]
		if prev >= threshold || curr < threshold {
			continue
		}
		frac := (threshold - prev) / (curr - prev)
		p.Points = append(p.Points, Point{
			X: x[i-1] + frac*(x[i]-x[i-1]),
			Y: y[i-1] + frac*(y[i]-y[i-1]),
		})
	}
	return p
}
