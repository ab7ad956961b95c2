// Package export renders recorded trajectories to files.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/bodysim/internal/analysis"
)

const DefaultStroke = "#00ff00"

// TrajectorySVG draws points as one polyline scaled to width x height.
func TrajectorySVG(points []analysis.Point, width, height int, stroke string) string {
	if len(points) < 2 {
		return ""
	}
	if stroke == "" {
		stroke = DefaultStroke
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
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
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, stroke)

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>
`)
	return sb.String()
}

// TimeSeriesSVG draws values against times.
func TimeSeriesSVG(w io.Writer, times, values []float64, width, height int) error {
	svg := TrajectorySVG(analysis.NewPhasePortrait(times, values).Points, width, height, "")
	if svg == "" {
		return fmt.Errorf("export: need at least two samples")
	}
	_, err := io.WriteString(w, svg)
	return err
}
