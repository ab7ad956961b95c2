package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/bodysim/internal/analysis"
)

func TestTrajectorySVG(t *testing.T) {
	svg := TrajectorySVG([]analysis.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}, 100, 50, "")
	if !strings.HasPrefix(svg, "<?xml") {
		t.Fatalf("missing header: %q", svg[:min(len(svg), 20)])
	}
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected two line segments:\n%s", svg)
	}
	if !strings.Contains(svg, DefaultStroke) {
		t.Error("default stroke not applied")
	}
	if TrajectorySVG([]analysis.Point{{X: 0, Y: 0}}, 100, 50, "") != "" {
		t.Error("single point should render nothing")
	}
}

func TestTimeSeriesSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := TimeSeriesSVG(&buf, []float64{0, 0.1, 0.2}, []float64{1, 2, 3}, 100, 50); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "</svg>") {
		t.Error("incomplete svg")
	}
	if err := TimeSeriesSVG(&buf, []float64{0}, []float64{1}, 100, 50); err == nil {
		t.Error("expected error for one sample")
	}
}
