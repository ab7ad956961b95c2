package analysis

import (
	"math"
	"strings"
	"testing"
)

func sine(freq, dt float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) * dt)
	}
	return out
}

func TestFFTImpulse(t *testing.T) {
	out := FFT([]float64{1, 0, 0, 0})
	for k, v := range out {
		if v != 1 {
			t.Errorf("bin %d = %v, want 1", k, v)
		}
	}
}

func TestDominantFrequency(t *testing.T) {
	const dt = 0.01
	f, err := DominantFrequency(sine(2.5, dt, 3000), dt)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f-2.5) > 0.05 {
		t.Errorf("frequency = %f, want 2.5", f)
	}
}

func TestDominantFrequencyTooShort(t *testing.T) {
	if _, err := DominantFrequency([]float64{1, 2, 3}, 0.01); err != ErrTooShort {
		t.Errorf("err = %v, want ErrTooShort", err)
	}
}

func TestPoincareSection(t *testing.T) {
	const dt = 0.001
	q := sine(1, dt, 5000)
	dq := make([]float64, len(q))
	for i := range dq {
		dq[i] = 2 * math.Pi * math.Cos(2*math.Pi*float64(i)*dt)
	}
	// q crosses zero going up once per period, with dq at its maximum.
	sec := NewPoincareSection(q, q, dq, 0)
	if len(sec.Points) != 4 {
		t.Fatalf("crossings = %d, want 4", len(sec.Points))
	}
	for _, p := range sec.Points {
		if math.Abs(p.X) > 1e-3 || math.Abs(p.Y-2*math.Pi) > 1e-3 {
			t.Errorf("crossing at %+v", p)
		}
	}
}

func TestPhasePortraitASCII(t *testing.T) {
	p := NewPhasePortrait([]float64{-1, 0, 1}, []float64{0, 1, 0, 5})
	if len(p.Points) != 3 {
		t.Fatalf("points = %d", len(p.Points))
	}
	out := p.ASCII(20, 10)
	if got := strings.Count(out, "\n"); got != 10 {
		t.Errorf("rows = %d", got)
	}
	if !strings.Contains(out, "•") || !strings.Contains(out, "│") {
		t.Errorf("portrait misses points or axis:\n%s", out)
	}
	if (*PhasePortrait)(nil).ASCII(20, 10) != "" {
		t.Error("nil portrait should render empty")
	}
}
