package metrics

import (
	"math"

	"github.com/san-kum/bodysim/internal/body"
)

const DefaultStabilityThreshold = 100.0

// Stability is the fraction of samples in which every joint position and
// velocity stayed within the threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(b *body.Body, t float64) {
	s.samples++
	for _, j := range b.Joints() {
		if math.Abs(j.Joint.Q) > s.threshold || math.Abs(j.Joint.DQ) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
