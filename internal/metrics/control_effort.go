package metrics

import (
	"math"

	"github.com/san-kum/bodysim/internal/body"
)

// ControlEffort is the mean over samples of the summed absolute joint
// efforts.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(b *body.Body, t float64) {
	for _, j := range b.Joints() {
		c.sum += math.Abs(j.Joint.U)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
