package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/bodysim/internal/body"
	"go.uber.org/zap"
)

// IO is the view of a running simulation given to a controller.
type IO interface {
	// Body returns the simulated clone, not the master model.
	Body() *body.Body
	OptionString() string
	TimeStep() float64
	CurrentTime() float64
	Logger() *zap.Logger
}

type Controller interface {
	Name() string
	// Initialize binds the controller to a run. Returning false excludes the
	// body from the run, or aborts the start if the controller is required.
	Initialize(io IO) bool
	Input()
	// Control computes new efforts. It returns dynamo.ErrControllerDone when
	// the controller has finished its task; any other error freezes the
	// body's efforts for the rest of the run.
	Control() error
	Output()
	Stop()
}

// jointPort buffers joint state between the input, control and output phases.
type jointPort struct {
	io     IO
	joints []*body.Link
	q, dq  []float64
	u      []float64
}

func (p *jointPort) attach(io IO) {
	p.io = io
	p.joints = io.Body().Joints()
	n := len(p.joints)
	p.q = make([]float64, n)
	p.dq = make([]float64, n)
	p.u = make([]float64, n)
}

func (p *jointPort) input() {
	for i, j := range p.joints {
		p.q[i] = j.Joint.Q
		p.dq[i] = j.Joint.DQ
	}
}

func (p *jointPort) output() {
	for i, j := range p.joints {
		j.Joint.U = j.Limits.ClampEffort(p.u[i])
	}
}

// Options parses a whitespace separated list of key=value pairs. Bare words
// map to "true".
func Options(s string) map[string]string {
	opts := make(map[string]string)
	for _, field := range strings.Fields(s) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			value = "true"
		}
		opts[strings.ToLower(key)] = value
	}
	return opts
}

func optionFloat(opts map[string]string, key string, def float64) (float64, error) {
	raw, ok := opts[key]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, fmt.Errorf("option %s: %w", key, err)
	}
	return v, nil
}
