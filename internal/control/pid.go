package control

import "go.uber.org/zap"

// PID servoes every joint of the body to the same target displacement.
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64

	port     jointPort
	integral []float64
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
	}
}

func (p *PID) Name() string { return "pid" }

func (p *PID) Initialize(io IO) bool {
	opts := Options(io.OptionString())
	for key, dst := range map[string]*float64{"kp": &p.Kp, "ki": &p.Ki, "kd": &p.Kd, "target": &p.Target} {
		v, err := optionFloat(opts, key, *dst)
		if err != nil {
			io.Logger().Warn("ignoring controller option", zap.String("controller", p.Name()), zap.Error(err))
			continue
		}
		*dst = v
	}

	p.port.attach(io)
	if len(p.port.joints) == 0 {
		io.Logger().Warn("pid controller has no joints to drive", zap.String("body", io.Body().Name()))
		return false
	}
	p.integral = make([]float64, len(p.port.joints))
	return true
}

func (p *PID) Input() { p.port.input() }

// Control uses derivative on measurement so a target change does not kick.
func (p *PID) Control() error {
	dt := p.port.io.TimeStep()
	for i := range p.port.q {
		err := p.Target - p.port.q[i]
		p.integral[i] += err * dt
		p.port.u[i] = p.Kp*err + p.Ki*p.integral[i] - p.Kd*p.port.dq[i]
	}
	return nil
}

func (p *PID) Output() { p.port.output() }

func (p *PID) Stop() {}

// Reset clears integral state
func (p *PID) Reset() {
	for i := range p.integral {
		p.integral[i] = 0
	}
}

// GetParams returns tunable parameters for display
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}
