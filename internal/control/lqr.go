package control

import (
	"github.com/san-kum/bodysim/internal/dynamo"
	"go.uber.org/zap"
)

// LQR applies u = -K (x - target) with x = [q..., dq...]. K has one row per
// joint.
type LQR struct {
	K      [][]float64
	Target dynamo.State

	port jointPort
	x    dynamo.State
}

func NewLQR(k [][]float64, target dynamo.State) *LQR {
	return &LQR{K: k, Target: target}
}

var (
	pendulumGains   = [][]float64{{31.62, 10.0}}
	doublePendGains = [][]float64{
		{50.0, 40.0, 15.0, 10.0},
		{10.0, 35.0, 4.0, 8.0},
	}
)

func NewPendulumLQR() *LQR {
	return NewLQR(pendulumGains, dynamo.State{0, 0})
}

func NewDoublePendulumLQR() *LQR {
	return NewLQR(doublePendGains, dynamo.State{0, 0, 0, 0})
}

func (l *LQR) Name() string { return "lqr" }

func (l *LQR) Initialize(io IO) bool {
	l.port.attach(io)
	n := len(l.port.joints)
	if len(l.K) != n {
		io.Logger().Warn("lqr gain rows do not match joints",
			zap.String("body", io.Body().Name()), zap.Int("rows", len(l.K)), zap.Int("joints", n))
		return false
	}
	for _, row := range l.K {
		if len(row) != 2*n {
			io.Logger().Warn("lqr gain columns do not match state",
				zap.String("body", io.Body().Name()), zap.Int("cols", len(row)), zap.Int("state", 2*n))
			return false
		}
	}
	l.x = make(dynamo.State, 2*n)
	return true
}

func (l *LQR) Input() {
	l.port.input()
	n := len(l.port.q)
	copy(l.x[:n], l.port.q)
	copy(l.x[n:], l.port.dq)
}

func (l *LQR) Control() error {
	if !l.x.IsValid() {
		return dynamo.ErrInvalidState
	}
	for i := range l.port.u {
		u := 0.0
		for j := range l.x {
			target := 0.0
			if j < len(l.Target) {
				target = l.Target[j]
			}
			u -= l.K[i][j] * (l.x[j] - target)
		}
		l.port.u[i] = u
	}
	return nil
}

func (l *LQR) Output() { l.port.output() }

func (l *LQR) Stop() {}
