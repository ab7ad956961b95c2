package control

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/dynamo"
	"go.uber.org/zap"
)

type fakeIO struct {
	b       *body.Body
	options string
	time    float64
}

func (f *fakeIO) Body() *body.Body     { return f.b }
func (f *fakeIO) OptionString() string { return f.options }
func (f *fakeIO) TimeStep() float64    { return 0.01 }
func (f *fakeIO) CurrentTime() float64 { return f.time }
func (f *fakeIO) Logger() *zap.Logger  { return zap.NewNop() }

func chain(joints int) *body.Body {
	root := body.NewLink("base")
	parent := root
	for i := 0; i < joints; i++ {
		l := body.NewLink("joint")
		l.JointType = body.JointRevolute
		l.JointAxis = mgl64.Vec3{0, 1, 0}
		parent.AppendChild(l)
		parent = l
	}
	return body.New("chain", root)
}

func step(c Controller) error {
	c.Input()
	err := c.Control()
	c.Output()
	return err
}

func TestNone(t *testing.T) {
	b := chain(2)
	b.Joint(0).Joint.U = 3
	ctrl := NewNone()
	if !ctrl.Initialize(&fakeIO{b: b}) {
		t.Fatal("None should always initialize")
	}
	if err := step(ctrl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, j := range b.Joints() {
		if j.Joint.U != 0 {
			t.Errorf("effort[%d] should be 0, got %f", i, j.Joint.U)
		}
	}
}

func TestPID(t *testing.T) {
	b := chain(1)
	b.Joint(0).Joint.Q = 1.0
	ctrl := NewPID(10.0, 0.1, 5.0, 0.0)
	if !ctrl.Initialize(&fakeIO{b: b}) {
		t.Fatal("initialize failed")
	}
	if err := step(ctrl); err != nil {
		t.Fatal(err)
	}
	if b.Joint(0).Joint.U >= 0 {
		t.Error("PID should output negative effort for positive displacement")
	}
}

func TestPIDOptionOverride(t *testing.T) {
	b := chain(1)
	ctrl := NewPID(10, 0, 0, 0)
	if !ctrl.Initialize(&fakeIO{b: b, options: "kp=2 target=0.5 kd=oops"}) {
		t.Fatal("initialize failed")
	}
	params := ctrl.GetParams()
	if params["Kp"] != 2 || params["Target"] != 0.5 || params["Kd"] != 0 {
		t.Errorf("unexpected params %v", params)
	}
	if err := step(ctrl); err != nil {
		t.Fatal(err)
	}
	if got := b.Joint(0).Joint.U; got != 1.0 {
		t.Errorf("effort = %f, want 1.0", got)
	}
}

func TestPIDWithoutJointsFailsInitialize(t *testing.T) {
	if NewPID(1, 0, 0, 0).Initialize(&fakeIO{b: chain(0)}) {
		t.Error("expected initialize failure for a body without joints")
	}
}

func TestEffortLimits(t *testing.T) {
	b := chain(1)
	b.Joint(0).Limits.ULower = -1
	b.Joint(0).Limits.UUpper = 1
	b.Joint(0).Joint.Q = 10
	ctrl := NewPID(100, 0, 0, 0)
	ctrl.Initialize(&fakeIO{b: b})
	_ = step(ctrl)
	if got := b.Joint(0).Joint.U; got != -1 {
		t.Errorf("effort = %f, want clamped -1", got)
	}
}

func TestLQR(t *testing.T) {
	b := chain(1)
	ctrl := NewLQR([][]float64{{1.0, 2.0}}, dynamo.State{0.0, 0.0})
	if !ctrl.Initialize(&fakeIO{b: b}) {
		t.Fatal("initialize failed")
	}

	_ = step(ctrl)
	if b.Joint(0).Joint.U != 0 {
		t.Errorf("expected zero control at target, got %f", b.Joint(0).Joint.U)
	}

	b.Joint(0).Joint.Q = 1.0
	_ = step(ctrl)
	if b.Joint(0).Joint.U != -1.0 {
		t.Errorf("expected -1 away from target, got %f", b.Joint(0).Joint.U)
	}
}

func TestLQRShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		ctrl *LQR
	}{
		{"rows", NewPendulumLQR()},
		{"cols", NewLQR([][]float64{{1}, {1}}, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ctrl.Initialize(&fakeIO{b: chain(2)}) {
				t.Error("expected initialize failure")
			}
		})
	}
}

func TestDoublePendulumLQR(t *testing.T) {
	b := chain(2)
	ctrl := NewDoublePendulumLQR()
	if !ctrl.Initialize(&fakeIO{b: b}) {
		t.Fatal("initialize failed")
	}
	b.Joint(0).Joint.Q = 0.1
	_ = step(ctrl)
	if b.Joint(0).Joint.U == 0 || b.Joint(1).Joint.U == 0 {
		t.Error("expected effort on both joints")
	}
}

func TestManualFinishes(t *testing.T) {
	b := chain(1)
	io := &fakeIO{b: b}
	ctrl := NewManual(0.05)
	ctrl.Initialize(io)
	ctrl.SetControl([]float64{2})

	if err := step(ctrl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Joint(0).Joint.U != 2 {
		t.Errorf("effort = %f, want 2", b.Joint(0).Joint.U)
	}

	io.time = 0.05
	if err := step(ctrl); !errors.Is(err, dynamo.ErrControllerDone) {
		t.Fatalf("expected ErrControllerDone, got %v", err)
	}
	if b.Joint(0).Joint.U != 0 {
		t.Error("finished manual controller should release the joint")
	}
}

func TestOptions(t *testing.T) {
	opts := Options("  KP=3 verbose target=-1 ")
	if opts["kp"] != "3" || opts["verbose"] != "true" || opts["target"] != "-1" {
		t.Errorf("unexpected options %v", opts)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		c, err := New(name, Params{Kp: 1})
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if c.Name() == "" {
			t.Errorf("%s: empty controller name", name)
		}
	}
	if _, err := New("mpc", Params{}); err == nil {
		t.Error("expected error for unknown controller")
	}
}
