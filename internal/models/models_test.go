package models

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/dynamo"
	"github.com/san-kum/bodysim/internal/integrators"
)

func TestPendulumEquilibrium(t *testing.T) {
	p := NewPendulum()

	dx := p.Derive(dynamo.State{0, 0}, dynamo.Control{0}, 0)

	if math.Abs(dx[0]) > 1e-10 {
		t.Errorf("expected zero velocity at equilibrium, got %f", dx[0])
	}
	if math.Abs(dx[1]) > 1e-10 {
		t.Errorf("expected zero acceleration at equilibrium, got %f", dx[1])
	}
}

func TestPendulumGravity(t *testing.T) {
	p := NewPendulum()

	dx := p.Derive(dynamo.State{math.Pi / 2, 0}, dynamo.Control{0}, 0)

	expected := -p.Gravity / p.Length
	if math.Abs(dx[1]-expected) > 1e-6 {
		t.Errorf("expected acceleration %f, got %f", expected, dx[1])
	}
}

func TestPendulumBody(t *testing.T) {
	p := NewPendulum()
	p.Theta = math.Pi / 2
	b := p.Body("p")

	if b.NumJoints() != 1 {
		t.Fatalf("expected 1 joint, got %d", b.NumJoints())
	}
	if b.Joint(0).Joint.Q != p.Theta {
		t.Errorf("initial angle not applied: %f", b.Joint(0).Joint.Q)
	}
	b.CalcForwardKinematics()
	got := b.Joint(0).WorldCOM()
	if got.Sub(mgl64.Vec3{-1, 0, 0}).Len() > 1e-9 {
		t.Errorf("bob at %v, want (-1, 0, 0)", got)
	}
}

func TestDoublePendulumEnergyAtRest(t *testing.T) {
	d := NewDoublePendulum()

	e := d.Energy(AbsoluteState(0, 0, 0, 0))
	want := -d.Gravity * (d.M1*d.L1 + d.M2*(d.L1+d.L2))
	if math.Abs(e-want) > 1e-9 {
		t.Errorf("energy at rest = %f, want %f", e, want)
	}
}

func TestDoublePendulumBodyUsesRelativeJoint(t *testing.T) {
	d := NewDoublePendulum()
	d.Theta1, d.Theta2 = 0.3, 0.5
	b := d.Body("dp")

	if got := b.Joint(1).Joint.Q; math.Abs(got-0.2) > 1e-12 {
		t.Errorf("relative joint = %f, want 0.2", got)
	}
	abs := AbsoluteState(b.Joint(0).Joint.Q, b.Joint(1).Joint.Q, 0, 0)
	if math.Abs(abs[1]-0.5) > 1e-12 {
		t.Errorf("absolute second angle = %f, want 0.5", abs[1])
	}
}

func TestChainBody(t *testing.T) {
	c := NewChain(4)
	b := c.Body("chain")

	if b.NumJoints() != 4 {
		t.Fatalf("expected 4 joints, got %d", b.NumJoints())
	}
	b.CalcForwardKinematics()
	tip := b.Joint(3).WorldCOM()
	if math.Abs(tip.Z()+DefaultLength) > 1e-9 {
		t.Errorf("chain tip at %v, want z = -%g", tip, DefaultLength)
	}
}

func TestDroneRotorThrust(t *testing.T) {
	d := NewDrone()
	b := d.Body("drone")

	SetThrust(b, d.HoverThrust())
	ApplyRotorThrust(b)

	var total mgl64.Vec3
	for _, l := range b.Links() {
		total = total.Add(l.ExtForce)
	}
	want := mgl64.Vec3{0, 0, d.Mass * d.Gravity}
	if total.Sub(want).Len() > 1e-9 {
		t.Errorf("total thrust = %v, want %v", total, want)
	}
	if math.Abs(b.TotalMass()-d.Mass) > 1e-12 {
		t.Errorf("total mass = %f, want %f", b.TotalMass(), d.Mass)
	}
}

func TestFloorIsStatic(t *testing.T) {
	f := Floor("floor", 0.5)
	if !f.IsStaticModel() {
		t.Error("floor must be static")
	}
	top := f.RootLink().WorldPoint(f.RootLink().Shape.Center).Z() + FloorRadius
	if math.Abs(top-0.5) > 1e-9 {
		t.Errorf("floor top at %f, want 0.5", top)
	}
}

func TestBuild(t *testing.T) {
	for _, name := range Names() {
		bodies, err := Build(name, Params{})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(bodies) == 0 {
			t.Errorf("%s: no bodies", name)
		}
	}
	if _, err := Build("teapot", Params{}); err == nil {
		t.Error("expected error for unknown model")
	}

	bodies, _ := Build("balls", Params{Count: 5})
	if len(bodies) != 6 {
		t.Errorf("expected floor and 5 balls, got %d bodies", len(bodies))
	}
}

func TestBuildDroneThrust(t *testing.T) {
	bodies, err := Build("drone", Params{Hover: true})
	if err != nil {
		t.Fatal(err)
	}
	want := NewDrone().HoverThrust()
	for _, dev := range bodies[0].Devices() {
		if dev.Values[0] != want {
			t.Errorf("%s thrust = %f, want %f", dev.Name, dev.Values[0], want)
		}
	}

	bodies, _ = Build("drone", Params{Thrust: 1.5})
	if got := bodies[0].Devices()[0].Values[0]; got != 1.5 {
		t.Errorf("thrust = %f, want 1.5", got)
	}
}

func relativeEnergyDrift(h dynamo.Hamiltonian, x dynamo.State, dt float64, steps int) float64 {
	integ := integrators.NewRK4()
	u := make(dynamo.Control, h.ControlDim())
	e0 := h.Energy(x)
	worst := 0.0
	for i := 0; i < steps; i++ {
		x = integ.Step(h, x, u, float64(i)*dt, dt)
		worst = math.Max(worst, math.Abs(h.Energy(x)-e0))
	}
	return worst / math.Abs(e0)
}

func TestReferenceModelsConserveEnergy(t *testing.T) {
	tests := []struct {
		name string
		h    dynamo.Hamiltonian
		x0   dynamo.State
	}{
		{"pendulum", NewPendulum(), dynamo.State{1.0, 0}},
		{"double_pendulum", NewDoublePendulum(), dynamo.State{1.0, 0.5, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if drift := relativeEnergyDrift(tt.h, tt.x0, 0.001, 2000); drift > 1e-6 {
				t.Errorf("energy drift %e", drift)
			}
		})
	}
}
