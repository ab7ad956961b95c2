package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/bodysim/internal/backend"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/dynamo"
	"github.com/san-kum/bodysim/internal/item"
	"github.com/san-kum/bodysim/internal/models"
	"github.com/san-kum/bodysim/internal/sim"
)

func TestMechanicalEnergyMatchesPendulum(t *testing.T) {
	p := models.NewPendulum()
	p.Theta = math.Pi / 4
	b := p.Body("p")
	b.Joint(0).Joint.DQ = 1.5
	b.CalcForwardKinematics()

	got := MechanicalEnergy(b, sim.DefaultGravity)
	want := p.Energy(dynamo.State{p.Theta, 1.5})
	if math.Abs(got-want) > 1e-4 {
		t.Errorf("energy = %f, want %f", got, want)
	}
	if b.Joint(0).Joint.Q != p.Theta {
		t.Error("joint state must be restored")
	}
}

func TestEnergyReset(t *testing.T) {
	p := models.NewPendulum()
	p.Theta = 1.0
	b := p.Body("p")
	b.CalcForwardKinematics()

	m := NewEnergy(sim.DefaultGravity)
	m.Observe(b, 0)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestControlEffortAndStability(t *testing.T) {
	b := models.NewDoublePendulum().Body("dp")
	b.Joint(0).Joint.U = 2
	b.Joint(1).Joint.U = -1

	effort := NewControlEffort()
	effort.Observe(b, 0)
	effort.Observe(b, 0.01)
	if effort.Value() != 3 {
		t.Errorf("control effort = %f, want 3", effort.Value())
	}

	stab := NewStability(1)
	if stab.Value() != 1 {
		t.Error("no samples should count as stable")
	}
	stab.Observe(b, 0)
	b.Joint(1).Joint.DQ = 5
	stab.Observe(b, 0.01)
	if stab.Value() != 0.5 {
		t.Errorf("stability = %f, want 0.5", stab.Value())
	}
}

func TestAttachObservesEveryStep(t *testing.T) {
	be, err := backend.New()
	if err != nil {
		t.Fatal(err)
	}
	cfg := sim.DefaultConfig()
	cfg.TimeRange = sim.TimeRangeSpecified
	cfg.TimeLength = 0.5
	s := sim.New(be, cfg)

	p := models.NewPendulum()
	p.Theta = 0.8
	bi := item.NewBodyItem(p.Body("pendulum"))
	w := item.NewWorld("w")
	if err := w.AddBody(bi); err != nil {
		t.Fatal(err)
	}
	s.SetWorld(w)

	set := Attach(s, bi, Default(s)...)
	if err := s.StartSimulation(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	values := set.Values()
	for _, name := range []string{"energy", "energy_drift", "control_effort", "stability"} {
		if _, ok := values[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}
	if values["energy_drift"] > 1e-3 {
		t.Errorf("energy drift %g too large", values["energy_drift"])
	}
	if values["stability"] != 1 {
		t.Errorf("stability = %f, want 1", values["stability"])
	}
	want := p.Energy(dynamo.State{p.Theta, 0})
	if math.Abs(values["energy"]-want) > 1e-2 {
		t.Errorf("mean energy = %f, want about %f", values["energy"], want)
	}
}

type timeRecorder struct{ times []float64 }

func (r *timeRecorder) Name() string                    { return "times" }
func (r *timeRecorder) Observe(_ *body.Body, t float64) { r.times = append(r.times, t) }
func (r *timeRecorder) Value() float64                  { return float64(len(r.times)) }
func (r *timeRecorder) Reset()                          { r.times = nil }

func TestObserveUsesRunningTimeStep(t *testing.T) {
	be, err := backend.New()
	if err != nil {
		t.Fatal(err)
	}
	cfg := sim.DefaultConfig()
	cfg.TimeStep = 0.001
	cfg.TimeRange = sim.TimeRangeSpecified
	cfg.TimeLength = 0.01
	s := sim.New(be, cfg)

	bi := item.NewBodyItem(models.NewPendulum().Body("pendulum"))
	w := item.NewWorld("w")
	if err := w.AddBody(bi); err != nil {
		t.Fatal(err)
	}
	s.SetWorld(w)

	// A time step change only applies to the next run.
	s.AddPostDynamicsFunc(func() {
		if err := s.SetTimeStep(0.05); err != nil {
			t.Error(err)
		}
	})
	rec := &timeRecorder{}
	Attach(s, bi, rec)
	if err := s.StartSimulation(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if len(rec.times) != 10 {
		t.Fatalf("observed %d steps, want 10", len(rec.times))
	}
	for i, got := range rec.times {
		if want := float64(i+1) * 0.001; math.Abs(got-want) > 1e-12 {
			t.Errorf("step %d observed at t=%g, want %g", i, got, want)
		}
	}
}
