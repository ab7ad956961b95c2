package optim

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/bodysim/internal/backend"
	"github.com/san-kum/bodysim/internal/item"
	"github.com/san-kum/bodysim/internal/models"
	"github.com/san-kum/bodysim/internal/sim"
)

func TestPoints(t *testing.T) {
	g := NewGridSearch([]string{"a", "b"}, [][]float64{{1, 2}, {10, 20, 30}})
	points := g.Points()
	if len(points) != 6 {
		t.Fatalf("points = %d, want 6", len(points))
	}
	if points[0]["a"] != 1 || points[0]["b"] != 10 || points[5]["a"] != 2 || points[5]["b"] != 30 {
		t.Errorf("points = %v", points)
	}
}

// Damping drains the swing, so the most damped pendulum ends closest to
// rest.
func TestSearchPicksMostDamped(t *testing.T) {
	trial := func(params map[string]float64) (*sim.Simulator, func() float64, error) {
		be, err := backend.New()
		if err != nil {
			return nil, nil, err
		}
		p := models.NewPendulum()
		p.Theta = 0.5
		p.Damping = params["damping"]
		bi := item.NewBodyItem(p.Body("pendulum"))
		w := item.NewWorld("tune")
		if err := w.AddBody(bi); err != nil {
			return nil, nil, err
		}

		cfg := sim.DefaultConfig()
		cfg.TimeRange = sim.TimeRangeSpecified
		cfg.TimeLength = 1
		cfg.Recording = sim.RecordNone
		s := sim.New(be, cfg)
		s.SetWorld(w)
		score := func() float64 {
			st, _ := bi.State()
			return math.Abs(st.Q[0]) + math.Abs(st.DQ[0])
		}
		return s, score, nil
	}

	g := NewGridSearch([]string{"damping"}, [][]float64{{0, 0.5, 2}})
	g.SetParallel(2)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := g.Search(ctx, trial)
	if err != nil {
		t.Fatal(err)
	}
	if res.Params["damping"] != 2 {
		t.Errorf("best damping = %f, scores %v", res.Params["damping"], res.Scores)
	}
	if ranked := res.Ranked(); len(ranked) != 3 || ranked[0] != 2 {
		t.Errorf("ranked = %v", ranked)
	}
}

func TestSearchPropagatesTrialError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGridSearch([]string{"x"}, [][]float64{{1}})
	_, err := g.Search(context.Background(), func(map[string]float64) (*sim.Simulator, func() float64, error) {
		return nil, nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}

	g = NewGridSearch([]string{"x", "y"}, [][]float64{{1}})
	if _, err := g.Search(context.Background(), nil); err == nil {
		t.Error("expected mismatch error")
	}
}
