// Package optim searches parameter grids by running one simulation per
// grid point.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/bodysim/internal/sim"
)

// Trial builds the simulation for one grid point. The returned score
// function is called after the run ends; lower is better.
type Trial func(params map[string]float64) (*sim.Simulator, func() float64, error)

type Result struct {
	Params map[string]float64
	Score  float64
	Points []map[string]float64
	Scores []float64 // per point; NaN when the run was not scored
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	parallel   int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// SetParallel bounds the number of simulations running at once. n <= 0
// means no limit.
func (g *GridSearch) SetParallel(n int) { g.parallel = n }

// Points is the cartesian product of the ranges, the last parameter varying
// fastest.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(points)*len(g.ranges[depth]))
		for _, p := range points {
			for _, val := range g.ranges[depth] {
				np := make(map[string]float64, len(p)+1)
				for k, v := range p {
					np[k] = v
				}
				np[name] = val
				next = append(next, np)
			}
		}
		points = next
	}
	return points
}

// Search runs every grid point as one ensemble and returns the best scored
// point.
func (g *GridSearch) Search(ctx context.Context, trial Trial) (*Result, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	points := g.Points()
	scorers := make([]func() float64, len(points))

	ens := sim.NewEnsemble(func(idx int) (*sim.Simulator, error) {
		s, score, err := trial(points[idx])
		if err != nil {
			return nil, err
		}
		scorers[idx] = score
		return s, nil
	}, len(points))
	ens.SetLimit(g.parallel)

	if _, err := ens.Run(ctx); err != nil {
		return nil, err
	}

	res := &Result{Score: math.Inf(1), Points: points, Scores: make([]float64, len(points))}
	for i, score := range scorers {
		res.Scores[i] = math.NaN()
		if score == nil {
			continue
		}
		v := score()
		res.Scores[i] = v
		if v < res.Score {
			res.Score = v
			res.Params = points[i]
		}
	}
	if res.Params == nil {
		return nil, errors.New("optim: no grid point produced a score")
	}
	return res, nil
}

// Ranked returns the point indices ordered from best to worst score.
func (r *Result) Ranked() []int {
	idx := make([]int, 0, len(r.Scores))
	for i, v := range r.Scores {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return r.Scores[idx[a]] < r.Scores[idx[b]] })
	return idx
}
