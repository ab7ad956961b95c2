package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MemberFunc builds the simulator for ensemble run idx. Every member must own
// its world and backend.
type MemberFunc func(idx int) (*Simulator, error)

// Ensemble runs independent simulations in parallel and waits for all of
// them. Members need a bounded time range or they run until ctx is done.
type Ensemble struct {
	build   MemberFunc
	numRuns int
	limit   int
}

func NewEnsemble(build MemberFunc, numRuns int) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, limit: -1}
}

// SetLimit bounds the number of simulations running at once. n <= 0 means no
// limit.
func (e *Ensemble) SetLimit(n int) {
	if n <= 0 {
		n = -1
	}
	e.limit = n
}

// Run starts every member and returns their finish information in member
// order. The first setup failure or abnormal finish cancels the others.
func (e *Ensemble) Run(ctx context.Context) ([]FinishInfo, error) {
	results := make([]FinishInfo, e.numRuns)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)

	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			s, err := e.build(idx)
			if err != nil {
				return fmt.Errorf("ensemble member %d: %w", idx, err)
			}
			if err := s.StartSimulation(ctx, true); err != nil {
				return fmt.Errorf("ensemble member %d: %w", idx, err)
			}
			select {
			case <-s.Done():
			case <-ctx.Done():
				s.StopSimulation()
			}
			results[idx] = s.Wait()
			if results[idx].Abnormal {
				return fmt.Errorf("ensemble member %d: %w", idx, results[idx].Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
