package item

import (
	"math"
	"sync"
)

// Timeline is the application time bar. A simulation following it stops when
// its time reaches End.
type Timeline struct {
	mu      sync.RWMutex
	begin   float64
	end     float64
	current float64
}

func NewTimeline() *Timeline {
	return &Timeline{end: math.Inf(1)}
}

func (t *Timeline) SetRange(begin, end float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.begin, t.end = begin, end
}

func (t *Timeline) Range() (begin, end float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.begin, t.end
}

func (t *Timeline) CurrentTime() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

func (t *Timeline) SetCurrentTime(time float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = time
}

const timeEpsilon = 1e-9

// EndReached reports whether time is at or past the end of the range.
func (t *Timeline) EndReached(time float64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return time >= t.end-timeEpsilon
}
