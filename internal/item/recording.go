package item

import (
	"sync"

	"github.com/san-kum/bodysim/internal/body"
)

// Recording is the history of published snapshots for one body. A positive
// capacity keeps only the most recent frames.
type Recording struct {
	mu       sync.RWMutex
	capacity int
	frames   []body.Snapshot
}

func NewRecording(capacity int) *Recording {
	return &Recording{capacity: capacity}
}

func (r *Recording) Capacity() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.capacity
}

func (r *Recording) SetCapacity(capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capacity = capacity
	r.trim()
}

func (r *Recording) Append(frames ...body.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frames...)
	r.trim()
}

func (r *Recording) trim() {
	if r.capacity <= 0 || len(r.frames) <= r.capacity {
		return
	}
	drop := len(r.frames) - r.capacity
	kept := make([]body.Snapshot, r.capacity, r.capacity*2)
	copy(kept, r.frames[drop:])
	r.frames = kept
}

func (r *Recording) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

func (r *Recording) At(i int) (body.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.frames) {
		return body.Snapshot{}, false
	}
	return r.frames[i], true
}

func (r *Recording) Last() (body.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.frames) == 0 {
		return body.Snapshot{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// Frames returns a copy of the recorded snapshots in frame order.
func (r *Recording) Frames() []body.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]body.Snapshot, len(r.frames))
	copy(out, r.frames)
	return out
}

// FrameNumbers returns the frame number of every recorded snapshot.
func (r *Recording) FrameNumbers() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.Frame
	}
	return out
}

func (r *Recording) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}
