package sim

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DynamicsFunc is called on the simulation goroutine once per step.
type DynamicsFunc func()

type hookEntry struct {
	id int
	fn DynamicsFunc
}

type hookOp struct {
	remove bool
	entry  hookEntry
}

// hookRegistry is one ordered collection of dynamics hooks. Mutations from
// any goroutine are queued and applied by the simulation goroutine at a step
// boundary, so a pass never sees the collection change under it.
type hookRegistry struct {
	mu      sync.Mutex
	pending []hookOp
	dirty   atomic.Bool

	entries []hookEntry // simulation goroutine only
}

func (r *hookRegistry) add(id int, fn DynamicsFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, hookOp{entry: hookEntry{id: id, fn: fn}})
	r.dirty.Store(true)
}

func (r *hookRegistry) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, hookOp{remove: true, entry: hookEntry{id: id}})
	r.dirty.Store(true)
}

// apply folds pending operations into the active collection. Removing an
// unknown id does nothing.
func (r *hookRegistry) apply() {
	if !r.dirty.Load() {
		return
	}
	r.mu.Lock()
	ops := r.pending
	r.pending = nil
	r.dirty.Store(false)
	r.mu.Unlock()

	for _, op := range ops {
		if !op.remove {
			r.entries = append(r.entries, op.entry)
			continue
		}
		for i, e := range r.entries {
			if e.id == op.entry.id {
				r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
				break
			}
		}
	}
}

// run calls every hook in registration order. A panicking hook ends the pass
// with an error.
func (r *hookRegistry) run() (err error) {
	var current int
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("hook %d panicked: %v", current, v)
		}
	}()
	for _, e := range r.entries {
		current = e.id
		e.fn()
	}
	return nil
}

func (r *hookRegistry) len() int {
	return len(r.entries)
}

// clear drops active and pending hooks. Called when the simulation goroutine
// has exited.
func (r *hookRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
	r.dirty.Store(false)
	r.entries = nil
}
