package item

import (
	"fmt"
	"sort"
	"sync"
)

// World is the container the simulator discovers its bodies from.
type World struct {
	name     string
	timeline *Timeline

	mu     sync.RWMutex
	bodies []*BodyItem
}

func NewWorld(name string) *World {
	return &World{name: name, timeline: NewTimeline()}
}

func (w *World) Name() string { return w.name }

func (w *World) Timeline() *Timeline { return w.timeline }

func (w *World) AddBody(bi *BodyItem) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.bodies {
		if existing == bi {
			return fmt.Errorf("body %s already in world %s", bi.Name(), w.name)
		}
		if existing.Name() == bi.Name() {
			return fmt.Errorf("duplicate body name %s in world %s", bi.Name(), w.name)
		}
	}
	w.bodies = append(w.bodies, bi)
	return nil
}

func (w *World) RemoveBody(bi *BodyItem) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, existing := range w.bodies {
		if existing == bi {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return true
		}
	}
	return false
}

// Bodies returns the body items in insertion order.
func (w *World) Bodies() []*BodyItem {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]*BodyItem(nil), w.bodies...)
}

func (w *World) FindBody(name string) *BodyItem {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, bi := range w.bodies {
		if bi.Name() == name {
			return bi
		}
	}
	return nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
