package sim

import (
	"sort"
	"sync"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

type EventKind int

const (
	EventStarted EventKind = iota
	EventPaused
	EventResumed
	EventFinished
	EventBodyListUpdated
)

func (k EventKind) String() string {
	return [...]string{"started", "paused", "resumed", "finished", "body_list_updated"}[k]
}

// FinishInfo describes how a run ended.
type FinishInfo struct {
	Frame    int
	Time     float64
	Abnormal bool
	Err      error
}

// Event is delivered to observers on the simulation goroutine.
type Event struct {
	Kind   EventKind
	Frame  int
	Time   float64
	Finish FinishInfo        // EventFinished only
	Active []*SimulationBody // EventBodyListUpdated only
}

type Observer interface {
	OnSimulationEvent(ev Event)
}

type ObserverFunc func(ev Event)

func (f ObserverFunc) OnSimulationEvent(ev Event) { f(ev) }

type observerSet struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]Observer
}

func (o *observerSet) add(obs Observer) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.byID == nil {
		o.byID = make(map[int]Observer)
	}
	o.nextID++
	o.byID[o.nextID] = obs
	return o.nextID
}

func (o *observerSet) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.byID, id)
}

func (o *observerSet) emit(ev Event) {
	o.mu.Lock()
	ids := make([]int, 0, len(o.byID))
	for id := range o.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]Observer, len(ids))
	for i, id := range ids {
		observers[i] = o.byID[id]
	}
	o.mu.Unlock()

	for _, obs := range observers {
		obs.OnSimulationEvent(ev)
	}
}
