package item

import (
	"sync"

	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/control"
)

// ControllerAttachment declares a controller for the body. A required
// controller that fails to initialize aborts the whole simulation start.
type ControllerAttachment struct {
	Controller control.Controller
	Required   bool
}

type StateListener func(bi *BodyItem, s body.Snapshot)

// BodyItem is the document-side handle of one body. It owns the master body
// model and receives the simulation results published at flush points.
type BodyItem struct {
	name   string
	master *body.Body

	mu          sync.RWMutex
	controllers []ControllerAttachment
	state       body.Snapshot
	hasState    bool
	recording   *Recording
	listeners   map[int]StateListener
	nextID      int
}

func NewBodyItem(b *body.Body) *BodyItem {
	return &BodyItem{
		name:      b.Name(),
		master:    b,
		recording: NewRecording(0),
		listeners: make(map[int]StateListener),
	}
}

func (bi *BodyItem) Name() string { return bi.name }

// Body returns the master model. The simulator clones it and never mutates
// it.
func (bi *BodyItem) Body() *body.Body { return bi.master }

func (bi *BodyItem) Recording() *Recording { return bi.recording }

func (bi *BodyItem) AttachController(c control.Controller, required bool) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	bi.controllers = append(bi.controllers, ControllerAttachment{Controller: c, Required: required})
}

func (bi *BodyItem) DetachControllers() {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	bi.controllers = nil
}

func (bi *BodyItem) Controllers() []ControllerAttachment {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	return append([]ControllerAttachment(nil), bi.controllers...)
}

// State returns the last published snapshot.
func (bi *BodyItem) State() (body.Snapshot, bool) {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	return bi.state, bi.hasState
}

// Publish makes frames visible to consumers. The last frame becomes the
// current state; all frames are appended to the recording when record is set.
// Listeners are called once with the new current state.
func (bi *BodyItem) Publish(frames []body.Snapshot, record bool) {
	if len(frames) == 0 {
		return
	}
	if record {
		bi.recording.Append(frames...)
	}

	last := frames[len(frames)-1]
	bi.mu.Lock()
	bi.state = last
	bi.hasState = true
	listeners := make([]StateListener, 0, len(bi.listeners))
	for _, id := range sortedKeys(bi.listeners) {
		listeners = append(listeners, bi.listeners[id])
	}
	bi.mu.Unlock()

	for _, fn := range listeners {
		fn(bi, last)
	}
}

// ResetState drops the published state and the recording.
func (bi *BodyItem) ResetState() {
	bi.mu.Lock()
	bi.state = body.Snapshot{}
	bi.hasState = false
	bi.mu.Unlock()
	bi.recording.Clear()
}

func (bi *BodyItem) OnStateChanged(fn StateListener) int {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	bi.nextID++
	bi.listeners[bi.nextID] = fn
	return bi.nextID
}

func (bi *BodyItem) RemoveStateListener(id int) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	delete(bi.listeners, id)
}
