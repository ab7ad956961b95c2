package sim

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/control"
	"github.com/san-kum/bodysim/internal/dynamo"
	"github.com/san-kum/bodysim/internal/item"
	"go.uber.org/zap"
)

type controllerSlot struct {
	c        control.Controller
	required bool
	running  bool
	failed   bool
}

// SimulationBody couples one cloned body with its controllers and its result
// buffer. The clone is touched only by the simulation goroutine; results
// reach the body item by value through the buffer.
type SimulationBody struct {
	sim  *Simulator
	run  *run
	item *item.BodyItem
	body *body.Body

	controllers []*controllerSlot
	frozen      []float64 // efforts held after a controller failure
	isFrozen    bool

	active     atomic.Bool
	wantActive atomic.Bool

	changedDevices []int

	mu       sync.Mutex
	buffer   []*body.Snapshot
	capacity int
	pool     *snapshotPool
}

func newSimulationBody(s *Simulator, r *run, bi *item.BodyItem, b *body.Body) *SimulationBody {
	sb := &SimulationBody{
		sim:  s,
		run:  r,
		item: bi,
		body: b,
		pool: s.pool,
	}
	on := !b.IsStaticModel()
	sb.active.Store(on)
	sb.wantActive.Store(on)
	return sb
}

func (sb *SimulationBody) BodyItem() *item.BodyItem { return sb.item }

// Body returns the simulated clone.
func (sb *SimulationBody) Body() *body.Body { return sb.body }

func (sb *SimulationBody) Simulator() *Simulator { return sb.sim }

func (sb *SimulationBody) NumControllers() int { return len(sb.controllers) }

func (sb *SimulationBody) Controller(i int) control.Controller {
	if i < 0 || i >= len(sb.controllers) {
		return nil
	}
	return sb.controllers[i].c
}

// IsActive reports whether the body takes part in the dynamics step.
func (sb *SimulationBody) IsActive() bool { return sb.active.Load() }

// SetActive requests a change of the active flag. It takes effect at the
// next step boundary, which also emits a body list update.
func (sb *SimulationBody) SetActive(on bool) {
	if sb.wantActive.Swap(on) != on {
		sb.run.activityDirty.Store(true)
	}
}

// NotifyUnrecordedDeviceStateChange records device i in the next buffered
// frame even when device state output is off. Simulation goroutine only.
func (sb *SimulationBody) NotifyUnrecordedDeviceStateChange(i int) {
	sb.changedDevices = append(sb.changedDevices, i)
}

// control.IO

func (sb *SimulationBody) OptionString() string { return sb.run.cfg.ControllerOptions }
func (sb *SimulationBody) TimeStep() float64    { return sb.run.cfg.TimeStep }
func (sb *SimulationBody) CurrentTime() float64 { return sb.sim.CurrentTime() }
func (sb *SimulationBody) Logger() *zap.Logger {
	return sb.sim.log().With(zap.String("body", sb.body.Name()))
}

// Initialize attaches the controllers declared on bi. It returns an error
// wrapping dynamo.ErrControllerInitFailed when a required controller fails,
// and false without error when an optional one fails.
func (sb *SimulationBody) Initialize(s *Simulator, bi *item.BodyItem) (bool, error) {
	sb.sim = s
	sb.item = bi
	sb.controllers = sb.controllers[:0]
	for _, att := range bi.Controllers() {
		slot := &controllerSlot{c: att.Controller, required: att.Required}
		ok, err := safeInitialize(att.Controller, sb)
		if !ok {
			if att.Required {
				if err == nil {
					err = fmt.Errorf("controller %s returned false", att.Controller.Name())
				}
				return false, fmt.Errorf("%w: body %s: %w", dynamo.ErrControllerInitFailed, bi.Name(), err)
			}
			s.log().Warn("optional controller failed to initialize; excluding body",
				zap.String("body", bi.Name()), zap.String("controller", att.Controller.Name()), zap.Error(err))
			return false, nil
		}
		slot.running = true
		sb.controllers = append(sb.controllers, slot)
	}
	return true, nil
}

func safeInitialize(c control.Controller, io control.IO) (ok bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			ok, err = false, fmt.Errorf("panic: %v", v)
		}
	}()
	return c.Initialize(io), nil
}

// runControllers drives input, control and output of every running
// controller. A failure freezes the body's efforts at their last output.
func (sb *SimulationBody) runControllers(frame int) {
	if sb.isFrozen {
		for i, j := range sb.body.Joints() {
			j.Joint.U = sb.frozen[i]
		}
	}
	for _, slot := range sb.controllers {
		if !slot.running {
			continue
		}
		err := safeControl(slot.c)
		switch {
		case err == nil:
		case errors.Is(err, dynamo.ErrControllerDone):
			slot.running = false
			sb.sim.log().Debug("controller finished",
				zap.String("body", sb.body.Name()), zap.String("controller", slot.c.Name()), zap.Int("frame", frame))
		default:
			slot.running = false
			slot.failed = true
			sb.freeze()
			sb.sim.reportControllerFailure(sb, slot.c, &dynamo.SimulationError{
				Frame: frame, Time: float64(frame) * sb.run.cfg.TimeStep, Body: sb.body.Name(), Wrapped: err,
			})
		}
	}
}

func safeControl(c control.Controller) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("controller %s panicked: %v", c.Name(), v)
		}
	}()
	c.Input()
	err = c.Control()
	if err == nil || errors.Is(err, dynamo.ErrControllerDone) {
		c.Output()
	}
	return err
}

// freeze holds the joint efforts at their current, last output, values.
func (sb *SimulationBody) freeze() {
	if sb.isFrozen {
		return
	}
	joints := sb.body.Joints()
	sb.frozen = make([]float64, len(joints))
	for i, j := range joints {
		sb.frozen[i] = j.Joint.U
	}
	sb.isFrozen = true
}

func (sb *SimulationBody) hasRunningController() bool {
	for _, slot := range sb.controllers {
		if slot.running {
			return true
		}
	}
	return false
}

func (sb *SimulationBody) stopControllers() {
	for _, slot := range sb.controllers {
		func() {
			defer func() {
				if v := recover(); v != nil {
					sb.sim.log().Error("controller stop panicked", zap.String("controller", slot.c.Name()), zap.Any("panic", v))
				}
			}()
			slot.c.Stop()
		}()
	}
}

func (sb *SimulationBody) initializeResultBuffer(capacity int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.capacity = capacity
	sb.buffer = sb.buffer[:0]
}

// bufferResults snapshots the clone into the result buffer. Simulation
// goroutine only.
func (sb *SimulationBody) bufferResults(frame int, time float64, opts body.SnapshotOptions) {
	s := sb.pool.Get()
	opts.ChangedDevices = sb.changedDevices
	sb.body.TakeSnapshot(s, opts)
	s.Frame = frame
	s.Time = time
	sb.changedDevices = sb.changedDevices[:0]

	sb.mu.Lock()
	if sb.capacity > 0 && len(sb.buffer) >= sb.capacity {
		drop := len(sb.buffer) - sb.capacity + 1
		for _, old := range sb.buffer[:drop] {
			sb.pool.Put(old)
		}
		sb.buffer = append(sb.buffer[:0], sb.buffer[drop:]...)
	}
	sb.buffer = append(sb.buffer, s)
	sb.mu.Unlock()
}

// flushResults takes the buffered frames by value and publishes them to the
// body item. Consumer side only. It returns the number of frames published
// and the last frame number.
func (sb *SimulationBody) flushResults(record bool) (int, int) {
	sb.mu.Lock()
	if len(sb.buffer) == 0 {
		sb.mu.Unlock()
		return 0, -1
	}
	frames := make([]body.Snapshot, len(sb.buffer))
	for i, s := range sb.buffer {
		frames[i] = *s
		sb.buffer[i] = nil
	}
	sb.buffer = sb.buffer[:0]
	sb.mu.Unlock()

	sb.item.Publish(frames, record)
	return len(frames), frames[len(frames)-1].Frame
}

func (sb *SimulationBody) bufferedFrames() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return len(sb.buffer)
}
