package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/collision"
	"github.com/san-kum/bodysim/internal/dynamo"
	"github.com/san-kum/bodysim/internal/item"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const timeEpsilon = 1e-9

// run is the state of one simulation run. Apart from the channels and
// atomics, its fields belong to the simulation goroutine once the run is
// published.
type run struct {
	id       string
	cfg      Config
	world    *item.World
	cloneMap *body.CloneMap
	opts     body.SnapshotOptions
	record   bool

	bodies []*SimulationBody // immutable after setup
	byItem map[*item.BodyItem]*SimulationBody
	active []*SimulationBody

	detector collision.Detector
	contacts ContactConsumer
	pairs    []collision.LinkPair
	colMu    sync.Mutex
	// collisions is the copy handed to consumers.
	collisions []collision.LinkPair

	frame      int
	startFrame int
	forceStart map[uint64]float64
	wallBase   time.Time
	wallFrame  int
	lastFlush  time.Time

	dispatcher Dispatcher
	serial     *serialDispatcher
	flushing   atomic.Bool

	stop          atomic.Bool
	activityDirty atomic.Bool
	wake          chan struct{}
	done          chan struct{}
	finish        FinishInfo

	span trace.Span
}

func (r *run) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *run) time() float64 {
	return float64(r.frame) * r.cfg.TimeStep
}

func (r *run) rebuildActive() {
	r.active = r.active[:0]
	for _, sb := range r.bodies {
		sb.active.Store(sb.wantActive.Load())
		if sb.IsActive() {
			r.active = append(r.active, sb)
		}
	}
}

func (r *run) stopControllers() {
	for _, sb := range r.bodies {
		sb.stopControllers()
	}
}

// StartSimulation clones the world, initializes controllers and the backend
// and starts the simulation goroutine. With reset the run starts from the
// master models at frame zero and clears the recordings; otherwise it
// continues from the last published state and frame.
//
// Setup failures wrap dynamo.ErrSetupFailed and leave the simulator idle. ctx
// only scopes setup and tracing; use StopSimulation to end a run.
func (s *Simulator) StartSimulation(ctx context.Context, reset bool) error {
	s.mu.Lock()
	if s.run != nil || s.starting {
		s.mu.Unlock()
		return dynamo.ErrAlreadyRunning
	}
	cfg, world, dispatcher, lastFrame := s.cfg, s.world, s.dispatcher, s.lastFrame
	s.starting = true
	s.mu.Unlock()

	tracer := s.tracer()
	ctx, span := tracer.Start(ctx, "sim.StartSimulation", trace.WithAttributes(attribute.Bool("sim.reset", reset)))
	defer span.End()

	r, err := s.setup(cfg, world, reset, lastFrame)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		s.log().Error("simulation start failed", zap.Error(err))
		return err
	}

	if dispatcher == nil {
		r.serial = newSerialDispatcher()
		r.dispatcher = r.serial
	} else {
		r.dispatcher = dispatcher
	}
	_, r.span = tracer.Start(ctx, "sim.Run", trace.WithAttributes(
		attribute.String("sim.run_id", r.id),
		attribute.Int("sim.bodies", len(r.bodies)),
		attribute.Int("sim.start_frame", r.startFrame),
	))

	s.mu.Lock()
	s.run = r
	s.starting = false
	s.setState(StateRunning)
	s.mu.Unlock()

	go s.loop(r)
	return nil
}

func setupError(kind error, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %w", dynamo.ErrSetupFailed, kind)
	}
	return fmt.Errorf("%w: %w: %w", dynamo.ErrSetupFailed, kind, err)
}

func (s *Simulator) setup(cfg Config, world *item.World, reset bool, lastFrame int) (*run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", dynamo.ErrSetupFailed, err)
	}
	if s.backend == nil {
		return nil, setupError(dynamo.ErrNoBackend, nil)
	}
	if world == nil {
		return nil, setupError(dynamo.ErrNoWorld, nil)
	}

	r := &run{
		id:         uuid.NewString(),
		cfg:        cfg,
		world:      world,
		cloneMap:   body.NewCloneMap(),
		byItem:     make(map[*item.BodyItem]*SimulationBody),
		forceStart: make(map[uint64]float64),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		record:     cfg.Recording != RecordNone,
		opts: body.SnapshotOptions{
			AllLinkPositions: cfg.AllLinkPositionOutput,
			AllDevices:       cfg.DeviceStateOutput,
		},
	}
	if !reset {
		r.startFrame = lastFrame
	}
	r.frame = r.startFrame
	s.timeStep.Store(math.Float64bits(cfg.TimeStep))
	s.currentFrame.Store(int64(r.frame))

	items := world.Bodies()
	clones := make([]*body.Body, len(items))
	for i, bi := range items {
		c, err := cloneBody(bi, r.cloneMap)
		if err != nil {
			return nil, setupError(dynamo.ErrCloneFailed, err)
		}
		clones[i] = c
	}
	r.cloneMap.Finalize()

	for i, bi := range items {
		if !reset {
			if st, ok := bi.State(); ok {
				clones[i].ApplySnapshot(&st)
			}
		}
	}
	updateKinematics(clones)

	for i, bi := range items {
		sb := newSimulationBody(s, r, bi, clones[i])
		ok, err := sb.Initialize(s, bi)
		if err != nil {
			sb.stopControllers()
			r.stopControllers()
			return nil, fmt.Errorf("%w: %w", dynamo.ErrSetupFailed, err)
		}
		if !ok {
			sb.stopControllers()
			continue
		}
		sb.initializeResultBuffer(cfg.bufferCapacity())
		r.bodies = append(r.bodies, sb)
		r.byItem[bi] = sb
	}
	r.rebuildActive()
	s.resolveDetector(r)

	if !safeInitializeSimulation(s.backend, r.bodies, s.log()) {
		r.stopControllers()
		if r.detector != nil {
			r.detector.Clear()
		}
		return nil, setupError(dynamo.ErrInitializeFailed, nil)
	}

	capacity := 0
	if cfg.Recording == RecordTail {
		capacity = cfg.TailFrames
	}
	for _, sb := range r.bodies {
		if reset {
			sb.item.ResetState()
		}
		sb.item.Recording().SetCapacity(capacity)
	}
	s.simFrame.Store(int64(r.startFrame))
	s.metrics().SetActiveBodies(len(r.active))
	return r, nil
}

func cloneBody(bi *item.BodyItem, cm *body.CloneMap) (c *body.Body, err error) {
	defer func() {
		if v := recover(); v != nil {
			c, err = nil, fmt.Errorf("body %s: panic: %v", bi.Name(), v)
		}
	}()
	orig := bi.Body()
	if orig == nil || orig.RootLink() == nil {
		return nil, fmt.Errorf("body %s has no root link", bi.Name())
	}
	return orig.Clone(cm), nil
}

// updateKinematics computes link transforms, bodies without a parent body
// first so that mounted bodies see their parent's pose.
func updateKinematics(bodies []*body.Body) {
	ordered := append([]*body.Body(nil), bodies...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ParentBodyLink() == nil && ordered[j].ParentBodyLink() != nil
	})
	for _, b := range ordered {
		b.CalcForwardKinematics()
	}
}

func safeInitializeSimulation(b Backend, bodies []*SimulationBody, log *zap.Logger) (ok bool) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("backend initialize panicked", zap.Any("panic", v))
			ok = false
		}
	}()
	return b.InitializeSimulation(bodies)
}

func safeStep(b Backend, active []*SimulationBody) (ok bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			ok, err = false, fmt.Errorf("backend panicked: %v", v)
		}
	}()
	return b.StepSimulation(active), nil
}

// resolveDetector builds the collision detector on first need. A missing or
// failing detector only disables contacts for the run.
func (s *Simulator) resolveDetector(r *run) {
	cc, _ := s.backend.(ContactConsumer)
	wants := cc != nil && cc.WantsContacts()
	if !r.cfg.SelfCollision && !wants {
		return
	}

	s.mu.Lock()
	det, factory := s.detector, s.detectorFactory
	s.mu.Unlock()

	if det == nil {
		if factory == nil {
			s.log().Warn("collision detection requested but no detector is available; running without contacts")
			return
		}
		d, err := factory()
		if err != nil || d == nil {
			s.log().Warn("collision detector could not be built; running without contacts", zap.Error(err))
			return
		}
		det = d
		s.mu.Lock()
		s.detector = d
		s.mu.Unlock()
	}

	det.Clear()
	for _, sb := range r.bodies {
		det.AddBody(sb.body, r.cfg.SelfCollision)
	}
	if !det.MakeReady() {
		s.log().Debug("no collision candidates; skipping detection", zap.String("detector", det.Name()))
		det.Clear()
		return
	}
	r.detector = det
	if wants {
		r.contacts = cc
	}
}

func (s *Simulator) loop(r *run) {
	th, hasThreadHooks := s.backend.(ThreadHooks)
	if hasThreadHooks {
		th.InitializeThread()
	}

	r.wallBase, r.wallFrame = time.Now(), r.frame
	r.lastFlush = r.wallBase
	s.log().Info("simulation started",
		zap.String("run", r.id), zap.Int("bodies", len(r.bodies)), zap.Int("frame", r.frame))
	s.observers.emit(Event{Kind: EventStarted, Frame: r.frame, Time: r.time()})

	var finish FinishInfo
	for !r.stop.Load() {
		if s.State() == StatePaused {
			if !s.pause(r) {
				break
			}
			continue
		}

		start := time.Now()
		if err := s.step(r); err != nil {
			finish = FinishInfo{Abnormal: true, Err: err}
			s.log().Error("simulation step failed", zap.String("run", r.id), zap.Error(err))
			break
		}
		s.metrics().ObserveStep(time.Since(start))

		if s.reachedEnd(r) {
			break
		}
		if r.cfg.RealtimeSync {
			if d := s.realtimeDelay(r); d > 0 {
				select {
				case <-time.After(d):
				case <-r.wake:
				}
			}
		}
	}

	if hasThreadHooks {
		th.FinalizeThread()
	}
	s.teardown(r, finish)
}

// pause parks the simulation goroutine. It returns false when the run was
// stopped while paused.
func (s *Simulator) pause(r *run) bool {
	s.flushAndWait(r)
	s.observers.emit(Event{Kind: EventPaused, Frame: r.frame, Time: r.time()})
	for s.State() == StatePaused && !r.stop.Load() {
		<-r.wake
	}
	if r.stop.Load() {
		return false
	}
	r.wallBase, r.wallFrame = time.Now(), r.frame
	s.observers.emit(Event{Kind: EventResumed, Frame: r.frame, Time: r.time()})
	return true
}

func (s *Simulator) step(r *run) error {
	s.pre.apply()
	s.mid.apply()
	s.post.apply()
	if r.activityDirty.Swap(false) {
		r.rebuildActive()
		s.metrics().SetActiveBodies(len(r.active))
		s.observers.emit(Event{
			Kind:   EventBodyListUpdated,
			Frame:  r.frame,
			Time:   r.time(),
			Active: append([]*SimulationBody(nil), r.active...),
		})
	}

	for _, sb := range r.active {
		sb.body.ClearExternalForces()
	}
	pert := s.perturb.Load()
	if !pert.empty() {
		s.applyPerturbations(r, pert)
	}

	for _, sb := range r.bodies {
		sb.runControllers(r.frame)
	}

	if err := s.pre.run(); err != nil {
		return s.stepError(r, dynamo.ErrHookFailed, err)
	}
	if err := s.mid.run(); err != nil {
		return s.stepError(r, dynamo.ErrHookFailed, err)
	}
	if r.detector != nil {
		s.detectCollisions(r)
	}

	ok, err := safeStep(s.backend, r.active)
	if !ok {
		return s.stepError(r, dynamo.ErrStepFailed, err)
	}

	if !pert.empty() {
		s.reassertForcedPositions(r, pert)
	}
	if err := s.post.run(); err != nil {
		return s.stepError(r, dynamo.ErrHookFailed, err)
	}

	r.frame++
	s.currentFrame.Store(int64(r.frame))
	t := r.time()
	for _, sb := range r.bodies {
		sb.bufferResults(r.frame, t, r.opts)
	}
	s.metrics().SetFrame(r.frame)
	s.maybeFlush(r)
	return nil
}

func (s *Simulator) stepError(r *run, kind error, cause error) error {
	wrapped := kind
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", kind, cause)
	}
	return &dynamo.SimulationError{Frame: r.frame + 1, Time: float64(r.frame+1) * r.cfg.TimeStep, Wrapped: wrapped}
}

func (s *Simulator) applyPerturbations(r *run, p *perturbations) {
	now := r.time()
	for _, f := range p.forces {
		sb := r.byItem[f.key.item]
		if sb == nil || !sb.IsActive() {
			continue
		}
		link := sb.body.Link(f.key.link)
		if link == nil {
			continue
		}
		if f.duration > 0 {
			start, ok := r.forceStart[f.seq]
			if !ok {
				start = now
				r.forceStart[f.seq] = now
			}
			if now-start >= f.duration-timeEpsilon {
				continue
			}
		}
		link.AddExternalForce(link.WorldPoint(f.point), f.force)
	}

	for _, es := range p.strings {
		sb := r.byItem[es.key.item]
		if sb == nil || !sb.IsActive() {
			continue
		}
		link := sb.body.Link(es.key.link)
		if link == nil {
			continue
		}
		k := ElasticStringStiffness * sb.body.TotalMass()
		at := link.WorldPoint(es.attach)
		link.AddExternalForce(at, es.goal.Sub(at).Mul(k))
	}

	s.reassertForcedPositions(r, p)
}

func (s *Simulator) reassertForcedPositions(r *run, p *perturbations) {
	for _, fp := range p.forced {
		sb := r.byItem[fp.item]
		if sb == nil {
			continue
		}
		root := sb.body.RootLink()
		if root.HasParentBody() {
			continue
		}
		root.T = fp.T
		root.V = root.V.Mul(0)
		root.W = root.W.Mul(0)
		sb.body.CalcForwardKinematics()
	}
}

func (s *Simulator) detectCollisions(r *run) {
	r.pairs = r.pairs[:0]
	err := func() (err error) {
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("collision detector panicked: %v", v)
			}
		}()
		r.detector.Detect(func(p collision.LinkPair) {
			r.pairs = append(r.pairs, p)
		})
		return nil
	}()
	if err != nil {
		s.log().Warn("collision detection disabled for this run", zap.Error(err))
		r.detector = nil
		r.pairs = r.pairs[:0]
	}

	if r.contacts != nil {
		r.contacts.SetContacts(r.pairs)
	}
	r.colMu.Lock()
	r.collisions = append(r.collisions[:0], r.pairs...)
	r.colMu.Unlock()
}

func (s *Simulator) reachedEnd(r *run) bool {
	switch r.cfg.TimeRange {
	case TimeRangeSpecified:
		return r.time() >= r.cfg.TimeLength-timeEpsilon
	case TimeRangeActiveControl:
		for _, sb := range r.bodies {
			if sb.hasRunningController() {
				return false
			}
		}
		return true
	case TimeRangeTimeline:
		return r.world.Timeline().EndReached(r.time())
	}
	return false
}

func (s *Simulator) maybeFlush(r *run) {
	now := time.Now()
	if now.Sub(r.lastFlush) < r.cfg.FlushPeriod {
		return
	}
	if !r.flushing.CompareAndSwap(false, true) {
		return
	}
	r.lastFlush = now
	r.dispatcher.Dispatch(func() {
		s.flush(r)
		r.flushing.Store(false)
	})
}

func (s *Simulator) flushAndWait(r *run) {
	done := make(chan struct{})
	r.dispatcher.Dispatch(func() {
		s.flush(r)
		close(done)
	})
	<-done
}

// flush publishes every buffered frame. Runs on the dispatcher.
func (s *Simulator) flush(r *run) {
	total, last := 0, -1
	for _, sb := range r.bodies {
		n, frame := sb.flushResults(r.record)
		total += n
		if frame > last {
			last = frame
		}
	}
	if total == 0 {
		return
	}
	s.simFrame.Store(int64(last))
	r.world.Timeline().SetCurrentTime(float64(last) * r.cfg.TimeStep)
	s.metrics().ObserveFlush(total)
}

func (s *Simulator) teardown(r *run, finish FinishInfo) {
	r.stopControllers()

	finalized := make(chan struct{})
	r.dispatcher.Dispatch(func() {
		defer close(finalized)
		s.flush(r)
		if f, ok := s.backend.(Finalizer); ok {
			func() {
				defer func() {
					if v := recover(); v != nil {
						s.log().Error("backend finalize panicked", zap.Any("panic", v))
					}
				}()
				f.FinalizeSimulation()
			}()
		}
	})
	<-finalized
	if r.serial != nil {
		r.serial.Close()
	}
	if r.detector != nil {
		r.detector.Clear()
	}
	s.pre.clear()
	s.mid.clear()
	s.post.clear()

	finish.Frame = r.frame
	finish.Time = r.time()
	r.finish = finish

	s.mu.Lock()
	s.run = nil
	s.lastFrame = r.frame
	s.lastFinish = finish
	s.setState(StateIdle)
	s.mu.Unlock()
	s.metrics().IncRuns(finish.Abnormal)

	r.span.SetAttributes(attribute.Int("sim.frames", r.frame-r.startFrame), attribute.Bool("sim.abnormal", finish.Abnormal))
	if finish.Err != nil {
		r.span.RecordError(finish.Err)
		r.span.SetStatus(codes.Error, finish.Err.Error())
	}
	r.span.End()

	s.log().Info("simulation finished",
		zap.String("run", r.id), zap.Int("frame", r.frame), zap.Bool("abnormal", finish.Abnormal))
	s.observers.emit(Event{Kind: EventFinished, Frame: r.frame, Time: finish.Time, Finish: finish})
	close(r.done)
}

// RequestStop asks the run to end after the current step without waiting.
// It is safe to call from hooks and observers.
func (s *Simulator) RequestStop() {
	if r := s.currentRun(); r != nil {
		r.stop.Store(true)
		r.signal()
	}
}

// StopSimulation ends the run after the current step and waits for the final
// flush and the finished notification. It must not be called from the
// simulation goroutine or the dispatcher.
func (s *Simulator) StopSimulation() {
	r := s.currentRun()
	if r == nil {
		return
	}
	r.stop.Store(true)
	r.signal()
	<-r.done
}

func (s *Simulator) PauseSimulation() error {
	r := s.currentRun()
	if r == nil || !s.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		return dynamo.ErrNotRunning
	}
	s.metrics().SetState(int(StatePaused))
	r.signal()
	return nil
}

func (s *Simulator) RestartSimulation() error {
	r := s.currentRun()
	if r == nil || !s.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		return dynamo.ErrNotRunning
	}
	s.metrics().SetState(int(StateRunning))
	r.signal()
	return nil
}
