package sim

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/collision"
	"github.com/san-kum/bodysim/internal/control"
	"github.com/san-kum/bodysim/internal/dynamo"
	"github.com/san-kum/bodysim/internal/item"
	"github.com/san-kum/bodysim/internal/observability"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Simulator runs the bodies of a world on a dedicated goroutine and
// publishes their state to the body items at flush points.
//
// Configuration setters only affect the next run. Everything that happens
// during a run is driven by the simulation goroutine: hooks, controllers,
// the backend step and the lifecycle notifications.
type Simulator struct {
	backend   Backend
	logger    atomic.Pointer[zap.Logger]
	collector atomic.Pointer[observability.SimulatorCollector]
	pool      *snapshotPool

	mu              sync.Mutex
	cfg             Config
	world           *item.World
	detectorFactory collision.Factory
	detector        collision.Detector
	dispatcher      Dispatcher
	tracerProvider  trace.TracerProvider
	run             *run
	starting        bool
	lastFrame       int
	lastFinish      FinishInfo

	state        atomic.Int32
	timeStep     atomic.Uint64 // float64 bits of the running time step
	currentFrame atomic.Int64
	simFrame     atomic.Int64
	nextHandle   atomic.Int64

	pre, mid, post hookRegistry
	observers      observerSet

	pertMu  sync.Mutex
	perturb atomic.Pointer[perturbations]
	pertSeq uint64
}

func New(backend Backend, cfg Config) *Simulator {
	s := &Simulator{
		backend: backend,
		cfg:     cfg,
		pool:    newSnapshotPool(),
	}
	s.logger.Store(zap.NewNop())
	s.timeStep.Store(math.Float64bits(cfg.TimeStep))
	s.perturb.Store(&perturbations{})
	return s
}

func (s *Simulator) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.logger.Store(logger)
}

func (s *Simulator) log() *zap.Logger { return s.logger.Load() }

// SetTracerProvider routes the spans of later runs to tp. nil falls back to
// the global provider.
func (s *Simulator) SetTracerProvider(tp trace.TracerProvider) {
	s.mu.Lock()
	s.tracerProvider = tp
	s.mu.Unlock()
}

func (s *Simulator) tracer() trace.Tracer {
	s.mu.Lock()
	tp := s.tracerProvider
	s.mu.Unlock()
	return observability.TracerFrom(tp, "sim")
}

// SetCollector sets the metrics collector. Nil disables metrics.
func (s *Simulator) SetCollector(c *observability.SimulatorCollector) {
	s.collector.Store(c)
}

func (s *Simulator) metrics() *observability.SimulatorCollector { return s.collector.Load() }

func (s *Simulator) SetWorld(w *item.World) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world = w
}

func (s *Simulator) World() *item.World {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world
}

// SetCollisionDetectorFactory sets the factory used the first time a run
// needs contacts. A previously built detector is discarded.
func (s *Simulator) SetCollisionDetectorFactory(f collision.Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectorFactory = f
	s.detector = nil
}

// SetDispatcher sets where flushes run. Nil selects a serial goroutine per
// run.
func (s *Simulator) SetDispatcher(d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

func (s *Simulator) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the configuration used by the next run.
func (s *Simulator) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

func (s *Simulator) SetTimeStep(step float64) error {
	cfg := s.Config()
	cfg.TimeStep = step
	return s.SetConfig(cfg)
}

func (s *Simulator) TimeStep() float64 {
	return s.Config().TimeStep
}

func (s *Simulator) State() State { return State(s.state.Load()) }

func (s *Simulator) IsRunning() bool { return s.State() != StateIdle }

func (s *Simulator) IsPausing() bool { return s.State() == StatePaused }

// IsActive reports whether the simulation is running and not paused.
func (s *Simulator) IsActive() bool { return s.State() == StateRunning }

// CurrentFrame is the last frame computed. It is meaningful on the
// simulation goroutine; consumers should use SimulationFrame.
func (s *Simulator) CurrentFrame() int { return int(s.currentFrame.Load()) }

func (s *Simulator) CurrentTime() float64 {
	return float64(s.CurrentFrame()) * s.runTimeStep()
}

func (s *Simulator) runTimeStep() float64 {
	return math.Float64frombits(s.timeStep.Load())
}

// SimulationFrame is the last frame published to the body items.
func (s *Simulator) SimulationFrame() int { return int(s.simFrame.Load()) }

func (s *Simulator) SimulationTime() float64 {
	return float64(s.SimulationFrame()) * s.runTimeStep()
}

func (s *Simulator) AddObserver(o Observer) int { return s.observers.add(o) }

func (s *Simulator) RemoveObserver(id int) { s.observers.remove(id) }

func (s *Simulator) newHandle() int { return int(s.nextHandle.Add(1)) }

// AddPreDynamicsFunc registers fn to run before the dynamics step. It takes
// effect at the next step boundary.
func (s *Simulator) AddPreDynamicsFunc(fn DynamicsFunc) int {
	id := s.newHandle()
	s.pre.add(id, fn)
	return id
}

// AddMidDynamicsFunc registers fn to run between the pre-dynamics hooks and
// the backend step.
func (s *Simulator) AddMidDynamicsFunc(fn DynamicsFunc) int {
	id := s.newHandle()
	s.mid.add(id, fn)
	return id
}

// AddPostDynamicsFunc registers fn to run after the backend step.
func (s *Simulator) AddPostDynamicsFunc(fn DynamicsFunc) int {
	id := s.newHandle()
	s.post.add(id, fn)
	return id
}

// RemovePreDynamicsFunc removes a hook. Unknown ids are ignored.
func (s *Simulator) RemovePreDynamicsFunc(id int)  { s.pre.remove(id) }
func (s *Simulator) RemoveMidDynamicsFunc(id int)  { s.mid.remove(id) }
func (s *Simulator) RemovePostDynamicsFunc(id int) { s.post.remove(id) }

func (s *Simulator) currentRun() *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// SimulationBodies returns the bodies of the current run.
func (s *Simulator) SimulationBodies() []*SimulationBody {
	r := s.currentRun()
	if r == nil {
		return nil
	}
	return append([]*SimulationBody(nil), r.bodies...)
}

func (s *Simulator) FindSimulationBody(bi *item.BodyItem) *SimulationBody {
	r := s.currentRun()
	if r == nil {
		return nil
	}
	return r.byItem[bi]
}

func (s *Simulator) FindSimulationBodyByName(name string) *SimulationBody {
	r := s.currentRun()
	if r == nil {
		return nil
	}
	for _, sb := range r.bodies {
		if sb.body.Name() == name {
			return sb
		}
	}
	return nil
}

// CloneMap returns the clone map of the current run, nil when idle.
func (s *Simulator) CloneMap() *body.CloneMap {
	r := s.currentRun()
	if r == nil {
		return nil
	}
	return r.cloneMap
}

func (s *Simulator) Gravity() mgl64.Vec3 {
	if g, ok := s.backend.(GravitySource); ok {
		return g.Gravity()
	}
	return DefaultGravity
}

// Collisions returns the contacts found in the last step.
func (s *Simulator) Collisions() []collision.LinkPair {
	r := s.currentRun()
	if r == nil {
		return nil
	}
	r.colMu.Lock()
	defer r.colMu.Unlock()
	return append([]collision.LinkPair(nil), r.collisions...)
}

// SetExternalForce applies f (world) at point (link coordinates) every step
// until cleared, or for duration simulated seconds when positive. A nil link
// selects the root link. It replaces any force on the same link.
func (s *Simulator) SetExternalForce(bi *item.BodyItem, link *body.Link, point, f mgl64.Vec3, duration float64) {
	s.pertMu.Lock()
	defer s.pertMu.Unlock()
	s.pertSeq++
	s.perturb.Store(s.perturb.Load().withForce(externalForce{
		key:      perturbationKey{item: bi, link: linkIndex(link)},
		seq:      s.pertSeq,
		point:    point,
		force:    f,
		duration: duration,
	}))
}

func (s *Simulator) ClearExternalForces() {
	s.pertMu.Lock()
	defer s.pertMu.Unlock()
	next := s.perturb.Load().clone()
	next.forces = nil
	s.perturb.Store(next)
}

// SetVirtualElasticString pulls attach (link coordinates) towards goal
// (world) with a spring proportional to the body mass.
func (s *Simulator) SetVirtualElasticString(bi *item.BodyItem, link *body.Link, attach, goal mgl64.Vec3) {
	s.pertMu.Lock()
	defer s.pertMu.Unlock()
	s.perturb.Store(s.perturb.Load().withString(elasticString{
		key:    perturbationKey{item: bi, link: linkIndex(link)},
		attach: attach,
		goal:   goal,
	}))
}

func (s *Simulator) ClearVirtualElasticStrings() {
	s.pertMu.Lock()
	defer s.pertMu.Unlock()
	next := s.perturb.Load().clone()
	next.strings = nil
	s.perturb.Store(next)
}

// SetForcedPosition pins the root of the body to T before and after every
// step.
func (s *Simulator) SetForcedPosition(bi *item.BodyItem, T mgl64.Mat4) {
	s.pertMu.Lock()
	defer s.pertMu.Unlock()
	s.perturb.Store(s.perturb.Load().withForced(forcedPosition{item: bi, T: T}))
}

func (s *Simulator) IsForcedPositionActiveFor(bi *item.BodyItem) bool {
	return s.perturb.Load().isForced(bi)
}

func (s *Simulator) ClearForcedPositions() {
	s.pertMu.Lock()
	defer s.pertMu.Unlock()
	next := s.perturb.Load().clone()
	next.forced = nil
	s.perturb.Store(next)
}

func linkIndex(l *body.Link) int {
	if l == nil {
		return 0
	}
	return l.Index()
}

// Store writes the configuration to a.
func (s *Simulator) Store(a item.Archive) {
	s.Config().Store(a)
}

// Restore reads the configuration from a. It fails while a run is active.
func (s *Simulator) Restore(a item.Archive) error {
	if s.IsRunning() {
		return fmt.Errorf("restore: %w", dynamo.ErrAlreadyRunning)
	}
	cfg := s.Config()
	if err := cfg.Restore(a); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return s.SetConfig(cfg)
}

func (s *Simulator) reportControllerFailure(sb *SimulationBody, c control.Controller, err error) {
	s.log().Error("controller failed; holding efforts",
		zap.String("body", sb.body.Name()), zap.String("controller", c.Name()), zap.Error(err))
	s.metrics().IncControllerFailures()
}

func (s *Simulator) setState(st State) {
	s.state.Store(int32(st))
	s.metrics().SetState(int(st))
}

// Wait blocks until the current run finishes and returns how it ended. When
// idle it returns the result of the last run.
func (s *Simulator) Wait() FinishInfo {
	r := s.currentRun()
	if r != nil {
		<-r.done
		return r.finish
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFinish
}

// Done returns a channel closed when the current run finishes, or a closed
// channel when idle.
func (s *Simulator) Done() <-chan struct{} {
	if r := s.currentRun(); r != nil {
		return r.done
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (s *Simulator) realtimeDelay(r *run) time.Duration {
	elapsed := time.Duration(float64(r.frame-r.wallFrame) * r.cfg.TimeStep * float64(time.Second))
	return time.Until(r.wallBase.Add(elapsed))
}
