package sim

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/collision"
	"github.com/san-kum/bodysim/internal/control"
	"github.com/san-kum/bodysim/internal/dynamo"
	"github.com/san-kum/bodysim/internal/item"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSim(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Simulator Suite")
}

// fakeBackend integrates joint efforts as accelerations and records what it
// saw on every step.
type fakeBackend struct {
	mu        sync.Mutex
	initOK    bool
	initPanic any
	failAt    int
	gate      chan struct{}
	steps     int
	active    []int
	rootForce []mgl64.Vec3
	finalized bool
	dt        float64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{initOK: true, failAt: -1}
}

func (f *fakeBackend) InitializeSimulation(bodies []*SimulationBody) bool {
	if f.initPanic != nil {
		panic(f.initPanic)
	}
	if len(bodies) > 0 {
		f.dt = bodies[0].TimeStep()
	}
	return f.initOK
}

func (f *fakeBackend) StepSimulation(active []*SimulationBody) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps++
	if f.failAt >= 0 && f.steps >= f.failAt {
		return false
	}
	f.active = append(f.active, len(active))
	for _, sb := range active {
		b := sb.Body()
		f.rootForce = append(f.rootForce, b.RootLink().ExtForce)
		for _, j := range b.Joints() {
			j.Joint.DQ += j.Joint.U * f.dt
			j.Joint.Q += j.Joint.DQ * f.dt
		}
		b.CalcForwardKinematics()
	}
	return true
}

func (f *fakeBackend) InitializeThread() {
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeBackend) FinalizeThread() {}

func (f *fakeBackend) FinalizeSimulation() {
	f.mu.Lock()
	f.finalized = true
	f.mu.Unlock()
}

func (f *fakeBackend) stepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps
}

func (f *fakeBackend) forces() []mgl64.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mgl64.Vec3(nil), f.rootForce...)
}

func (f *fakeBackend) activeCounts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.active...)
}

// countdown finishes after n control calls.
type countdown struct {
	n       int
	calls   int
	initOK  bool
	stopped bool
}

func (c *countdown) Name() string                  { return "countdown" }
func (c *countdown) Initialize(io control.IO) bool { return c.initOK }
func (c *countdown) Input()                        {}
func (c *countdown) Output()                       {}
func (c *countdown) Stop()                         { c.stopped = true }
func (c *countdown) Control() error {
	c.calls++
	if c.calls >= c.n {
		return dynamo.ErrControllerDone
	}
	return nil
}

func freeFlyer(name string) *body.Body {
	root := body.NewLink("root")
	root.JointType = body.JointFree
	root.Mass = 2
	return body.New(name, root)
}

func twoLinkPendulum(name string) *body.Body {
	base := body.NewLink("base")
	upper := body.NewLink("upper")
	upper.JointType = body.JointRevolute
	upper.JointAxis = mgl64.Vec3{0, 1, 0}
	upper.Mass = 1
	upper.COM = mgl64.Vec3{0, 0, -0.5}
	lower := body.NewLink("lower")
	lower.JointType = body.JointRevolute
	lower.JointAxis = mgl64.Vec3{0, 1, 0}
	lower.Offset = mgl64.Translate3D(0, 0, -1)
	lower.Mass = 1
	lower.COM = mgl64.Vec3{0, 0, -0.5}
	base.AppendChild(upper)
	upper.AppendChild(lower)
	return body.New(name, base)
}

func worldWith(bodies ...*body.Body) (*item.World, []*item.BodyItem) {
	w := item.NewWorld("test")
	items := make([]*item.BodyItem, len(bodies))
	for i, b := range bodies {
		items[i] = item.NewBodyItem(b)
		Expect(w.AddBody(items[i])).To(Succeed())
	}
	return w, items
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnSimulationEvent(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, k := range l.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func frameNumbers(bi *item.BodyItem) []int {
	return bi.Recording().FrameNumbers()
}

func sequence(from, to int) []int {
	seq := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		seq = append(seq, i)
	}
	return seq
}

// stubDetector counts how the simulator drives it.
type stubDetector struct {
	ready   bool
	mu      sync.Mutex
	bodies  int
	detects int
	clears  int
}

func (d *stubDetector) Name() string { return "stub" }

func (d *stubDetector) AddBody(b *body.Body, selfCollision bool) {
	d.mu.Lock()
	d.bodies++
	d.mu.Unlock()
}

func (d *stubDetector) MakeReady() bool { return d.ready }

func (d *stubDetector) Detect(fn func(pair collision.LinkPair)) {
	d.mu.Lock()
	d.detects++
	d.mu.Unlock()
}

func (d *stubDetector) Clear() {
	d.mu.Lock()
	d.clears++
	d.mu.Unlock()
}

func (d *stubDetector) counts() (detects, clears int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detects, d.clears
}

func spanNamed(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func intAttribute(s sdktrace.ReadOnlySpan, key string) (int64, bool) {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.AsInt64(), true
		}
	}
	return 0, false
}
