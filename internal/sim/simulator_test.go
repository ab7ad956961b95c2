package sim

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/bodysim/internal/body"
	"github.com/san-kum/bodysim/internal/collision"
	"github.com/san-kum/bodysim/internal/dynamo"
	"github.com/san-kum/bodysim/internal/item"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// liveConfig runs without an end at wall-clock pace.
func liveConfig() Config {
	cfg := DefaultConfig()
	cfg.RealtimeSync = true
	return cfg
}

func specifiedConfig(seconds float64) Config {
	cfg := DefaultConfig()
	cfg.TimeRange = TimeRangeSpecified
	cfg.TimeLength = seconds
	cfg.FlushPeriod = 0
	return cfg
}

var _ = Describe("Simulator", func() {
	var (
		backend *fakeBackend
		sim     *Simulator
		events  *eventLog
		ctx     context.Context
	)

	BeforeEach(func() {
		backend = newFakeBackend()
		events = &eventLog{}
		ctx = context.Background()
	})

	AfterEach(func() {
		if sim != nil {
			sim.StopSimulation()
		}
	})

	start := func(cfg Config, bodies ...*body.Body) []*item.BodyItem {
		sim = New(backend, cfg)
		sim.AddObserver(events)
		w, items := worldWith(bodies...)
		sim.SetWorld(w)
		Expect(sim.StartSimulation(ctx, true)).To(Succeed())
		return items
	}

	Describe("starting and stopping", func() {
		It("finishes without steps when stopped before the first step", func() {
			backend.gate = make(chan struct{})
			items := start(DefaultConfig(), twoLinkPendulum("arm"))

			sim.RequestStop()
			close(backend.gate)
			info := sim.Wait()

			Expect(info.Abnormal).To(BeFalse())
			Expect(info.Frame).To(Equal(0))
			Expect(backend.stepCount()).To(Equal(0))
			Expect(items[0].Recording().Len()).To(Equal(0))
			Expect(events.kinds()).To(Equal([]EventKind{EventStarted, EventFinished}))
			Expect(sim.State()).To(Equal(StateIdle))
		})

		It("rejects a second start while running", func() {
			start(liveConfig(), twoLinkPendulum("arm"))
			err := sim.StartSimulation(ctx, true)
			Expect(errors.Is(err, dynamo.ErrAlreadyRunning)).To(BeTrue())
		})

		It("fails to start without a world", func() {
			sim = New(backend, DefaultConfig())
			err := sim.StartSimulation(ctx, true)
			Expect(errors.Is(err, dynamo.ErrSetupFailed)).To(BeTrue())
			Expect(errors.Is(err, dynamo.ErrNoWorld)).To(BeTrue())
			Expect(sim.IsRunning()).To(BeFalse())
		})

		It("aborts the start when the backend refuses to initialize", func() {
			backend.initOK = false
			sim = New(backend, DefaultConfig())
			sim.AddObserver(events)
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			err := sim.StartSimulation(ctx, true)
			Expect(errors.Is(err, dynamo.ErrInitializeFailed)).To(BeTrue())
			Expect(sim.State()).To(Equal(StateIdle))
			Expect(events.kinds()).To(BeEmpty())
		})

		It("aborts the start when a required controller fails", func() {
			sim = New(backend, DefaultConfig())
			w, items := worldWith(twoLinkPendulum("arm"))
			items[0].AttachController(&countdown{n: 1}, true)
			sim.SetWorld(w)

			err := sim.StartSimulation(ctx, true)
			Expect(errors.Is(err, dynamo.ErrControllerInitFailed)).To(BeTrue())
		})

		It("excludes a body whose optional controller fails", func() {
			cfg := specifiedConfig(0.01)
			sim = New(backend, cfg)
			w, items := worldWith(twoLinkPendulum("arm"), freeFlyer("flyer"))
			items[0].AttachController(&countdown{n: 1}, false)
			sim.SetWorld(w)

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			Expect(sim.FindSimulationBody(items[0])).To(BeNil())
			Expect(sim.FindSimulationBody(items[1])).NotTo(BeNil())
			sim.Wait()
			Expect(items[0].Recording().Len()).To(Equal(0))
			Expect(items[1].Recording().Len()).To(Equal(10))
		})

		It("logs the panic value when the backend panics during initialization", func() {
			core, logs := observer.New(zap.ErrorLevel)
			backend.initPanic = "solver table missing"
			sim = New(backend, DefaultConfig())
			sim.SetLogger(zap.New(core))
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			err := sim.StartSimulation(ctx, true)
			Expect(errors.Is(err, dynamo.ErrInitializeFailed)).To(BeTrue())
			entries := logs.FilterMessage("backend initialize panicked").All()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ContextMap()).To(HaveKeyWithValue("panic", "solver table missing"))
			Expect(sim.State()).To(Equal(StateIdle))
		})

		It("keeps a run started as soon as the last one ends in the running state", func() {
			sim = New(backend, specifiedConfig(0.001))
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			for i := 0; i < 50; i++ {
				Expect(sim.SetConfig(specifiedConfig(0.001))).To(Succeed())
				Expect(sim.StartSimulation(ctx, true)).To(Succeed())
				Expect(sim.SetConfig(liveConfig())).To(Succeed())
				err := sim.StartSimulation(ctx, true)
				for errors.Is(err, dynamo.ErrAlreadyRunning) {
					err = sim.StartSimulation(ctx, true)
				}
				Expect(err).NotTo(HaveOccurred())
				time.Sleep(time.Millisecond)
				Expect(sim.State()).To(Equal(StateRunning))
				sim.StopSimulation()
				Expect(sim.State()).To(Equal(StateIdle))
			}
		})

		It("records start and run spans on the configured provider", func() {
			rec := tracetest.NewSpanRecorder()
			sim = New(backend, specifiedConfig(0.005))
			sim.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()

			spans := rec.Ended()
			Expect(spanNamed(spans, "sim.StartSimulation")).NotTo(BeNil())
			run := spanNamed(spans, "sim.Run")
			Expect(run).NotTo(BeNil())
			frames, ok := intAttribute(run, "sim.frames")
			Expect(ok).To(BeTrue())
			Expect(frames).To(Equal(int64(5)))
			Expect(run.Status().Code).To(Equal(codes.Unset))
		})

		It("marks the start span failed when setup fails", func() {
			rec := tracetest.NewSpanRecorder()
			sim = New(backend, DefaultConfig())
			sim.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

			Expect(sim.StartSimulation(ctx, true)).NotTo(Succeed())
			st := spanNamed(rec.Ended(), "sim.StartSimulation")
			Expect(st).NotTo(BeNil())
			Expect(st.Status().Code).To(Equal(codes.Error))
			Expect(spanNamed(rec.Ended(), "sim.Run")).To(BeNil())
		})

		It("runs the backend finalizer after the last flush", func() {
			start(specifiedConfig(0.005), twoLinkPendulum("arm"))
			sim.Wait()
			Expect(backend.finalized).To(BeTrue())
		})
	})

	Describe("recording", func() {
		It("keeps every frame without gaps in full mode", func() {
			items := start(specifiedConfig(1.0), twoLinkPendulum("arm"))
			info := sim.Wait()

			Expect(info.Frame).To(Equal(1000))
			Expect(info.Time).To(BeNumerically("~", 1.0, 1e-9))
			Expect(frameNumbers(items[0])).To(Equal(sequence(1, 1000)))
			st, ok := items[0].State()
			Expect(ok).To(BeTrue())
			Expect(st.Frame).To(Equal(1000))
			Expect(sim.SimulationFrame()).To(Equal(1000))
		})

		It("keeps only the last K frames in tail mode", func() {
			cfg := specifiedConfig(0.1)
			cfg.Recording = RecordTail
			cfg.TailFrames = 10
			items := start(cfg, twoLinkPendulum("arm"))
			sim.Wait()

			Expect(frameNumbers(items[0])).To(Equal(sequence(91, 100)))
		})

		It("publishes only the current state when recording is off", func() {
			cfg := specifiedConfig(0.05)
			cfg.Recording = RecordNone
			items := start(cfg, twoLinkPendulum("arm"))
			sim.Wait()

			Expect(items[0].Recording().Len()).To(Equal(0))
			st, ok := items[0].State()
			Expect(ok).To(BeTrue())
			Expect(st.Frame).To(Equal(50))
		})

		It("continues from the last frame when not reset", func() {
			items := start(specifiedConfig(0.01), twoLinkPendulum("arm"))
			sim.Wait()

			cfg := specifiedConfig(0.02)
			Expect(sim.SetConfig(cfg)).To(Succeed())
			Expect(sim.StartSimulation(ctx, false)).To(Succeed())
			info := sim.Wait()

			Expect(info.Frame).To(Equal(20))
			Expect(frameNumbers(items[0])).To(Equal(sequence(1, 20)))
		})

		It("never mutates the master model", func() {
			arm := twoLinkPendulum("arm")
			sim = New(backend, specifiedConfig(0.01))
			w, items := worldWith(arm)
			sim.SetWorld(w)
			sim.AddPreDynamicsFunc(func() {
				sim.FindSimulationBody(items[0]).Body().Joint(0).Joint.U = 1
			})

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			st, _ := items[0].State()
			Expect(st.Q[0]).To(BeNumerically(">", 0))
			Expect(arm.Joint(0).Joint.Q).To(Equal(0.0))
		})

		It("records a device only in the frame it was reported changed", func() {
			arm := twoLinkPendulum("arm")
			arm.AddDevice(&body.Device{Name: "lamp", Kind: "light", LinkIndex: 1})
			sim = New(backend, specifiedConfig(0.005))
			w, items := worldWith(arm)
			sim.SetWorld(w)
			calls := 0
			sim.AddPostDynamicsFunc(func() {
				calls++
				if calls == 3 {
					sb := sim.FindSimulationBody(items[0])
					sb.Body().Devices()[0].On = true
					sb.NotifyUnrecordedDeviceStateChange(0)
				}
			})

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			frames := items[0].Recording().Frames()
			Expect(frames).To(HaveLen(5))
			for _, f := range frames {
				if f.Frame == 3 {
					Expect(f.Devices).To(Equal([]body.DeviceState{{Index: 0, On: true}}))
				} else {
					Expect(f.Devices).To(BeEmpty())
				}
			}
			Expect(arm.Devices()[0].On).To(BeFalse())
		})
	})

	Describe("pause and resume", func() {
		It("stops advancing while paused and keeps frames contiguous", func() {
			items := start(liveConfig(), twoLinkPendulum("arm"))
			Eventually(backend.stepCount).Should(BeNumerically(">", 10))
			clone := sim.FindSimulationBody(items[0]).Body()
			cloneMap := sim.CloneMap()

			Expect(sim.PauseSimulation()).To(Succeed())
			Eventually(func() int { return events.count(EventPaused) }).Should(Equal(1))
			paused := sim.SimulationFrame()
			steps := backend.stepCount()
			Consistently(backend.stepCount, 50*time.Millisecond).Should(Equal(steps))
			Expect(sim.SimulationFrame()).To(Equal(paused))
			Expect(sim.PauseSimulation()).To(MatchError(dynamo.ErrNotRunning))

			Expect(sim.RestartSimulation()).To(Succeed())
			Eventually(func() int { return events.count(EventResumed) }).Should(Equal(1))
			Eventually(backend.stepCount).Should(BeNumerically(">", steps+10))
			Expect(sim.FindSimulationBody(items[0]).Body()).To(BeIdenticalTo(clone))
			Expect(sim.CloneMap()).To(BeIdenticalTo(cloneMap))
			sim.StopSimulation()

			info := sim.Wait()
			Expect(frameNumbers(items[0])).To(Equal(sequence(1, info.Frame)))
		})

		It("refuses to restart when not paused", func() {
			start(liveConfig(), twoLinkPendulum("arm"))
			Expect(sim.RestartSimulation()).To(MatchError(dynamo.ErrNotRunning))
		})
	})

	Describe("hooks", func() {
		It("calls pre, mid and post hooks in order once per step", func() {
			sim = New(backend, specifiedConfig(0.005))
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			var order []string
			sim.AddPreDynamicsFunc(func() { order = append(order, "pre") })
			sim.AddMidDynamicsFunc(func() { order = append(order, "mid") })
			sim.AddPostDynamicsFunc(func() { order = append(order, "post") })
			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()

			Expect(order).To(HaveLen(15))
			Expect(order[:3]).To(Equal([]string{"pre", "mid", "post"}))
		})

		It("treats removal of a removed or unknown hook as a no-op", func() {
			sim = New(backend, specifiedConfig(0.01))
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			var calls atomic.Int32
			id := sim.AddPostDynamicsFunc(func() { calls.Add(1) })
			sim.RemovePostDynamicsFunc(id)
			sim.RemovePostDynamicsFunc(id)
			sim.RemovePostDynamicsFunc(id + 100)
			kept := sim.AddPostDynamicsFunc(func() { calls.Add(10) })
			Expect(kept).NotTo(Equal(id))

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			Expect(calls.Load()).To(Equal(int32(100)))
		})

		It("applies a removal made during a pass from the next step", func() {
			sim = New(backend, specifiedConfig(0.003))
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			var victim int
			var removerCalls, victimCalls int
			sim.AddPostDynamicsFunc(func() {
				removerCalls++
				if removerCalls == 1 {
					sim.RemovePostDynamicsFunc(victim)
				}
			})
			victim = sim.AddPostDynamicsFunc(func() { victimCalls++ })

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			Expect(removerCalls).To(Equal(3))
			Expect(victimCalls).To(Equal(1))
		})

		It("ends the run abnormally when a hook panics", func() {
			sim = New(backend, DefaultConfig())
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)
			sim.AddPreDynamicsFunc(func() { panic("boom") })

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			info := sim.Wait()
			Expect(info.Abnormal).To(BeTrue())
			Expect(errors.Is(info.Err, dynamo.ErrHookFailed)).To(BeTrue())
		})

		It("lets a hook request a stop", func() {
			sim = New(backend, DefaultConfig())
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)
			sim.AddPostDynamicsFunc(func() {
				if sim.CurrentFrame() >= 4 {
					sim.RequestStop()
				}
			})

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			info := sim.Wait()
			Expect(info.Abnormal).To(BeFalse())
			Expect(info.Frame).To(Equal(5))
		})
	})

	Describe("termination", func() {
		It("reports a failed backend step as an abnormal finish", func() {
			backend.failAt = 3
			start(DefaultConfig(), twoLinkPendulum("arm"))
			info := sim.Wait()

			Expect(info.Abnormal).To(BeTrue())
			Expect(info.Frame).To(Equal(2))
			Expect(errors.Is(info.Err, dynamo.ErrStepFailed)).To(BeTrue())
			var simErr *dynamo.SimulationError
			Expect(errors.As(info.Err, &simErr)).To(BeTrue())
			Expect(simErr.Frame).To(Equal(3))
		})

		It("stops once no controller is active", func() {
			cfg := DefaultConfig()
			cfg.TimeRange = TimeRangeActiveControl
			sim = New(backend, cfg)
			w, items := worldWith(twoLinkPendulum("arm"))
			c := &countdown{n: 5, initOK: true}
			items[0].AttachController(c, true)
			sim.SetWorld(w)

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			info := sim.Wait()
			Expect(info.Frame).To(Equal(5))
			Expect(c.stopped).To(BeTrue())
		})

		It("stops at the end of the timeline", func() {
			cfg := DefaultConfig()
			cfg.TimeRange = TimeRangeTimeline
			sim = New(backend, cfg)
			w, _ := worldWith(twoLinkPendulum("arm"))
			w.Timeline().SetRange(0, 0.03)
			sim.SetWorld(w)

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			Expect(sim.Wait().Frame).To(Equal(30))
			Expect(w.Timeline().CurrentTime()).To(BeNumerically("~", 0.03, 1e-9))
		})
	})

	Describe("perturbations", func() {
		It("applies an external force on every step until cleared", func() {
			sim = New(backend, specifiedConfig(0.01))
			w, items := worldWith(freeFlyer("flyer"))
			sim.SetWorld(w)
			push := mgl64.Vec3{1, 0, 0}
			sim.SetExternalForce(items[0], nil, mgl64.Vec3{}, push, 0)

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			forces := backend.forces()
			Expect(forces).To(HaveLen(10))
			for _, f := range forces {
				Expect(f).To(Equal(push))
			}
		})

		It("stops applying forces from the step after they are cleared", func() {
			sim = New(backend, specifiedConfig(0.01))
			w, items := worldWith(freeFlyer("flyer"))
			sim.SetWorld(w)
			push := mgl64.Vec3{1, 0, 0}
			sim.SetExternalForce(items[0], nil, mgl64.Vec3{}, push, 0)
			sim.AddPostDynamicsFunc(func() {
				if sim.CurrentFrame() == 4 {
					sim.ClearExternalForces()
				}
			})

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			forces := backend.forces()
			Expect(forces).To(HaveLen(10))
			Expect(forces[:5]).To(HaveEach(push))
			Expect(forces[5:]).To(HaveEach(mgl64.Vec3{}))
		})

		It("expires a force after its duration", func() {
			sim = New(backend, specifiedConfig(0.01))
			w, items := worldWith(freeFlyer("flyer"))
			sim.SetWorld(w)
			sim.SetExternalForce(items[0], nil, mgl64.Vec3{}, mgl64.Vec3{0, 2, 0}, 0.005)

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			applied := 0
			for _, f := range backend.forces() {
				if f.Len() > 0 {
					applied++
				}
			}
			Expect(applied).To(Equal(5))
		})

		It("pulls a link towards the goal with an elastic string", func() {
			sim = New(backend, specifiedConfig(0.001))
			w, items := worldWith(freeFlyer("flyer"))
			sim.SetWorld(w)
			sim.SetVirtualElasticString(items[0], nil, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1})

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			forces := backend.forces()
			Expect(forces).To(HaveLen(1))
			Expect(forces[0].Sub(mgl64.Vec3{0, 0, ElasticStringStiffness * 2}).Len()).To(BeNumerically("<", 1e-9))
		})

		It("pins the root while a forced position is active", func() {
			sim = New(backend, specifiedConfig(0.01))
			w, items := worldWith(freeFlyer("flyer"))
			sim.SetWorld(w)
			pose := mgl64.Translate3D(1, 2, 3)
			sim.SetForcedPosition(items[0], pose)
			Expect(sim.IsForcedPositionActiveFor(items[0])).To(BeTrue())

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			st, _ := items[0].State()
			Expect(st.Root.Position.Sub(mgl64.Vec3{1, 2, 3}).Len()).To(BeNumerically("<", 1e-9))

			sim.ClearForcedPositions()
			Expect(sim.IsForcedPositionActiveFor(items[0])).To(BeFalse())
		})
	})

	Describe("collision detection", func() {
		selfCollision := func() Config {
			cfg := specifiedConfig(0.005)
			cfg.SelfCollision = true
			return cfg
		}

		It("runs without contacts when no detector is available", func() {
			items := start(selfCollision(), twoLinkPendulum("arm"))
			info := sim.Wait()
			Expect(info.Abnormal).To(BeFalse())
			Expect(info.Frame).To(Equal(5))
			Expect(frameNumbers(items[0])).To(Equal(sequence(1, 5)))
		})

		It("runs without contacts when the detector cannot be built", func() {
			calls := 0
			sim = New(backend, selfCollision())
			sim.SetCollisionDetectorFactory(func() (collision.Detector, error) {
				calls++
				return nil, errors.New("no collision library")
			})
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			info := sim.Wait()
			Expect(info.Abnormal).To(BeFalse())
			Expect(info.Frame).To(Equal(5))
			Expect(calls).To(Equal(1))
			Expect(sim.Collisions()).To(BeEmpty())
		})

		It("queries a ready detector once per step", func() {
			det := &stubDetector{ready: true}
			sim = New(backend, selfCollision())
			sim.SetCollisionDetectorFactory(func() (collision.Detector, error) { return det, nil })
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()
			detects, _ := det.counts()
			Expect(detects).To(Equal(5))
		})

		It("skips detection when there are no candidate pairs", func() {
			det := &stubDetector{ready: false}
			sim = New(backend, selfCollision())
			sim.SetCollisionDetectorFactory(func() (collision.Detector, error) { return det, nil })
			w, _ := worldWith(twoLinkPendulum("arm"))
			sim.SetWorld(w)

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			info := sim.Wait()
			Expect(info.Frame).To(Equal(5))
			detects, clears := det.counts()
			Expect(detects).To(Equal(0))
			Expect(clears).To(BeNumerically(">=", 2))
		})
	})

	Describe("body activity", func() {
		It("drops an inactive body from the step at the next boundary", func() {
			sim = New(backend, specifiedConfig(0.01))
			sim.AddObserver(events)
			w, items := worldWith(twoLinkPendulum("arm"), freeFlyer("flyer"))
			sim.SetWorld(w)
			sim.AddPostDynamicsFunc(func() {
				if sim.CurrentFrame() == 4 {
					sim.FindSimulationBody(items[1]).SetActive(false)
				}
			})

			Expect(sim.StartSimulation(ctx, true)).To(Succeed())
			sim.Wait()

			counts := backend.activeCounts()
			Expect(counts).To(HaveLen(10))
			Expect(counts[:5]).To(HaveEach(2))
			Expect(counts[5:]).To(HaveEach(1))
			Expect(events.count(EventBodyListUpdated)).To(Equal(1))
		})

		It("leaves static bodies out of the step", func() {
			floor := body.New("floor", body.NewLink("floor"))
			start(specifiedConfig(0.002), twoLinkPendulum("arm"), floor)
			sim.Wait()
			Expect(backend.activeCounts()).To(Equal([]int{1, 1}))
		})
	})
})
