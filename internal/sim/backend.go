package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bodysim/internal/collision"
)

// Backend computes what one step does. The simulator decides when and how
// often to call it.
type Backend interface {
	// InitializeSimulation is called on the goroutine that starts the run,
	// before the first step. Returning false aborts the start.
	InitializeSimulation(bodies []*SimulationBody) bool
	// StepSimulation advances the active bodies by one time step. Returning
	// false terminates the run abnormally.
	StepSimulation(active []*SimulationBody) bool
}

// ThreadHooks is implemented by backends that need per-goroutine setup. Both
// methods run on the simulation goroutine.
type ThreadHooks interface {
	InitializeThread()
	FinalizeThread()
}

// Finalizer is implemented by backends that release resources after a run.
// FinalizeSimulation runs on the consumer dispatcher after the final flush.
type Finalizer interface {
	FinalizeSimulation()
}

type GravitySource interface {
	Gravity() mgl64.Vec3
}

// ContactConsumer is implemented by backends that use collision results.
type ContactConsumer interface {
	WantsContacts() bool
	SetContacts(pairs []collision.LinkPair)
}

var DefaultGravity = mgl64.Vec3{0, 0, -9.80665}
