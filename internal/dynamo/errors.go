package dynamo

import (
	"errors"
	"fmt"
)

// Lifecycle errors reported by the simulator.
var (
	// ErrAlreadyRunning indicates a start request while a run is active.
	ErrAlreadyRunning = errors.New("dynamo: simulation already running")

	// ErrNotRunning indicates a pause/resume request outside a run.
	ErrNotRunning = errors.New("dynamo: simulation not running")

	// ErrNoWorld indicates the simulator has no world to take bodies from.
	ErrNoWorld = errors.New("dynamo: no world attached")

	// ErrNoBackend indicates the simulator was built without a dynamics backend.
	ErrNoBackend = errors.New("dynamo: no dynamics backend")

	// ErrSetupFailed is wrapped by every error that aborts a start.
	ErrSetupFailed = errors.New("dynamo: simulation setup failed")

	// ErrCloneFailed indicates a body could not be cloned into the run.
	ErrCloneFailed = errors.New("dynamo: body clone failed")

	// ErrInitializeFailed indicates the backend rejected the world.
	ErrInitializeFailed = errors.New("dynamo: backend initialization failed")

	// ErrControllerInitFailed indicates a required controller did not initialize.
	ErrControllerInitFailed = errors.New("dynamo: controller initialization failed")

	// ErrControllerDone is returned by a controller that finished its task.
	ErrControllerDone = errors.New("dynamo: controller finished")

	// ErrHookFailed indicates a dynamics hook panicked.
	ErrHookFailed = errors.New("dynamo: dynamics hook failed")

	// ErrStepFailed indicates the backend reported a failed step.
	ErrStepFailed = errors.New("dynamo: simulation step failed")

	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidTimeStep indicates a non-positive time step.
	ErrInvalidTimeStep = errors.New("dynamo: time step must be positive")
)

// SimulationError wraps an error with the frame it happened on.
type SimulationError struct {
	Frame   int
	Time    float64
	Body    string
	Wrapped error
}

func (e *SimulationError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("frame %d (t=%.4f) body %s: %v", e.Frame, e.Time, e.Body, e.Wrapped)
	}
	return fmt.Sprintf("frame %d (t=%.4f): %v", e.Frame, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
