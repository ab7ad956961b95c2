// Package dynamo holds the vocabulary shared by the simulation engine and the
// pluggable dynamics layer.
//
// It defines:
//
//   - [State] and [Control]: flat vectors used by joint-space integrators
//   - [System]: an ODE right-hand side (dX/dt = f(X, u, t))
//   - [Integrator]: a numerical stepper over a [System]
//   - the sentinel errors reported by the engine lifecycle
//
// The engine itself lives in package sim; nothing here owns goroutines.
//
// # Example
//
//	sys := backend.NewJointSystem(link)
//	x := integrators.NewRK4().Step(sys, x0, u, t, dt)
package dynamo
