// Package control provides joint-space controllers for simulated bodies.
//
// A [Controller] is driven once per simulation step on the simulation
// goroutine in three phases: Input reads sensor and joint state, Control
// computes new efforts and Output writes them back to the joints:
//
//   - [PID]: Proportional-Integral-Derivative joint servo
//   - [LQR]: full-state feedback over joint positions and velocities
//   - [None]: passive body, zero effort
//   - [Manual]: efforts set from another goroutine, optionally time limited
//
// # Usage
//
//	pid := control.NewPID(10, 0.1, 5, 0)  // Kp, Ki, Kd, target
//	bodyItem.AttachController(pid, true)
//	// the simulator calls Initialize at start, then Input/Control/Output
//
// Controllers read per-run overrides such as "kp=20 target=0.5" from the
// option string returned by [IO.OptionString].
package control
