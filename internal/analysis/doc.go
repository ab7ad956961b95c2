// Package analysis characterises recorded trajectories.
//
// Everything here works on sampled series, such as the joint columns of a
// stored run, so it never needs to re-run a simulation:
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillation frequency of a joint
//   - [NewPhasePortrait]: q against dq for one joint
//   - [NewPoincareSection]: states sampled when one series crosses a threshold
//
// A small-angle pendulum recorded at time step dt oscillates at
//
//	f, _ := analysis.DominantFrequency(series, dt)
//
// which should be close to 1 / models.Pendulum.SmallAnglePeriod().
package analysis
