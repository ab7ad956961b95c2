// Package backend provides the reference dynamics backend: joint-space
// dynamics of each body tree integrated with one of the integrators in
// package integrators.
//
// Joint accelerations come from M(q)·ddq = τ - h(q, dq) - g(q), with the mass
// matrix and bias terms assembled from link Jacobians computed by forward
// kinematics. Free-floating roots are advanced as a single rigid body.
package backend
