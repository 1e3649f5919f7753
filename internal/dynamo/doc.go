// Package dynamo provides the numerical integration primitives used to
// march continuous-time systems through time.
//
// The package defines:
//
//   - [State]: vector representing system state
//   - [Flow]: a vector field dx/dt = f(x, t) with its inputs folded in
//   - [Stepper]: fixed-step integrator interface
//   - [AdaptiveStepper]: stepper with embedded error control
//
// # Example
//
//	rk := integrators.NewRK4()
//	x = rk.Step(flow, x, t, h)
//
// Steppers keep stage buffers and are NOT safe for concurrent use.
package dynamo
