// Package lti provides linear time-invariant state-space blocks and the
// machinery to wire them into a single closed-loop system.
//
// A block is described by
//
//	dx/dt = A x + B u
//	y     = C x + D u
//
// with named, ordered input and output ports. Blocks are built once and
// never mutated:
//
//   - [New]: generic validated constructor
//   - [NewPID]: proportional-integral-derivative compensator
//   - [NewDelay]: first-order hardware lag
//   - [NewPassthrough]: identity setpoint injector
//   - [Append]: block-diagonal combination of independent blocks
//
// # Interconnection
//
// [Interconnect] resolves a symbolic wiring list of [Connection] values
// against the blocks' port tables, builds summing junctions, closes any
// algebraic loop with a direct linear solve and exposes only the requested
// external inputs and outputs:
//
//	conns := []lti.Connection{
//	    lti.Connect("pid.e_T", "set_points.T_sp", "-sensors.sense_T"),
//	}
//	cl, err := lti.Interconnect("closed_loop", blocks, conns, inplist, outlist)
//
// Wiring errors are reported at composition time and wrap the sentinels in
// errors.go.
package lti
