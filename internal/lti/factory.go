package lti

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultDerivativeFilter is the roll-off time constant used for the
// derivative term when Gains.Tf is left at zero.
const DefaultDerivativeFilter = 0.01

// Gains holds PID tuning. Tf is the derivative filter time constant and is
// only used when Kd is non-zero.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
	Tf float64
}

// NewPID realizes Kp + Ki/s + Kd·s/(Tf·s+1) with one input (the tracking
// error) and one output (the actuator command).
//
// The integrator contributes a state only when Ki is non-zero and the
// filtered derivative only when Kd is non-zero, so a pure P controller is a
// static gain. The realization is always proper.
func NewPID(name, input, output string, g Gains) (*System, error) {
	tf := g.Tf
	if tf < 0 {
		return nil, fmt.Errorf("%w: pid %q derivative filter %g", ErrNegativeTimeConstant, name, tf)
	}
	if tf == 0 {
		tf = DefaultDerivativeFilter
	}

	var diagA, colB, rowC []float64
	d := g.Kp
	if g.Ki != 0 {
		diagA = append(diagA, 0)
		colB = append(colB, 1)
		rowC = append(rowC, g.Ki)
	}
	if g.Kd != 0 {
		diagA = append(diagA, -1/tf)
		colB = append(colB, 1)
		rowC = append(rowC, -g.Kd/(tf*tf))
		d += g.Kd / tf
	}

	in, out := []string{input}, []string{output}
	dm := mat.NewDense(1, 1, []float64{d})
	n := len(diagA)
	if n == 0 {
		return New(name, in, out, nil, nil, nil, dm)
	}
	return New(name, in, out,
		mat.NewDiagDense(n, diagA),
		mat.NewDense(n, 1, colB),
		mat.NewDense(1, n, rowC),
		dm,
	)
}

// NewDelay builds the first-order lag 1/(tau·s+1) used for actuator and
// sensor hardware. tau == 0 yields a stateless unity pass-through.
func NewDelay(name, input, output string, tau float64) (*System, error) {
	if tau < 0 {
		return nil, fmt.Errorf("%w: delay %q tau %g", ErrNegativeTimeConstant, name, tau)
	}
	in, out := []string{input}, []string{output}
	if tau == 0 {
		return New(name, in, out, nil, nil, nil, mat.NewDense(1, 1, []float64{1}))
	}
	return New(name, in, out,
		mat.NewDense(1, 1, []float64{-1 / tau}),
		mat.NewDense(1, 1, []float64{1 / tau}),
		mat.NewDense(1, 1, []float64{1}),
		nil,
	)
}

// NewPassthrough builds a stateless block whose i-th output equals its i-th
// input.
func NewPassthrough(name string, inputs, outputs []string) (*System, error) {
	if len(inputs) != len(outputs) {
		return nil, fmt.Errorf("%w: passthrough %q has %d inputs and %d outputs",
			ErrDimensionMismatch, name, len(inputs), len(outputs))
	}
	return New(name, inputs, outputs, nil, nil, nil, identity(len(inputs)))
}

// Append combines independent blocks block-diagonally under fresh port
// names. Channel k's states, inputs and outputs keep their order and no
// cross-coupling is introduced.
func Append(name string, inputs, outputs []string, blocks ...*System) (*System, error) {
	var (
		as, bs, cs, ds []*mat.Dense
		ns, ms, ps     []int
		m, p           int
	)
	for _, blk := range blocks {
		n, bm, bp := blk.Dims()
		as, bs, cs, ds = append(as, blk.a), append(bs, blk.b), append(cs, blk.c), append(ds, blk.d)
		ns, ms, ps = append(ns, n), append(ms, bm), append(ps, bp)
		m += bm
		p += bp
	}
	if m != len(inputs) || p != len(outputs) {
		return nil, fmt.Errorf("%w: append %q: blocks have %d inputs/%d outputs, %d/%d names given",
			ErrDimensionMismatch, name, m, p, len(inputs), len(outputs))
	}
	return New(name, inputs, outputs,
		blockDiag(as, ns, ns),
		blockDiag(bs, ns, ms),
		blockDiag(cs, ps, ns),
		blockDiag(ds, ps, ms),
	)
}
