package integrators

import (
	"math"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// RK45 is the Dormand-Prince 5(4) pair with step-size control.
type RK45 struct {
	rk       *RungeKutta
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		rk:       New(DormandPrince),
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Step takes one fifth-order step of size h regardless of the error
// estimate.
func (r *RK45) Step(f dynamo.Flow, x dynamo.State, t, h float64) dynamo.State {
	return r.rk.Step(f, x, t, h)
}

// StepAdaptive takes one step and reports whether the scaled error
// estimate is within tol, along with the step to try next.
func (r *RK45) StepAdaptive(f dynamo.Flow, x dynamo.State, t, h, tol float64) (dynamo.State, float64, bool) {
	r.rk.stages(f, x, t, h)
	next := r.rk.combine(x, h, r.rk.tab.B)

	k1 := r.rk.k[0]
	errMax := 0.0
	for i := range x {
		est := 0.0
		for s, e := range r.rk.tab.Err {
			est += e * r.rk.k[s][i]
		}
		scale := math.Abs(x[i]) + math.Abs(h*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(h*est)/scale)
	}

	ratio := errMax / tol
	switch {
	case ratio > 1:
		return next, h * math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25)), false
	case ratio > 0:
		return next, h * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2)), true
	}
	return next, h * r.maxScale, true
}
