package response

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/integrators"
	"github.com/san-kum/cstrsim/internal/lti"
)

// forcedSystem adapts an LTI system to dynamo.Flow with an input that is
// linear over the current sample interval [t0, t1].
type forcedSystem struct {
	sys    *lti.System
	t0, t1 float64
	u0, u1 []float64
	buf    []float64
}

func (f *forcedSystem) Dim() int { return f.sys.StateDim() }

func (f *forcedSystem) Derive(dx, x dynamo.State, t float64) {
	copy(dx, f.sys.Derivative(x, f.input(t)))
}

func (f *forcedSystem) input(t float64) []float64 {
	if len(f.u0) == 0 {
		return nil
	}
	s := (t - f.t0) / (f.t1 - f.t0)
	for i := range f.buf {
		f.buf[i] = f.u0[i] + s*(f.u1[i]-f.u0[i])
	}
	return f.buf
}

func (f *forcedSystem) interval(t0, t1 float64, u0, u1 []float64) {
	f.t0, f.t1, f.u0, f.u1 = t0, t1, u0, u1
	if len(f.buf) != len(u0) {
		f.buf = make([]float64, len(u0))
	}
}

func newIntegrator(m Method) (dynamo.Stepper, error) {
	switch m {
	case RK4:
		return integrators.NewRK4(), nil
	case RK45:
		return integrators.NewRK45(), nil
	case Euler:
		return integrators.NewEuler(), nil
	}
	return nil, fmt.Errorf("%w: %q has no integrator", ErrUnknownMethod, m)
}

func marchIntegrator(ctx context.Context, sys *lti.System, times []float64, in func(int) []float64, states [][]float64, o options) error {
	integ, err := newIntegrator(o.method)
	if err != nil {
		return err
	}
	cfg := dynamo.DefaultConfig()
	cfg.Tolerance = o.tol
	cfg.MaxDt = o.maxStep
	if cfg.MaxDt <= 0 {
		cfg.MaxDt = defaultMaxStep(sys)
	}

	f := &forcedSystem{sys: sys}
	dt := math.Inf(1)
	for k := 1; k < len(times); k++ {
		if err := canceled(ctx); err != nil {
			return err
		}
		t0, t1 := times[k-1], times[k]
		f.interval(t0, t1, in(k-1), in(k))

		x := dynamo.State(states[k-1])
		if adaptive, ok := integ.(dynamo.AdaptiveStepper); ok {
			x, dt, err = stepAdaptive(adaptive, f, x, t0, t1, dt, cfg)
			if err != nil {
				return &dynamo.IntegrationError{Step: k, Time: t0, State: x, Wrapped: err}
			}
		} else {
			x = stepFixed(integ, f, x, t0, t1, cfg.MaxDt)
		}
		states[k] = x
		if err := diverged(k, t1, x); err != nil {
			return err
		}
	}
	return nil
}

// stepFixed covers [t0, t1] in equal sub-steps no longer than maxDt.
func stepFixed(integ dynamo.Stepper, f *forcedSystem, x dynamo.State, t0, t1, maxDt float64) dynamo.State {
	span := t1 - t0
	substeps := 1
	if span > maxDt {
		substeps = int(math.Ceil(span / maxDt))
	}
	h := span / float64(substeps)
	for i := 0; i < substeps; i++ {
		x = integ.Step(f, x, t0+float64(i)*h, h)
	}
	return x
}

// stepAdaptive covers [t0, t1] with error-controlled steps, starting from
// the step suggested by the previous interval.
func stepAdaptive(integ dynamo.AdaptiveStepper, f *forcedSystem, x dynamo.State, t0, t1, dt float64, cfg dynamo.Config) (dynamo.State, float64, error) {
	t := t0
	dt = math.Min(dt, cfg.MaxDt)
	for t1-t > 1e-12*math.Max(1, math.Abs(t1)) {
		h := math.Min(dt, t1-t)
		next, suggested, ok := integ.StepAdaptive(f, x, t, h, cfg.Tolerance)
		if ok {
			x, t = next, t+h
		}
		dt = math.Min(suggested, cfg.MaxDt)
		if dt < cfg.MinDt {
			return x, dt, fmt.Errorf("%w: dt = %g at t = %g", dynamo.ErrStepTooSmall, dt, t)
		}
	}
	return x, dt, nil
}
