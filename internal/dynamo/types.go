package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Flow is a continuous-time vector field dx/dt = f(x, t). A forced system
// evaluates its own input signal at t, so steppers never see inputs.
type Flow interface {
	Dim() int
	// Derive writes f(x, t) into dx. dx has length Dim() and never
	// aliases x.
	Derive(dx, x State, t float64)
}

type Stepper interface {
	Step(f Flow, x State, t, h float64) State
}

// AdaptiveStepper also estimates its local error. StepAdaptive returns the
// candidate state, a suggested next step and whether the error estimate
// was within tol. A rejected step must be retried from the original state
// with the suggested step.
type AdaptiveStepper interface {
	Stepper
	StepAdaptive(f Flow, x State, t, h, tol float64) (State, float64, bool)
}

// Config bounds an integration run.
type Config struct {
	Tolerance float64
	MaxDt     float64
	MinDt     float64
}

func DefaultConfig() Config {
	return Config{
		Tolerance: 1e-6,
		MaxDt:     0.1,
		MinDt:     1e-8,
	}
}
