package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

// firstOrderLag is x' = (u - x) / tau with a constant input u.
type firstOrderLag struct{ tau, u float64 }

func (l *firstOrderLag) Dim() int { return 1 }

func (l *firstOrderLag) Derive(dx, x dynamo.State, t float64) {
	dx[0] = (l.u - x[0]) / l.tau
}

// oscillator is x'' = -x written as a first-order system.
type oscillator struct{}

func (o *oscillator) Dim() int { return 2 }

func (o *oscillator) Derive(dx, x dynamo.State, t float64) {
	dx[0], dx[1] = x[1], -x[0]
}

// ramp is x' = t, which every scheme of order >= 2 integrates exactly.
type ramp struct{}

func (ramp) Dim() int { return 1 }

func (ramp) Derive(dx, x dynamo.State, t float64) { dx[0] = t }

func integrate(rk dynamo.Stepper, f dynamo.Flow, x dynamo.State, h float64, steps int) dynamo.State {
	for i := 0; i < steps; i++ {
		x = rk.Step(f, x, float64(i)*h, h)
	}
	return x
}

func TestTableauConsistency(t *testing.T) {
	for _, tab := range []Tableau{EulerTableau, RK4Tableau, DormandPrince} {
		t.Run(tab.Name, func(t *testing.T) {
			if len(tab.C) != tab.Stages() || len(tab.A) != tab.Stages() {
				t.Fatalf("stage count mismatch: %d c, %d rows, %d weights", len(tab.C), len(tab.A), tab.Stages())
			}
			sum := 0.0
			for _, b := range tab.B {
				sum += b
			}
			if math.Abs(sum-1) > 1e-13 {
				t.Errorf("weights sum to %g", sum)
			}
			for s, row := range tab.A {
				if len(row) != s {
					t.Errorf("row %d has %d entries", s, len(row))
				}
				rowSum := 0.0
				for _, a := range row {
					rowSum += a
				}
				if math.Abs(rowSum-tab.C[s]) > 1e-13 {
					t.Errorf("row %d sums to %g, want c = %g", s, rowSum, tab.C[s])
				}
			}
			if len(tab.Err) > 0 {
				errSum := 0.0
				for _, e := range tab.Err {
					errSum += e
				}
				if math.Abs(errSum) > 1e-13 {
					t.Errorf("error weights sum to %g", errSum)
				}
			}
		})
	}
}

func TestRK4Accuracy(t *testing.T) {
	h := 0.01
	steps := 100

	x := integrate(NewRK4(), &oscillator{}, dynamo.State{1.0, 0.0}, h, steps)

	expectedX := math.Cos(float64(steps) * h)
	expectedV := -math.Sin(float64(steps) * h)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestTimeDependentFlow(t *testing.T) {
	for _, rk := range []dynamo.Stepper{NewRK4(), NewRK45()} {
		x := integrate(rk, ramp{}, dynamo.State{0}, 0.5, 4)
		if math.Abs(x[0]-2) > 1e-12 {
			t.Errorf("%T: x(2) = %.15f, want 2", rk, x[0])
		}
	}
	// Euler samples t at the left edge: 0.5·(0 + 0.5 + 1 + 1.5).
	if x := integrate(NewEuler(), ramp{}, dynamo.State{0}, 0.5, 4); math.Abs(x[0]-1.5) > 1e-12 {
		t.Errorf("euler: x(2) = %.15f, want 1.5", x[0])
	}
}

func TestStepResponseOfLag(t *testing.T) {
	tests := []struct {
		name string
		rk   dynamo.Stepper
		tol  float64
	}{
		{"euler", NewEuler(), 5e-3},
		{"rk4", NewRK4(), 1e-9},
		{"rk45", NewRK45(), 1e-9},
	}

	lag := &firstOrderLag{tau: 2, u: 1}
	h := 0.01
	steps := 300

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := integrate(tt.rk, lag, dynamo.State{0}, h, steps)
			want := 1 - math.Exp(-float64(steps)*h/lag.tau)
			if math.Abs(x[0]-want) > tt.tol {
				t.Errorf("x(%.1f) = %.10f, want %.10f", float64(steps)*h, x[0], want)
			}
		})
	}
}

func TestStepDoesNotAliasState(t *testing.T) {
	x0 := dynamo.State{1, 0}
	rk := NewRK4()
	x1 := rk.Step(&oscillator{}, x0, 0, 0.1)
	x2 := rk.Step(&oscillator{}, x1, 0.1, 0.1)

	if x0[0] != 1 || x0[1] != 0 {
		t.Errorf("initial state modified: %v", x0)
	}
	if &x1[0] == &x2[0] {
		t.Error("consecutive steps returned the same buffer")
	}
}

func TestStepperResizes(t *testing.T) {
	rk := NewRK4()
	rk.Step(&oscillator{}, dynamo.State{1, 0}, 0, 0.1)
	x := rk.Step(&firstOrderLag{tau: 1, u: 1}, dynamo.State{0}, 0, 0.1)
	if len(x) != 1 || x[0] <= 0 {
		t.Errorf("got %v after switching dimension", x)
	}
}
