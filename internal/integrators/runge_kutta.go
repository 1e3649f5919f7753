package integrators

import "github.com/san-kum/cstrsim/internal/dynamo"

// RungeKutta steps any explicit tableau, reusing its stage buffers between
// steps.
type RungeKutta struct {
	tab   Tableau
	k     []dynamo.State
	stage dynamo.State
}

func New(tab Tableau) *RungeKutta {
	return &RungeKutta{tab: tab}
}

// NewRK4 is the classical fourth-order method.
func NewRK4() *RungeKutta { return New(RK4Tableau) }

// NewEuler is the explicit first-order method.
func NewEuler() *RungeKutta { return New(EulerTableau) }

func (r *RungeKutta) Tableau() Tableau { return r.tab }

func (r *RungeKutta) ensureScratch(n int) {
	if len(r.stage) == n && len(r.k) == r.tab.Stages() {
		return
	}
	r.k = make([]dynamo.State, r.tab.Stages())
	for s := range r.k {
		r.k[s] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

// stages evaluates the stage derivatives of a step of size h from (x, t).
func (r *RungeKutta) stages(f dynamo.Flow, x dynamo.State, t, h float64) {
	r.ensureScratch(len(x))
	for s, row := range r.tab.A {
		copy(r.stage, x)
		for j, a := range row {
			if a == 0 {
				continue
			}
			for i := range r.stage {
				r.stage[i] += h * a * r.k[j][i]
			}
		}
		f.Derive(r.k[s], r.stage, t+r.tab.C[s]*h)
	}
}

// combine returns x + h·Σ w[s]·k[s] in a fresh state.
func (r *RungeKutta) combine(x dynamo.State, h float64, w []float64) dynamo.State {
	out := x.Clone()
	for s, ws := range w {
		if ws == 0 {
			continue
		}
		for i := range out {
			out[i] += h * ws * r.k[s][i]
		}
	}
	return out
}

func (r *RungeKutta) Step(f dynamo.Flow, x dynamo.State, t, h float64) dynamo.State {
	r.stages(f, x, t, h)
	return r.combine(x, h, r.tab.B)
}
