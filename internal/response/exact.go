package response

import (
	"context"
	"math"

	"github.com/san-kum/cstrsim/internal/lti"
	"gonum.org/v1/gonum/mat"
)

// hold is the first-order-hold discretization of (A, B) for one step size:
//
//	x[k+1] = Ad·x[k] + Bd0·u[k] + Bd1·u[k+1]
type hold struct {
	dt       float64
	ad       *mat.Dense
	bd0, bd1 *mat.Dense
}

// discretize takes the exponential of
//
//	| A·dt  B·dt  0 |
//	|  0     0    I |
//	|  0     0    0 |
//
// whose first block row holds Ad, Bd0 + Bd1 and Bd1.
func discretize(a, b *mat.Dense, n, m int, dt float64) *hold {
	size := n + 2*m
	aug := mat.NewDense(size, size, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, a.At(i, j)*dt)
		}
		for j := 0; j < m; j++ {
			aug.Set(i, n+j, b.At(i, j)*dt)
		}
	}
	for j := 0; j < m; j++ {
		aug.Set(n+j, n+m+j, 1)
	}

	var e mat.Dense
	e.Exp(aug)

	h := &hold{dt: dt, ad: mat.DenseCopyOf(e.Slice(0, n, 0, n))}
	if m > 0 {
		h.bd1 = mat.DenseCopyOf(e.Slice(0, n, n+m, n+2*m))
		h.bd0 = mat.DenseCopyOf(e.Slice(0, n, n, n+m))
		h.bd0.Sub(h.bd0, h.bd1)
	}
	return h
}

// holdCache reuses discretizations across steps of (nearly) equal size,
// which is the common case for grids built with Linspace.
type holdCache struct {
	a, b  *mat.Dense
	n, m  int
	holds []*hold
}

func (c *holdCache) get(dt float64) *hold {
	for _, h := range c.holds {
		if math.Abs(h.dt-dt) <= 1e-9*math.Max(h.dt, dt) {
			return h
		}
	}
	h := discretize(c.a, c.b, c.n, c.m, dt)
	c.holds = append(c.holds, h)
	return h
}

func (h *hold) step(x, u0, u1 []float64) []float64 {
	n := len(x)
	var next, tmp mat.VecDense
	next.MulVec(h.ad, mat.NewVecDense(n, x))
	if h.bd0 != nil {
		tmp.MulVec(h.bd0, mat.NewVecDense(len(u0), u0))
		next.AddVec(&next, &tmp)
		tmp.Reset()
		tmp.MulVec(h.bd1, mat.NewVecDense(len(u1), u1))
		next.AddVec(&next, &tmp)
	}
	return mat.Col(nil, 0, &next)
}

func marchExact(ctx context.Context, sys *lti.System, times []float64, in func(int) []float64, states [][]float64, _ options) error {
	n, m, _ := sys.Dims()
	cache := &holdCache{a: sys.A(), b: sys.B(), n: n, m: m}
	for k := 1; k < len(times); k++ {
		if err := canceled(ctx); err != nil {
			return err
		}
		h := cache.get(times[k] - times[k-1])
		states[k] = h.step(states[k-1], in(k-1), in(k))
		if err := diverged(k, times[k], states[k]); err != nil {
			return err
		}
	}
	return nil
}
