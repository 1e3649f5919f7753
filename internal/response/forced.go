// Package response computes the forced response of LTI systems on a
// sampled time grid.
package response

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/san-kum/cstrsim/internal/dynamo"
	"github.com/san-kum/cstrsim/internal/lti"
	"gonum.org/v1/gonum/mat"
)

// Method selects how the state is advanced between samples.
type Method string

const (
	// Exact discretizes with a first-order hold on the input, using the
	// matrix exponential. It is exact for inputs that are linear between
	// samples.
	Exact Method = "exact"
	RK4   Method = "rk4"
	RK45  Method = "rk45"
	Euler Method = "euler"
)

// Methods lists the supported methods, default first.
func Methods() []Method {
	return []Method{Exact, RK4, RK45, Euler}
}

// ParseMethod maps a name to a Method; the empty string selects Exact.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return Exact, nil
	}
	for _, m := range Methods() {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

type options struct {
	method  Method
	x0      []float64
	maxStep float64
	tol     float64
}

// Option configures Forced.
type Option func(*options)

// WithMethod selects the simulation method.
func WithMethod(m Method) Option {
	return func(o *options) { o.method = m }
}

// WithInitialState starts from x0 instead of the zero state.
func WithInitialState(x0 []float64) Option {
	return func(o *options) { o.x0 = append([]float64(nil), x0...) }
}

// WithMaxStep bounds the integration sub-step of the rk4, rk45 and euler
// methods. By default the bound is half the inverse of the fastest pole.
func WithMaxStep(h float64) Option {
	return func(o *options) { o.maxStep = h }
}

// WithTolerance sets the local error tolerance of rk45.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tol = tol }
}

// Result holds a sampled response. Column k of each matrix belongs to
// Times[k]. A matrix is nil when the system has no corresponding signals.
type Result struct {
	Times   []float64
	Inputs  []string
	Outputs []string

	U *mat.Dense // m × len(Times)
	X *mat.Dense // n × len(Times)
	Y *mat.Dense // p × len(Times)
}

// Output returns the samples of the named output, or nil.
func (r *Result) Output(name string) []float64 {
	return row(r.Y, indexOf(r.Outputs, name))
}

// Input returns the samples of the named input, or nil.
func (r *Result) Input(name string) []float64 {
	return row(r.U, indexOf(r.Inputs, name))
}

// State returns the samples of state i, or nil.
func (r *Result) State(i int) []float64 {
	return row(r.X, i)
}

func row(m *mat.Dense, i int) []float64 {
	if m == nil || i < 0 {
		return nil
	}
	if r, _ := m.Dims(); i >= r {
		return nil
	}
	return mat.Row(nil, i, m)
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// Forced simulates sys from the zero state (unless WithInitialState is
// given) driven by u, whose column k is the input at times[k]. Inputs are
// taken as linear between samples.
func Forced(ctx context.Context, sys *lti.System, times []float64, u *mat.Dense, opts ...Option) (*Result, error) {
	o := options{method: Exact, tol: dynamo.DefaultConfig().Tolerance}
	for _, opt := range opts {
		opt(&o)
	}

	method, err := ParseMethod(string(o.method))
	if err != nil {
		return nil, err
	}
	o.method = method
	if err := checkTimes(times); err != nil {
		return nil, err
	}
	n, m, _ := sys.Dims()
	samples := len(times)
	if err := checkInput(sys, u, samples); err != nil {
		return nil, err
	}
	x0 := make([]float64, n)
	if o.x0 != nil {
		if len(o.x0) != n {
			return nil, fmt.Errorf("%w: %q has %d states, got %d", ErrInitialState, sys.Name(), n, len(o.x0))
		}
		copy(x0, o.x0)
	}

	in := func(k int) []float64 {
		if m == 0 {
			return nil
		}
		return mat.Col(nil, k, u)
	}

	states := make([][]float64, samples)
	states[0] = x0
	if n > 0 && samples > 1 {
		march := marchIntegrator
		if o.method == Exact {
			march = marchExact
		}
		if err := march(ctx, sys, times, in, states, o); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Times:   append([]float64(nil), times...),
		Inputs:  sys.Inputs(),
		Outputs: sys.Outputs(),
	}
	if m > 0 {
		res.U = mat.DenseCopyOf(u)
	}
	if n > 0 {
		res.X = mat.NewDense(n, samples, nil)
		for k, x := range states {
			res.X.SetCol(k, x)
		}
	}
	if p := sys.OutputDim(); p > 0 {
		res.Y = mat.NewDense(p, samples, nil)
		for k, x := range states {
			res.Y.SetCol(k, sys.Output(x, in(k)))
		}
	}
	return res, nil
}

func checkTimes(times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("%w: no samples", ErrTimeGrid)
	}
	for k, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: t[%d] = %g", ErrTimeGrid, k, t)
		}
		if k > 0 && !(t > times[k-1]) {
			return fmt.Errorf("%w: t[%d] = %g follows t[%d] = %g", ErrTimeGrid, k, t, k-1, times[k-1])
		}
	}
	return nil
}

func checkInput(sys *lti.System, u *mat.Dense, samples int) error {
	m := sys.InputDim()
	rows, cols := 0, 0
	if u != nil {
		rows, cols = u.Dims()
	}
	if m == 0 && rows == 0 {
		return nil
	}
	if rows != m || cols != samples {
		return fmt.Errorf("%w: %q has %d inputs and the grid %d samples, got %dx%d",
			ErrInputDimension, sys.Name(), m, samples, rows, cols)
	}
	return nil
}

func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
	}
	return nil
}

func diverged(k int, t float64, x []float64) error {
	if dynamo.State(x).IsValid() {
		return nil
	}
	return &dynamo.IntegrationError{Step: k, Time: t, State: dynamo.State(x).Clone(), Wrapped: dynamo.ErrInvalidState}
}

// defaultMaxStep is half the inverse spectral radius of A, so explicit
// methods stay inside their stability region on the fastest mode.
func defaultMaxStep(sys *lti.System) float64 {
	poles, err := lti.Poles(sys)
	if err != nil {
		return math.Inf(1)
	}
	rho := 0.0
	for _, p := range poles {
		rho = math.Max(rho, cmplx.Abs(p))
	}
	if rho == 0 {
		return math.Inf(1)
	}
	return 0.5 / rho
}
