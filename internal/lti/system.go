package lti

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// System is an immutable state-space block with named ports.
//
// Matrices with a zero dimension are stored as nil; the accessors return
// copies so callers cannot mutate a constructed block.
type System struct {
	name    string
	inputs  []string
	outputs []string
	n       int
	a, b    *mat.Dense
	c, d    *mat.Dense
}

// New builds a block from its matrices. The state dimension is taken from a;
// a nil matrix stands for the all-zero matrix of the implied shape, so
// New(name, in, out, nil, nil, nil, d) is a static gain block.
func New(name string, inputs, outputs []string, a, b, c, d mat.Matrix) (*System, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := checkPorts(name, "input", inputs); err != nil {
		return nil, err
	}
	if err := checkPorts(name, "output", outputs); err != nil {
		return nil, err
	}

	n := 0
	if !isNil(a) {
		r, cc := a.Dims()
		if r != cc {
			return nil, fmt.Errorf("%w: block %q: A is %dx%d, want square", ErrDimensionMismatch, name, r, cc)
		}
		n = r
	}
	m, p := len(inputs), len(outputs)

	shapes := []struct {
		label string
		mat   mat.Matrix
		r, c  int
	}{
		{"B", b, n, m},
		{"C", c, p, n},
		{"D", d, p, m},
	}
	for _, s := range shapes {
		if isNil(s.mat) {
			continue
		}
		r, cc := s.mat.Dims()
		if r != s.r || cc != s.c {
			return nil, fmt.Errorf("%w: block %q: %s is %dx%d, want %dx%d",
				ErrDimensionMismatch, name, s.label, r, cc, s.r, s.c)
		}
	}

	return &System{
		name:    name,
		inputs:  append([]string(nil), inputs...),
		outputs: append([]string(nil), outputs...),
		n:       n,
		a:       copyOf(n, n, a),
		b:       copyOf(n, m, b),
		c:       copyOf(p, n, c),
		d:       copyOf(p, m, d),
	}, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, ". \t") {
		return fmt.Errorf("%w: block name %q", ErrInvalidName, name)
	}
	return nil
}

func checkPorts(block, kind string, ports []string) error {
	seen := make(map[string]struct{}, len(ports))
	for _, p := range ports {
		if p == "" {
			return fmt.Errorf("%w: block %q has an empty %s port name", ErrDuplicatePort, block, kind)
		}
		if _, ok := seen[p]; ok {
			return fmt.Errorf("%w: block %q %s %q", ErrDuplicatePort, block, kind, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// Name returns the block's display name.
func (s *System) Name() string { return s.name }

// Inputs returns a copy of the ordered input port names.
func (s *System) Inputs() []string { return append([]string(nil), s.inputs...) }

// Outputs returns a copy of the ordered output port names.
func (s *System) Outputs() []string { return append([]string(nil), s.outputs...) }

// StateDim returns the number of internal states.
func (s *System) StateDim() int { return s.n }

// InputDim returns the number of input ports.
func (s *System) InputDim() int { return len(s.inputs) }

// OutputDim returns the number of output ports.
func (s *System) OutputDim() int { return len(s.outputs) }

// Dims returns states, inputs and outputs.
func (s *System) Dims() (n, m, p int) { return s.n, len(s.inputs), len(s.outputs) }

// A returns a copy of the state matrix, or nil when the block has no states.
func (s *System) A() *mat.Dense { return copyOf(s.n, s.n, s.a) }

// B returns a copy of the input matrix, or nil when it is empty.
func (s *System) B() *mat.Dense { return copyOf(s.n, len(s.inputs), s.b) }

// C returns a copy of the output matrix, or nil when it is empty.
func (s *System) C() *mat.Dense { return copyOf(len(s.outputs), s.n, s.c) }

// D returns a copy of the feedthrough matrix, or nil when it is empty.
func (s *System) D() *mat.Dense { return copyOf(len(s.outputs), len(s.inputs), s.d) }

// InputIndex returns the position of the named input port, or -1.
func (s *System) InputIndex(port string) int { return indexOf(s.inputs, port) }

// OutputIndex returns the position of the named output port, or -1.
func (s *System) OutputIndex(port string) int { return indexOf(s.outputs, port) }

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}

// Derivative evaluates A x + B u.
func (s *System) Derivative(x, u []float64) []float64 {
	dx := matVec(s.n, s.a, x)
	bu := matVec(s.n, s.b, u)
	for i := range dx {
		dx[i] += bu[i]
	}
	return dx
}

// Output evaluates C x + D u.
func (s *System) Output(x, u []float64) []float64 {
	p := len(s.outputs)
	y := matVec(p, s.c, x)
	du := matVec(p, s.d, u)
	for i := range y {
		y[i] += du[i]
	}
	return y
}

// IsStatic reports whether the block has no internal states.
func (s *System) IsStatic() bool { return s.n == 0 }

func (s *System) String() string {
	return fmt.Sprintf("%s: states=%d inputs=%v outputs=%v", s.name, s.n, s.inputs, s.outputs)
}
