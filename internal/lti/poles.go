package lti

import (
	"errors"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Poles returns the eigenvalues of A sorted by real part, most negative
// first. A static block has no poles.
func Poles(s *System) ([]complex128, error) {
	if s.n == 0 {
		return nil, nil
	}
	var eig mat.Eigen
	if ok := eig.Factorize(s.a, mat.EigenNone); !ok {
		return nil, errors.New("lti: eigenvalue decomposition did not converge")
	}
	vals := eig.Values(nil)
	sort.Slice(vals, func(i, j int) bool {
		if real(vals[i]) != real(vals[j]) {
			return real(vals[i]) < real(vals[j])
		}
		return imag(vals[i]) < imag(vals[j])
	})
	return vals, nil
}

// IsStable reports whether every pole lies strictly in the left half-plane.
func IsStable(s *System) (bool, error) {
	poles, err := Poles(s)
	if err != nil {
		return false, err
	}
	for _, p := range poles {
		if real(p) >= 0 || cmplx.IsNaN(p) {
			return false, nil
		}
	}
	return true, nil
}

// DCGain returns the steady-state gain -C·A⁻¹·B + D. It fails when A is
// singular, e.g. for blocks with integrators.
func DCGain(s *System) (*mat.Dense, error) {
	n, m, p := s.Dims()
	if p == 0 || m == 0 {
		return nil, nil
	}
	gain := copyOf(p, m, s.d)
	if n == 0 {
		return gain, nil
	}
	var x mat.Dense
	if err := x.Solve(s.a, s.b); err != nil {
		return nil, err
	}
	var cx mat.Dense
	cx.Mul(s.c, &x)
	gain.Sub(gain, &cx)
	return gain, nil
}
