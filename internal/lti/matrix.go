package lti

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// gonum refuses zero-length dimensions, so an empty matrix is represented
// by nil throughout this package. The helpers below take the expected
// shape explicitly and treat nil operands as all-zero.

func zeros(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, nil)
}

func identity(n int) *mat.Dense {
	if n == 0 {
		return nil
	}
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

// isNil reports whether m is nil, including a nil *mat.Dense held in the
// interface.
func isNil(m mat.Matrix) bool {
	if m == nil {
		return true
	}
	d, ok := m.(*mat.Dense)
	return ok && d == nil
}

// copyOf returns an r×c dense copy of m, or zeros when m is nil.
func copyOf(r, c int, m mat.Matrix) *mat.Dense {
	out := zeros(r, c)
	if out == nil || isNil(m) {
		return out
	}
	out.Copy(m)
	return out
}

func mul(r, c int, a, b *mat.Dense) *mat.Dense {
	out := zeros(r, c)
	if out == nil || a == nil || b == nil {
		return out
	}
	out.Mul(a, b)
	return out
}

func add(r, c int, a, b *mat.Dense) *mat.Dense {
	out := zeros(r, c)
	if out == nil {
		return nil
	}
	if a != nil {
		out.Add(out, a)
	}
	if b != nil {
		out.Add(out, b)
	}
	return out
}

// equilibrate scales the rows and then the columns of the n×n matrix m so
// that each has a largest magnitude of one. It reports false when a row or
// column is entirely zero.
func equilibrate(n int, m *mat.Dense) (*mat.Dense, bool) {
	out := mat.DenseCopyOf(m)
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		scale := floats.Norm(row, math.Inf(1))
		if scale == 0 {
			return nil, false
		}
		floats.Scale(1/scale, row)
	}
	for j := 0; j < n; j++ {
		col := mat.Col(nil, j, out)
		scale := floats.Norm(col, math.Inf(1))
		if scale == 0 {
			return nil, false
		}
		for i := range col {
			out.Set(i, j, col[i]/scale)
		}
	}
	return out, true
}

// blockDiag stacks square or rectangular blocks along the diagonal.
// rows[k] and cols[k] give the shape of parts[k], which may be nil.
func blockDiag(parts []*mat.Dense, rows, cols []int) *mat.Dense {
	r, c := 0, 0
	for k := range parts {
		r += rows[k]
		c += cols[k]
	}
	out := zeros(r, c)
	if out == nil {
		return nil
	}
	i, j := 0, 0
	for k, p := range parts {
		if p != nil {
			out.Slice(i, i+rows[k], j, j+cols[k]).(*mat.Dense).Copy(p)
		}
		i += rows[k]
		j += cols[k]
	}
	return out
}

// matVec computes m·v for an r-row matrix, treating nil as zero.
func matVec(r int, m *mat.Dense, v []float64) []float64 {
	out := make([]float64, r)
	if m == nil {
		return out
	}
	_, c := m.Dims()
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += m.At(i, j) * v[j]
		}
		out[i] = sum
	}
	return out
}
