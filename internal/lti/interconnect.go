package lti

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SingularityThreshold is the largest condition number of I - D·K, after
// row and column equilibration, accepted when closing instantaneous loops.
const SingularityThreshold = 1e12

// portTable maps block -> port -> position in the stacked signal vector.
type portTable map[string]map[string]int

func (t portTable) resolve(r Ref, kind string) (int, error) {
	if g := r.gain(); g != 1 && g != -1 {
		return 0, fmt.Errorf("%w: reference %q has sign %g, want +1 or -1", ErrInvalidName, r.Name(), r.Sign)
	}
	ports, ok := t[r.Block]
	if !ok {
		return 0, &PortError{Ref: r, Kind: kind, Reason: "no such block"}
	}
	idx, ok := ports[r.Port]
	if !ok {
		return 0, &PortError{Ref: r, Kind: kind, Reason: fmt.Sprintf("block %q has no such port", r.Block)}
	}
	return idx, nil
}

// Interconnect composes blocks into one system.
//
// The stacked system has the blocks' states, inputs u and outputs y in
// order. Each connection adds its signed sources to the row of its
// destination in K, so u = K·y + E·w where E routes the external inputs w
// named by inplist. Outputs depend on inputs through D, which makes
// (I - D·K)·y = C·x + D·E·w; this is solved directly and fails with
// ErrAlgebraicLoop when the matrix is singular. Singularity is judged on
// the equilibrated matrix so that widely differing loop gains do not
// count against a well-posed loop. The result exposes inplist
// as inputs and outlist as outputs, named "block.port", and keeps every
// block state.
//
// A port may appear both in inplist and as a connection destination; the
// external and internal drives then add.
func Interconnect(name string, blocks []*System, conns []Connection, inplist, outlist []Ref) (*System, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	var (
		as, bs, cs, ds []*mat.Dense
		ns, ms, ps     []int
		n, m, p        int
	)
	inputs, outputs := portTable{}, portTable{}
	for _, blk := range blocks {
		if blk == nil {
			return nil, fmt.Errorf("%w: nil block in %q", ErrInvalidName, name)
		}
		if _, dup := inputs[blk.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBlock, blk.name)
		}
		inputs[blk.name] = make(map[string]int, len(blk.inputs))
		for i, port := range blk.inputs {
			inputs[blk.name][port] = m + i
		}
		outputs[blk.name] = make(map[string]int, len(blk.outputs))
		for i, port := range blk.outputs {
			outputs[blk.name][port] = p + i
		}

		bn, bm, bp := blk.Dims()
		as, bs, cs, ds = append(as, blk.a), append(bs, blk.b), append(cs, blk.c), append(ds, blk.d)
		ns, ms, ps = append(ns, bn), append(ms, bm), append(ps, bp)
		n, m, p = n+bn, m+bm, p+bp
	}

	a := blockDiag(as, ns, ns)
	b := blockDiag(bs, ns, ms)
	c := blockDiag(cs, ps, ns)
	d := blockDiag(ds, ps, ms)

	k := zeros(m, p)
	for _, conn := range conns {
		if len(conn.Sources) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyConnection, conn.Dest.Name())
		}
		di, err := inputs.resolve(conn.Dest, "input")
		if err != nil {
			return nil, err
		}
		for _, src := range conn.Sources {
			si, err := outputs.resolve(src, "output")
			if err != nil {
				return nil, err
			}
			k.Set(di, si, k.At(di, si)+src.gain())
		}
	}

	mi, po := len(inplist), len(outlist)
	inNames := make([]string, mi)
	e := zeros(m, mi)
	for j, r := range inplist {
		i, err := inputs.resolve(r, "input")
		if err != nil {
			return nil, err
		}
		e.Set(i, j, r.gain())
		inNames[j] = r.Name()
	}
	outNames := make([]string, po)
	sel := zeros(po, p)
	for j, r := range outlist {
		i, err := outputs.resolve(r, "output")
		if err != nil {
			return nil, err
		}
		sel.Set(j, i, r.gain())
		outNames[j] = r.Name()
	}

	// y = G·x + H·w
	var g, h *mat.Dense
	if p > 0 {
		f := identity(p)
		if dk := mul(p, p, d, k); dk != nil {
			f.Sub(f, dk)
		}
		scaled, ok := equilibrate(p, f)
		if !ok {
			return nil, fmt.Errorf("%w: %q: I - D·K has a zero row or column", ErrAlgebraicLoop, name)
		}
		var check mat.LU
		check.Factorize(scaled)
		if cond := check.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > SingularityThreshold {
			return nil, fmt.Errorf("%w: %q: I - D·K is singular or ill-conditioned (scaled condition number %g)", ErrAlgebraicLoop, name, cond)
		}
		var lu mat.LU
		lu.Factorize(f)
		var err error
		if g, err = solveLU(&lu, p, n, c); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrAlgebraicLoop, name, err)
		}
		if h, err = solveLU(&lu, p, mi, mul(p, mi, d, e)); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrAlgebraicLoop, name, err)
		}
	}

	// u = K·G·x + (K·H + E)·w
	kg := mul(m, n, k, g)
	uw := add(m, mi, mul(m, mi, k, h), e)

	return New(name, inNames, outNames,
		add(n, n, a, mul(n, n, b, kg)),
		mul(n, mi, b, uw),
		mul(po, n, sel, g),
		mul(po, mi, sel, h),
	)
}

// solveLU returns F⁻¹·rhs for an r×c right-hand side, or nil when it is empty.
func solveLU(lu *mat.LU, r, c int, rhs *mat.Dense) (*mat.Dense, error) {
	out := zeros(r, c)
	if out == nil || rhs == nil {
		return out, nil
	}
	// A mat.Condition error only warns about the unscaled conditioning,
	// which Interconnect has already judged; the solution is still set.
	if err := lu.SolveTo(out, false, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	return out, nil
}
