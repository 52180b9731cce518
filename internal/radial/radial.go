// Package radial implements the radial part of the one-particle basis:
// Chebyshev polynomials of a transformed distance coordinate, multiplied by
// a smooth cutoff envelope that vanishes quadratically at the cutoff radius.
package radial

import (
	"fmt"

	"github.com/san-kum/ace/internal/ace"
	"github.com/san-kum/ace/internal/transforms"
)

// Basis evaluates R_n(r) for n = 0..NMax and their derivatives dR_n/dr.
//
// The physical distance is first mapped through the configured transform,
// then affinely rescaled so that [RIn, RCut] covers [-1, 1] with r = RCut
// landing on s = +1. The envelope (1-s)^2/4 forces every R_n and its first
// derivative to vanish at the cutoff.
type Basis struct {
	NMax      int
	RIn, RCut float64
	Transform transforms.Transform

	// affine map x -> s precomputed from the transform endpoints
	scale, shift float64
}

// New validates the parameters and precomputes the coordinate rescaling.
func New(nmax int, rin, rcut float64, tr transforms.Transform) (*Basis, error) {
	if nmax < 0 {
		return nil, &ace.ConfigError{Field: "nmax", Reason: fmt.Sprintf("must be non-negative, got %d", nmax)}
	}
	if rcut <= rin || rin < 0 {
		return nil, &ace.ConfigError{Field: "rcut", Reason: fmt.Sprintf("need 0 <= rin < rcut, got rin=%g rcut=%g", rin, rcut)}
	}
	if tr == nil {
		return nil, &ace.ConfigError{Field: "transform", Reason: "nil transform"}
	}
	xLo := tr.Transform(rin)
	xHi := tr.Transform(rcut)
	if xLo == xHi {
		return nil, &ace.ConfigError{Field: "transform", Reason: "transform is constant on [rin, rcut]"}
	}
	b := &Basis{NMax: nmax, RIn: rin, RCut: rcut, Transform: tr}
	b.scale = 2 / (xHi - xLo)
	b.shift = -1 - b.scale*xLo
	return b, nil
}

// Len returns the number of radial channels.
func (b *Basis) Len() int { return b.NMax + 1 }

// Eval fills vals[n] = R_n(r) and derivs[n] = dR_n/dr for every channel.
// Both slices must have length Len(). Distances outside (RIn, RCut] are a
// domain error; the caller is expected to have filtered the neighbor list
// to the cutoff already.
func (b *Basis) Eval(r float64, vals, derivs []float64) error {
	if r <= 0 {
		return fmt.Errorf("radial eval at r=%g: %w", r, ace.ErrZeroDistance)
	}
	if r < b.RIn || r > b.RCut {
		return fmt.Errorf("radial eval at r=%g outside [%g, %g]: %w", r, b.RIn, b.RCut, ace.ErrTransformDomain)
	}

	x := b.Transform.Transform(r)
	dxdr := b.Transform.Deriv(r)
	s := b.scale*x + b.shift
	dsdr := b.scale * dxdr

	// envelope and its s-derivative
	env := (1 - s) * (1 - s) / 4
	denv := -(1 - s) / 2

	// Chebyshev recursion; dT_n/ds = n*U_{n-1}
	tPrev, tCur := 1.0, s
	uPrev, uCur := 1.0, 2*s
	for n := 0; n <= b.NMax; n++ {
		var tn, dtn float64
		switch n {
		case 0:
			tn, dtn = 1, 0
		case 1:
			tn, dtn = s, 1
		default:
			tn = 2*s*tCur - tPrev
			dtn = float64(n) * uCur
			tPrev, tCur = tCur, tn
			uNext := 2*s*uCur - uPrev
			uPrev, uCur = uCur, uNext
		}
		vals[n] = tn * env
		derivs[n] = (dtn*env + tn*denv) * dsdr
	}
	return nil
}

// EvalScalar returns a single channel's value, for plotting and diagnostics.
func (b *Basis) EvalScalar(n int, r float64) (float64, error) {
	if n < 0 || n > b.NMax {
		return 0, fmt.Errorf("radial channel %d out of range [0, %d]: %w", n, b.NMax, ace.ErrInternal)
	}
	vals := make([]float64, b.Len())
	derivs := make([]float64, b.Len())
	if err := b.Eval(r, vals, derivs); err != nil {
		return 0, err
	}
	return vals[n], nil
}
