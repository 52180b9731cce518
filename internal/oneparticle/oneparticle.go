// Package oneparticle implements the one-particle basis: for a single
// neighbor at relative position r⃗ with species z, the scalar values
// φ_v = R_n(r) · Y_l^m(r̂) for every configured index v = (z, n, l, m),
// together with their gradients with respect to the neighbor position.
//
// Indices are laid out species-major: all (n, l, m) channels of species 0,
// then species 1, and so on. The (n, l, m) block is radial-major with the
// spherical-harmonic index l(l+1)+m innermost, so one radial evaluation and
// one spherical evaluation serve the whole block.
package oneparticle

import (
	"fmt"

	"github.com/san-kum/ace/internal/ace"
	"github.com/san-kum/ace/internal/radial"
	"github.com/san-kum/ace/internal/spherical"
	"github.com/san-kum/ace/internal/transforms"
)

// Grad is the gradient of one complex basis value with respect to the
// neighbor's Cartesian position.
type Grad [3]complex128

// Basis is the immutable one-particle basis shared by all evaluations.
type Basis struct {
	NumSpecies int
	NMax       int
	LMax       int

	sph *spherical.Basis
	// radial basis per (central, neighbor) species pair; all entries alias
	// a single basis unless a species-pair transform table is configured
	rad [][]*radial.Basis

	shLen int
	perZ  int
}

// New constructs the basis. When multi is non-nil it supplies a distance
// transform per species pair; otherwise tr is used for every pair.
func New(nz, nmax, lmax int, rin, rcut float64, tr transforms.Transform, multi *transforms.Multi) (*Basis, error) {
	if nz <= 0 {
		return nil, &ace.ConfigError{Field: "species", Reason: fmt.Sprintf("need at least one species, got %d", nz)}
	}
	if multi != nil && multi.NumSpecies() != nz {
		return nil, &ace.ConfigError{Field: "transform.pairs", Reason: fmt.Sprintf("pair table built for %d species, basis has %d", multi.NumSpecies(), nz)}
	}

	sph, err := spherical.New(lmax)
	if err != nil {
		return nil, err
	}

	rad := make([][]*radial.Basis, nz)
	var shared *radial.Basis
	if multi == nil {
		shared, err = radial.New(nmax, rin, rcut, tr)
		if err != nil {
			return nil, err
		}
	}
	for z0 := range rad {
		rad[z0] = make([]*radial.Basis, nz)
		for z := range rad[z0] {
			if multi == nil {
				rad[z0][z] = shared
				continue
			}
			rb, err := radial.New(nmax, rin, rcut, multi.For(z0, z))
			if err != nil {
				return nil, err
			}
			rad[z0][z] = rb
		}
	}

	shLen := spherical.Len(lmax)
	return &Basis{
		NumSpecies: nz,
		NMax:       nmax,
		LMax:       lmax,
		sph:        sph,
		rad:        rad,
		shLen:      shLen,
		perZ:       (nmax + 1) * shLen,
	}, nil
}

// Len returns the total number of one-particle basis functions.
func (b *Basis) Len() int { return b.NumSpecies * b.perZ }

// PerSpecies returns the number of (n, l, m) channels per species block.
func (b *Basis) PerSpecies() int { return b.perZ }

// Index maps (z, n, l, m) to the flat basis index, or -1 when the
// combination is outside the configured ranges.
func (b *Basis) Index(z, n, l, m int) int {
	if z < 0 || z >= b.NumSpecies || n < 0 || n > b.NMax || l < 0 || l > b.LMax || m < -l || m > l {
		return -1
	}
	return z*b.perZ + n*b.shLen + spherical.Index(l, m)
}

// Attrs returns the (z, n, l, m) identifier of a flat index.
func (b *Basis) Attrs(v int) (z, n, l, m int) {
	z = v / b.perZ
	rest := v % b.perZ
	n = rest / b.shLen
	sh := rest % b.shLen
	// invert sh = l(l+1)+m with |m| <= l
	for l = 0; (l+1)*(l+1) <= sh; l++ {
	}
	m = sh - l*(l+1)
	return
}

// Scratch holds the per-call buffers of one evaluation worker. A Scratch
// may be reused sequentially but never shared between concurrent calls.
type Scratch struct {
	rvals, rderivs []float64
	y              []complex128
	dy             []spherical.Grad
	sph            *spherical.Scratch
	phi            []complex128
	grad           []Grad
}

// NewScratch allocates buffers sized for this basis.
func (b *Basis) NewScratch() *Scratch {
	return &Scratch{
		rvals:   make([]float64, b.NMax+1),
		rderivs: make([]float64, b.NMax+1),
		y:       make([]complex128, b.shLen),
		dy:      make([]spherical.Grad, b.shLen),
		sph:     b.sph.NewScratch(),
		phi:     make([]complex128, b.perZ),
		grad:    make([]Grad, b.perZ),
	}
}

// EvalNeighbor computes the species block of one neighbor: phi[j] and
// grad[j] for the (n, l, m) channels, j relative to the returned block
// start b.Index(nb.Z, 0, 0, 0). The returned slices are owned by the
// scratch and valid until its next use.
func (b *Basis) EvalNeighbor(z0 int, nb ace.Neighbor, s *Scratch) (start int, phi []complex128, grad []Grad, err error) {
	if z0 < 0 || z0 >= b.NumSpecies {
		return 0, nil, nil, fmt.Errorf("central species %d of %d: %w", z0, b.NumSpecies, ace.ErrSpecies)
	}
	if nb.Z < 0 || nb.Z >= b.NumSpecies {
		return 0, nil, nil, fmt.Errorf("neighbor species %d of %d: %w", nb.Z, b.NumSpecies, ace.ErrSpecies)
	}

	r := nb.R.Norm()
	if r == 0 {
		return 0, nil, nil, ace.ErrZeroDistance
	}
	u := nb.R.Scale(1 / r)

	if err := b.rad[z0][nb.Z].Eval(r, s.rvals, s.rderivs); err != nil {
		return 0, nil, nil, err
	}
	b.sph.Eval(u, s.y, s.dy, s.sph)

	rinv := 1 / r
	for l := 0; l <= b.LMax; l++ {
		for m := -l; m <= l; m++ {
			sh := spherical.Index(l, m)
			y := s.y[sh]
			dy := s.dy[sh]

			// tangential part of the unit-sphere gradient
			dot := dy[0]*complex(u[0], 0) + dy[1]*complex(u[1], 0) + dy[2]*complex(u[2], 0)
			var tang Grad
			for c := 0; c < 3; c++ {
				tang[c] = dy[c] - dot*complex(u[c], 0)
			}

			for n := 0; n <= b.NMax; n++ {
				j := n*b.shLen + sh
				rv := complex(s.rvals[n], 0)
				rd := complex(s.rderivs[n], 0)
				s.phi[j] = rv * y
				for c := 0; c < 3; c++ {
					s.grad[j][c] = rd*y*complex(u[c], 0) + rv*complex(rinv, 0)*tang[c]
				}
			}
		}
	}

	return nb.Z * b.perZ, s.phi, s.grad, nil
}
