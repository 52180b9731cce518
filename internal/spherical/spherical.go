// Package spherical evaluates complex spherical harmonics Y_l^m and their
// Cartesian gradients on the unit sphere.
//
// The evaluation uses the scaled associated-Legendre recursion
// Q_l^m(z) = P_l^m(z) / (1-z²)^(m/2) together with the complex powers
// (ux + i·uy)^m, so every quantity is polynomial in the unit-vector
// components: no trigonometric calls in the hot path and finite gradients
// at the poles. The Condon-Shortley phase is included.
package spherical

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/ace/internal/ace"
)

// Grad is the gradient of one harmonic with respect to the (unprojected)
// unit-vector components.
type Grad [3]complex128

// Basis evaluates all Y_l^m for l = 0..LMax, m = -l..l.
type Basis struct {
	LMax int

	// norm[p] = (-1)^m * sqrt((2l+1)/(4π) * (l-m)!/(l+m)!) for m >= 0,
	// p = l(l+1)/2 + m
	norm []float64
}

// Index maps (l, m) to the flat harmonic index l(l+1)+m.
func Index(l, m int) int { return l*(l+1) + m }

// Len returns the number of harmonics up to lmax inclusive.
func Len(lmax int) int { return (lmax + 1) * (lmax + 1) }

// New precomputes the normalization table for harmonics up to lmax.
func New(lmax int) (*Basis, error) {
	if lmax < 0 {
		return nil, &ace.ConfigError{Field: "lmax", Reason: fmt.Sprintf("must be non-negative, got %d", lmax)}
	}
	b := &Basis{LMax: lmax, norm: make([]float64, (lmax+1)*(lmax+2)/2)}
	for l := 0; l <= lmax; l++ {
		for m := 0; m <= l; m++ {
			lgNum, _ := math.Lgamma(float64(l - m + 1))
			lgDen, _ := math.Lgamma(float64(l + m + 1))
			k := math.Sqrt(float64(2*l+1) / (4 * math.Pi) * math.Exp(lgNum-lgDen))
			if m%2 == 1 {
				k = -k
			}
			b.norm[l*(l+1)/2+m] = k
		}
	}
	return b, nil
}

// Len returns the number of harmonics of this basis.
func (b *Basis) Len() int { return Len(b.LMax) }

// Scratch holds the recursion buffers of one evaluation worker, so the hot
// path never allocates. Reusable sequentially, never shared concurrently.
type Scratch struct {
	q, dq []float64
	w     []complex128
}

// NewScratch allocates recursion buffers sized for this basis.
func (b *Basis) NewScratch() *Scratch {
	nq := (b.LMax + 1) * (b.LMax + 2) / 2
	return &Scratch{
		q:  make([]float64, nq),
		dq: make([]float64, nq),
		w:  make([]complex128, b.LMax+1),
	}
}

// Eval fills y[Index(l,m)] = Y_l^m(u) and dy with the gradients with
// respect to the components of u. The input must be a unit vector; the
// caller applies the tangential projection when chaining to a position
// gradient. Both slices must have length Len().
func (b *Basis) Eval(u ace.Vec3, y []complex128, dy []Grad, s *Scratch) {
	ux, uy, uz := u[0], u[1], u[2]
	L := b.LMax

	// Q_l^m(uz) and dQ/dz, m-major over the l recursion
	q, dq := s.q, s.dq
	qi := func(l, m int) int { return l*(l+1)/2 + m }

	q[0] = 1
	dq[0] = 0
	for m := 0; m <= L; m++ {
		if m > 0 {
			// Q_m^m = (2m-1)!! , dQ_m^m = 0
			q[qi(m, m)] = q[qi(m-1, m-1)] * float64(2*m-1)
			dq[qi(m, m)] = 0
		}
		if m+1 <= L {
			q[qi(m+1, m)] = uz * float64(2*m+1) * q[qi(m, m)]
			dq[qi(m+1, m)] = float64(2*m+1) * q[qi(m, m)]
		}
		for l := m + 2; l <= L; l++ {
			a := float64(2*l-1) / float64(l-m)
			c := float64(l+m-1) / float64(l-m)
			q[qi(l, m)] = a*uz*q[qi(l-1, m)] - c*q[qi(l-2, m)]
			dq[qi(l, m)] = a*(q[qi(l-1, m)]+uz*dq[qi(l-1, m)]) - c*dq[qi(l-2, m)]
		}
	}

	// w_m = (ux + i·uy)^m
	w := s.w
	w[0] = 1
	xy := complex(ux, uy)
	for m := 1; m <= L; m++ {
		w[m] = w[m-1] * xy
	}

	for l := 0; l <= L; l++ {
		for m := 0; m <= l; m++ {
			k := b.norm[qi(l, m)]
			qv := complex(k*q[qi(l, m)], 0)
			dqv := complex(k*dq[qi(l, m)], 0)

			val := qv * w[m]
			var g Grad
			if m > 0 {
				fm := complex(float64(m), 0)
				g[0] = qv * fm * w[m-1]
				g[1] = qv * complex(0, float64(m)) * w[m-1]
			}
			g[2] = dqv * w[m]

			y[Index(l, m)] = val
			dy[Index(l, m)] = g

			if m > 0 {
				// Y_l^{-m} = (-1)^m conj(Y_l^m)
				s := 1.0
				if m%2 == 1 {
					s = -1
				}
				sc := complex(s, 0)
				y[Index(l, -m)] = sc * cmplx.Conj(val)
				dy[Index(l, -m)] = Grad{sc * cmplx.Conj(g[0]), sc * cmplx.Conj(g[1]), sc * cmplx.Conj(g[2])}
			}
		}
	}
}
