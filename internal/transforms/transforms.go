package transforms

import (
	"fmt"
	"math"

	"github.com/san-kum/ace/internal/ace"
)

// Transform maps a physical distance r to a bounded basis coordinate x.
// Implementations must be strictly monotone on [0, ∞) so that Inverse is
// well defined on the transformed range.
type Transform interface {
	// Transform maps r to x.
	Transform(r float64) float64
	// Deriv returns dx/dr.
	Deriv(r float64) float64
	// Inverse maps x back to r. Arguments outside the transformed range
	// return ace.ErrTransformDomain.
	Inverse(x float64) (float64, error)
}

// Identity leaves the distance unchanged: x = r.
type Identity struct{}

func (Identity) Transform(r float64) float64 { return r }
func (Identity) Deriv(r float64) float64     { return 1 }

func (Identity) Inverse(x float64) (float64, error) {
	if x < 0 {
		return 0, fmt.Errorf("identity inverse of %g: %w", x, ace.ErrTransformDomain)
	}
	return x, nil
}

// Polynomial is the transform x = ((1+r0)/(1+r))^p, mapping [0, ∞) onto
// (0, (1+r0)^p]; strictly decreasing for p > 0.
type Polynomial struct {
	R0 float64
	P  float64
}

func NewPolynomial(r0 float64, p float64) *Polynomial {
	return &Polynomial{R0: r0, P: p}
}

func (t *Polynomial) Transform(r float64) float64 {
	return math.Pow((1+t.R0)/(1+r), t.P)
}

func (t *Polynomial) Deriv(r float64) float64 {
	// d/dr ((1+r0)/(1+r))^p = -p/(1+r) * x
	return -t.P / (1 + r) * t.Transform(r)
}

func (t *Polynomial) Inverse(x float64) (float64, error) {
	if x <= 0 {
		return 0, fmt.Errorf("polynomial inverse of %g: %w", x, ace.ErrTransformDomain)
	}
	r := (1+t.R0)/math.Pow(x, 1/t.P) - 1
	if r < 0 {
		return 0, fmt.Errorf("polynomial inverse of %g: %w", x, ace.ErrTransformDomain)
	}
	return r, nil
}

// Morse is the exponential transform x = exp(-λ (r/r0 - 1)).
type Morse struct {
	R0     float64
	Lambda float64
}

func NewMorse(r0, lambda float64) *Morse {
	return &Morse{R0: r0, Lambda: lambda}
}

func (t *Morse) Transform(r float64) float64 {
	return math.Exp(-t.Lambda * (r/t.R0 - 1))
}

func (t *Morse) Deriv(r float64) float64 {
	return -t.Lambda / t.R0 * t.Transform(r)
}

func (t *Morse) Inverse(x float64) (float64, error) {
	if x <= 0 {
		return 0, fmt.Errorf("morse inverse of %g: %w", x, ace.ErrTransformDomain)
	}
	r := t.R0 * (1 - math.Log(x)/t.Lambda)
	if r < 0 {
		return 0, fmt.Errorf("morse inverse of %g: %w", x, ace.ErrTransformDomain)
	}
	return r, nil
}

// Agnesi is the rational transform x = 1 / (1 + a (r/r0)^p) with
// a = (p-1)/(p+1), strictly decreasing from 1 at r = 0.
type Agnesi struct {
	R0 float64
	P  float64
}

func NewAgnesi(r0, p float64) *Agnesi {
	return &Agnesi{R0: r0, P: p}
}

func (t *Agnesi) a() float64 { return (t.P - 1) / (t.P + 1) }

func (t *Agnesi) Transform(r float64) float64 {
	s := r / t.R0
	return 1 / (1 + t.a()*math.Pow(s, t.P))
}

func (t *Agnesi) Deriv(r float64) float64 {
	s := r / t.R0
	x := t.Transform(r)
	if s == 0 {
		if t.P > 1 {
			return 0
		}
		// p == 1 has finite slope at the origin
		return -t.a() / t.R0
	}
	return -t.a() * t.P / t.R0 * math.Pow(s, t.P-1) * x * x
}

func (t *Agnesi) Inverse(x float64) (float64, error) {
	if x <= 0 || x > 1 {
		return 0, fmt.Errorf("agnesi inverse of %g: %w", x, ace.ErrTransformDomain)
	}
	s := math.Pow((1/x-1)/t.a(), 1/t.P)
	return s * t.R0, nil
}

// Affine rescales another transform: x = A*inner(r) + B. Used to align a
// transform's range with the polynomial interval expected by the radial
// basis.
type Affine struct {
	Inner Transform
	A     float64
	B     float64
}

func NewAffine(inner Transform, a, b float64) *Affine {
	return &Affine{Inner: inner, A: a, B: b}
}

func (t *Affine) Transform(r float64) float64 {
	return t.A*t.Inner.Transform(r) + t.B
}

func (t *Affine) Deriv(r float64) float64 {
	return t.A * t.Inner.Deriv(r)
}

func (t *Affine) Inverse(x float64) (float64, error) {
	if t.A == 0 {
		return 0, fmt.Errorf("affine inverse with zero scale: %w", ace.ErrTransformDomain)
	}
	return t.Inner.Inverse((x - t.B) / t.A)
}
