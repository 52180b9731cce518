package radial

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/ace/internal/ace"
	"github.com/san-kum/ace/internal/transforms"
)

func newTestBasis(t *testing.T) *Basis {
	t.Helper()
	b, err := New(5, 0.5, 5.0, transforms.NewPolynomial(2.5, 2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return b
}

func TestEnvelopeVanishesAtCutoff(t *testing.T) {
	b := newTestBasis(t)
	vals := make([]float64, b.Len())
	derivs := make([]float64, b.Len())

	if err := b.Eval(b.RCut, vals, derivs); err != nil {
		t.Fatalf("eval at cutoff: %v", err)
	}
	for n, v := range vals {
		if math.Abs(v) > 1e-12 {
			t.Errorf("R_%d(rcut) = %g, want 0", n, v)
		}
		if math.Abs(derivs[n]) > 1e-10 {
			t.Errorf("R_%d'(rcut) = %g, want 0", n, derivs[n])
		}
	}
}

func TestDerivativeFiniteDifference(t *testing.T) {
	b := newTestBasis(t)
	vals := make([]float64, b.Len())
	derivs := make([]float64, b.Len())
	vp := make([]float64, b.Len())
	vm := make([]float64, b.Len())
	scratch := make([]float64, b.Len())

	h := 1e-6
	for _, r := range []float64{0.7, 1.3, 2.0, 3.5, 4.8} {
		if err := b.Eval(r, vals, derivs); err != nil {
			t.Fatalf("eval at r=%g: %v", r, err)
		}
		if err := b.Eval(r+h, vp, scratch); err != nil {
			t.Fatal(err)
		}
		if err := b.Eval(r-h, vm, scratch); err != nil {
			t.Fatal(err)
		}
		for n := range vals {
			fd := (vp[n] - vm[n]) / (2 * h)
			if math.Abs(derivs[n]-fd) > 1e-5*(1+math.Abs(fd)) {
				t.Errorf("r=%g n=%d: deriv %g, finite difference %g", r, n, derivs[n], fd)
			}
		}
	}
}

func TestDomainErrors(t *testing.T) {
	b := newTestBasis(t)
	vals := make([]float64, b.Len())
	derivs := make([]float64, b.Len())

	if err := b.Eval(0, vals, derivs); !errors.Is(err, ace.ErrZeroDistance) {
		t.Errorf("r=0: expected ErrZeroDistance, got %v", err)
	}
	if err := b.Eval(0.2, vals, derivs); !errors.Is(err, ace.ErrTransformDomain) {
		t.Errorf("r below rin: expected ErrTransformDomain, got %v", err)
	}
	if err := b.Eval(6.0, vals, derivs); !errors.Is(err, ace.ErrTransformDomain) {
		t.Errorf("r above rcut: expected ErrTransformDomain, got %v", err)
	}

	// no NaN leaks through the error path
	for _, v := range vals {
		if math.IsNaN(v) {
			t.Error("error path produced NaN values")
		}
	}
}

func TestNewValidation(t *testing.T) {
	tr := transforms.Identity{}
	tests := []struct {
		name       string
		nmax       int
		rin, rcut  float64
		wantConfig bool
	}{
		{"negative nmax", -1, 0, 5, true},
		{"rcut below rin", 4, 2, 1, true},
		{"negative rin", 4, -1, 5, true},
		{"valid", 4, 0, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.nmax, tt.rin, tt.rcut, tr)
			if tt.wantConfig && !errors.Is(err, ace.ErrBadConfig) {
				t.Errorf("expected ErrBadConfig, got %v", err)
			}
			if !tt.wantConfig && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
