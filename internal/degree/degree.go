// Package degree defines basis-spec degree functions and the canonical
// enumeration of correlation index tuples under a total-degree bound.
//
// A tuple is admissible iff its summed degree stays within the bound
// configured for its correlation order. Degrees are non-negative and
// additive over slots, so admissibility is monotone: dropping any element
// of an admissible tuple yields an admissible tuple of lower order. The
// enumerator relies only on that monotonicity, not on the specific degree
// function.
package degree

import (
	"fmt"
	"sort"

	"github.com/san-kum/ace/internal/ace"
)

// Degree assigns a scalar complexity to a single one-particle channel
// (species, radial index, angular index).
type Degree interface {
	OneParticle(z, n, l int) float64
}

// Total is the standard weighted degree n + WL*l, species-blind.
type Total struct {
	WL float64
}

func (d Total) OneParticle(z, n, l int) float64 {
	return float64(n) + d.WL*float64(l)
}

// SpeciesWeighted scales the channel degree by a per-species weight,
// letting heavier species carry a cheaper or costlier basis share.
type SpeciesWeighted struct {
	WL float64
	WZ []float64
}

func (d SpeciesWeighted) OneParticle(z, n, l int) float64 {
	w := 1.0
	if z >= 0 && z < len(d.WZ) {
		w = d.WZ[z]
	}
	return w * (float64(n) + d.WL*float64(l))
}

// Spec holds the per-order degree bounds of a basis.
type Spec struct {
	MaxOrder int
	MaxDeg   []float64 // indexed by order-1
}

// NewSpec validates the bounds. MaxDeg must have one entry per order,
// all positive and non-increasing; non-increasing bounds are what make
// the enumerated set downward-closed across orders.
func NewSpec(maxOrder int, maxDeg []float64) (*Spec, error) {
	if maxOrder < 0 {
		return nil, &ace.ConfigError{Field: "max_order", Reason: fmt.Sprintf("must be non-negative, got %d", maxOrder)}
	}
	if len(maxDeg) != maxOrder {
		return nil, &ace.ConfigError{Field: "max_degree", Reason: fmt.Sprintf("need %d per-order bounds, got %d", maxOrder, len(maxDeg))}
	}
	for i, d := range maxDeg {
		if d <= 0 {
			return nil, &ace.ConfigError{Field: "max_degree", Reason: fmt.Sprintf("order %d bound must be positive, got %g", i+1, d)}
		}
		if i > 0 && d > maxDeg[i-1] {
			return nil, &ace.ConfigError{Field: "max_degree", Reason: "bounds must be non-increasing with order"}
		}
	}
	return &Spec{MaxOrder: maxOrder, MaxDeg: maxDeg}, nil
}

// Admissible reports whether a summed degree fits the bound for the order.
func (s *Spec) Admissible(order int, total float64) bool {
	if order == 0 {
		return true
	}
	if order > s.MaxOrder {
		return false
	}
	return total <= s.MaxDeg[order-1]
}

// Enumerate generates every admissible canonical tuple of channel indices
// for orders 1..MaxOrder. chDeg[q] is the degree of channel q. Tuples are
// non-decreasing sequences, so no two results are permutation-equivalent.
// The optional filter restricts which tuples are emitted; filtered tuples
// still serve as extension bases, keeping the emitted set downward-closed
// in the degree sense.
func (s *Spec) Enumerate(chDeg []float64, filter func(tuple []int) bool) [][]int {
	var out [][]int

	// channels sorted by index; extension appends q >= last element
	var extend func(tuple []int, total float64)
	extend = func(tuple []int, total float64) {
		order := len(tuple)
		if order > 0 {
			if filter == nil || filter(tuple) {
				cp := make([]int, order)
				copy(cp, tuple)
				out = append(out, cp)
			}
		}
		if order == s.MaxOrder {
			return
		}
		lo := 0
		if order > 0 {
			lo = tuple[order-1]
		}
		for q := lo; q < len(chDeg); q++ {
			t := total + chDeg[q]
			if !s.Admissible(order+1, t) {
				continue
			}
			extend(append(tuple, q), t)
		}
	}
	extend(make([]int, 0, s.MaxOrder), 0)

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return out
}
