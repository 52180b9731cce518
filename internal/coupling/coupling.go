// Package coupling generates generalized angular-momentum coupling
// coefficients: the linear combinations of m-assignments that project an
// N-fold tensor product of spherical-harmonic representations
// l1 ⊗ l2 ⊗ … ⊗ lN onto its rotation-invariant (total angular momentum
// zero) component.
//
// The reduction proceeds by repeated pairwise Clebsch-Gordan coupling,
// strictly decreasing the number of uncoupled factors at every step, so
// generation always terminates. Each admissible sequence of intermediate
// momenta (a "coupling path") yields one coefficient set; the invariant
// subspace of the product has one dimension per path, before the linear
// reduction performed downstream.
//
// Coefficient sets are cached per l-tuple inside a [Cache] owned by the
// basis object; there is no process-wide state.
package coupling

import (
	"fmt"
	"strconv"
	"strings"
)

// pruneTol discards coefficients that are structural zeros of the CG
// recursion up to round-off.
const pruneTol = 1e-14

// Set is one invariant coupling of an l-tuple: parallel lists of
// m-assignments (aligned with the l-tuple slots) and their coefficients.
type Set struct {
	MS [][]int
	C  []float64
}

// Cache generates and memoizes coupling-coefficient sets keyed by l-tuple.
// It is populated during basis construction and read-only afterwards; the
// zero value is not usable, construct with NewCache.
type Cache struct {
	fact *Factorials
	sets map[string][]Set
	lmax int
}

// NewCache builds a coupling cache able to serve l-tuples with entries up
// to lmax.
func NewCache(lmax int) *Cache {
	if lmax < 0 {
		lmax = 0
	}
	return &Cache{
		fact: NewFactorials(4*lmax + 2),
		sets: make(map[string][]Set),
		lmax: lmax,
	}
}

func key(ls []int) string {
	var b strings.Builder
	for i, l := range ls {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(l))
	}
	return b.String()
}

// Coefficients returns all invariant coupling sets for the given l-tuple,
// generating and caching them on first use. An empty result means the
// tuple has no rotation-invariant component.
func (c *Cache) Coefficients(ls []int) ([]Set, error) {
	for _, l := range ls {
		if l < 0 || l > c.lmax {
			return nil, fmt.Errorf("coupling: l=%d outside cache range [0,%d]", l, c.lmax)
		}
	}

	k := key(ls)
	if s, ok := c.sets[k]; ok {
		return s, nil
	}

	// intermediate momenta can reach the full l-sum, and the CG formula
	// needs factorials up to j1+j2+J+1
	sum := 0
	for _, l := range ls {
		sum += l
	}
	if 2*sum+2 > c.fact.Max() {
		c.fact = NewFactorials(2*sum + 2)
	}

	s := c.generate(ls)
	c.sets[k] = s
	return s, nil
}

func (c *Cache) generate(ls []int) []Set {
	n := len(ls)
	switch n {
	case 0:
		// the order-0 correlation is the constant 1
		return []Set{{MS: [][]int{{}}, C: []float64{1}}}
	case 1:
		if ls[0] != 0 {
			return nil
		}
		return []Set{{MS: [][]int{{0}}, C: []float64{1}}}
	}

	var sets []Set
	path := make([]int, 0, n-2)
	c.walkPaths(ls, ls[0], path, &sets)
	return sets
}

// walkPaths enumerates the intermediate momenta L1..L_{N-2} of the
// sequential coupling ((l1 l2) L1 l3) L2 ... and emits one coefficient set
// per admissible path. The final intermediate must equal lN so the last
// pair can contract to total momentum zero.
func (c *Cache) walkPaths(ls []int, lAcc int, path []int, out *[]Set) {
	n := len(ls)
	k := len(path) // next factor to couple is ls[k+1]

	if k == n-2 {
		if lAcc != ls[n-1] {
			return
		}
		if s, ok := c.assemble(ls, path, lAcc); ok {
			*out = append(*out, s)
		}
		return
	}

	lNext := ls[k+1]
	for L := abs(lAcc - lNext); L <= lAcc+lNext; L++ {
		c.walkPaths(ls, L, append(path, L), out)
	}
}

// assemble sums the CG product over all m-assignments for one path.
func (c *Cache) assemble(ls, path []int, lLast int) (Set, bool) {
	n := len(ls)
	var s Set

	m := make([]int, n)
	var rec func(slot, M int, coeff float64)
	rec = func(slot, M int, coeff float64) {
		if slot == n-1 {
			// last m is forced by the zero-sum constraint
			mN := -M
			if abs(mN) > ls[n-1] {
				return
			}
			final := coeff * contractToZero(lLast, M, c.fact)
			if abs64(final) < pruneTol {
				return
			}
			m[n-1] = mN
			ms := make([]int, n)
			copy(ms, m)
			s.MS = append(s.MS, ms)
			s.C = append(s.C, final)
			return
		}

		lCur := ls[slot]
		for mi := -lCur; mi <= lCur; mi++ {
			m[slot] = mi
			if slot == 0 {
				rec(1, mi, 1)
				continue
			}
			// previous accumulated momentum before this slot
			lPrev := ls[0]
			if slot >= 2 {
				lPrev = path[slot-2]
			}
			lNow := path[slot-1]
			cg := c.fact.ClebschGordan(lPrev, M, lCur, mi, lNow, M+mi)
			if cg == 0 {
				continue
			}
			rec(slot+1, M+mi, coeff*cg)
		}
	}
	rec(0, 0, 1)

	return s, len(s.MS) > 0
}

// contractToZero is <L M; L -M | 0 0> = (-1)^(L-M) / sqrt(2L+1).
func contractToZero(L, M int, f *Factorials) float64 {
	c := f.ClebschGordan(L, M, L, -M, 0, 0)
	return c
}

func abs64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
