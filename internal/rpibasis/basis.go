// Package rpibasis assembles the full rotation- and permutation-invariant
// basis: permutation-invariant correlations from the product graph,
// recombined by generalized coupling coefficients into invariant scalars.
//
// Construction runs once per configuration: enumerate admissible
// (species, n, l) tuples, generate coupling coefficients per l-shape,
// scatter every m-assignment onto its canonically sorted correlation
// column, and reduce each block of coupling rows to a linearly independent
// set by singular value decomposition. The result is a fixed, ordered list
// of basis functions, each a sparse row over product-graph nodes.
package rpibasis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ace/internal/ace"
	"github.com/san-kum/ace/internal/config"
	"github.com/san-kum/ace/internal/coupling"
	"github.com/san-kum/ace/internal/degree"
	"github.com/san-kum/ace/internal/oneparticle"
	"github.com/san-kum/ace/internal/pibasis"
)

// svdTol discards singular values this far below the largest one; the
// corresponding rows are linearly dependent combinations, not basis
// functions.
const svdTol = 1e-10

type rowElem struct {
	node int32
	c    float64
}

// Basis is the constructed invariant basis. Immutable and safe to share
// across concurrent evaluations; per-call state lives in a Workspace.
type Basis struct {
	cfg   *config.Config
	onep  *oneparticle.Basis
	graph *pibasis.Graph

	// rows[k] lists the weighted graph nodes of basis function k;
	// rows[0] is empty: the order-0 constant
	rows     [][]rowElem
	orders   []int
	constant float64
	maxOrder int
}

// New builds the basis from a validated configuration. All construction
// errors wrap ace.ErrBadConfig or ace.ErrInternal; no partially built
// basis is ever returned.
func New(cfg *config.Config) (*Basis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, multi, err := cfg.BuildTransform()
	if err != nil {
		return nil, err
	}

	nz := len(cfg.Species)
	nmax, lmax := cfg.Radial.NMax, cfg.Radial.LMax

	onep, err := oneparticle.New(nz, nmax, lmax, cfg.Radial.RIn, cfg.Radial.RCut, base, multi)
	if err != nil {
		return nil, err
	}

	spec, err := degree.NewSpec(cfg.MaxOrder, cfg.DegreeBounds())
	if err != nil {
		return nil, err
	}
	deg := degree.Total{WL: cfg.WeightL}

	// (species, n, l) channels for the tuple enumeration; the m index is
	// introduced later by the coupling stage
	perZ := (nmax + 1) * (lmax + 1)
	nCh := nz * perZ
	chZ := make([]int, nCh)
	chN := make([]int, nCh)
	chL := make([]int, nCh)
	chDeg := make([]float64, nCh)
	for q := 0; q < nCh; q++ {
		chZ[q] = q / perZ
		chN[q] = (q % perZ) / (lmax + 1)
		chL[q] = q % (lmax + 1)
		chDeg[q] = deg.OneParticle(chZ[q], chN[q], chL[q])
	}

	// only l-shapes that can couple to total angular momentum zero (and
	// are reflection-even) yield invariants
	filter := func(tuple []int) bool {
		sum, lMax := 0, 0
		for _, q := range tuple {
			l := chL[q]
			sum += l
			if l > lMax {
				lMax = l
			}
		}
		return sum%2 == 0 && 2*lMax <= sum
	}
	znlTuples := spec.Enumerate(chDeg, filter)

	cache := coupling.NewCache(lmax)

	// registry of permutation-invariant correlation columns
	cols := make(map[string]int)
	var colTuples [][]int

	registerCol := func(vs []int) int {
		k := fmt.Sprint(vs)
		if id, ok := cols[k]; ok {
			return id
		}
		id := len(colTuples)
		cols[k] = id
		cp := make([]int, len(vs))
		copy(cp, vs)
		colTuples = append(colTuples, cp)
		return id
	}

	var rows [][]rowElem
	var orders []int
	var rowCols [][]int // column ids per row, resolved to nodes after the graph is built

	for _, tuple := range znlTuples {
		n := len(tuple)
		ls := make([]int, n)
		for k, q := range tuple {
			ls[k] = chL[q]
		}

		sets, err := cache.Coefficients(ls)
		if err != nil {
			return nil, fmt.Errorf("coupling for l-shape %v: %w", ls, err)
		}
		if len(sets) == 0 {
			continue
		}

		// scatter each coupling path onto canonical correlation columns
		blockRows := make([]map[int]float64, 0, len(sets))
		vs := make([]int, n)
		for _, set := range sets {
			row := make(map[int]float64)
			for i, ms := range set.MS {
				for k, q := range tuple {
					v := onep.Index(chZ[q], chN[q], chL[q], ms[k])
					if v < 0 {
						return nil, fmt.Errorf("channel (%d,%d,%d,%d) unindexed: %w",
							chZ[q], chN[q], chL[q], ms[k], ace.ErrInternal)
					}
					vs[k] = v
				}
				sort.Ints(vs)
				row[registerCol(vs)] += set.C[i]
			}
			if len(row) > 0 {
				blockRows = append(blockRows, row)
			}
		}

		for _, row := range reduceBlock(blockRows) {
			ids := make([]int, 0, len(row))
			for id := range row {
				ids = append(ids, id)
			}
			sort.Ints(ids)
			elems := make([]rowElem, len(ids))
			for i, id := range ids {
				elems[i] = rowElem{node: int32(id), c: row[id]} // column id for now
			}
			rows = append(rows, elems)
			rowCols = append(rowCols, ids)
			orders = append(orders, n)
		}
	}

	graph, err := pibasis.NewGraph(onep.Len(), colTuples)
	if err != nil {
		return nil, err
	}

	// resolve column ids to graph node handles
	colNode := make([]int32, len(colTuples))
	for id, tp := range colTuples {
		node, ok := graph.NodeOf(tp)
		if !ok {
			return nil, fmt.Errorf("correlation %v has no graph node: %w", tp, ace.ErrInternal)
		}
		colNode[id] = node
	}
	for _, elems := range rows {
		for i := range elems {
			elems[i].node = colNode[elems[i].node]
		}
	}

	b := &Basis{
		cfg:      cfg,
		onep:     onep,
		graph:    graph,
		rows:     append([][]rowElem{nil}, rows...),
		orders:   append([]int{0}, orders...),
		constant: cfg.Constant,
		maxOrder: cfg.MaxOrder,
	}
	return b, nil
}

// reduceBlock replaces the coupling rows of one (species, n, l) block by an
// orthonormal spanning set, dropping linearly dependent rows. Rows of a
// block share the same columns up to sparsity, so the SVD stays small.
func reduceBlock(blockRows []map[int]float64) []map[int]float64 {
	if len(blockRows) == 0 {
		return nil
	}

	colSet := make(map[int]struct{})
	for _, row := range blockRows {
		for id := range row {
			colSet[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(colSet))
	for id := range colSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	pos := make(map[int]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}

	m := mat.NewDense(len(blockRows), len(ids), nil)
	for r, row := range blockRows {
		for id, c := range row {
			m.Set(r, pos[id], c)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		// fall back to the raw rows; dependent rows only make the basis
		// redundant, never wrong
		return blockRows
	}
	sv := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	var out []map[int]float64
	for i, s := range sv {
		if s <= svdTol*sv[0] {
			break
		}
		row := make(map[int]float64, len(ids))
		for j, id := range ids {
			c := v.At(j, i)
			if c != 0 {
				row[id] = c
			}
		}
		out = append(out, row)
	}
	return out
}

// Len returns the number of basis functions, the order-0 constant included.
func (b *Basis) Len() int { return len(b.rows) }

// MaxOrder returns the configured maximum correlation order.
func (b *Basis) MaxOrder() int { return b.maxOrder }

// Order returns the correlation order of basis function k.
func (b *Basis) Order(k int) int { return b.orders[k] }

// NumSpecies returns the configured species count.
func (b *Basis) NumSpecies() int { return b.onep.NumSpecies }

// NumOneParticle returns the size of the one-particle basis.
func (b *Basis) NumOneParticle() int { return b.onep.Len() }

// NumNodes returns the size of the shared product graph.
func (b *Basis) NumNodes() int { return b.graph.NumNodes() }

// Config returns the construction configuration.
func (b *Basis) Config() *config.Config { return b.cfg }
