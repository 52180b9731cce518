// Package pibasis implements the permutation-invariant correlation layer:
// products AA[tuple] = Π A[v] of neighbor-summed one-particle values,
// evaluated over a shared directed acyclic graph so that every partial
// product is computed exactly once per call.
//
// The graph is static: nodes are assigned small integer handles at
// construction time, and per-call storage is plain slices indexed by
// handle. An order-k node multiplies the node of its (k-1)-prefix by one
// more A value, so tuples overlapping in their sorted prefixes share work.
package pibasis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/ace/internal/ace"
)

// Graph is the static product DAG. Immutable after construction and safe
// to share across concurrent evaluations.
type Graph struct {
	nA int

	prefix []int32 // parent node, -1 for order-1 nodes
	lastV  []int32 // the A index multiplied in at this node
	vlist  [][]int32

	nodeOf map[string]int32
}

func tupleKey(tuple []int) string {
	var b strings.Builder
	for i, v := range tuple {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// NewGraph builds the DAG for the given canonical (sorted) tuples over nA
// one-particle indices. Prefixes missing from the tuple set are inserted
// as auxiliary nodes so that every node has an order-(k-1) parent. A tuple
// referencing an index outside [0, nA) is a construction error.
func NewGraph(nA int, tuples [][]int) (*Graph, error) {
	if nA <= 0 {
		return nil, fmt.Errorf("graph over %d one-particle functions: %w", nA, ace.ErrInternal)
	}

	g := &Graph{nA: nA, nodeOf: make(map[string]int32)}

	for _, tuple := range tuples {
		for i, v := range tuple {
			if v < 0 || v >= nA {
				return nil, fmt.Errorf("tuple %v references one-particle index %d of %d: %w",
					tuple, v, nA, ace.ErrInternal)
			}
			if i > 0 && tuple[i-1] > v {
				return nil, fmt.Errorf("tuple %v not in canonical sorted order: %w", tuple, ace.ErrInternal)
			}
		}
		if len(tuple) == 0 {
			continue // the constant correlation has no node
		}
		g.ensure(tuple)
	}

	return g, nil
}

// ensure returns the node handle for the tuple, creating it (and its
// prefix chain) if needed.
func (g *Graph) ensure(tuple []int) int32 {
	k := tupleKey(tuple)
	if id, ok := g.nodeOf[k]; ok {
		return id
	}

	last := int32(tuple[len(tuple)-1])
	parent := int32(-1)
	if len(tuple) > 1 {
		parent = g.ensure(tuple[:len(tuple)-1])
	}

	id := int32(len(g.prefix))
	g.prefix = append(g.prefix, parent)
	g.lastV = append(g.lastV, last)
	vl := make([]int32, len(tuple))
	for i, v := range tuple {
		vl[i] = int32(v)
	}
	g.vlist = append(g.vlist, vl)
	g.nodeOf[k] = id
	return id
}

// NumNodes returns the number of graph nodes, auxiliary prefixes included.
func (g *Graph) NumNodes() int { return len(g.prefix) }

// NumA returns the size of the one-particle index space.
func (g *Graph) NumA() int { return g.nA }

// NodeOf returns the handle of a canonical tuple's node.
func (g *Graph) NodeOf(tuple []int) (int32, bool) {
	id, ok := g.nodeOf[tupleKey(tuple)]
	return id, ok
}

// VList returns the full sorted index tuple of a node.
func (g *Graph) VList(node int32) []int32 { return g.vlist[node] }

// Order returns the correlation order of a node.
func (g *Graph) Order(node int32) int { return len(g.vlist[node]) }

// Forward fills AA[node] for every node. Parents precede children by
// construction, so a single sweep suffices; each node is computed exactly
// once regardless of how many basis functions consume it.
func (g *Graph) Forward(A, AA []complex128) {
	for i := range g.prefix {
		v := A[g.lastV[i]]
		if p := g.prefix[i]; p >= 0 {
			AA[i] = AA[p] * v
		} else {
			AA[i] = v
		}
	}
}

// SlotGrads fills out[s] = ∂AA[node]/∂A[vlist[s]] using prefix/suffix
// partial products. out must have length Order(node). Repeated indices in
// the tuple each get their own slot derivative; summing slot contributions
// reproduces the full product-rule derivative.
func (g *Graph) SlotGrads(node int32, A []complex128, out []complex128) {
	vl := g.vlist[node]
	n := len(vl)

	// forward pass: out[s] = Π_{t<s} A[vl[t]]
	acc := complex(1, 0)
	for s := 0; s < n; s++ {
		out[s] = acc
		acc *= A[vl[s]]
	}
	// backward pass multiplies in Π_{t>s}
	acc = 1
	for s := n - 1; s >= 0; s-- {
		out[s] *= acc
		acc *= A[vl[s]]
	}
}
