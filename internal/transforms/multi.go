package transforms

import "fmt"

// Multi dispatches to a distance transform selected by the species pair
// (central, neighbor). The table is fixed at construction and indexed by
// compact species indices.
type Multi struct {
	table [][]Transform
	nz    int
}

// NewMulti builds a species-pair transform table for nz species. Every pair
// defaults to def; individual pairs can be overridden with Set before the
// basis is constructed.
func NewMulti(nz int, def Transform) (*Multi, error) {
	if nz <= 0 {
		return nil, fmt.Errorf("multi transform: need at least one species, got %d", nz)
	}
	if def == nil {
		return nil, fmt.Errorf("multi transform: nil default transform")
	}
	table := make([][]Transform, nz)
	for i := range table {
		table[i] = make([]Transform, nz)
		for j := range table[i] {
			table[i][j] = def
		}
	}
	return &Multi{table: table, nz: nz}, nil
}

// Set overrides the transform for the (z0, z) pair and its mirror.
func (m *Multi) Set(z0, z int, t Transform) error {
	if z0 < 0 || z0 >= m.nz || z < 0 || z >= m.nz {
		return fmt.Errorf("multi transform: species pair (%d,%d) out of range [0,%d)", z0, z, m.nz)
	}
	m.table[z0][z] = t
	m.table[z][z0] = t
	return nil
}

// For returns the transform configured for the (central, neighbor) pair.
func (m *Multi) For(z0, z int) Transform {
	return m.table[z0][z]
}

// NumSpecies returns the species count the table was built for.
func (m *Multi) NumSpecies() int { return m.nz }

// Inverse applies the inverse of the transform selected for the pair. A
// table-wide inverse is ill-defined when pairs differ, so callers always
// name the pair.
func (m *Multi) Inverse(z0, z int, x float64) (float64, error) {
	return m.table[z0][z].Inverse(x)
}
