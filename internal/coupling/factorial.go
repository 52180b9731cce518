package coupling

// Factorials is a precomputed factorial lookup table. The Clebsch-Gordan
// formula needs factorials up to j1+j2+J+1, so the table is sized once from
// the largest angular index the basis can produce.
type Factorials struct {
	f []float64
}

// NewFactorials builds a table of n! for n = 0..max.
func NewFactorials(max int) *Factorials {
	f := make([]float64, max+1)
	f[0] = 1
	for n := 1; n <= max; n++ {
		f[n] = f[n-1] * float64(n)
	}
	return &Factorials{f: f}
}

// At returns n!. Indices outside the table are a construction bug.
func (t *Factorials) At(n int) float64 { return t.f[n] }

// Max returns the largest argument covered.
func (t *Factorials) Max() int { return len(t.f) - 1 }
