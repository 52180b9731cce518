package coupling

import "math"

// ClebschGordan returns <j1 m1; j2 m2 | J M> for integer angular momenta,
// computed with the Racah closed-form sum over the precomputed factorial
// table. Selection-rule violations return exactly zero.
func (t *Factorials) ClebschGordan(j1, m1, j2, m2, J, M int) float64 {
	if m1+m2 != M {
		return 0
	}
	if j1 < 0 || j2 < 0 || J < 0 {
		return 0
	}
	if abs(m1) > j1 || abs(m2) > j2 || abs(M) > J {
		return 0
	}
	if J < abs(j1-j2) || J > j1+j2 {
		return 0
	}

	pref := float64(2*J+1) *
		t.At(j1+j2-J) * t.At(j1-j2+J) * t.At(-j1+j2+J) / t.At(j1+j2+J+1) *
		t.At(J+M) * t.At(J-M) *
		t.At(j1-m1) * t.At(j1+m1) * t.At(j2-m2) * t.At(j2+m2)

	kLo := max(0, max(-(J-j2+m1), -(J-j1-m2)))
	kHi := min(j1+j2-J, min(j1-m1, j2+m2))

	sum := 0.0
	for k := kLo; k <= kHi; k++ {
		term := t.At(k) * t.At(j1+j2-J-k) * t.At(j1-m1-k) *
			t.At(j2+m2-k) * t.At(J-j2+m1+k) * t.At(J-j1-m2+k)
		if k%2 == 0 {
			sum += 1 / term
		} else {
			sum -= 1 / term
		}
	}

	return math.Sqrt(pref) * sum
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
