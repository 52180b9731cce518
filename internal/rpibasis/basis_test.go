package rpibasis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/ace/internal/ace"
	"github.com/san-kum/ace/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Species = []int{1}
	cfg.MaxOrder = 2
	cfg.MaxDegree = []float64{6}
	cfg.Radial.NMax = 2
	cfg.Radial.LMax = 2
	cfg.Radial.RCut = 4.0
	return cfg
}

func randomEnv(rng *rand.Rand, nNeighbors, nSpecies int) ace.Environment {
	env := ace.Environment{ZCenter: rng.Intn(nSpecies)}
	for i := 0; i < nNeighbors; i++ {
		r := 0.8 + 2.5*rng.Float64()
		theta := math.Acos(2*rng.Float64() - 1)
		phi := 2 * math.Pi * rng.Float64()
		env.Neighbors = append(env.Neighbors, ace.Neighbor{
			R: ace.Vec3{
				r * math.Sin(theta) * math.Cos(phi),
				r * math.Sin(theta) * math.Sin(phi),
				r * math.Cos(theta),
			},
			Z: rng.Intn(nSpecies),
		})
	}
	return env
}

// rotation returns the matrix of a rotation by angle about the given axis.
func rotation(axis ace.Vec3, angle float64) [3][3]float64 {
	u := axis.Scale(1 / axis.Norm())
	c, s := math.Cos(angle), math.Sin(angle)
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = (1 - c) * u[i] * u[j]
		}
		m[i][i] += c
	}
	m[0][1] -= s * u[2]
	m[0][2] += s * u[1]
	m[1][0] += s * u[2]
	m[1][2] -= s * u[0]
	m[2][0] -= s * u[1]
	m[2][1] += s * u[0]
	return m
}

func rotate(m [3][3]float64, v ace.Vec3) ace.Vec3 {
	return ace.Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDegree = []float64{-1}
	if _, err := New(cfg); !errors.Is(err, ace.ErrBadConfig) {
		t.Fatalf("expected ErrBadConfig, got %v", err)
	}
}

func TestBasisMetadata(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if b.Len() < 2 {
		t.Fatalf("basis has %d functions, expected the constant plus invariants", b.Len())
	}
	if b.Order(0) != 0 {
		t.Errorf("basis function 0 has order %d, want 0", b.Order(0))
	}
	for k := 1; k < b.Len(); k++ {
		if o := b.Order(k); o < 1 || o > b.MaxOrder() {
			t.Errorf("basis function %d has order %d outside [1, %d]", k, o, b.MaxOrder())
		}
	}
	if b.NumNodes() == 0 || b.NumOneParticle() == 0 {
		t.Error("empty product graph or one-particle basis")
	}
}

func TestConstantTerm(t *testing.T) {
	cfg := testConfig()
	cfg.Constant = 2.5
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	env := randomEnv(rand.New(rand.NewSource(7)), 5, 1)
	vals, err := b.Evaluate(env)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if vals[0] != 2.5 {
		t.Errorf("order-0 value = %g, want the configured constant 2.5", vals[0])
	}
}

func TestEmptyEnvironment(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	vals, grads, err := b.EvaluateGrad(ace.Environment{ZCenter: 0})
	if err != nil {
		t.Fatalf("EvaluateGrad failed: %v", err)
	}
	if vals[0] != b.Config().Constant {
		t.Errorf("constant term = %g", vals[0])
	}
	for k := 1; k < len(vals); k++ {
		if vals[k] != 0 {
			t.Errorf("basis function %d = %g for empty neighborhood, want 0", k, vals[k])
		}
	}
	for k := range grads {
		if len(grads[k]) != 0 {
			t.Errorf("basis function %d has %d gradient entries", k, len(grads[k]))
		}
	}
}

// Swapping the first two neighbors commutes the first addition of every
// neighbor sum and must reproduce the exact same bits.
func TestSwapFirstTwoNeighborsBitIdentical(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	env := randomEnv(rand.New(rand.NewSource(11)), 4, 1)
	vals, err := b.Evaluate(env)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	swapped := env.Clone()
	swapped.Neighbors[0], swapped.Neighbors[1] = swapped.Neighbors[1], swapped.Neighbors[0]
	vals2, err := b.Evaluate(swapped)
	if err != nil {
		t.Fatalf("Evaluate of swapped environment failed: %v", err)
	}

	for k := range vals {
		if vals[k] != vals2[k] {
			t.Errorf("basis function %d changed under neighbor swap: %v vs %v", k, vals[k], vals2[k])
		}
	}
}

func TestPermutationInvariance(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rng := rand.New(rand.NewSource(13))
	env := randomEnv(rng, 6, 1)
	vals, grads, err := b.EvaluateGrad(env)
	if err != nil {
		t.Fatalf("EvaluateGrad failed: %v", err)
	}

	perm := rng.Perm(len(env.Neighbors))
	shuffled := ace.Environment{ZCenter: env.ZCenter, Neighbors: make([]ace.Neighbor, len(env.Neighbors))}
	for i, p := range perm {
		shuffled.Neighbors[i] = env.Neighbors[p]
	}
	vals2, grads2, err := b.EvaluateGrad(shuffled)
	if err != nil {
		t.Fatalf("EvaluateGrad of shuffled environment failed: %v", err)
	}

	for k := range vals {
		if math.Abs(vals[k]-vals2[k]) > 1e-12*(1+math.Abs(vals[k])) {
			t.Errorf("basis function %d not permutation invariant: %v vs %v", k, vals[k], vals2[k])
		}
		for i, p := range perm {
			for c := 0; c < 3; c++ {
				if math.Abs(grads[k][p][c]-grads2[k][i][c]) > 1e-12*(1+math.Abs(grads[k][p][c])) {
					t.Errorf("gradient of basis function %d did not follow neighbor %d under permutation", k, p)
				}
			}
		}
	}
}

func TestRotationInvariance(t *testing.T) {
	g := NewWithT(t)

	cfg := testConfig()
	cfg.MaxOrder = 3
	b, err := New(cfg)
	g.Expect(err).NotTo(HaveOccurred())

	rng := rand.New(rand.NewSource(17))
	for trial := 0; trial < 5; trial++ {
		env := randomEnv(rng, 4, 1)
		vals, grads, err := b.EvaluateGrad(env)
		g.Expect(err).NotTo(HaveOccurred())

		axis := ace.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		rot := rotation(axis, 2*math.Pi*rng.Float64())

		rotated := env.Clone()
		for j := range rotated.Neighbors {
			rotated.Neighbors[j].R = rotate(rot, rotated.Neighbors[j].R)
		}
		vals2, grads2, err := b.EvaluateGrad(rotated)
		g.Expect(err).NotTo(HaveOccurred())

		for k := range vals {
			g.Expect(vals2[k]).To(BeNumerically("~", vals[k], 1e-9*(1+math.Abs(vals[k]))),
				"basis function %d changed under rotation", k)
			for j := range env.Neighbors {
				want := rotate(rot, grads[k][j])
				for c := 0; c < 3; c++ {
					g.Expect(grads2[k][j][c]).To(BeNumerically("~", want[c], 1e-9*(1+math.Abs(want[c]))),
						"gradient of basis function %d, neighbor %d, component %d not covariant", k, j, c)
				}
			}
		}
	}
}

// Two single-species neighbors at distances 1.0 and 1.5 with the plain
// distance coordinate: the order-0 value is the configured constant and a
// neighbor swap reproduces every value exactly.
func TestTwoNeighborReference(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Species = []int{1}
	cfg.MaxOrder = 2
	cfg.MaxDegree = []float64{4}
	cfg.Constant = 1.0
	cfg.Radial.NMax = 2
	cfg.Radial.LMax = 1
	cfg.Radial.RCut = 3.0
	cfg.Radial.Transform = config.TransformConfig{Kind: "identity"}

	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	env := ace.Environment{
		ZCenter: 0,
		Neighbors: []ace.Neighbor{
			{R: ace.Vec3{1.0, 0, 0}, Z: 0},
			{R: ace.Vec3{0, 1.2, 0.9}, Z: 0}, // distance 1.5
		},
	}
	vals, err := b.Evaluate(env)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if vals[0] != 1.0 {
		t.Errorf("order-0 value = %g, want 1.0", vals[0])
	}

	nonzero := false
	for k := 1; k < len(vals); k++ {
		if vals[k] != 0 {
			nonzero = true
		}
		if math.IsNaN(vals[k]) || math.IsInf(vals[k], 0) {
			t.Errorf("basis function %d is not finite: %v", k, vals[k])
		}
	}
	if !nonzero {
		t.Error("every non-constant basis function vanished on a generic environment")
	}

	swapped := env.Clone()
	swapped.Neighbors[0], swapped.Neighbors[1] = swapped.Neighbors[1], swapped.Neighbors[0]
	vals2, err := b.Evaluate(swapped)
	if err != nil {
		t.Fatalf("Evaluate of swapped environment failed: %v", err)
	}
	for k := range vals {
		if vals[k] != vals2[k] {
			t.Errorf("basis function %d changed under swap: %v vs %v", k, vals[k], vals2[k])
		}
	}
}

func TestGradientFiniteDifference(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	env := randomEnv(rand.New(rand.NewSource(23)), 3, 1)
	_, grads, err := b.EvaluateGrad(env)
	if err != nil {
		t.Fatalf("EvaluateGrad failed: %v", err)
	}

	const h = 1e-6
	ws := b.NewWorkspace()
	for j := range env.Neighbors {
		for c := 0; c < 3; c++ {
			plus := env.Clone()
			plus.Neighbors[j].R[c] += h
			vp, err := b.EvaluateInto(ws, plus)
			if err != nil {
				t.Fatalf("perturbed evaluation failed: %v", err)
			}

			minus := env.Clone()
			minus.Neighbors[j].R[c] -= h
			vm, err := b.EvaluateInto(ws, minus)
			if err != nil {
				t.Fatalf("perturbed evaluation failed: %v", err)
			}

			for k := range vp {
				fd := (vp[k] - vm[k]) / (2 * h)
				if math.Abs(fd-grads[k][j][c]) > 1e-5*(1+math.Abs(fd)) {
					t.Errorf("basis %d neighbor %d component %d: analytic %v, finite diff %v",
						k, j, c, grads[k][j][c], fd)
				}
			}
		}
	}
}

func TestEvaluateErrors(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		name     string
		env      ace.Environment
		neighbor int
		sentinel error
	}{
		{
			"zero distance",
			ace.Environment{Neighbors: []ace.Neighbor{
				{R: ace.Vec3{1, 0, 0}, Z: 0},
				{R: ace.Vec3{0, 0, 0}, Z: 0},
			}},
			1, ace.ErrZeroDistance,
		},
		{
			"species out of range",
			ace.Environment{Neighbors: []ace.Neighbor{{R: ace.Vec3{1, 0, 0}, Z: 3}}},
			0, ace.ErrSpecies,
		},
		{
			"beyond cutoff",
			ace.Environment{Neighbors: []ace.Neighbor{{R: ace.Vec3{9, 0, 0}, Z: 0}}},
			0, ace.ErrTransformDomain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals, err := b.Evaluate(tt.env)
			if vals != nil {
				t.Error("failed evaluation returned values")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			var ee *ace.EvalError
			if !errors.As(err, &ee) {
				t.Fatalf("expected EvalError, got %T", err)
			}
			if ee.Neighbor != tt.neighbor {
				t.Errorf("blamed neighbor %d, want %d", ee.Neighbor, tt.neighbor)
			}
		})
	}
}

func TestWorkspaceReuse(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rng := rand.New(rand.NewSource(29))
	envA := randomEnv(rng, 4, 1)
	envB := randomEnv(rng, 7, 1)

	ws := b.NewWorkspace()
	first, _, err := b.EvaluateGradInto(ws, envA)
	if err != nil {
		t.Fatalf("EvaluateGradInto failed: %v", err)
	}
	if _, _, err := b.EvaluateGradInto(ws, envB); err != nil {
		t.Fatalf("EvaluateGradInto failed: %v", err)
	}
	again, _, err := b.EvaluateGradInto(ws, envA)
	if err != nil {
		t.Fatalf("EvaluateGradInto failed: %v", err)
	}

	for k := range first {
		if first[k] != again[k] {
			t.Errorf("basis function %d differs across workspace reuse: %v vs %v", k, first[k], again[k])
		}
	}
}

func TestEvaluateBatch(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rng := rand.New(rand.NewSource(31))
	envs := make([]ace.Environment, 9)
	for i := range envs {
		envs[i] = randomEnv(rng, 2+rng.Intn(5), 1)
	}
	// poison one environment; only its result may fail
	envs[4].Neighbors[0].R = ace.Vec3{}

	results := b.EvaluateBatch(context.Background(), envs, 3, true)
	for i, res := range results {
		if i == 4 {
			if !errors.Is(res.Err, ace.ErrZeroDistance) {
				t.Errorf("poisoned environment: expected ErrZeroDistance, got %v", res.Err)
			}
			continue
		}
		if res.Err != nil {
			t.Fatalf("environment %d failed: %v", i, res.Err)
		}

		vals, grads, err := b.EvaluateGrad(envs[i])
		if err != nil {
			t.Fatalf("sequential evaluation failed: %v", err)
		}
		for k := range vals {
			if res.Values[k] != vals[k] {
				t.Errorf("environment %d basis %d: batch %v, sequential %v", i, k, res.Values[k], vals[k])
			}
			for j := range grads[k] {
				if res.Gradients[k][j] != grads[k][j] {
					t.Errorf("environment %d basis %d neighbor %d gradients differ", i, k, j)
				}
			}
		}
	}
}

func TestEvaluateBatchCancellation(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	envs := make([]ace.Environment, 6)
	rng := rand.New(rand.NewSource(37))
	for i := range envs {
		envs[i] = randomEnv(rng, 3, 1)
	}

	for _, res := range b.EvaluateBatch(ctx, envs, 2, false) {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", res.Err)
		}
	}
}

func TestTwoSpecies(t *testing.T) {
	cfg := testConfig()
	cfg.Species = []int{1, 8}
	cfg.Radial.Transform.Pairs = []config.PairTransform{
		{I: 0, J: 1, Kind: "morse", R0: 2.0, Lambda: 1.5},
	}
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if b.NumSpecies() != 2 {
		t.Fatalf("NumSpecies = %d, want 2", b.NumSpecies())
	}

	rng := rand.New(rand.NewSource(41))
	env := randomEnv(rng, 5, 2)
	vals, err := b.Evaluate(env)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// a species relabeling that is not a symmetry must change some value
	relabeled := env.Clone()
	changed := false
	for j := range relabeled.Neighbors {
		relabeled.Neighbors[j].Z = 1 - relabeled.Neighbors[j].Z
		changed = true
	}
	if !changed {
		t.Skip("environment has no neighbors to relabel")
	}
	vals2, err := b.Evaluate(relabeled)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	same := true
	for k := range vals {
		if math.Abs(vals[k]-vals2[k]) > 1e-12 {
			same = false
			break
		}
	}
	if same {
		t.Error("species channels appear degenerate: relabeling every neighbor changed nothing")
	}
}
