package rpibasis

import (
	"github.com/san-kum/ace/internal/ace"
	"github.com/san-kum/ace/internal/oneparticle"
)

// Workspace holds every per-call buffer of one evaluation worker: the
// neighbor-summed A values, the product-graph node values, the per-neighbor
// one-particle gradients and the adjoint scratch. A Workspace may be reused
// across sequential calls but must never be shared between concurrent
// evaluations.
type Workspace struct {
	scr *oneparticle.Scratch

	a  []complex128 // one-particle sums, indexed by v
	aa []complex128 // product-graph values, indexed by node handle

	dphi []complex128 // ∂φ_v/∂r_j, layout ((v*J)+j)*3+c, grown on demand
	nJ   int

	wk      []complex128 // per-basis-function adjoint over A
	touched []int32

	slots []complex128 // per-slot partial products of one node
}

// NewWorkspace allocates buffers sized from the static basis topology.
func (b *Basis) NewWorkspace() *Workspace {
	return &Workspace{
		scr:     b.onep.NewScratch(),
		a:       make([]complex128, b.onep.Len()),
		aa:      make([]complex128, b.graph.NumNodes()),
		wk:      make([]complex128, b.onep.Len()),
		touched: make([]int32, 0, 64),
		slots:   make([]complex128, b.maxOrder+1),
	}
}

// accumulate sums the one-particle values of every neighbor into ws.a and,
// when withGrad is set, records the per-neighbor gradients. Any failure is
// reported before caller-visible output exists, keeping evaluation atomic.
func (b *Basis) accumulate(ws *Workspace, env ace.Environment, withGrad bool) error {
	nA := b.onep.Len()
	nJ := len(env.Neighbors)
	ws.nJ = nJ

	clear(ws.a)
	if withGrad {
		need := nA * nJ * 3
		if cap(ws.dphi) < need {
			ws.dphi = make([]complex128, need)
		}
		ws.dphi = ws.dphi[:need]
		clear(ws.dphi)
	}

	for j, nb := range env.Neighbors {
		start, phi, grad, err := b.onep.EvalNeighbor(env.ZCenter, nb, ws.scr)
		if err != nil {
			return &ace.EvalError{Neighbor: j, Wrapped: err}
		}
		for i := range phi {
			ws.a[start+i] += phi[i]
		}
		if withGrad {
			for i := range grad {
				off := ((start+i)*nJ + j) * 3
				ws.dphi[off] = grad[i][0]
				ws.dphi[off+1] = grad[i][1]
				ws.dphi[off+2] = grad[i][2]
			}
		}
	}
	return nil
}

// values assembles B[k] from the forwarded graph; ws.aa must be current.
func (b *Basis) values(ws *Workspace) []float64 {
	out := make([]float64, b.Len())
	out[0] = b.constant
	for k := 1; k < len(b.rows); k++ {
		sum := 0.0
		for _, e := range b.rows[k] {
			sum += e.c * real(ws.aa[e.node])
		}
		out[k] = sum
	}
	return out
}

// Evaluate computes every basis value for one environment, allocating a
// fresh workspace. For repeated calls prefer EvaluateInto with a reused
// workspace.
func (b *Basis) Evaluate(env ace.Environment) ([]float64, error) {
	return b.EvaluateInto(b.NewWorkspace(), env)
}

// EvaluateInto computes every basis value for one environment using the
// caller's workspace.
func (b *Basis) EvaluateInto(ws *Workspace, env ace.Environment) ([]float64, error) {
	if err := b.accumulate(ws, env, false); err != nil {
		return nil, err
	}
	b.graph.Forward(ws.a, ws.aa)
	return b.values(ws), nil
}

// EvaluateGrad computes every basis value and its gradient with respect to
// every neighbor position. grads[k][j] is ∂B_k/∂r⃗_j.
func (b *Basis) EvaluateGrad(env ace.Environment) ([]float64, [][]ace.Vec3, error) {
	return b.EvaluateGradInto(b.NewWorkspace(), env)
}

// EvaluateGradInto is EvaluateGrad with a caller-owned workspace. Values
// and gradients are produced in the same pass: each basis function's
// adjoint over the A layer is accumulated from all of its product nodes
// before the per-neighbor chain rule is applied once.
func (b *Basis) EvaluateGradInto(ws *Workspace, env ace.Environment) ([]float64, [][]ace.Vec3, error) {
	if err := b.accumulate(ws, env, true); err != nil {
		return nil, nil, err
	}
	b.graph.Forward(ws.a, ws.aa)

	vals := b.values(ws)
	nJ := ws.nJ
	grads := make([][]ace.Vec3, b.Len())
	for k := range grads {
		grads[k] = make([]ace.Vec3, nJ)
	}

	for k := 1; k < len(b.rows); k++ {
		ws.touched = ws.touched[:0]
		for _, e := range b.rows[k] {
			vl := b.graph.VList(e.node)
			b.graph.SlotGrads(e.node, ws.a, ws.slots[:len(vl)])
			for s, v := range vl {
				if ws.wk[v] == 0 {
					ws.touched = append(ws.touched, v)
				}
				ws.wk[v] += complex(e.c, 0) * ws.slots[s]
			}
		}

		gk := grads[k]
		for _, v := range ws.touched {
			w := ws.wk[v]
			ws.wk[v] = 0
			if w == 0 {
				continue
			}
			base := int(v) * nJ * 3
			for j := 0; j < nJ; j++ {
				off := base + j*3
				gk[j][0] += real(w * ws.dphi[off])
				gk[j][1] += real(w * ws.dphi[off+1])
				gk[j][2] += real(w * ws.dphi[off+2])
			}
		}
	}

	return vals, grads, nil
}
