package rpibasis

import (
	"context"
	"runtime"
	"sync"

	"github.com/san-kum/ace/internal/ace"
)

// Result carries the outcome of one environment in a batch evaluation.
// Gradients is nil unless the batch requested gradients.
type Result struct {
	Values    []float64
	Gradients [][]ace.Vec3
	Err       error
}

// EvaluateBatch evaluates many environments in parallel. Each worker owns
// one Workspace for its whole chunk. Failures are per-environment: a bad
// environment poisons its own Result only. Cancellation via ctx marks every
// unprocessed environment with the context error.
func (b *Basis) EvaluateBatch(ctx context.Context, envs []ace.Environment, workers int, withGrad bool) []Result {
	n := len(envs)
	results := make([]Result, n)
	if n == 0 {
		return results
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			ws := b.NewWorkspace()
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					for ; i < end; i++ {
						results[i].Err = err
					}
					return
				}
				if withGrad {
					results[i].Values, results[i].Gradients, results[i].Err = b.EvaluateGradInto(ws, envs[i])
				} else {
					results[i].Values, results[i].Err = b.EvaluateInto(ws, envs[i])
				}
			}
		}(start, end)
	}

	wg.Wait()
	return results
}
