package function

import (
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/tensor"
)

// GEMMProblem is everything the reshape decision may depend on.
type GEMMProblem struct {
	M, N, K                int
	DataType               tensor.DataType
	Target                 kernel.Target
	ReshapeBOnlyOnFirstRun bool
}

// ReshapePolicy decides whether A and B are interleaved/transposed before the
// multiply. It must be a pure function of its argument.
type ReshapePolicy func(GEMMProblem) bool

// DefaultReshapePolicy is the cost model calibrated for Bifrost-class GPUs.
// It only reshapes float operands with k > 256 and m > 4 when B is constant
// across runs, and when 2.0*n (2.5*n from k = 1024) exceeds 1.66*n + 38.4.
func DefaultReshapePolicy(p GEMMProblem) bool {
	if p.Target != kernel.Bifrost || !p.DataType.IsFloat() || !p.ReshapeBOnlyOnFirstRun {
		return false
	}
	if p.K <= 256 || p.M <= 4 {
		return false
	}
	scale := float32(2.0)
	if p.K >= 1024 {
		scale = 2.5
	}
	n := float32(p.N)
	return scale*n > 1.66*n+38.4
}

// AlwaysReshape forces the reshaped path.
func AlwaysReshape(GEMMProblem) bool { return true }

// NeverReshape forces the raw path.
func NeverReshape(GEMMProblem) bool { return false }
