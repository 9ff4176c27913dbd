package function

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/memory"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// GEMMInfo carries the caller's declarations about the operands.
type GEMMInfo struct {
	// IsAReshaped and IsBReshaped mark operands that are already interleaved
	// or transposed. Pre-reshaped operands are rejected.
	IsAReshaped bool
	IsBReshaped bool
	// ReshapeBOnlyOnFirstRun declares B constant across runs, so its transposed
	// form is computed once and kept.
	ReshapeBOnlyOnFirstRun bool
}

// GEMMStats counts how often each step was dispatched.
type GEMMStats struct {
	Runs        int
	Interleaves int
	Transposes  int
	Multiplies  int
	Additions   int
}

// Option customises a GEMM operator.
type Option func(*GEMM)

// WithReshapePolicy replaces DefaultReshapePolicy.
func WithReshapePolicy(p ReshapePolicy) Option {
	return func(g *GEMM) {
		if p != nil {
			g.policy = p
		}
	}
}

// GEMM computes out = alpha*A·B + beta*C for A [K, M], B [N, K] and an optional
// bias C [N, M].
type GEMM struct {
	backend Backend
	group   *memory.Group
	policy  ReshapePolicy

	interleave kernels.Interleave4x4
	transpose  kernels.Transpose1xW
	mm         kernels.MatrixMultiply
	ma         kernels.MatrixAddition

	tmpA, tmpB tensor.Tensor

	configured   bool
	reshaped     bool
	runAddition  bool
	reshapeBOnce bool
	transposed   bool
	stats        GEMMStats
}

// NewGEMM returns an unconfigured operator. Scratch operands are drawn from
// pool; a nil pool gives them standalone memory.
func NewGEMM(b Backend, pool *memory.Pool, opts ...Option) *GEMM {
	g := &GEMM{backend: b, policy: DefaultReshapePolicy}
	g.group = memory.NewGroup(pool, fmt.Sprintf("gemm@%p", g))
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ValidateGEMM reports whether Configure would succeed on b with the same
// arguments and options. c may be nil.
func ValidateGEMM(b Backend, a, bm, c, output *tensor.Info, alpha, beta float32, info GEMMInfo, opts ...Option) error {
	g := &GEMM{policy: DefaultReshapePolicy}
	for _, opt := range opts {
		opt(g)
	}
	return g.validate(b.Device(), a, bm, c, output, beta, info)
}

func (g *GEMM) validate(dev kernel.Device, a, b, c, output *tensor.Info, beta float32, info GEMMInfo) error {
	if a == nil || b == nil || output == nil {
		return status.New(status.NullArgument, "gemm needs A, B and an output")
	}
	if info.IsAReshaped {
		return status.New(status.AlreadyReshaped, "matrix A already reshaped is not supported")
	}
	if info.IsBReshaped {
		return status.New(status.AlreadyReshaped, "matrix B already reshaped is not supported")
	}
	dt := a.DataType()
	if b.DataType() != dt {
		return status.New(status.UnsupportedDataType, "A is %s, B is %s", dt, b.DataType())
	}
	if a.Dimension(0) != b.Dimension(1) {
		return status.New(status.ShapeMismatch, "A has %d columns, B has %d rows", a.Dimension(0), b.Dimension(1))
	}
	m, n, k := a.Dimension(1), b.Dimension(0), a.Dimension(0)
	want := tensor.Shape{n, m}
	if c != nil {
		if c.DataType() != dt {
			return status.New(status.UnsupportedDataType, "C is %s, operands are %s", c.DataType(), dt)
		}
		if !c.Shape().Equal(want) {
			return status.New(status.ShapeMismatch, "C is %v, expected %v", []int(c.Shape()), []int(want))
		}
	}

	out := output.Clone()
	out.AutoInitIfEmpty(want, dt, a.Layout(), a.QuantizationInfo())

	if g.decide(dev, m, n, k, dt, info) {
		h, w := kernel.GEMMMultipliers(dev.Target())
		if err := kernels.ValidateInterleave4x4(dev, a, nil, h); err != nil {
			return err
		}
		if err := kernels.ValidateTranspose1xW(dev, b, nil, w); err != nil {
			return err
		}
		aT := tensor.NewInfo(kernels.InterleavedShape(a, h), dt, a.Layout())
		bT := tensor.NewInfo(kernels.TransposedShape(b, w), dt, b.Layout())
		ri := kernel.ReshapeInfo{M: m, N: n, K: k, InterleaveHeight: h, TransposeWidth: w}
		if err := kernels.ValidateMatrixMultiply(dev, aT, bT, out, true, ri); err != nil {
			return err
		}
	} else if err := kernels.ValidateMatrixMultiply(dev, a, b, out, false, kernel.ReshapeInfo{}); err != nil {
		return err
	}

	if c != nil && beta != 0 {
		return kernels.ValidateMatrixAddition(dev, c, out)
	}
	return nil
}

func (g *GEMM) decide(dev kernel.Device, m, n, k int, dt tensor.DataType, info GEMMInfo) bool {
	return g.policy(GEMMProblem{
		M: m, N: n, K: k,
		DataType:               dt,
		Target:                 dev.Target(),
		ReshapeBOnlyOnFirstRun: info.ReshapeBOnlyOnFirstRun,
	})
}

// Configure binds the operator. c may be nil; output is initialised to [N, M]
// when empty. The reshape decision is taken here and never revisited.
func (g *GEMM) Configure(a, b, c, output *tensor.Tensor, alpha, beta float32, info GEMMInfo) {
	if a == nil || b == nil || output == nil {
		status.Throw(status.NullArgument, "gemm needs A, B and an output")
	}
	if g.configured {
		status.Throw(status.AlreadyAllocated, "gemm %s is already configured", g.group.Owner())
	}
	dev := g.backend.Device()
	var ci *tensor.Info
	if c != nil {
		ci = c.Info()
	}
	ai, bi := a.Info(), b.Info()
	status.ThrowOn(g.validate(dev, ai, bi, ci, output.Info(), beta, info))

	m, n, k := ai.Dimension(1), bi.Dimension(0), ai.Dimension(0)
	g.reshaped = g.decide(dev, m, n, k, ai.DataType(), info)
	g.reshapeBOnce = info.ReshapeBOnlyOnFirstRun

	if g.reshaped {
		h, w := kernel.GEMMMultipliers(dev.Target())
		g.group.Manage(&g.tmpA)
		// B′ outlives the run bracket when it is only computed once.
		if !g.reshapeBOnce {
			g.group.Manage(&g.tmpB)
		}
		g.interleave.Configure(dev, a, &g.tmpA, h)
		g.transpose.Configure(dev, b, &g.tmpB, w)
		g.mm.Configure(dev, &g.tmpA, &g.tmpB, output, alpha, true,
			kernel.ReshapeInfo{M: m, N: n, K: k, InterleaveHeight: h, TransposeWidth: w})
		g.tmpA.Allocator().Allocate()
		g.tmpB.Allocator().Allocate()
	} else {
		g.mm.Configure(dev, a, b, output, alpha, false, kernel.ReshapeInfo{})
	}

	g.runAddition = c != nil && beta != 0
	if g.runAddition {
		g.ma.Configure(dev, c, output, beta)
	}
	g.configured = true

	slog.Debug("configured gemm",
		"owner", g.group.Owner(),
		"m", m, "n", n, "k", k,
		"dtype", ai.DataType(),
		"target", dev.Target(),
		"reshaped", g.reshaped,
		"addition", g.runAddition)
}

// Run executes the configured steps inside one memory-group bracket. Only the
// last step blocks, so scratch memory is idle when the bracket closes.
func (g *GEMM) Run() {
	if !g.configured {
		status.Throw(status.UnconfiguredUse, "gemm run before configure")
	}
	defer g.group.Scope()()

	if g.reshaped {
		g.backend.Dispatch(&g.interleave, window.DimY, false)
		g.stats.Interleaves++
		if !g.transposed || !g.reshapeBOnce {
			g.backend.Dispatch(&g.transpose, window.DimY, false)
			g.stats.Transposes++
			g.transposed = true
		}
	}
	g.backend.Dispatch(&g.mm, window.DimY, !g.runAddition)
	g.stats.Multiplies++
	if g.runAddition {
		g.backend.Dispatch(&g.ma, window.DimY, true)
		g.stats.Additions++
	}
	g.stats.Runs++
}

// Reshaped reports whether the operands are interleaved and transposed before
// the multiply.
func (g *GEMM) Reshaped() bool { return g.reshaped }

// Stats returns the dispatch counters.
func (g *GEMM) Stats() GEMMStats { return g.stats }

// Group exposes the operator's memory group.
func (g *GEMM) Group() *memory.Group { return g.group }
