package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/memory"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
)

// matrix returns an allocated [cols, rows] tensor with values in [-0.625, 0.625].
func matrix(cols, rows, seed int) *tensor.Tensor {
	m := tensor.NewAllocated(tensor.Shape{cols, rows}, tensor.F32, tensor.NCHW)
	vals := make([]float32, cols*rows)
	for i := range vals {
		vals[i] = float32((i*7+seed)%11-5) / 8
	}
	m.CopyFrom(vals)
	return m
}

// reference computes alpha*A·B (+ beta*C) for A [K, M], B [N, K].
func reference(a, b, c *tensor.Tensor, alpha, beta float32) []float32 {
	k, m := a.Info().Dimension(0), a.Info().Dimension(1)
	n := b.Info().Dimension(0)
	av, bv := a.Values(), b.Values()
	out := make([]float32, n*m)
	for row := 0; row < m; row++ {
		for col := 0; col < n; col++ {
			var acc float32
			for i := 0; i < k; i++ {
				acc += av[row*k+i] * bv[i*n+col]
			}
			out[row*n+col] = alpha * acc
		}
	}
	if c != nil {
		for i, v := range c.Values() {
			out[i] += beta * v
		}
	}
	return out
}

func TestDefaultReshapePolicy(t *testing.T) {
	base := GEMMProblem{M: 8, N: 120, K: 300, DataType: tensor.F32, Target: kernel.Bifrost, ReshapeBOnlyOnFirstRun: true}
	with := func(fn func(p *GEMMProblem)) GEMMProblem {
		p := base
		fn(&p)
		return p
	}
	tests := []struct {
		name string
		p    GEMMProblem
		want bool
	}{
		{"bifrost large n", base, true},
		{"n below break-even", with(func(p *GEMMProblem) { p.N = 100 }), false},
		{"deep k lowers break-even", with(func(p *GEMMProblem) { p.K, p.N = 1024, 64 }), true},
		{"f16", with(func(p *GEMMProblem) { p.DataType = tensor.F16 }), true},
		{"quantized", with(func(p *GEMMProblem) { p.DataType = tensor.QASYMM8 }), false},
		{"b varies per run", with(func(p *GEMMProblem) { p.ReshapeBOnlyOnFirstRun = false }), false},
		{"k at threshold", with(func(p *GEMMProblem) { p.K = 256 }), false},
		{"m at threshold", with(func(p *GEMMProblem) { p.M = 4 }), false},
		{"midgard", with(func(p *GEMMProblem) { p.Target = kernel.Midgard }), false},
		{"small cpu problem", GEMMProblem{M: 8, N: 8, K: 4, DataType: tensor.F32, Target: kernel.CPU}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 3 {
				assert.Equal(t, tt.want, DefaultReshapePolicy(tt.p))
			}
		})
	}
}

func TestGEMMSmallRunsRaw(t *testing.T) {
	b := newSyncBackend(kernel.CPU)
	a := matrix(4, 8, 0)  // K=4, M=8
	bm := matrix(8, 4, 3) // N=8, K=4
	out := &tensor.Tensor{}

	require.NoError(t, ValidateGEMM(b, a.Info(), bm.Info(), nil, out.Info(), 1, 0, GEMMInfo{}))
	g := NewGEMM(b, memory.NewPool())
	g.Configure(a, bm, nil, out, 1, 0, GEMMInfo{})
	out.Allocator().Allocate()
	g.Run()

	assert.False(t, g.Reshaped())
	assert.False(t, g.interleave.IsConfigured())
	assert.False(t, g.transpose.IsConfigured())
	assert.False(t, g.ma.IsConfigured())
	assert.Equal(t, 0, g.Group().Managed())
	assert.Equal(t, []string{kernels.MatrixMultiplyName}, b.names())
	assert.True(t, b.calls[0].block, "last step blocks")
	assert.InDeltaSlice(t, reference(a, bm, nil, 1, 0), out.Values(), 1e-4)
}

func TestGEMMTransposeOnlyOnFirstRun(t *testing.T) {
	b := newSyncBackend(kernel.CPU)
	a := matrix(5, 9, 0)   // K=5, M=9
	bm := matrix(11, 5, 4) // N=11, K=5
	out := &tensor.Tensor{}
	info := GEMMInfo{ReshapeBOnlyOnFirstRun: true}

	g := NewGEMM(b, memory.NewPool(), WithReshapePolicy(AlwaysReshape))
	g.Configure(a, bm, nil, out, 0.5, 0, info)
	out.Allocator().Allocate()
	require.True(t, g.Reshaped())
	assert.Equal(t, 1, g.Group().Managed(), "B′ is kept out of the pool")

	const runs = 4
	for i := range runs {
		a.CopyFrom(matrix(5, 9, i).Values())
		g.Run()
		assert.InDeltaSlice(t, reference(a, bm, nil, 0.5, 0), out.Values(), 1e-4, "run %d", i)
	}

	assert.Equal(t, GEMMStats{Runs: runs, Interleaves: runs, Transposes: 1, Multiplies: runs}, g.Stats())
	assert.Equal(t, []string{
		kernels.InterleaveName, kernels.TransposeName, kernels.MatrixMultiplyReshapedName,
		kernels.InterleaveName, kernels.MatrixMultiplyReshapedName,
	}, b.names()[:5])
}

func TestGEMMBifrostReshape(t *testing.T) {
	b := newSyncBackend(kernel.Bifrost)
	a := matrix(300, 8, 1)    // K=300, M=8
	bm := matrix(120, 300, 2) // N=120, K=300
	out := &tensor.Tensor{}
	info := GEMMInfo{ReshapeBOnlyOnFirstRun: true}

	require.NoError(t, ValidateGEMM(b, a.Info(), bm.Info(), nil, out.Info(), 1, 0, info))
	g := NewGEMM(b, nil)
	g.Configure(a, bm, nil, out, 1, 0, info)
	out.Allocator().Allocate()
	require.True(t, g.Reshaped())

	// Interleave height 2 and transpose width 4 on this target.
	assert.Equal(t, tensor.Shape{300 * 8, 1}, g.tmpA.Info().Shape())
	assert.Equal(t, tensor.Shape{300 * 16, 8}, g.tmpB.Info().Shape())

	g.Run()
	g.Run()
	assert.InDeltaSlice(t, reference(a, bm, nil, 1, 0), out.Values(), 1e-3)
	assert.Equal(t, 1, g.Stats().Transposes)
}

func TestGEMMPoolReuse(t *testing.T) {
	b := newSyncBackend(kernel.CPU)
	pool := memory.NewPool()
	a := matrix(6, 7, 0)
	bm := matrix(5, 6, 1)
	out := &tensor.Tensor{}

	g := NewGEMM(b, pool, WithReshapePolicy(AlwaysReshape))
	g.Configure(a, bm, nil, out, 1, 0, GEMMInfo{})
	out.Allocator().Allocate()
	assert.Equal(t, 2, g.Group().Managed())
	assert.Zero(t, pool.Stats().Allocated, "scratch is bound only inside a run")

	g.Run()
	first := pool.Stats()
	assert.Equal(t, uint64(2), first.Allocated)
	assert.Equal(t, 2, first.Pooled)
	assert.Equal(t, status.NotAllocated, panicCode(t, func() { g.tmpA.Buffer() }), "scratch unbound after the run")

	g.Run()
	second := pool.Stats()
	assert.Equal(t, first.Allocated, second.Allocated, "no allocation on the second run")
	assert.Equal(t, first.Hits+2, second.Hits)
	assert.Equal(t, 2, g.Stats().Transposes, "B varies per run")
	assert.InDeltaSlice(t, reference(a, bm, nil, 1, 0), out.Values(), 1e-4)
}

func TestGEMMBiasAddition(t *testing.T) {
	b := newSyncBackend(kernel.CPU)
	a := matrix(3, 4, 0)
	bm := matrix(5, 3, 1)
	c := matrix(5, 4, 2)
	out := &tensor.Tensor{}

	g := NewGEMM(b, nil)
	g.Configure(a, bm, c, out, 2, 0.5, GEMMInfo{})
	out.Allocator().Allocate()
	g.Run()

	assert.InDeltaSlice(t, reference(a, bm, c, 2, 0.5), out.Values(), 1e-4)
	assert.Equal(t, []dispatch{
		{name: kernels.MatrixMultiplyName, split: 1, block: false},
		{name: kernels.MatrixAdditionName, split: 1, block: true},
	}, b.calls)

	// A zero beta skips the addition entirely.
	b2 := newSyncBackend(kernel.CPU)
	g2 := NewGEMM(b2, nil)
	out2 := &tensor.Tensor{}
	g2.Configure(a, bm, c, out2, 2, 0, GEMMInfo{})
	out2.Allocator().Allocate()
	g2.Run()
	assert.False(t, g2.ma.IsConfigured())
	assert.Equal(t, 0, g2.Stats().Additions)
	assert.InDeltaSlice(t, reference(a, bm, nil, 2, 0), out2.Values(), 1e-4)
}

func TestValidateGEMM(t *testing.T) {
	b := newSyncBackend(kernel.CPU)
	a := tensor.NewInfo(tensor.Shape{3, 4}, tensor.F32, tensor.NCHW)
	bm := tensor.NewInfo(tensor.Shape{5, 3}, tensor.F32, tensor.NCHW)
	out := &tensor.Info{}

	tests := []struct {
		name string
		err  error
	}{
		{"nil operand", ValidateGEMM(b, nil, bm, nil, out, 1, 0, GEMMInfo{})},
		{"A reshaped", ValidateGEMM(b, a, bm, nil, out, 1, 0, GEMMInfo{IsAReshaped: true})},
		{"B reshaped", ValidateGEMM(b, a, bm, nil, out, 1, 0, GEMMInfo{IsBReshaped: true})},
		{"inner dims", ValidateGEMM(b, a, tensor.NewInfo(tensor.Shape{5, 2}, tensor.F32, tensor.NCHW), nil, out, 1, 0, GEMMInfo{})},
		{"dtype mismatch", ValidateGEMM(b, a, tensor.NewInfo(tensor.Shape{5, 3}, tensor.F16, tensor.NCHW), nil, out, 1, 0, GEMMInfo{})},
		{"bias shape", ValidateGEMM(b, a, bm, tensor.NewInfo(tensor.Shape{4, 5}, tensor.F32, tensor.NCHW), out, 1, 1, GEMMInfo{})},
		{"output shape", ValidateGEMM(b, a, bm, nil, tensor.NewInfo(tensor.Shape{5, 5}, tensor.F32, tensor.NCHW), 1, 0, GEMMInfo{})},
		{"quantized", ValidateGEMM(b,
			tensor.NewInfo(tensor.Shape{3, 4}, tensor.QASYMM8, tensor.NCHW),
			tensor.NewInfo(tensor.Shape{5, 3}, tensor.QASYMM8, tensor.NCHW), nil, out, 1, 0, GEMMInfo{})},
	}
	want := []error{
		status.ErrNullArgument,
		status.ErrAlreadyReshaped,
		status.ErrAlreadyReshaped,
		status.ErrShapeMismatch,
		status.ErrUnsupportedDataType,
		status.ErrShapeMismatch,
		status.ErrShapeMismatch,
		status.ErrUnsupportedDataType,
	}
	for i, tt := range tests {
		assert.ErrorIs(t, tt.err, want[i], tt.name)
	}
	assert.NoError(t, ValidateGEMM(b, a, bm, tensor.NewInfo(tensor.Shape{5, 4}, tensor.F32, tensor.NCHW), out, 1, 1, GEMMInfo{}))
	assert.True(t, out.IsEmpty(), "validation leaves the output untouched")
}

func TestGEMMContract(t *testing.T) {
	b := newSyncBackend(kernel.CPU)
	g := NewGEMM(b, nil)
	assert.Equal(t, status.UnconfiguredUse, panicCode(t, g.Run))

	a := matrix(3, 4, 0)
	bm := matrix(5, 2, 0)
	assert.Equal(t, status.ShapeMismatch, panicCode(t, func() {
		g.Configure(a, bm, nil, &tensor.Tensor{}, 1, 0, GEMMInfo{})
	}))

	bm = matrix(5, 3, 0)
	g.Configure(a, bm, nil, &tensor.Tensor{}, 1, 0, GEMMInfo{})
	assert.Equal(t, status.AlreadyAllocated, panicCode(t, func() {
		g.Configure(a, bm, nil, &tensor.Tensor{}, 1, 0, GEMMInfo{})
	}))
}
