package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

type dispatch struct {
	name  string
	split int
	block bool
}

// syncBackend runs every kernel over its full window on the caller.
type syncBackend struct {
	dev   *kernel.BasicDevice
	calls []dispatch
}

func newSyncBackend(target kernel.Target) *syncBackend {
	caps := kernels.Capabilities(
		[]tensor.DataType{tensor.F32, tensor.F16, tensor.QASYMM8},
		[]tensor.DataType{tensor.F32, tensor.F16},
	)
	return &syncBackend{dev: kernel.NewDevice(target, 16, caps, kernel.NewCatalog(kernels.HostBuilder{}))}
}

func (b *syncBackend) Device() kernel.Device { return b.dev }

func (b *syncBackend) Dispatch(k kernel.Kernel, splitDim int, blockAfter bool) {
	b.calls = append(b.calls, dispatch{name: k.Name(), split: splitDim, block: blockAfter})
	k.Run(k.Window(), kernel.Context{NumThreads: 1})
}

func (b *syncBackend) names() []string {
	out := make([]string, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.name
	}
	return out
}

func panicCode(t *testing.T, fn func()) status.Code {
	t.Helper()
	var err error
	func() {
		defer status.Recover(&err)
		fn()
	}()
	require.Error(t, err, "expected a panic")
	return status.CodeOf(err)
}

func TestPReLUOperator(t *testing.T) {
	for _, tc := range []struct {
		layout tensor.Layout
		shape  tensor.Shape
		in     []float32
		want   []float32
	}{
		// NCHW dims are W, H, C; NHWC dims are C, W, H.
		{tensor.NCHW, tensor.Shape{2, 1, 2}, []float32{-2, 1, -2, 2}, []float32{-1, 1, -0.5, 2}},
		{tensor.NHWC, tensor.Shape{2, 2, 1}, []float32{-2, -4, 1, 2}, []float32{-1, -1, 1, 2}},
	} {
		b := newSyncBackend(kernel.CPU)
		in := tensor.New(tc.shape, tensor.F32, tc.layout)
		slope := tensor.New(tensor.Shape{2}, tensor.F32, tc.layout)
		out := &tensor.Tensor{}

		require.NoError(t, ValidatePReLU(b, in.Info(), out.Info(), slope.Info()))
		f := NewPReLU(b)
		f.Configure(in, out, slope)
		for _, tt := range []*tensor.Tensor{in, slope, out} {
			tt.Allocator().Allocate()
		}
		in.CopyFrom(tc.in)
		slope.CopyFrom([]float32{0.5, 0.25})
		f.Run()

		assert.Equal(t, tc.want, out.Values(), "layout %s", tc.layout)
		require.Len(t, b.calls, 1)
		assert.Equal(t, splitDimension(tc.layout), b.calls[0].split)
		assert.False(t, b.calls[0].block)
	}
	assert.Equal(t, window.DimZ, splitDimension(tensor.NCHW))
	assert.Equal(t, window.DimY, splitDimension(tensor.NHWC))
}

func TestPReLUInPlace(t *testing.T) {
	b := newSyncBackend(kernel.CPU)
	in := tensor.New(tensor.Shape{3, 1, 1}, tensor.F32, tensor.NCHW)
	slope := tensor.New(tensor.Shape{1}, tensor.F32, tensor.NCHW)

	f := NewPReLU(b)
	f.Configure(in, nil, slope)
	in.Allocator().Allocate()
	slope.Allocator().Allocate()
	in.CopyFrom([]float32{-4, 0, 4})
	slope.CopyFrom([]float32{0.25})
	f.Run()

	assert.True(t, f.Kernel().InPlace())
	assert.Equal(t, []float32{-1, 0, 4}, in.Values())
}

func TestPReLUValidateMismatch(t *testing.T) {
	b := newSyncBackend(kernel.CPU)
	in := tensor.NewInfo(tensor.Shape{4, 4, 2}, tensor.F32, tensor.NCHW)
	out := tensor.NewInfo(tensor.Shape{4, 4, 3}, tensor.F32, tensor.NCHW)
	slope := tensor.NewInfo(tensor.Shape{2}, tensor.F32, tensor.NCHW)

	err := ValidatePReLU(b, in, out, slope)
	assert.ErrorIs(t, err, status.ErrShapeMismatch)
	assert.Equal(t, err, ValidatePReLU(b, in, out, slope), "validation is deterministic")

	f := NewPReLU(b)
	assert.Equal(t, status.NullArgument, panicCode(t, func() { f.Configure(nil, nil, nil) }))
}
