//go:build windows

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/backend/accel"
	"github.com/born-ml/opcore/internal/function"
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/tensor"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available on this system")
	}
	b, err := New()
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	t.Cleanup(b.Release)
	return b
}

func TestBuildFallsBackToHost(t *testing.T) {
	b := newBuilder(t)

	p, err := b.Build(kernels.PreluName, kernel.BuildOptions{DataType: tensor.F32, Layout: tensor.NCHW})
	require.NoError(t, err)
	_, onDevice := p.(*preluProgram)
	assert.True(t, onDevice)

	p, err = b.Build(kernels.PreluName, kernel.BuildOptions{DataType: tensor.F16, Layout: tensor.NCHW})
	require.NoError(t, err)
	_, onDevice = p.(*preluProgram)
	assert.False(t, onDevice)
}

func TestPReLUOnDevice(t *testing.T) {
	builder := newBuilder(t)
	for _, layout := range []tensor.Layout{tensor.NCHW, tensor.NHWC} {
		be := accel.NewWithConfig(accel.Config{Target: kernel.Bifrost, BatchSize: 8, Builder: builder})

		shape := tensor.Shape{5, 3, 2}
		if layout == tensor.NHWC {
			shape = tensor.Shape{2, 5, 3}
		}
		in := tensor.New(shape, tensor.F32, layout)
		slope := tensor.New(tensor.Shape{2}, tensor.F32, layout)
		out := &tensor.Tensor{}

		f := function.NewPReLU(be)
		f.Configure(in, out, slope)
		for _, tt := range []*tensor.Tensor{in, slope, out} {
			tt.Allocator().Allocate()
		}
		vals := make([]float32, shape.NumElements())
		for i := range vals {
			vals[i] = float32(i%7) - 3
		}
		in.CopyFrom(vals)
		slope.CopyFrom([]float32{0.5, 2})
		f.Run()
		be.Sync()

		got := out.Values()
		for i, x := range vals {
			c := i / 15
			if layout == tensor.NHWC {
				c = i % 2
			}
			want := x
			if x < 0 {
				want = x * []float32{0.5, 2}[c]
			}
			assert.InDelta(t, want, got[i], 1e-6, "layout %s index %d", layout, i)
		}
		be.Close()
	}
}

func TestOutputBuffersAreReused(t *testing.T) {
	builder := newBuilder(t)
	be := accel.NewWithConfig(accel.Config{Target: kernel.Bifrost, BatchSize: 8, Builder: builder})
	defer be.Close()

	in := tensor.New(tensor.Shape{8, 4, 2}, tensor.F32, tensor.NCHW)
	slope := tensor.New(tensor.Shape{2}, tensor.F32, tensor.NCHW)
	f := function.NewPReLU(be)
	f.Configure(in, nil, slope)
	in.Allocator().Allocate()
	slope.Allocator().Allocate()

	for range 3 {
		f.Run()
	}
	be.Sync()

	stats := builder.BufferStats()
	assert.Equal(t, uint64(1), stats.Allocated)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, 1, stats.Pooled)
}
