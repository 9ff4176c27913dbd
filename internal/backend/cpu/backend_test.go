package cpu

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/function"
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/memory"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// recorder counts visits per coordinate and remembers the contexts it saw.
type recorder struct {
	win window.Window

	mu       sync.Mutex
	visits   map[tensor.Coordinates]int
	contexts []kernel.Context
}

func newRecorder(shape tensor.Shape) *recorder {
	info := tensor.NewInfo(shape, tensor.F32, tensor.NCHW)
	return &recorder{
		win:    window.CalculateMaxWindow(info, window.Steps{}),
		visits: make(map[tensor.Coordinates]int),
	}
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Window() window.Window { return r.win }

func (r *recorder) Run(win window.Window, ctx kernel.Context) {
	var local []tensor.Coordinates
	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		local = append(local, id)
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range local {
		r.visits[id]++
	}
	r.contexts = append(r.contexts, ctx)
}

func TestSchedulerCoversWindow(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 7, 16} {
		for _, dim := range []int{window.DimX, window.DimY, window.DimZ} {
			r := newRecorder(tensor.Shape{5, 6, 4})
			NewScheduler(workers).Schedule(r, dim)

			require.Len(t, r.visits, 5*6*4, "workers %d dim %d", workers, dim)
			for id, n := range r.visits {
				assert.Equal(t, 1, n, "coordinate %v visited %d times", id, n)
			}
			want := min(workers, r.win.NumIterations(dim))
			assert.Len(t, r.contexts, want)
			for _, ctx := range r.contexts {
				assert.Equal(t, want, ctx.NumThreads)
				assert.Nil(t, ctx.Queue)
			}
		}
	}
}

type panicky struct{ recorder }

func (p *panicky) Run(win window.Window, _ kernel.Context) {
	if win.Z().Start == 2 {
		panic("worker failed")
	}
}

func TestSchedulerRepanics(t *testing.T) {
	p := &panicky{recorder: *newRecorder(tensor.Shape{2, 2, 4})}
	assert.PanicsWithValue(t, "worker failed", func() {
		NewScheduler(4).Schedule(p, window.DimZ)
	})
}

func TestCapabilities(t *testing.T) {
	b := NewWithConfig(Config{NumThreads: 2, VectorBytes: 16})
	dev := b.Device()
	assert.Equal(t, kernel.CPU, dev.Target())
	assert.Equal(t, 16, dev.VectorBytes())
	assert.True(t, dev.Supports("prelu_layer", tensor.QASYMM8))
	assert.True(t, dev.Supports("gemm_mm_floating_point", tensor.F16))
	assert.False(t, dev.Supports("gemm_mm_floating_point", tensor.QASYMM8))
	assert.Equal(t, "CPU", b.Name())
	assert.Equal(t, 2, b.Scheduler().NumThreads())
}

// prelu runs a per-channel PReLU on a fixed input with the given worker count.
func prelu(t *testing.T, layout tensor.Layout, threads int) []float32 {
	t.Helper()
	b := NewWithConfig(Config{NumThreads: threads, VectorBytes: 16})

	shape := tensor.Shape{9, 5, 3, 2}
	channels := 3
	if layout == tensor.NHWC {
		shape = tensor.Shape{3, 9, 5, 2}
	}
	in := tensor.New(shape, tensor.F32, layout)
	slope := tensor.New(tensor.Shape{channels}, tensor.F32, layout)
	out := &tensor.Tensor{}

	require.NoError(t, function.ValidatePReLU(b, in.Info(), out.Info(), slope.Info()))
	f := function.NewPReLU(b)
	f.Configure(in, out, slope)
	for _, tt := range []*tensor.Tensor{in, slope, out} {
		tt.Allocator().Allocate()
	}
	vals := make([]float32, shape.NumElements())
	for i := range vals {
		vals[i] = float32(i%13) - 6
	}
	in.CopyFrom(vals)
	slope.CopyFrom([]float32{0.5, 0.25, 2})
	f.Run()
	return out.Values()
}

func TestPReLUIndependentOfThreads(t *testing.T) {
	for _, layout := range []tensor.Layout{tensor.NCHW, tensor.NHWC} {
		want := prelu(t, layout, 1)
		for _, threads := range []int{2, 3, 8} {
			assert.Equal(t, want, prelu(t, layout, threads), "layout %s threads %d", layout, threads)
		}
	}
}

func TestGEMMIndependentOfThreads(t *testing.T) {
	run := func(threads int) []float32 {
		b := NewWithConfig(Config{NumThreads: threads, VectorBytes: 16})
		a := tensor.NewAllocated(tensor.Shape{6, 10}, tensor.F32, tensor.NCHW)
		bm := tensor.NewAllocated(tensor.Shape{7, 6}, tensor.F32, tensor.NCHW)
		c := tensor.NewAllocated(tensor.Shape{7, 10}, tensor.F32, tensor.NCHW)
		for i, m := range []*tensor.Tensor{a, bm, c} {
			vals := make([]float32, m.Info().Shape().NumElements())
			for j := range vals {
				vals[j] = float32((j*5+i)%9-4) / 4
			}
			m.CopyFrom(vals)
		}
		out := &tensor.Tensor{}
		g := function.NewGEMM(b, memory.NewPool(), function.WithReshapePolicy(function.AlwaysReshape))
		g.Configure(a, bm, c, out, 1, 1, function.GEMMInfo{})
		out.Allocator().Allocate()
		g.Run()
		return out.Values()
	}

	want := run(1)
	for _, threads := range []int{2, 4} {
		assert.Equal(t, want, run(threads), "threads %d", threads)
	}
}
