package accel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/function"
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/memory"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(7)
	defer q.Close()

	var order []int
	for i := range 100 {
		q.Enqueue("step", func() { order = append(order, i) })
	}
	q.Finish()

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, order)
	assert.Equal(t, QueueStats{Enqueued: 100, Batches: 15, Executed: 100}, q.Stats())
}

func TestQueueDefersUntilFlush(t *testing.T) {
	q := NewQueue(0)
	defer q.Close()

	ran := false
	q.Enqueue("step", func() { ran = true })
	assert.Equal(t, 1, q.Pending())
	assert.Zero(t, q.Stats().Executed)

	q.Finish()
	assert.True(t, ran)
	assert.Zero(t, q.Pending())
}

func TestQueueRepanicsOnFinish(t *testing.T) {
	q := NewQueue(0)
	defer q.Close()

	after := false
	q.Enqueue("bad", func() { panic("device fault") })
	q.Enqueue("next", func() { after = true })
	assert.PanicsWithValue(t, "device fault", q.Finish)
	assert.False(t, after, "commands after a fault are dropped")
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(0)
	ran := false
	q.Enqueue("step", func() { ran = true })
	q.Close()
	assert.True(t, ran, "close drains pending work")
	assert.Panics(t, func() { q.Enqueue("late", func() {}) })
	q.Close()
}

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewWithConfig(Config{Target: kernel.Bifrost, BatchSize: 4})
	t.Cleanup(b.Close)
	return b
}

func TestQuantizedPReLUUnsupported(t *testing.T) {
	b := newBackend(t)
	in := tensor.NewInfo(tensor.Shape{8, 2, 3}, tensor.QASYMM8, tensor.NCHW)
	slope := tensor.NewInfo(tensor.Shape{3}, tensor.QASYMM8, tensor.NCHW)

	err := function.ValidatePReLU(b, in, &tensor.Info{}, slope)
	assert.ErrorIs(t, err, status.ErrUnsupportedDataType)

	f32 := tensor.NewInfo(tensor.Shape{8, 2, 3}, tensor.F32, tensor.NCHW)
	assert.NoError(t, function.ValidatePReLU(b, f32, &tensor.Info{}, tensor.NewInfo(tensor.Shape{3}, tensor.F32, tensor.NCHW)))
}

func TestPReLUOnQueue(t *testing.T) {
	b := newBackend(t)
	in := tensor.New(tensor.Shape{6, 2, 3}, tensor.F32, tensor.NCHW)
	slope := tensor.New(tensor.Shape{3}, tensor.F32, tensor.NCHW)
	out := &tensor.Tensor{}

	f := function.NewPReLU(b)
	f.Configure(in, out, slope)
	for _, tt := range []*tensor.Tensor{in, slope, out} {
		tt.Allocator().Allocate()
	}
	vals := make([]float32, 36)
	want := make([]float32, 36)
	slopes := []float32{0.5, 0.25, 2}
	for i := range vals {
		vals[i] = float32(i%5) - 2
		want[i] = vals[i]
		if vals[i] < 0 {
			want[i] *= slopes[i/12]
		}
	}
	in.CopyFrom(vals)
	slope.CopyFrom(slopes)

	f.Run()
	b.Sync()
	assert.Equal(t, want, out.Values())

	st := b.Queue().Stats()
	assert.Positive(t, st.Enqueued)
	assert.Equal(t, st.Enqueued, st.Executed)
}

func TestGEMMBlocksOnLastStep(t *testing.T) {
	b := newBackend(t)
	a := tensor.NewAllocated(tensor.Shape{5, 9}, tensor.F32, tensor.NCHW)
	bm := tensor.NewAllocated(tensor.Shape{11, 5}, tensor.F32, tensor.NCHW)
	for _, m := range []*tensor.Tensor{a, bm} {
		vals := make([]float32, m.Info().Shape().NumElements())
		for i := range vals {
			vals[i] = float32(i%7-3) / 2
		}
		m.CopyFrom(vals)
	}
	out := &tensor.Tensor{}

	g := function.NewGEMM(b, memory.NewPool(), function.WithReshapePolicy(function.AlwaysReshape))
	g.Configure(a, bm, nil, out, 1, 0, function.GEMMInfo{ReshapeBOnlyOnFirstRun: true})
	out.Allocator().Allocate()
	require.True(t, g.Reshaped())

	g.Run()
	st := b.Queue().Stats()
	assert.Zero(t, b.Queue().Pending())
	assert.Equal(t, st.Enqueued, st.Executed, "the multiply blocks, so the run has drained")

	av, bv := a.Values(), bm.Values()
	want := make([]float32, 11*9)
	for m := 0; m < 9; m++ {
		for n := 0; n < 11; n++ {
			var acc float32
			for k := 0; k < 5; k++ {
				acc += av[m*5+k] * bv[k*11+n]
			}
			want[m*11+n] = acc
		}
	}
	assert.InDeltaSlice(t, want, out.Values(), 1e-4)

	g.Run()
	assert.Equal(t, 1, g.Stats().Transposes)
	assert.Equal(t, 2, g.Stats().Interleaves)
}

func TestBackendIdentity(t *testing.T) {
	b := newBackend(t)
	assert.Equal(t, "accel/bifrost", b.Name())
	assert.Equal(t, kernel.Bifrost, b.Device().Target())
	assert.Equal(t, 16, b.Device().VectorBytes())
}
