package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/status"
)

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

func TestInfoStrides(t *testing.T) {
	info := NewInfo(Shape{4, 3, 2}, F32, NCHW)
	assert.Equal(t, [MaxDims]int{4, 16, 48, 96, 96, 96}, info.Strides())
	assert.Equal(t, 96, info.TotalSize())
	assert.Equal(t, 0, info.OffsetFirstElement())
	assert.Equal(t, 2, info.DimensionOf(Channel))
	assert.Equal(t, 1, info.DimensionOf(Batches))
}

func TestInfoExtendPadding(t *testing.T) {
	info := NewInfo(Shape{4, 3}, F32, NCHW)

	changed := info.ExtendPadding(Padding{Right: 4, Top: 1})
	assert.True(t, changed)
	assert.Equal(t, 32, info.Stride(1))
	assert.Equal(t, 32, info.OffsetFirstElement())
	assert.Equal(t, 32*4, info.TotalSize())

	assert.False(t, info.ExtendPadding(Padding{Right: 2}), "a smaller request changes nothing")

	info.SetResizable(false)
	assert.Equal(t, status.InsufficientPadding, panicCode(t, func() { info.ExtendPadding(Padding{Left: 1}) }))
}

func TestInfoAutoInit(t *testing.T) {
	src := NewInfo(Shape{2, 2}, QASYMM8, NHWC)
	src.SetQuantizationInfo(QuantizationInfo{Scale: 0.5, Offset: 10})

	var dst Info
	assert.True(t, dst.IsEmpty())
	assert.True(t, dst.AutoInitFrom(src))
	assert.Equal(t, QASYMM8, dst.DataType())
	assert.Equal(t, NHWC, dst.Layout())
	assert.Equal(t, src.QuantizationInfo(), dst.QuantizationInfo())
	assert.False(t, dst.AutoInitFrom(NewInfo(Shape{8}, F32, NCHW)), "initialised descriptors are left alone")
}

func TestAllocateTwiceIsFatal(t *testing.T) {
	tt := NewAllocated(Shape{4}, F32, NCHW)
	assert.False(t, tt.Info().IsResizable())
	assert.Equal(t, status.AlreadyAllocated, panicCode(t, func() { tt.Allocator().Allocate() }))
}

func TestFreeUnallocatedIsFatal(t *testing.T) {
	tt := New(Shape{4}, F32, NCHW)
	assert.Equal(t, status.NotAllocated, panicCode(t, func() { tt.Allocator().Free() }))
	assert.Equal(t, status.NotAllocated, panicCode(t, func() { tt.Buffer() }))
}

func TestAllocationIsAligned(t *testing.T) {
	tt := NewAllocated(Shape{3, 5}, F16, NCHW)
	buf := tt.Buffer()
	assert.Len(t, buf, 30)
	assert.True(t, IsAligned(buf, Alignment))
}

func TestSubviewSharesMemory(t *testing.T) {
	parent := NewAllocated(Shape{4, 4}, F32, NCHW)
	vals := make([]float32, 16)
	for i := range vals {
		vals[i] = float32(i)
	}
	parent.CopyFrom(vals)

	child := &Tensor{}
	child.Allocator().InitSubview(parent.Allocator(), Coords(1, 1), Shape{2, 2})

	assert.Equal(t, []float32{5, 6, 9, 10}, child.Values())
	assert.Equal(t, Padding{Top: 1, Bottom: 1, Left: 1, Right: 1}, child.Info().Padding())
	assert.Equal(t, parent.Info().Strides(), child.Info().Strides())

	child.SetAt(Coords(0, 0), 100)
	assert.Equal(t, float32(100), parent.At(Coords(1, 1)))

	// The storage outlives the parent's binding.
	parent.Allocator().Free()
	assert.Equal(t, float32(10), child.At(Coords(1, 1)))
}

func TestSubviewOutOfBounds(t *testing.T) {
	parent := NewAllocated(Shape{4, 4}, F32, NCHW)
	child := &Tensor{}
	assert.Equal(t, status.ShapeMismatch, panicCode(t, func() {
		child.Allocator().InitSubview(parent.Allocator(), Coords(3, 0), Shape{2, 2})
	}))

	unbound := New(Shape{4, 4}, F32, NCHW)
	assert.Equal(t, status.NotAllocated, panicCode(t, func() {
		child.Allocator().InitSubview(unbound.Allocator(), Coords(0, 0), Shape{2, 2})
	}))
}

func TestImportMemory(t *testing.T) {
	tt := New(Shape{4}, F32, NCHW)

	err := tt.Allocator().ImportMemory(AlignedBytes(8, Alignment))
	assert.ErrorIs(t, err, status.ErrShapeMismatch)

	err = tt.Allocator().ImportMemory(AlignedBytes(32, Alignment)[1:])
	assert.ErrorIs(t, err, status.ErrMisaligned)

	buf := AlignedBytes(16, Alignment)
	require.NoError(t, tt.Allocator().ImportMemory(buf))
	assert.True(t, tt.Allocator().IsImported())

	tt.SetAt(Coords(2), 1.5)
	assert.Equal(t, float32(1.5), Float32s(buf, 4)[2])

	tt.Allocator().Free()
	assert.Equal(t, float32(1.5), Float32s(buf, 4)[2], "imported memory is never released")
}

func TestImportIntoManagedTensor(t *testing.T) {
	tt := New(Shape{4}, F32, NCHW)
	tt.Allocator().SetAssociatedMemoryGroup(recordingGroup{}, 0)
	err := tt.Allocator().ImportMemory(AlignedBytes(16, Alignment))
	assert.Error(t, err)
}

type recordingGroup struct{}

func (recordingGroup) FinalizeMemory(int, int, int) {}

func TestElementCodecs(t *testing.T) {
	half := NewAllocated(Shape{2}, F16, NCHW)
	half.CopyFrom([]float32{0.5, -2})
	assert.Equal(t, []float32{0.5, -2}, half.Values())

	q := NewQuantized(Shape{3}, NCHW, QuantizationInfo{Scale: 0.5, Offset: 10})
	q.Allocator().Allocate()
	q.CopyFrom([]float32{-5, 1, 200})
	assert.Equal(t, []uint8{0, 12, 255}, q.Buffer()[:3])
	assert.Equal(t, []float32{-5, 1, 122.5}, q.Values())
}

func TestShape(t *testing.T) {
	assert.True(t, Shape{3, 1}.Equal(Shape{3}))
	assert.False(t, Shape{3, 2}.Equal(Shape{3}))
	assert.Error(t, Shape{1, 0}.Validate())
	assert.Error(t, make(Shape, MaxDims+1).Validate())
	assert.Equal(t, Shape{2, 1, 5}, Shape{2}.Set(2, 5))
}
