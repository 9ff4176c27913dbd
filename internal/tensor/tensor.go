package tensor

import (
	"fmt"

	"github.com/born-ml/opcore/internal/status"
)

// Tensor pairs a descriptor with the allocator that binds its memory.
//
// The zero value is an empty tensor, suitable as an output that a kernel
// auto-initialises during configuration.
type Tensor struct {
	info      Info
	allocator Allocator
}

// New creates an unallocated tensor with the given geometry.
func New(shape Shape, dtype DataType, layout Layout) *Tensor {
	t := &Tensor{}
	t.info.Init(shape, dtype, layout)
	return t
}

// NewQuantized creates an unallocated QASYMM8 tensor.
func NewQuantized(shape Shape, layout Layout, q QuantizationInfo) *Tensor {
	t := New(shape, QASYMM8, layout)
	t.info.SetQuantizationInfo(q)
	return t
}

// NewAllocated creates and allocates a tensor.
func NewAllocated(shape Shape, dtype DataType, layout Layout) *Tensor {
	t := New(shape, dtype, layout)
	t.Allocator().Allocate()
	return t
}

// Info returns the mutable descriptor.
func (t *Tensor) Info() *Info { return &t.info }

// Allocator returns the allocator bound to this tensor's descriptor.
func (t *Tensor) Allocator() *Allocator {
	t.allocator.owner = &t.info
	return &t.allocator
}

// Buffer returns the bound storage, starting at byte 0 of the region
// addressed by the descriptor's offsets. Unbound storage is fatal.
func (t *Tensor) Buffer() []byte {
	return t.Allocator().Data()
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%s, allocated=%v)", t.info.String(), t.allocator.allocated)
}

// At returns the element at c as a real value.
func (t *Tensor) At(c Coordinates) float32 {
	return LoadFloat(t.Buffer(), t.info.OffsetElementInBytes(c), t.info.dtype, t.info.quant)
}

// SetAt stores v at c, converting to the element type.
func (t *Tensor) SetAt(c Coordinates, v float32) {
	StoreFloat(t.Buffer(), t.info.OffsetElementInBytes(c), t.info.dtype, t.info.quant, v)
}

// CopyFrom fills the tensor from values laid out densely with dimension 0 fastest.
func (t *Tensor) CopyFrom(values []float32) {
	if len(values) != t.info.shape.NumElements() {
		status.Throw(status.ShapeMismatch, "copy of %d values into %v", len(values), []int(t.info.shape))
	}
	i := 0
	t.forEach(func(c Coordinates) {
		t.SetAt(c, values[i])
		i++
	})
}

// Values returns the tensor contents densely, dimension 0 fastest, padding skipped.
func (t *Tensor) Values() []float32 {
	out := make([]float32, 0, t.info.shape.NumElements())
	t.forEach(func(c Coordinates) {
		out = append(out, t.At(c))
	})
	return out
}

func (t *Tensor) forEach(fn func(Coordinates)) {
	var c Coordinates
	n := t.info.shape.NumElements()
	for k := 0; k < n; k++ {
		rem := k
		for d := 0; d < MaxDims; d++ {
			ext := t.info.shape.Dim(d)
			c[d] = rem % ext
			rem /= ext
		}
		fn(c)
	}
}
