package window

import "github.com/born-ml/opcore/internal/tensor"

// Iterator walks the byte offsets of one tensor along a window.
// Offsets include the tensor's first-element offset, so Bytes always points at
// the element of the current coordinates.
type Iterator struct {
	buf    []byte
	stride [tensor.MaxDims]int
	start  [tensor.MaxDims + 1]int
}

// NewIterator positions an iterator over buf at the first tile of w.
func NewIterator(info *tensor.Info, buf []byte, w Window) *Iterator {
	it := &Iterator{buf: buf}
	base := info.OffsetFirstElement()
	for d := 0; d < tensor.MaxDims; d++ {
		it.stride[d] = w.dims[d].Step * info.Stride(d)
		base += w.dims[d].Start * info.Stride(d)
	}
	for d := range it.start {
		it.start[d] = base
	}
	return it
}

// Offset returns the byte offset of the current element.
func (it *Iterator) Offset() int { return it.start[0] }

// Bytes returns the buffer from the current element on.
func (it *Iterator) Bytes() []byte { return it.buf[it.start[0]:] }

func (it *Iterator) increment(d int) {
	it.start[d] += it.stride[d]
	for n := 0; n < d; n++ {
		it.start[n] = it.start[d]
	}
}

// ExecuteLoop calls fn once per tile of w in row-major order, dimension 0
// fastest, advancing every iterator in step. Passing fresh iterators restarts
// the walk.
func ExecuteLoop(w Window, fn func(id tensor.Coordinates), its ...*Iterator) {
	var id tensor.Coordinates
	var loop func(d int)
	loop = func(d int) {
		dim := w.dims[d]
		for v := dim.Start; v < dim.End; v += dim.Step {
			id[d] = v
			if d == 0 {
				fn(id)
			} else {
				loop(d - 1)
			}
			for _, it := range its {
				it.increment(d)
			}
		}
	}
	loop(tensor.MaxDims - 1)
}
