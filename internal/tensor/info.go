package tensor

import (
	"fmt"

	"github.com/born-ml/opcore/internal/status"
)

// Info describes the geometry of a tensor: shape, element type, layout,
// quantization, padding and the resulting byte strides.
//
// The zero value is an empty descriptor: TotalSize() is 0 until Init or
// AutoInitIfEmpty is called. An Info stays resizable (its padding can grow)
// until the owning tensor's memory is allocated or imported.
type Info struct {
	shape     Shape
	dtype     DataType
	layout    Layout
	quant     QuantizationInfo
	padding   Padding
	strides   [MaxDims]int
	offset    int
	totalSize int
	fixed     bool
	valid     ValidRegion
}

// NewInfo returns an initialised descriptor with no padding.
func NewInfo(shape Shape, dtype DataType, layout Layout) *Info {
	info := &Info{}
	info.Init(shape, dtype, layout)
	return info
}

// Init (re)initialises the descriptor. Padding is kept.
func (i *Info) Init(shape Shape, dtype DataType, layout Layout) {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: invalid shape: %v", err))
	}
	i.shape = shape.Clone()
	i.dtype = dtype
	i.layout = layout
	i.valid = ValidRegion{Shape: shape.Clone()}
	i.computeStrides()
}

// AutoInitIfEmpty initialises an empty descriptor from the given properties.
// It reports whether the descriptor was modified.
func (i *Info) AutoInitIfEmpty(shape Shape, dtype DataType, layout Layout, quant QuantizationInfo) bool {
	if !i.IsEmpty() {
		return false
	}
	i.Init(shape, dtype, layout)
	i.quant = quant
	return true
}

// AutoInitFrom initialises an empty descriptor from src (first-input propagation).
func (i *Info) AutoInitFrom(src *Info) bool {
	return i.AutoInitIfEmpty(src.shape, src.dtype, src.layout, src.quant)
}

func (i *Info) computeStrides() {
	es := i.dtype.Size()
	p := i.padding
	i.strides[0] = es
	i.strides[1] = (p.Left + i.shape.Dim(0) + p.Right) * es
	i.strides[2] = i.strides[1] * (p.Top + i.shape.Dim(1) + p.Bottom)
	for d := 3; d < MaxDims; d++ {
		i.strides[d] = i.strides[d-1] * i.shape.Dim(d-1)
	}
	i.offset = p.Top*i.strides[1] + p.Left*i.strides[0]
	i.totalSize = i.strides[MaxDims-1] * i.shape.Dim(MaxDims-1)
}

// Shape returns the tensor extents.
func (i *Info) Shape() Shape { return i.shape }

// DataType returns the element type.
func (i *Info) DataType() DataType { return i.dtype }

// Layout returns the memory layout.
func (i *Info) Layout() Layout { return i.layout }

// QuantizationInfo returns the quantization parameters.
func (i *Info) QuantizationInfo() QuantizationInfo { return i.quant }

// Padding returns the allocated border.
func (i *Info) Padding() Padding { return i.padding }

// ElementSize returns the element size in bytes.
func (i *Info) ElementSize() int { return i.dtype.Size() }

// Strides returns the byte stride of every dimension.
func (i *Info) Strides() [MaxDims]int { return i.strides }

// Stride returns the byte stride of dimension d.
func (i *Info) Stride(d int) int { return i.strides[d] }

// OffsetFirstElement returns the byte offset of element (0, 0, ...).
func (i *Info) OffsetFirstElement() int { return i.offset }

// TotalSize returns the number of bytes the backing buffer must hold.
func (i *Info) TotalSize() int { return i.totalSize }

// IsEmpty reports whether the descriptor has not been initialised yet.
func (i *Info) IsEmpty() bool { return i.totalSize == 0 }

// NumDimensions returns the rank.
func (i *Info) NumDimensions() int { return len(i.shape) }

// Dimension returns the extent of dimension d.
func (i *Info) Dimension(d int) int { return i.shape.Dim(d) }

// DimensionOf returns the extent of a logical dimension under the tensor's layout.
func (i *Info) DimensionOf(dim LayoutDimension) int {
	idx := DimensionIndex(i.layout, dim)
	if idx < 0 {
		return 1
	}
	return i.shape.Dim(idx)
}

// IsResizable reports whether the padding may still grow.
func (i *Info) IsResizable() bool { return !i.fixed }

// SetResizable toggles whether the padding may still grow.
func (i *Info) SetResizable(resizable bool) { i.fixed = !resizable }

// SetLayout changes the memory layout tag.
func (i *Info) SetLayout(l Layout) { i.layout = l }

// SetQuantizationInfo changes the quantization parameters.
func (i *Info) SetQuantizationInfo(q QuantizationInfo) { i.quant = q }

// ValidRegion returns the region holding meaningful values.
func (i *Info) ValidRegion() ValidRegion { return i.valid }

// SetValidRegion replaces the valid region.
func (i *Info) SetValidRegion(v ValidRegion) { i.valid = v }

// ExtendPadding grows the border to at least p and recomputes strides.
// It reports whether anything changed. Extending a fixed descriptor is fatal.
func (i *Info) ExtendPadding(p Padding) bool {
	if i.fixed {
		status.Throw(status.InsufficientPadding, "cannot extend padding of a non-resizable tensor")
	}
	next := i.padding.Union(p)
	if next == i.padding {
		return false
	}
	i.padding = next
	if !i.IsEmpty() {
		i.computeStrides()
	}
	return true
}

// OffsetElementInBytes returns the byte offset of the element at c.
func (i *Info) OffsetElementInBytes(c Coordinates) int {
	off := i.offset
	for d, v := range c {
		off += v * i.strides[d]
	}
	return off
}

// Clone returns an independent copy of the descriptor.
func (i *Info) Clone() *Info {
	c := *i
	c.shape = i.shape.Clone()
	c.valid.Shape = i.valid.Shape.Clone()
	return &c
}

// initView binds the descriptor to a foreign stride/offset geometry (sub-views).
func (i *Info) initView(shape Shape, dtype DataType, layout Layout, quant QuantizationInfo,
	strides [MaxDims]int, offset, totalSize int, padding Padding) {
	i.shape = shape.Clone()
	i.dtype = dtype
	i.layout = layout
	i.quant = quant
	i.strides = strides
	i.offset = offset
	i.totalSize = totalSize
	i.padding = padding
	i.valid = ValidRegion{Shape: shape.Clone()}
	i.fixed = true
}

// String implements fmt.Stringer.
func (i *Info) String() string {
	return fmt.Sprintf("%v %s %s pad=%+v", []int(i.shape), i.dtype, i.layout, i.padding)
}
