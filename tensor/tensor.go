// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/opcore/internal/tensor"
)

// DataType is the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Unknown DataType = tensor.Unknown
	U8      DataType = tensor.U8
	S8      DataType = tensor.S8
	QASYMM8 DataType = tensor.QASYMM8
	U16     DataType = tensor.U16
	S16     DataType = tensor.S16
	U32     DataType = tensor.U32
	S32     DataType = tensor.S32
	F16     DataType = tensor.F16
	F32     DataType = tensor.F32
)

// Layout is the memory order of an image tensor.
type Layout = tensor.Layout

// Layout constants.
const (
	NCHW Layout = tensor.NCHW
	NHWC Layout = tensor.NHWC
)

// LayoutDimension names a logical image dimension.
type LayoutDimension = tensor.LayoutDimension

// Logical dimensions.
const (
	Width   LayoutDimension = tensor.Width
	Height  LayoutDimension = tensor.Height
	Channel LayoutDimension = tensor.Channel
	Batches LayoutDimension = tensor.Batches
)

// MaxDims is the highest supported rank.
const MaxDims = tensor.MaxDims

type (
	// Shape lists extents, dimension 0 first.
	Shape = tensor.Shape
	// Coordinates address one element.
	Coordinates = tensor.Coordinates
	// Padding is the border of extra elements around each dimension.
	Padding = tensor.Padding
	// QuantizationInfo maps QASYMM8 values to reals: real = Scale * (q - Offset).
	QuantizationInfo = tensor.QuantizationInfo
	// Info is the metadata of a tensor.
	Info = tensor.Info
	// Allocator binds memory to a tensor.
	Allocator = tensor.Allocator
	// Tensor is metadata plus memory.
	Tensor = tensor.Tensor
)

// New creates an unallocated tensor.
func New(shape Shape, dtype DataType, layout Layout) *Tensor {
	return tensor.New(shape, dtype, layout)
}

// NewQuantized creates an unallocated QASYMM8 tensor.
func NewQuantized(shape Shape, layout Layout, q QuantizationInfo) *Tensor {
	return tensor.NewQuantized(shape, layout, q)
}

// NewAllocated creates a tensor and allocates it immediately.
func NewAllocated(shape Shape, dtype DataType, layout Layout) *Tensor {
	return tensor.NewAllocated(shape, dtype, layout)
}

// NewInfo creates tensor metadata without memory.
func NewInfo(shape Shape, dtype DataType, layout Layout) *Info {
	return tensor.NewInfo(shape, dtype, layout)
}

// Coords builds coordinates from the leading dimensions.
func Coords(v ...int) Coordinates {
	return tensor.Coords(v...)
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, bool) {
	return tensor.ParseDataType(s)
}

// ParseLayout accepts "nchw" or "nhwc" in any case.
func ParseLayout(s string) (Layout, bool) {
	return tensor.ParseLayout(s)
}
