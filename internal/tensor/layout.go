package tensor

import "strings"

// Layout is the memory ordering of the dimensions of an image-like tensor.
type Layout int

// Supported layouts.
const (
	LayoutUnknown Layout = iota
	NCHW                 // channel-major: W is dimension 0, then H, C, N
	NHWC                 // channel-minor: C is dimension 0, then W, H, N
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case NCHW:
		return "NCHW"
	case NHWC:
		return "NHWC"
	default:
		return "unknown"
	}
}

// ParseLayout accepts "nchw" or "nhwc" in any case.
func ParseLayout(s string) (Layout, bool) {
	switch strings.ToUpper(s) {
	case "NCHW":
		return NCHW, true
	case "NHWC":
		return NHWC, true
	default:
		return LayoutUnknown, false
	}
}

// LayoutDimension names a logical image dimension.
type LayoutDimension int

// Logical dimensions.
const (
	Width LayoutDimension = iota
	Height
	Channel
	Batches
)

// DimensionIndex returns the physical dimension index of dim under layout.
// It returns -1 for an unknown layout.
func DimensionIndex(layout Layout, dim LayoutDimension) int {
	switch layout {
	case NCHW:
		return [...]int{Width: 0, Height: 1, Channel: 2, Batches: 3}[dim]
	case NHWC:
		return [...]int{Channel: 0, Width: 1, Height: 2, Batches: 3}[dim]
	default:
		return -1
	}
}
