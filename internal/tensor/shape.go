package tensor

import "fmt"

// MaxDims is the fixed rank of coordinates, strides and windows.
const MaxDims = 6

// Shape represents the extents of a tensor, fastest-varying dimension first.
// Dimension 0 is X; dimensions beyond len(s) have extent 1.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0, rank <= MaxDims).
func (s Shape) Validate() error {
	if len(s) > MaxDims {
		return fmt.Errorf("rank %d exceeds %d", len(s), MaxDims)
	}
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Dim returns the extent of dimension i, or 1 beyond the rank.
func (s Shape) Dim(i int) int {
	if i < len(s) {
		return s[i]
	}
	return 1
}

// Equal checks if two shapes describe the same extents.
// Trailing dimensions of extent 1 are ignored.
func (s Shape) Equal(other Shape) bool {
	for i := 0; i < MaxDims; i++ {
		if s.Dim(i) != other.Dim(i) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Set returns a shape with dimension i set to v, growing the rank when needed.
func (s Shape) Set(i, v int) Shape {
	out := s.Clone()
	for len(out) <= i {
		out = append(out, 1)
	}
	out[i] = v
	return out
}

// Coordinates addresses one element; unused trailing entries are zero.
type Coordinates [MaxDims]int

// Coords builds Coordinates from the leading values.
func Coords(v ...int) Coordinates {
	var c Coordinates
	copy(c[:], v)
	return c
}
