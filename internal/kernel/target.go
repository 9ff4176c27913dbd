package kernel

import "strings"

// Target is the hardware class a device belongs to.
type Target int

// Hardware classes.
const (
	CPU Target = iota
	Midgard
	Bifrost
	Valhall
)

// String returns the lower-case class name.
func (t Target) String() string {
	switch t {
	case CPU:
		return "cpu"
	case Midgard:
		return "midgard"
	case Bifrost:
		return "bifrost"
	case Valhall:
		return "valhall"
	default:
		return "unknown"
	}
}

// ParseTarget is the inverse of String, case-insensitive.
func ParseTarget(s string) (Target, bool) {
	for t := CPU; t <= Valhall; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, true
		}
	}
	return CPU, false
}

// ReshapeInfo describes how GEMM operands were reshaped.
//
// A′ packs InterleaveHeight*4 rows of A per block row; B′ packs
// TransposeWidth*(16/element size) columns of B per block row.
type ReshapeInfo struct {
	M, N, K          int
	InterleaveHeight int
	TransposeWidth   int
}

// GEMMMultipliers returns the interleave height and transpose width multipliers
// tuned for t.
func GEMMMultipliers(t Target) (height, width int) {
	if t == Bifrost {
		return 2, 4
	}
	return 1, 1
}

// BlockRows returns the A′ block height.
func (r ReshapeInfo) BlockRows() int { return 4 * max(r.InterleaveHeight, 1) }

// BlockCols returns the B′ block width for elements of elemSize bytes.
func (r ReshapeInfo) BlockCols(elemSize int) int { return 16 / elemSize * max(r.TransposeWidth, 1) }
