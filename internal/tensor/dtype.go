// Package tensor provides tensor descriptors, backing storage and allocators
// shared by every kernel and operator.
package tensor

// DataType represents the element type of a tensor.
type DataType int

// Supported data types.
const (
	Unknown DataType = iota
	U8
	S8
	QASYMM8 // 8-bit asymmetric quantized, see QuantizationInfo.
	U16
	S16
	U32
	S32
	F16
	F32
)

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case U8, S8, QASYMM8:
		return 1
	case U16, S16, F16:
		return 2
	case U32, S32, F32:
		return 4
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case U8:
		return "u8"
	case S8:
		return "s8"
	case QASYMM8:
		return "qasymm8"
	case U16:
		return "u16"
	case S16:
		return "s16"
	case U32:
		return "u32"
	case S32:
		return "s32"
	case F16:
		return "f16"
	case F32:
		return "f32"
	default:
		return "unknown"
	}
}

// IsFloat reports whether dt is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == F16 || dt == F32
}

// IsQuantized reports whether dt carries quantization parameters.
func (dt DataType) IsQuantized() bool {
	return dt == QASYMM8
}

// ParseDataType is the inverse of String.
func ParseDataType(s string) (DataType, bool) {
	for dt := U8; dt <= F32; dt++ {
		if dt.String() == s {
			return dt, true
		}
	}
	return Unknown, false
}
