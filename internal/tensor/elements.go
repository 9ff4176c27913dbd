package tensor

import (
	"unsafe"

	"github.com/x448/float16"
)

// Float32s reinterprets n float32 lanes starting at b[0].
func Float32s(b []byte, n int) []float32 {
	if n == 0 {
		return nil
	}
	_ = b[n*4-1]
	//nolint:gosec // unsafe.Slice for zero-copy lane access, length checked above
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
}

// Uint16s reinterprets n uint16 lanes starting at b[0]. F16 data is viewed this way.
func Uint16s(b []byte, n int) []uint16 {
	if n == 0 {
		return nil
	}
	_ = b[n*2-1]
	//nolint:gosec // unsafe.Slice for zero-copy lane access, length checked above
	return unsafe.Slice((*uint16)(unsafe.Pointer(&b[0])), n)
}

// LoadFloat reads the element at byte offset off as a real value.
func LoadFloat(b []byte, off int, dt DataType, q QuantizationInfo) float32 {
	switch dt {
	case F32:
		return Float32s(b[off:], 1)[0]
	case F16:
		return float16.Frombits(Uint16s(b[off:], 1)[0]).Float32()
	case QASYMM8:
		return q.Dequantize(b[off])
	case U8:
		return float32(b[off])
	case S8:
		return float32(int8(b[off]))
	default:
		panic("tensor: no scalar access for " + dt.String())
	}
}

// StoreFloat writes v at byte offset off, converting to dt.
func StoreFloat(b []byte, off int, dt DataType, q QuantizationInfo, v float32) {
	switch dt {
	case F32:
		Float32s(b[off:], 1)[0] = v
	case F16:
		Uint16s(b[off:], 1)[0] = float16.Fromfloat32(v).Bits()
	case QASYMM8:
		b[off] = q.Quantize(v)
	case U8:
		b[off] = uint8(v)
	case S8:
		b[off] = byte(int8(v))
	default:
		panic("tensor: no scalar access for " + dt.String())
	}
}
