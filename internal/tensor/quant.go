package tensor

import "math"

// QuantizationInfo holds asymmetric 8-bit quantization parameters:
// real = Scale * (q - Offset).
type QuantizationInfo struct {
	Scale  float32
	Offset int32
}

// Empty reports whether no quantization parameters are set.
func (q QuantizationInfo) Empty() bool {
	return q.Scale == 0 && q.Offset == 0
}

// Quantize maps v to the nearest representable uint8, saturating.
func (q QuantizationInfo) Quantize(v float32) uint8 {
	r := math.Round(float64(v/q.Scale)) + float64(q.Offset)
	switch {
	case r < 0:
		return 0
	case r > 255:
		return 255
	default:
		return uint8(r)
	}
}

// Dequantize maps a quantized value back to a real value.
func (q QuantizationInfo) Dequantize(v uint8) float32 {
	return q.Scale * float32(int32(v)-q.Offset)
}
