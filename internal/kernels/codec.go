package kernels

import (
	"github.com/x448/float16"

	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/tensor"
)

// codec converts a run of lanes between storage and float32.
type codec struct {
	load  func(b []byte, dst []float32)
	store func(b []byte, src []float32)
}

func codecFor(info *tensor.Info) codec {
	switch info.DataType() {
	case tensor.F32:
		return codec{
			load:  func(b []byte, dst []float32) { copy(dst, tensor.Float32s(b, len(dst))) },
			store: func(b []byte, src []float32) { copy(tensor.Float32s(b, len(src)), src) },
		}
	case tensor.F16:
		return codec{
			load: func(b []byte, dst []float32) {
				for i, h := range tensor.Uint16s(b, len(dst)) {
					dst[i] = float16.Frombits(h).Float32()
				}
			},
			store: func(b []byte, src []float32) {
				lanes := tensor.Uint16s(b, len(src))
				for i, v := range src {
					lanes[i] = float16.Fromfloat32(v).Bits()
				}
			},
		}
	case tensor.QASYMM8:
		q := info.QuantizationInfo()
		return codec{
			load: func(b []byte, dst []float32) {
				for i := range dst {
					dst[i] = q.Dequantize(b[i])
				}
			},
			store: func(b []byte, src []float32) {
				for i, v := range src {
					b[i] = q.Quantize(v)
				}
			},
		}
	default:
		panic("kernels: no codec for " + info.DataType().String())
	}
}

// at returns the element of a at coordinates c.
func at(a kernel.Arg, c tensor.Coordinates) float32 {
	return tensor.LoadFloat(a.Buf, a.Info.OffsetElementInBytes(c), a.Info.DataType(), a.Info.QuantizationInfo())
}

// setAt stores v at coordinates c of a.
func setAt(a kernel.Arg, c tensor.Coordinates, v float32) {
	tensor.StoreFloat(a.Buf, a.Info.OffsetElementInBytes(c), a.Info.DataType(), a.Info.QuantizationInfo(), v)
}
