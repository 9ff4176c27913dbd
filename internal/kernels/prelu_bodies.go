package kernels

import (
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// preluBody processes every tile of win. out.Buf is nil for the in-place variant.
// Each tile covers win.X().Step lanes; lanes past the row end fall in padding.
type preluBody func(in, slope, out kernel.Arg, win window.Window)

var preluBodies = kernel.Table[preluBody]{
	{Layout: tensor.NCHW, DataType: tensor.F32}:     preluF32NCHW,
	{Layout: tensor.NHWC, DataType: tensor.F32}:     preluF32NHWC,
	{Layout: tensor.NCHW, DataType: tensor.F16}:     preluConverted(false),
	{Layout: tensor.NHWC, DataType: tensor.F16}:     preluConverted(true),
	{Layout: tensor.NCHW, DataType: tensor.QASYMM8}: preluConverted(false),
	{Layout: tensor.NHWC, DataType: tensor.QASYMM8}: preluConverted(true),
}

func buildPrelu(opts kernel.BuildOptions) (launchFunc, error) {
	body, err := preluBodies.Lookup(opts.Layout, opts.DataType)
	if err != nil {
		return nil, err
	}
	if opts.InPlace {
		return func(args *kernel.Args, win window.Window) {
			body(args.Tensors[0], args.Tensors[1], kernel.Arg{}, win)
		}, nil
	}
	return func(args *kernel.Args, win window.Window) {
		body(args.Tensors[0], args.Tensors[1], args.Tensors[2], win)
	}, nil
}

func prelu(x, s float32) float32 {
	return max(x, 0) + s*min(x, 0)
}

// slopeValues returns the per-channel slopes as float32.
func slopeValues(slope kernel.Arg) []float32 {
	n := slope.Info.Dimension(0)
	b := slope.Buf[slope.Info.OffsetFirstElement():]
	if slope.Info.DataType() == tensor.F32 {
		return tensor.Float32s(b, n)
	}
	out := make([]float32, n)
	codecFor(slope.Info).load(b, out)
	return out
}

// rows walks win and hands fn the input and output bytes of every tile.
func rows(in, out kernel.Arg, win window.Window, fn func(id tensor.Coordinates, x, y []byte)) {
	itIn := window.NewIterator(in.Info, in.Buf, win)
	if out.Buf == nil {
		window.ExecuteLoop(win, func(id tensor.Coordinates) {
			b := itIn.Bytes()
			fn(id, b, b)
		}, itIn)
		return
	}
	itOut := window.NewIterator(out.Info, out.Buf, win)
	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		fn(id, itIn.Bytes(), itOut.Bytes())
	}, itIn, itOut)
}

// NCHW: one channel per row, selected by Z. Collapsed batches keep Z % C valid.
func preluF32NCHW(in, slope, out kernel.Arg, win window.Window) {
	alpha := slopeValues(slope)
	n := win.X().Step
	rows(in, out, win, func(id tensor.Coordinates, x, y []byte) {
		s := alpha[id[window.DimZ]%len(alpha)]
		src, dst := tensor.Float32s(x, n), tensor.Float32s(y, n)
		for i, v := range src {
			dst[i] = prelu(v, s)
		}
	})
}

// NHWC: channels run along X, one slope per lane.
func preluF32NHWC(in, slope, out kernel.Arg, win window.Window) {
	alpha := slopeValues(slope)
	n := win.X().Step
	rows(in, out, win, func(id tensor.Coordinates, x, y []byte) {
		src, dst := tensor.Float32s(x, n), tensor.Float32s(y, n)
		for i, v := range src {
			dst[i] = prelu(v, laneSlope(alpha, id[window.DimX]+i))
		}
	})
}

func laneSlope(alpha []float32, c int) float32 {
	if c < len(alpha) {
		return alpha[c]
	}
	return 0
}

// preluConverted handles element types stored in a narrower format by widening
// each tile to float32 and narrowing the result with the output's parameters.
func preluConverted(nhwc bool) preluBody {
	return func(in, slope, out kernel.Arg, win window.Window) {
		alpha := slopeValues(slope)
		n := win.X().Step
		dec := codecFor(in.Info)
		enc := dec
		if out.Buf != nil {
			enc = codecFor(out.Info)
		}
		lanes := make([]float32, n)
		rows(in, out, win, func(id tensor.Coordinates, x, y []byte) {
			dec.load(x, lanes)
			if nhwc {
				for i, v := range lanes {
					lanes[i] = prelu(v, laneSlope(alpha, id[window.DimX]+i))
				}
			} else {
				s := alpha[id[window.DimZ]%len(alpha)]
				for i, v := range lanes {
					lanes[i] = prelu(v, s)
				}
			}
			enc.store(y, lanes)
		})
	}
}
