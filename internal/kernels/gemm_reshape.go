package kernels

import (
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// InterleavedShape returns the shape of A′ for an A of shape [K, M]:
// each output row packs 4*height consecutive rows of A, element by element.
func InterleavedShape(a *tensor.Info, height int) tensor.Shape {
	bw := kernel.ReshapeInfo{InterleaveHeight: height}.BlockRows()
	return tensor.Shape{a.Dimension(0) * bw, ceilDiv(a.Dimension(1), bw)}
}

// TransposedShape returns the shape of B′ for a B of shape [N, K]:
// each output row packs one block of (16/element size)*width columns of B.
func TransposedShape(b *tensor.Info, width int) tensor.Shape {
	tw := kernel.ReshapeInfo{TransposeWidth: width}.BlockCols(b.ElementSize())
	return tensor.Shape{b.Dimension(1) * tw, ceilDiv(b.Dimension(0), tw)}
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func validateReshape(dev kernel.Device, name string, input, output *tensor.Info, want func(*tensor.Info) tensor.Shape) error {
	if input == nil {
		return status.New(status.NullArgument, "%s needs an input", name)
	}
	if !dev.Supports(name, input.DataType()) {
		return status.New(status.UnsupportedDataType, "%s does not support %s on %s", name, input.DataType(), dev.Target())
	}
	if input.NumDimensions() > 2 {
		return status.New(status.ShapeMismatch, "%s expects a matrix, got %v", name, []int(input.Shape()))
	}
	if output == nil || output.IsEmpty() {
		return nil
	}
	if shape := want(input); !output.Shape().Equal(shape) {
		return status.New(status.ShapeMismatch, "%s output is %v, expected %v", name, []int(output.Shape()), []int(shape))
	}
	if output.DataType() != input.DataType() {
		return status.New(status.UnsupportedDataType, "%s output is %s, input is %s", name, output.DataType(), input.DataType())
	}
	return nil
}

// reshapeKernel is the shared state of the two operand reshapes.
type reshapeKernel struct {
	kernel.Base
	input, output *tensor.Tensor
	prog          kernel.Program
	info          kernel.ReshapeInfo
}

func (k *reshapeKernel) configure(dev kernel.Device, name string, input, output *tensor.Tensor, shape tensor.Shape, info kernel.ReshapeInfo) {
	in := input.Info()
	output.Info().AutoInitIfEmpty(shape, in.DataType(), in.Layout(), in.QuantizationInfo())

	prog, err := dev.Program(name, kernel.BuildOptions{DataType: in.DataType(), VecSize: 1, Shape: in.Shape()})
	status.ThrowOn(err)

	out := output.Info()
	win := window.CalculateMaxWindow(out, window.StepsX(out.Dimension(0)))
	k.input, k.output, k.prog, k.info = input, output, prog, info
	k.ConfigureBase(name, win)
}

// Run implements kernel.Kernel.
func (k *reshapeKernel) Run(win window.Window, ctx kernel.Context) {
	k.CheckRun(win)
	args := &kernel.Args{
		Tensors: []kernel.Arg{kernel.Bind(k.input), kernel.Bind(k.output)},
		Reshape: k.info,
	}
	kernel.Launch(ctx, k.prog, args, k.Window(), win)
}

// Interleave4x4 rearranges A so that blocks of 4*height rows are read
// column by column by the reshaped multiply.
type Interleave4x4 struct {
	reshapeKernel
}

// ValidateInterleave4x4 checks an interleave of input into output.
func ValidateInterleave4x4(dev kernel.Device, input, output *tensor.Info, height int) error {
	return validateReshape(dev, InterleaveName, input, output, func(in *tensor.Info) tensor.Shape {
		return InterleavedShape(in, height)
	})
}

// Configure binds the kernel. An empty output is initialised to InterleavedShape.
func (k *Interleave4x4) Configure(dev kernel.Device, input, output *tensor.Tensor, height int) {
	if input == nil || output == nil {
		status.Throw(status.NullArgument, "interleave needs an input and an output")
	}
	status.ThrowOn(ValidateInterleave4x4(dev, input.Info(), output.Info(), height))
	k.configure(dev, InterleaveName, input, output, InterleavedShape(input.Info(), height),
		kernel.ReshapeInfo{InterleaveHeight: height})
}

// Transpose1xW rearranges B so that blocks of (16/element size)*width columns
// become contiguous rows.
type Transpose1xW struct {
	reshapeKernel
}

// ValidateTranspose1xW checks a transpose of input into output.
func ValidateTranspose1xW(dev kernel.Device, input, output *tensor.Info, width int) error {
	return validateReshape(dev, TransposeName, input, output, func(in *tensor.Info) tensor.Shape {
		return TransposedShape(in, width)
	})
}

// Configure binds the kernel. An empty output is initialised to TransposedShape.
func (k *Transpose1xW) Configure(dev kernel.Device, input, output *tensor.Tensor, width int) {
	if input == nil || output == nil {
		status.Throw(status.NullArgument, "transpose needs an input and an output")
	}
	status.ThrowOn(ValidateTranspose1xW(dev, input.Info(), output.Info(), width))
	k.configure(dev, TransposeName, input, output, TransposedShape(input.Info(), width),
		kernel.ReshapeInfo{TransposeWidth: width})
}

// Both reshapes only move bytes, so one body serves every element type.
var (
	interleaveBodies = kernel.Table[launchFunc]{
		{Layout: kernel.AnyLayout, DataType: tensor.F32}: interleaveBytes,
		{Layout: kernel.AnyLayout, DataType: tensor.F16}: interleaveBytes,
	}
	transposeBodies = kernel.Table[launchFunc]{
		{Layout: kernel.AnyLayout, DataType: tensor.F32}: transposeBytes,
		{Layout: kernel.AnyLayout, DataType: tensor.F16}: transposeBytes,
	}
)

// interleaveBytes: out[j][k*bw + r] = A[j*bw + r][k], zero past the last row.
func interleaveBytes(args *kernel.Args, win window.Window) {
	in, out := args.Tensors[0], args.Tensors[1]
	bw := args.Reshape.BlockRows()
	es := in.Info.ElementSize()
	cols, rowsA := in.Info.Dimension(0), in.Info.Dimension(1)

	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		j := id[window.DimY]
		for k := 0; k < cols; k++ {
			for r := 0; r < bw; r++ {
				dst := out.Info.OffsetElementInBytes(tensor.Coords(k*bw+r, j))
				if row := j*bw + r; row < rowsA {
					src := in.Info.OffsetElementInBytes(tensor.Coords(k, row))
					copy(out.Buf[dst:dst+es], in.Buf[src:src+es])
				} else {
					clear(out.Buf[dst : dst+es])
				}
			}
		}
	})
}

// transposeBytes: out[j][k*tw + c] = B[k][j*tw + c], zero past the last column.
func transposeBytes(args *kernel.Args, win window.Window) {
	in, out := args.Tensors[0], args.Tensors[1]
	es := in.Info.ElementSize()
	tw := args.Reshape.BlockCols(es)
	colsB, rowsB := in.Info.Dimension(0), in.Info.Dimension(1)

	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		j := id[window.DimY]
		for k := 0; k < rowsB; k++ {
			for c := 0; c < tw; c++ {
				dst := out.Info.OffsetElementInBytes(tensor.Coords(k*tw+c, j))
				if col := j*tw + c; col < colsB {
					src := in.Info.OffsetElementInBytes(tensor.Coords(col, k))
					copy(out.Buf[dst:dst+es], in.Buf[src:src+es])
				} else {
					clear(out.Buf[dst : dst+es])
				}
			}
		}
	})
}
