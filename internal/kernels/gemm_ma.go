package kernels

import (
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// MatrixAddition accumulates out += beta * C.
type MatrixAddition struct {
	kernel.Base
	c, output *tensor.Tensor
	beta      float32
	prog      kernel.Program
}

// ValidateMatrixAddition checks that c can be accumulated into output.
func ValidateMatrixAddition(dev kernel.Device, c, output *tensor.Info) error {
	if c == nil || output == nil {
		return status.New(status.NullArgument, "addition needs C and an output")
	}
	if !dev.Supports(MatrixAdditionName, c.DataType()) {
		return status.New(status.UnsupportedDataType, "%s does not support %s on %s", MatrixAdditionName, c.DataType(), dev.Target())
	}
	if output.DataType() != c.DataType() {
		return status.New(status.UnsupportedDataType, "C is %s, output is %s", c.DataType(), output.DataType())
	}
	if !output.Shape().Equal(c.Shape()) {
		return status.New(status.ShapeMismatch, "C is %v, output is %v", []int(c.Shape()), []int(output.Shape()))
	}
	return nil
}

// Configure binds the kernel. The output must already be initialised.
func (k *MatrixAddition) Configure(dev kernel.Device, c, output *tensor.Tensor, beta float32) {
	if c == nil || output == nil {
		status.Throw(status.NullArgument, "addition needs C and an output")
	}
	status.ThrowOn(ValidateMatrixAddition(dev, c.Info(), output.Info()))

	out := output.Info()
	prog, err := dev.Program(MatrixAdditionName, kernel.BuildOptions{DataType: out.DataType(), VecSize: 1, Shape: out.Shape()})
	status.ThrowOn(err)

	win := window.CalculateMaxWindow(out, window.StepsX(out.Dimension(0)))
	k.c, k.output, k.beta, k.prog = c, output, beta, prog
	k.ConfigureBase(MatrixAdditionName, win)
}

// Run implements kernel.Kernel.
func (k *MatrixAddition) Run(win window.Window, ctx kernel.Context) {
	k.CheckRun(win)
	args := &kernel.Args{
		Tensors: []kernel.Arg{kernel.Bind(k.c), kernel.Bind(k.output)},
		Beta:    k.beta,
	}
	kernel.Launch(ctx, k.prog, args, k.Window(), win)
}

var maBodies = kernel.Table[launchFunc]{
	{Layout: kernel.AnyLayout, DataType: tensor.F32}: maF32,
	{Layout: kernel.AnyLayout, DataType: tensor.F16}: maConverted,
}

func maF32(args *kernel.Args, win window.Window) {
	c, out := args.Tensors[0], args.Tensors[1]
	n := out.Info.Dimension(0)
	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		m := id[window.DimY]
		x := blas32.Vector{N: n, Inc: 1, Data: rowF32(c, m, n)}
		y := blas32.Vector{N: n, Inc: 1, Data: rowF32(out, m, n)}
		blas32.Axpy(args.Beta, x, y)
	})
}

func maConverted(args *kernel.Args, win window.Window) {
	c, out := args.Tensors[0], args.Tensors[1]
	n := out.Info.Dimension(0)
	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		m := id[window.DimY]
		for j := 0; j < n; j++ {
			p := tensor.Coords(j, m)
			setAt(out, p, at(out, p)+args.Beta*at(c, p))
		}
	})
}
