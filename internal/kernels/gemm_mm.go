package kernels

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// MatrixMultiply computes out = alpha * A·B for A [K, M] and B [N, K], either on
// the raw operands or on their interleaved/transposed forms.
type MatrixMultiply struct {
	kernel.Base
	a, b, output *tensor.Tensor
	alpha        float32
	reshaped     bool
	info         kernel.ReshapeInfo
	prog         kernel.Program
}

// ValidateMatrixMultiply checks a multiply. When reshaped is set, a and b are A′
// and B′ and info carries the logical M, N, K.
func ValidateMatrixMultiply(dev kernel.Device, a, b, output *tensor.Info, reshaped bool, info kernel.ReshapeInfo) error {
	if a == nil || b == nil || output == nil {
		return status.New(status.NullArgument, "multiply needs A, B and an output")
	}
	name := MatrixMultiplyName
	if reshaped {
		name = MatrixMultiplyReshapedName
	}
	dt := a.DataType()
	if !dev.Supports(name, dt) {
		return status.New(status.UnsupportedDataType, "%s does not support %s on %s", name, dt, dev.Target())
	}
	if b.DataType() != dt {
		return status.New(status.UnsupportedDataType, "A is %s, B is %s", dt, b.DataType())
	}
	if a.NumDimensions() > 2 || b.NumDimensions() > 2 {
		return status.New(status.ShapeMismatch, "multiply expects matrices, got %v and %v", []int(a.Shape()), []int(b.Shape()))
	}

	m, n := a.Dimension(1), b.Dimension(0)
	if reshaped {
		m, n = info.M, info.N
		if want := InterleavedShape(tensor.NewInfo(tensor.Shape{info.K, info.M}, dt, a.Layout()), info.InterleaveHeight); !a.Shape().Equal(want) {
			return status.New(status.ShapeMismatch, "A′ is %v, expected %v", []int(a.Shape()), []int(want))
		}
		if want := TransposedShape(tensor.NewInfo(tensor.Shape{info.N, info.K}, dt, b.Layout()), info.TransposeWidth); !b.Shape().Equal(want) {
			return status.New(status.ShapeMismatch, "B′ is %v, expected %v", []int(b.Shape()), []int(want))
		}
	} else if a.Dimension(0) != b.Dimension(1) {
		return status.New(status.ShapeMismatch, "A has %d columns, B has %d rows", a.Dimension(0), b.Dimension(1))
	}

	if output.IsEmpty() {
		return nil
	}
	if output.DataType() != dt {
		return status.New(status.UnsupportedDataType, "output is %s, operands are %s", output.DataType(), dt)
	}
	if want := (tensor.Shape{n, m}); !output.Shape().Equal(want) {
		return status.New(status.ShapeMismatch, "output is %v, expected %v", []int(output.Shape()), []int(want))
	}
	return nil
}

// Configure binds the kernel. An empty output is initialised to [N, M].
func (k *MatrixMultiply) Configure(dev kernel.Device, a, b, output *tensor.Tensor, alpha float32, reshaped bool, info kernel.ReshapeInfo) {
	if a == nil || b == nil || output == nil {
		status.Throw(status.NullArgument, "multiply needs A, B and an output")
	}
	ai, bi := a.Info(), b.Info()
	m, n := ai.Dimension(1), bi.Dimension(0)
	if reshaped {
		m, n = info.M, info.N
	}
	output.Info().AutoInitIfEmpty(tensor.Shape{n, m}, ai.DataType(), ai.Layout(), ai.QuantizationInfo())
	status.ThrowOn(ValidateMatrixMultiply(dev, ai, bi, output.Info(), reshaped, info))

	name := MatrixMultiplyName
	if reshaped {
		name = MatrixMultiplyReshapedName
	}
	prog, err := dev.Program(name, kernel.BuildOptions{DataType: ai.DataType(), VecSize: 1, Shape: output.Info().Shape()})
	status.ThrowOn(err)

	out := output.Info()
	win := window.CalculateMaxWindow(out, window.StepsX(out.Dimension(0)))
	k.a, k.b, k.output = a, b, output
	k.alpha, k.reshaped, k.info, k.prog = alpha, reshaped, info, prog
	k.ConfigureBase(name, win)
}

// Run implements kernel.Kernel.
func (k *MatrixMultiply) Run(win window.Window, ctx kernel.Context) {
	k.CheckRun(win)
	args := &kernel.Args{
		Tensors: []kernel.Arg{kernel.Bind(k.a), kernel.Bind(k.b), kernel.Bind(k.output)},
		Alpha:   k.alpha,
		Reshape: k.info,
	}
	kernel.Launch(ctx, k.prog, args, k.Window(), win)
}

var (
	mmBodies = kernel.Table[launchFunc]{
		{Layout: kernel.AnyLayout, DataType: tensor.F32}: mmF32,
		{Layout: kernel.AnyLayout, DataType: tensor.F16}: mmConverted,
	}
	mmReshapedBodies = kernel.Table[launchFunc]{
		{Layout: kernel.AnyLayout, DataType: tensor.F32}: mmReshapedF32,
		{Layout: kernel.AnyLayout, DataType: tensor.F16}: mmReshapedConverted,
	}
)

// rowF32 views n float32 values of row y of a.
func rowF32(a kernel.Arg, y, n int) []float32 {
	return tensor.Float32s(a.Buf[a.Info.OffsetElementInBytes(tensor.Coords(0, y)):], n)
}

// mmF32 computes one output row per tile as alpha * Bᵀ·a_m.
func mmF32(args *kernel.Args, win window.Window) {
	a, b, out := args.Tensors[0], args.Tensors[1], args.Tensors[2]
	k, n := a.Info.Dimension(0), b.Info.Dimension(0)
	stride := b.Info.Stride(1) / 4
	bm := blas32.General{
		Rows:   k,
		Cols:   n,
		Stride: stride,
		Data:   tensor.Float32s(b.Buf[b.Info.OffsetFirstElement():], (k-1)*stride+n),
	}
	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		m := id[window.DimY]
		x := blas32.Vector{N: k, Inc: 1, Data: rowF32(a, m, k)}
		y := blas32.Vector{N: n, Inc: 1, Data: rowF32(out, m, n)}
		blas32.Gemv(blas.Trans, args.Alpha, bm, x, 0, y)
	})
}

func mmConverted(args *kernel.Args, win window.Window) {
	a, b, out := args.Tensors[0], args.Tensors[1], args.Tensors[2]
	k, n := a.Info.Dimension(0), b.Info.Dimension(0)
	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		m := id[window.DimY]
		for j := 0; j < n; j++ {
			var acc float32
			for i := 0; i < k; i++ {
				acc += at(a, tensor.Coords(i, m)) * at(b, tensor.Coords(j, i))
			}
			setAt(out, tensor.Coords(j, m), args.Alpha*acc)
		}
	})
}

// mmReshapedF32 reads row m of A as a strided column of its A′ block and
// column n of B as a strided row of its B′ block.
func mmReshapedF32(args *kernel.Args, win window.Window) {
	a, b, out := args.Tensors[0], args.Tensors[1], args.Tensors[2]
	r := args.Reshape
	bw, tw := r.BlockRows(), r.BlockCols(4)
	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		m := id[window.DimY]
		aOff := a.Info.OffsetElementInBytes(tensor.Coords(m%bw, m/bw))
		x := blas32.Vector{N: r.K, Inc: bw, Data: tensor.Float32s(a.Buf[aOff:], (r.K-1)*bw+1)}
		dst := rowF32(out, m, r.N)
		for j := range dst {
			bOff := b.Info.OffsetElementInBytes(tensor.Coords(j%tw, j/tw))
			y := blas32.Vector{N: r.K, Inc: tw, Data: tensor.Float32s(b.Buf[bOff:], (r.K-1)*tw+1)}
			dst[j] = args.Alpha * blas32.Dot(x, y)
		}
	})
}

func mmReshapedConverted(args *kernel.Args, win window.Window) {
	a, b, out := args.Tensors[0], args.Tensors[1], args.Tensors[2]
	r := args.Reshape
	bw, tw := r.BlockRows(), r.BlockCols(a.Info.ElementSize())
	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		m := id[window.DimY]
		for j := 0; j < r.N; j++ {
			var acc float32
			for i := 0; i < r.K; i++ {
				acc += at(a, tensor.Coords(i*bw+m%bw, m/bw)) * at(b, tensor.Coords(i*tw+j%tw, j/tw))
			}
			setAt(out, tensor.Coords(j, m), args.Alpha*acc)
		}
	})
}
