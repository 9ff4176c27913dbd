package kernels

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// Prelu computes y = max(x, 0) + slope[c] * min(x, 0) with one slope per channel.
type Prelu struct {
	kernel.Base
	input, output, slope *tensor.Tensor
	inPlace              bool
	prog                 kernel.Program
	configID             string
}

// ValidatePrelu reports whether a Prelu with these descriptors can be configured
// on dev. A nil output, or output == input, runs in place. Nothing is modified.
func ValidatePrelu(dev kernel.Device, input, output, slope *tensor.Info) error {
	if input == nil || slope == nil {
		return status.New(status.NullArgument, "prelu needs an input and a slope")
	}
	if output == input {
		output = nil
	}
	if err := validatePreluArgs(dev, input, output, slope); err != nil {
		return err
	}

	in, sl := input.Clone(), slope.Clone()
	var out *tensor.Info
	if output != nil {
		out = output.Clone()
		out.AutoInitFrom(in)
	}
	if _, changed := preluWindow(dev, in, out, sl); changed {
		return status.New(status.InsufficientPadding, "prelu on %v needs more padding", input)
	}
	return nil
}

func validatePreluArgs(dev kernel.Device, input, output, slope *tensor.Info) error {
	dt := input.DataType()
	if !dev.Supports(PreluName, dt) {
		return status.New(status.UnsupportedDataType, "prelu does not support %s on %s", dt, dev.Target())
	}
	if input.Layout() != tensor.NCHW && input.Layout() != tensor.NHWC {
		return status.New(status.UnsupportedLayout, "prelu does not support layout %s", input.Layout())
	}
	if slope.DataType() != dt {
		return status.New(status.UnsupportedDataType, "slope is %s, input is %s", slope.DataType(), dt)
	}
	channels := input.DimensionOf(tensor.Channel)
	if slope.Dimension(0) != channels || slope.Shape().NumElements() != channels {
		return status.New(status.ShapeMismatch, "slope %v does not hold one value per channel (%d)", []int(slope.Shape()), channels)
	}
	if output == nil || output.IsEmpty() {
		return nil
	}
	if !output.Shape().Equal(input.Shape()) {
		return status.New(status.ShapeMismatch, "output %v differs from input %v", []int(output.Shape()), []int(input.Shape()))
	}
	if output.DataType() != dt {
		return status.New(status.UnsupportedDataType, "output is %s, input is %s", output.DataType(), dt)
	}
	if output.Layout() != input.Layout() {
		return status.New(status.UnsupportedLayout, "output is %s, input is %s", output.Layout(), input.Layout())
	}
	return nil
}

// preluWindow computes the window over in and reconciles it with every operand's
// padding. out is nil when running in place.
func preluWindow(dev kernel.Device, in, out, slope *tensor.Info) (window.Window, bool) {
	step := lanes(dev, in)
	win := window.CalculateMaxWindow(in, window.StepsX(step))

	inAcc := window.NewHorizontal(in, 0, step)
	slopeAcc := window.NewStatic(slope, 0, 0, slope.Dimension(0), 1)
	if out == nil {
		return win, window.UpdateWindowAndPadding(&win, inAcc, slopeAcc)
	}
	outAcc := window.NewHorizontal(out, 0, step)
	changed := window.UpdateWindowAndPadding(&win, inAcc, outAcc, slopeAcc)
	outAcc.SetValidRegion(win, in.ValidRegion())
	return win, changed
}

// lanes returns how many elements of info fit in one device vector.
func lanes(dev kernel.Device, info *tensor.Info) int {
	return max(dev.VectorBytes()/info.ElementSize(), 1)
}

// Configure binds the kernel to its tensors. An empty output is initialised
// from the input; a nil output, or output == input, runs in place.
// Any validation failure is fatal.
func (k *Prelu) Configure(dev kernel.Device, input, output, slope *tensor.Tensor) {
	if input == nil || slope == nil {
		status.Throw(status.NullArgument, "prelu needs an input and a slope")
	}
	k.inPlace = output == nil || output == input
	var outInfo *tensor.Info
	if !k.inPlace {
		output.Info().AutoInitFrom(input.Info())
		outInfo = output.Info()
	}
	status.ThrowOn(ValidatePrelu(dev, input.Info(), outInfo, slope.Info()))

	info := input.Info()
	prog, err := dev.Program(PreluName, kernel.BuildOptions{
		DataType: info.DataType(),
		Layout:   info.Layout(),
		VecSize:  lanes(dev, info),
		InPlace:  k.inPlace,
		Shape:    info.Shape(),
	})
	status.ThrowOn(err)

	win, _ := preluWindow(dev, info, outInfo, slope.Info())

	k.input, k.slope, k.prog = input, slope, prog
	if !k.inPlace {
		k.output = output
	}
	k.configID = preluConfigID(info)
	slog.Debug("configured kernel", "kernel", k.configID, "window", win.String(), "in_place", k.inPlace)
	k.ConfigureBase(PreluName, win)
}

func preluConfigID(info *tensor.Info) string {
	return fmt.Sprintf("%s_%s_%d_%d_%d_%s", PreluName, info.DataType(),
		info.Dimension(0), info.Dimension(1), info.Dimension(2), strings.ToLower(info.Layout().String()))
}

// ConfigID identifies the configuration for tuning and logging.
func (k *Prelu) ConfigID() string { return k.configID }

// InPlace reports whether the output aliases the input.
func (k *Prelu) InPlace() bool { return k.inPlace }

// Run implements kernel.Kernel.
func (k *Prelu) Run(win window.Window, ctx kernel.Context) {
	k.CheckRun(win)
	args := &kernel.Args{Tensors: []kernel.Arg{kernel.Bind(k.input), kernel.Bind(k.slope)}}
	if !k.inPlace {
		args.Tensors = append(args.Tensors, kernel.Bind(k.output))
	}
	kernel.Launch(ctx, k.prog, args, k.Window(), win)
}
