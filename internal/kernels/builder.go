// Package kernels implements the concrete compute kernels and the host program
// registry that backends resolve them from.
//
// Every kernel follows the same lifecycle. A package-level ValidateX function
// checks descriptors without touching them. Configure auto-initialises empty
// outputs, validates (fatally), resolves the specialised program and stores the
// window. Run launches the program over a sub-window.
package kernels

import (
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// Program names.
const (
	PreluName                  = "prelu_layer"
	InterleaveName             = "gemm_interleave4x4"
	TransposeName              = "gemm_transpose1xW"
	MatrixMultiplyName         = "gemm_mm_floating_point"
	MatrixMultiplyReshapedName = "gemm_mm_interleaved_transposed"
	MatrixAdditionName         = "gemm_ma"
)

// GEMMPrograms lists every program a GEMM operator may use.
var GEMMPrograms = []string{
	InterleaveName, TransposeName, MatrixMultiplyName, MatrixMultiplyReshapedName, MatrixAdditionName,
}

// Capabilities builds a capability set from the PReLU and GEMM element types.
func Capabilities(prelu, gemm []tensor.DataType) kernel.Capabilities {
	caps := kernel.Capabilities{PreluName: prelu}
	for _, name := range GEMMPrograms {
		caps[name] = gemm
	}
	return caps
}

type launchFunc func(args *kernel.Args, win window.Window)

type hostProgram struct {
	name string
	fn   launchFunc
}

func (p *hostProgram) Name() string { return p.name }

func (p *hostProgram) Launch(args *kernel.Args, win window.Window) { p.fn(args, win) }

var hostBuilders = map[string]func(opts kernel.BuildOptions) (launchFunc, error){
	PreluName:                  buildPrelu,
	InterleaveName:             lookup(interleaveBodies),
	TransposeName:              lookup(transposeBodies),
	MatrixMultiplyName:         lookup(mmBodies),
	MatrixMultiplyReshapedName: lookup(mmReshapedBodies),
	MatrixAdditionName:         lookup(maBodies),
}

func lookup(t kernel.Table[launchFunc]) func(opts kernel.BuildOptions) (launchFunc, error) {
	return func(opts kernel.BuildOptions) (launchFunc, error) {
		return t.Lookup(opts.Layout, opts.DataType)
	}
}

// HostBuilder builds programs that run on the calling goroutine.
type HostBuilder struct{}

// Build implements kernel.Builder.
func (HostBuilder) Build(name string, opts kernel.BuildOptions) (kernel.Program, error) {
	build, ok := hostBuilders[name]
	if !ok {
		return nil, status.New(status.NotImplemented, "unknown program %q", name)
	}
	fn, err := build(opts)
	if err != nil {
		return nil, err
	}
	return &hostProgram{name: name, fn: fn}, nil
}

// HostDataTypes returns the element types the host has bodies for.
func HostDataTypes(name string) []tensor.DataType {
	switch name {
	case PreluName:
		return preluBodies.DataTypes()
	case InterleaveName:
		return interleaveBodies.DataTypes()
	case TransposeName:
		return transposeBodies.DataTypes()
	case MatrixMultiplyName:
		return mmBodies.DataTypes()
	case MatrixMultiplyReshapedName:
		return mmReshapedBodies.DataTypes()
	case MatrixAdditionName:
		return maBodies.DataTypes()
	default:
		return nil
	}
}
