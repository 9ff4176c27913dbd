// Package function composes kernels into runnable operators.
//
// Operators follow the kernel lifecycle: a package-level ValidateX probes
// feasibility, Configure binds tensors and scratch memory (fatal on failure),
// and Run dispatches the configured kernels to a Backend.
package function

import (
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// Backend executes configured kernels.
type Backend interface {
	// Device describes the hardware kernels are configured for.
	Device() kernel.Device
	// Dispatch runs k over its window, split along splitDim where the backend
	// parallelises. With blockAfter set the call returns only once k and all
	// previously dispatched work have completed.
	Dispatch(k kernel.Kernel, splitDim int, blockAfter bool)
}

// splitDimension returns the dimension an elementwise kernel is split along:
// channels for NCHW, width for NHWC.
func splitDimension(layout tensor.Layout) int {
	if layout == tensor.NHWC {
		return window.DimY
	}
	return window.DimZ
}
