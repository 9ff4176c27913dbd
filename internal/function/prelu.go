package function

import (
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
)

// PReLU applies a parametric ReLU with one slope per channel.
type PReLU struct {
	backend Backend
	kernel  kernels.Prelu
	split   int
}

// NewPReLU returns an unconfigured operator running on b.
func NewPReLU(b Backend) *PReLU {
	return &PReLU{backend: b}
}

// ValidatePReLU reports whether Configure would succeed on b.
func ValidatePReLU(b Backend, input, output, slope *tensor.Info) error {
	return kernels.ValidatePrelu(b.Device(), input, output, slope)
}

// Configure binds the operator. A nil output runs in place.
func (f *PReLU) Configure(input, output, slope *tensor.Tensor) {
	if input == nil {
		status.Throw(status.NullArgument, "prelu needs an input")
	}
	f.kernel.Configure(f.backend.Device(), input, output, slope)
	f.split = splitDimension(input.Info().Layout())
}

// Run applies the activation.
func (f *PReLU) Run() {
	f.backend.Dispatch(&f.kernel, f.split, false)
}

// Kernel exposes the configured kernel.
func (f *PReLU) Kernel() *kernels.Prelu { return &f.kernel }
