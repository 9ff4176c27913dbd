// Package accel implements the accelerator backend. Kernels are recorded on
// an asynchronous command queue and Dispatch returns before they execute.
package accel

import (
	"log/slog"

	"github.com/born-ml/opcore/internal/envconfig"
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/tensor"
)

// Capabilities lists the element types the accelerator runs. The quantized
// PReLU path has no accelerator program.
func Capabilities() kernel.Capabilities {
	return kernels.Capabilities(
		[]tensor.DataType{tensor.F32, tensor.F16},
		[]tensor.DataType{tensor.F32, tensor.F16},
	)
}

// vectorBytes is the native vector width of the supported GPU classes.
const vectorBytes = 16

// Config configures an accelerator backend.
type Config struct {
	Target    kernel.Target
	BatchSize int
	// Builder compiles programs; nil selects the host programs.
	Builder kernel.Builder
}

// DefaultConfig reads the configuration from the environment.
func DefaultConfig() Config {
	return Config{
		Target:    envconfig.GPUTarget(),
		BatchSize: int(envconfig.QueueBatch()),
	}
}

// Backend enqueues kernels on a Queue.
type Backend struct {
	device *kernel.BasicDevice
	queue  *Queue
}

// New creates a backend configured from the environment.
func New() *Backend {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a backend.
func NewWithConfig(cfg Config) *Backend {
	builder := cfg.Builder
	if builder == nil {
		builder = kernels.HostBuilder{}
	}
	b := &Backend{
		device: kernel.NewDevice(cfg.Target, vectorBytes, Capabilities(), kernel.NewCatalog(builder)),
		queue:  NewQueue(cfg.BatchSize),
	}
	slog.Debug("accel backend", "target", cfg.Target, "batch", cfg.BatchSize)
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string { return "accel/" + b.device.Target().String() }

// Device returns the compute device.
func (b *Backend) Device() kernel.Device { return b.device }

// Queue returns the command queue.
func (b *Backend) Queue() *Queue { return b.queue }

// Dispatch enqueues k over its whole window. The split dimension is unused:
// the queue slices the window itself. With blockAfter set, Dispatch waits for
// the queue to drain.
func (b *Backend) Dispatch(k kernel.Kernel, _ int, blockAfter bool) {
	k.Run(k.Window(), kernel.Context{NumThreads: 1, Queue: b.queue})
	if blockAfter {
		b.queue.Finish()
	}
}

// Sync blocks until every enqueued kernel has completed.
func (b *Backend) Sync() { b.queue.Finish() }

// Close drains the queue and releases the device goroutine.
func (b *Backend) Close() { b.queue.Close() }
