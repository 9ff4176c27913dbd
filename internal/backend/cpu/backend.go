// Package cpu implements the host backend: kernels run to completion on a
// pool of goroutines before Dispatch returns.
package cpu

import (
	"log/slog"

	"github.com/born-ml/opcore/internal/envconfig"
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/tensor"
)

// Capabilities lists the element types the CPU backend runs.
func Capabilities() kernel.Capabilities {
	return kernels.Capabilities(
		[]tensor.DataType{tensor.F32, tensor.F16, tensor.QASYMM8},
		[]tensor.DataType{tensor.F32, tensor.F16},
	)
}

// Config configures a CPU backend.
type Config struct {
	NumThreads  int
	VectorBytes int
}

// DefaultConfig reads the configuration from the environment.
func DefaultConfig() Config {
	return Config{
		NumThreads:  int(envconfig.NumThreads()),
		VectorBytes: int(envconfig.VectorBytes()),
	}
}

// CPUBackend runs kernels on the host.
type CPUBackend struct {
	device *kernel.BasicDevice
	sched  *Scheduler
}

// New creates a CPU backend configured from the environment.
func New() *CPUBackend {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a CPU backend.
func NewWithConfig(cfg Config) *CPUBackend {
	if cfg.VectorBytes <= 0 {
		cfg.VectorBytes = int(envconfig.DefaultVectorBytes())
	}
	catalog := kernel.NewCatalog(kernels.HostBuilder{})
	b := &CPUBackend{
		device: kernel.NewDevice(kernel.CPU, cfg.VectorBytes, Capabilities(), catalog),
		sched:  NewScheduler(cfg.NumThreads),
	}
	slog.Debug("cpu backend", "threads", b.sched.NumThreads(), "vector_bytes", cfg.VectorBytes)
	return b
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() kernel.Device {
	return cpu.device
}

// Scheduler returns the worker pool.
func (cpu *CPUBackend) Scheduler() *Scheduler { return cpu.sched }

// Dispatch runs k to completion. Every call blocks, so blockAfter is implied.
func (cpu *CPUBackend) Dispatch(k kernel.Kernel, splitDim int, _ bool) {
	cpu.sched.Schedule(k, splitDim)
}
