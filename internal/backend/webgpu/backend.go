//go:build windows

// Package webgpu builds accelerator programs that run on a WebGPU device.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// Programs without a shader fall back to the host programs, so a Builder
// can back any accelerator catalog.
package webgpu

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/tensor"
)

// Builder implements kernel.Builder on a WebGPU device.
type Builder struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	buffers  *bufferPool
	fallback kernel.Builder
}

// New opens the default adapter.
// Returns an error if WebGPU is not available or initialization fails.
func New() (builder *Builder, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			builder = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Builder{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     queue,
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
		buffers:   newBufferPool(device),
		fallback:  kernels.HostBuilder{},
	}, nil
}

// IsAvailable reports whether a WebGPU adapter can be opened.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// Build implements kernel.Builder. F32 PReLU runs on the device; every other
// program is built by the host builder.
func (b *Builder) Build(name string, opts kernel.BuildOptions) (kernel.Program, error) {
	if name == kernels.PreluName && opts.DataType == tensor.F32 {
		slog.Debug("webgpu program", "name", opts.Signature(name))
		return &preluProgram{
			builder:  b,
			pipeline: b.pipeline(preluShaderName, preluShader),
			nhwc:     opts.Layout == tensor.NHWC,
		}, nil
	}
	return b.fallback.Build(name, opts)
}

// BufferStats reports reuse of the device output buffers.
func (b *Builder) BufferStats() BufferStats { return b.buffers.snapshot() }

// Release frees all GPU resources.
func (b *Builder) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffers.clear()
	for _, p := range b.pipelines {
		p.Release()
	}
	for _, s := range b.shaders {
		s.Release()
	}
	b.pipelines = nil
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}
