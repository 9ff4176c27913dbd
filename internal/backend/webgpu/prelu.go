//go:build windows

package webgpu

import (
	"encoding/binary"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// preluProgram runs F32 PReLU on the device. The elements a launch covers are
// gathered into dense buffers together with their expanded slopes, run through
// the shader, and scattered back.
type preluProgram struct {
	builder  *Builder
	pipeline *wgpu.ComputePipeline
	nhwc     bool
}

func (p *preluProgram) Name() string { return kernels.PreluName }

// element is the byte offset of one element in the input and output buffers.
type element struct {
	in, out int
}

func (p *preluProgram) Launch(args *kernel.Args, win window.Window) {
	in, slope := args.Tensors[0], args.Tensors[1]
	out := kernel.Arg{}
	if len(args.Tensors) > 2 {
		out = args.Tensors[2]
	}
	alpha := tensor.Float32s(slope.Buf[slope.Info.OffsetFirstElement():], slope.Info.Dimension(0))

	xs, ss, elems := p.gather(in, out, alpha, win)
	if len(xs) == 0 {
		return
	}
	ys, err := p.run(xs, ss)
	if err != nil {
		status.Throw(status.NotImplemented, "webgpu prelu: %v", err)
	}

	dst := out
	if dst.Buf == nil {
		dst = in
	}
	for i, e := range elems {
		tensor.Float32s(dst.Buf[e.out:], 1)[0] = ys[i]
	}
}

func (p *preluProgram) gather(in, out kernel.Arg, alpha []float32, win window.Window) (xs, ss []float32, elems []element) {
	width := in.Info.Dimension(0)
	channels := len(alpha)
	lanes := max(win.X().Step, 1)

	itIn := window.NewIterator(in.Info, in.Buf, win)
	its := []*window.Iterator{itIn}
	var itOut *window.Iterator
	if out.Buf != nil {
		itOut = window.NewIterator(out.Info, out.Buf, win)
		its = append(its, itOut)
	}

	window.ExecuteLoop(win, func(id tensor.Coordinates) {
		inOff := itIn.Offset()
		outOff := inOff
		if itOut != nil {
			outOff = itOut.Offset()
		}
		for l := 0; l < lanes && id[0]+l < width; l++ {
			c := id[2] % channels
			if p.nhwc {
				c = id[0] + l
			}
			xs = append(xs, tensor.Float32s(in.Buf[inOff+4*l:], 1)[0])
			ss = append(ss, alpha[c])
			elems = append(elems, element{in: inOff + 4*l, out: outOff + 4*l})
		}
	}, its...)
	return xs, ss, elems
}

func (p *preluProgram) run(xs, ss []float32) ([]float32, error) {
	b := p.builder
	n := len(xs)
	//nolint:gosec // G115: Safe conversion, byte sizes are non-negative
	size := uint64(4 * n)

	bufferX := b.createBuffer(float32Bytes(xs), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferX.Release()
	bufferS := b.createBuffer(float32Bytes(ss), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferS.Release()
	pooledY := b.buffers.acquire(size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	defer b.buffers.release(pooledY)
	bufferY := pooledY.buffer

	params := make([]byte, 16)
	//nolint:gosec // G115: Safe conversion, element count is non-negative
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	bufferParams := b.createUniformBuffer(params)
	defer bufferParams.Release()

	bindGroup := b.device.CreateBindGroupSimple(p.pipeline.GetBindGroupLayout(0), []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferX, 0, size),
		wgpu.BufferBindingEntry(1, bufferS, 0, size),
		wgpu.BufferBindingEntry(2, bufferY, 0, size),
		wgpu.BufferBindingEntry(3, bufferParams, 0, 16),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	//nolint:gosec // G115: Safe conversion, workgroup count is non-negative
	pass.DispatchWorkgroups(uint32((n+workgroupSize-1)/workgroupSize), 1, 1)
	pass.End()
	b.queue.Submit(encoder.Finish(nil))

	raw, err := b.readBuffer(bufferY, size)
	if err != nil {
		return nil, err
	}
	return tensor.Float32s(raw, n), nil
}

func float32Bytes(v []float32) []byte {
	out := make([]byte, 4*len(v))
	copy(tensor.Float32s(out, len(v)), v)
	return out
}
