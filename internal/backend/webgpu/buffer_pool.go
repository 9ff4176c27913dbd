//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	// Size thresholds for buffer categories.
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
	maxPoolSize     = 32          // Max buffers per category
)

type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// BufferStats counts device buffer reuse.
type BufferStats struct {
	Allocated, Released, Hits, Misses uint64
	Pooled                            int
}

// bufferPool recycles unmapped storage buffers between launches.
// Buffers are categorized by size; a pooled buffer serves any request it
// is large enough for and whose usage it covers.
type bufferPool struct {
	device *wgpu.Device

	mu    sync.Mutex
	pools [3][]*pooledBuffer
	stats BufferStats
}

func newBufferPool(device *wgpu.Device) *bufferPool {
	return &bufferPool{device: device}
}

func categorize(size uint64) int {
	switch {
	case size < smallThreshold:
		return 0
	case size < mediumThreshold:
		return 1
	default:
		return 2
	}
}

// acquire returns a buffer of at least size bytes.
func (p *bufferPool) acquire(size uint64, usage wgpu.BufferUsage) *pooledBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := categorize(size)
	for i, pb := range p.pools[c] {
		if pb.size >= size && pb.usage&usage == usage {
			p.pools[c] = append(p.pools[c][:i], p.pools[c][i+1:]...)
			p.stats.Hits++
			return pb
		}
	}

	p.stats.Misses++
	p.stats.Allocated++
	return &pooledBuffer{
		buffer: p.device.CreateBuffer(&wgpu.BufferDescriptor{Usage: usage, Size: size}),
		size:   size,
		usage:  usage,
	}
}

// release returns pb to the pool, or frees it when its category is full.
func (p *bufferPool) release(pb *pooledBuffer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Released++
	c := categorize(pb.size)
	if len(p.pools[c]) >= maxPoolSize {
		pb.buffer.Release()
		return
	}
	p.pools[c] = append(p.pools[c], pb)
}

// clear frees every pooled buffer.
func (p *bufferPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := range p.pools {
		for _, pb := range p.pools[c] {
			pb.buffer.Release()
		}
		p.pools[c] = nil
	}
}

func (p *bufferPool) snapshot() BufferStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	for _, pool := range p.pools {
		s.Pooled += len(pool)
	}
	return s
}
