// Package memory pools scratch storage for operators.
//
// A Pool recycles host buffers by size category. A Group binds pooled buffers
// to the tensors it manages for the duration of one Acquire/Release bracket.
package memory

import (
	"sync"

	"github.com/born-ml/opcore/internal/tensor"
)

// SizeClass represents different buffer size categories for pooling.
type SizeClass int

const (
	// Small for buffers < 4KB.
	Small SizeClass = iota
	// Medium for buffers 4KB-1MB.
	Medium
	// Large for buffers > 1MB.
	Large
)

const (
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
	maxPoolSize     = 100         // Max buffers per category
)

// Stats is a snapshot of pool activity.
type Stats struct {
	Allocated uint64
	Released  uint64
	Hits      uint64
	Misses    uint64
	Pooled    int
}

// Pool manages host buffer reuse to reduce allocation overhead.
// It is safe for concurrent use.
type Pool struct {
	classes [3][][]byte

	mu sync.Mutex

	totalAllocated uint64
	totalReleased  uint64
	poolHits       uint64
	poolMisses     uint64
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.classes {
		p.classes[i] = make([][]byte, 0, maxPoolSize)
	}
	return p
}

// Acquire returns a zeroed buffer of exactly size bytes whose first byte is
// aligned to align. A pooled buffer with enough capacity is reused when one exists.
func (p *Pool) Acquire(size, align int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	class := categorize(size)
	pool := p.classes[class]
	for i, buf := range pool {
		if cap(buf) >= size && tensor.IsAligned(buf[:cap(buf)], align) {
			p.classes[class] = append(pool[:i], pool[i+1:]...)
			p.poolHits++
			out := buf[:size]
			clear(out)
			return out
		}
	}

	p.poolMisses++
	p.totalAllocated++
	return tensor.AlignedBytes(size, max(align, 1))
}

// Release returns a buffer to the pool for reuse.
// If the category is full, the buffer is dropped.
func (p *Pool) Release(buf []byte) {
	if buf == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalReleased++
	class := categorize(cap(buf))
	if len(p.classes[class]) >= maxPoolSize {
		return
	}
	p.classes[class] = append(p.classes[class], buf[:0])
}

// Clear drops every pooled buffer.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.classes {
		p.classes[i] = p.classes[i][:0]
	}
}

// Stats returns statistics about pool usage.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Allocated: p.totalAllocated,
		Released:  p.totalReleased,
		Hits:      p.poolHits,
		Misses:    p.poolMisses,
		Pooled:    len(p.classes[Small]) + len(p.classes[Medium]) + len(p.classes[Large]),
	}
}

func categorize(size int) SizeClass {
	if size < smallThreshold {
		return Small
	}
	if size < mediumThreshold {
		return Medium
	}
	return Large
}
