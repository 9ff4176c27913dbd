package tensor

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/born-ml/opcore/internal/status"
)

// Alignment is the byte alignment of standalone allocations.
const Alignment = 64

// MemoryGroup is implemented by pools that back managed tensors.
// Allocate on a managed allocator records its requirements with the group;
// the group binds real memory only between its Acquire and Release calls.
type MemoryGroup interface {
	FinalizeMemory(slot, size, alignment int)
}

// region is a reference-counted backing buffer shared by an allocator and its sub-views.
type region struct {
	data     []byte
	owned    bool // false for imported and pool-managed memory
	refCount atomic.Int32
	mu       sync.Mutex
}

func newRegion(data []byte, owned bool) *region {
	r := &region{data: data, owned: owned}
	r.refCount.Store(1)
	return r
}

func (r *region) addRef() {
	r.refCount.Add(1)
}

// release drops one reference; owned memory is dropped with the last one.
func (r *region) release() {
	if r.refCount.Add(-1) == 0 && r.owned {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.data = nil
	}
}

// Allocator owns or shares the backing storage of one tensor.
type Allocator struct {
	owner     *Info
	region    *region
	base      int
	allocated bool
	imported  bool
	group     MemoryGroup
	slot      int
}

// Allocate reserves TotalSize() bytes for the owner. With an associated memory
// group the request is handed to the group instead.
// Allocating twice is fatal.
func (a *Allocator) Allocate() {
	if a.allocated {
		status.Throw(status.AlreadyAllocated, "tensor %v is already allocated", a.owner)
	}
	if a.owner.IsEmpty() {
		status.Throw(status.NullArgument, "cannot allocate an uninitialised tensor")
	}
	a.owner.SetResizable(false)
	a.allocated = true
	if a.group != nil {
		a.group.FinalizeMemory(a.slot, a.owner.TotalSize(), Alignment)
		return
	}
	a.region = newRegion(AlignedBytes(a.owner.TotalSize(), Alignment), true)
	a.base = 0
}

// Free releases the backing storage. Imported memory is only unbound.
// Freeing an unallocated tensor is fatal.
func (a *Allocator) Free() {
	if !a.allocated {
		status.Throw(status.NotAllocated, "tensor %v is not allocated", a.owner)
	}
	if a.region != nil && a.group == nil {
		a.region.release()
	}
	a.region = nil
	a.base = 0
	a.allocated = false
	a.imported = false
}

// InitSubview makes this allocator a view of parent's storage starting at coords,
// with its owner reshaped to sub. No copy is made: the storage becomes shared
// and outlives whichever of the two is freed first.
func (a *Allocator) InitSubview(parent *Allocator, coords Coordinates, sub Shape) {
	if a.allocated {
		status.Throw(status.AlreadyAllocated, "sub-view target is already allocated")
	}
	if parent == nil || !parent.allocated || parent.region == nil {
		status.Throw(status.NotAllocated, "sub-view parent has no bound memory")
	}
	if err := sub.Validate(); err != nil {
		status.Throw(status.ShapeMismatch, "sub-view shape: %v", err)
	}
	p := parent.owner
	for d := 0; d < MaxDims; d++ {
		if coords[d] < 0 || coords[d]+sub.Dim(d) > p.Dimension(d) {
			status.Throw(status.ShapeMismatch, "sub-view %v at %v exceeds parent %v", []int(sub), coords[:p.NumDimensions()], []int(p.Shape()))
		}
	}
	pp := p.Padding()
	pad := Padding{
		Top:    pp.Top + coords[1],
		Bottom: pp.Bottom + p.Dimension(1) - coords[1] - sub.Dim(1),
		Left:   pp.Left + coords[0],
		Right:  pp.Right + p.Dimension(0) - coords[0] - sub.Dim(0),
	}
	a.owner.initView(sub, p.DataType(), p.Layout(), p.QuantizationInfo(),
		p.Strides(), p.OffsetElementInBytes(coords), p.TotalSize(), pad)

	parent.region.addRef()
	a.region = parent.region
	a.base = parent.base
	a.allocated = true
}

// ImportMemory binds caller-owned memory. The buffer must hold at least
// TotalSize() bytes and be aligned to the element size. Ownership is never
// transferred: Free only drops the binding.
func (a *Allocator) ImportMemory(buf []byte) error {
	if a.group != nil {
		return status.New(status.AlreadyAllocated, "a memory-managed tensor cannot import memory")
	}
	if a.allocated {
		return status.New(status.AlreadyAllocated, "tensor %v is already allocated", a.owner)
	}
	if len(buf) == 0 {
		return status.New(status.NullArgument, "imported buffer is empty")
	}
	if len(buf) < a.owner.TotalSize() {
		return status.New(status.ShapeMismatch, "imported buffer holds %d bytes, tensor needs %d", len(buf), a.owner.TotalSize())
	}
	if !IsAligned(buf, a.owner.ElementSize()) {
		return status.New(status.Misaligned, "imported buffer is not aligned to %d bytes", a.owner.ElementSize())
	}
	a.owner.SetResizable(false)
	a.region = newRegion(buf, false)
	a.base = 0
	a.allocated = true
	a.imported = true
	return nil
}

// SetAssociatedMemoryGroup hands future Allocate requests to g under the given slot.
func (a *Allocator) SetAssociatedMemoryGroup(g MemoryGroup, slot int) {
	if g == nil {
		status.Throw(status.NullArgument, "nil memory group")
	}
	if a.group != nil {
		status.Throw(status.AlreadyAllocated, "tensor is already managed by another memory group")
	}
	if a.allocated {
		status.Throw(status.AlreadyAllocated, "cannot manage an allocated tensor")
	}
	a.group = g
	a.slot = slot
}

// BindManaged attaches pool memory for the duration of a group bracket.
func (a *Allocator) BindManaged(buf []byte) {
	a.region = newRegion(buf, false)
	a.base = 0
}

// UnbindManaged detaches pool memory at the end of a group bracket.
func (a *Allocator) UnbindManaged() {
	a.region = nil
}

// IsAllocated reports whether Allocate, ImportMemory or InitSubview succeeded.
func (a *Allocator) IsAllocated() bool { return a.allocated }

// IsImported reports whether the storage belongs to the caller.
func (a *Allocator) IsImported() bool { return a.imported }

// IsManaged reports whether a memory group backs this allocator.
func (a *Allocator) IsManaged() bool { return a.group != nil }

// Data returns the bound storage. Accessing unbound storage is fatal.
func (a *Allocator) Data() []byte {
	if a.region == nil || a.region.data == nil {
		status.Throw(status.NotAllocated, "tensor %v has no bound memory", a.owner)
	}
	return a.region.data[a.base:]
}

// AlignedBytes returns a zeroed slice of size bytes whose first byte is aligned to align.
func AlignedBytes(size, align int) []byte {
	buf := make([]byte, size+align)
	off := 0
	//nolint:gosec // address arithmetic only, no pointer is materialised
	if rem := int(uintptr(unsafe.Pointer(&buf[0])) % uintptr(align)); rem != 0 {
		off = align - rem
	}
	return buf[off : off+size : off+size]
}

// IsAligned reports whether buf starts on an align-byte boundary.
func IsAligned(buf []byte, align int) bool {
	if len(buf) == 0 || align <= 1 {
		return true
	}
	//nolint:gosec // address arithmetic only
	return uintptr(unsafe.Pointer(&buf[0]))%uintptr(align) == 0
}
