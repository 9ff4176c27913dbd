package memory

import (
	"fmt"

	"github.com/born-ml/opcore/internal/tensor"
)

type slot struct {
	t     *tensor.Tensor
	size  int
	align int
	buf   []byte
}

// Group binds pooled storage to the tensors registered with Manage.
//
// Allocating a managed tensor only records its size with the group. Storage is
// bound between Acquire and Release; outside that bracket the tensor has no
// memory and its contents are undefined. A Group is owned by one operator
// instance and is not safe for concurrent use.
type Group struct {
	pool     *Pool
	owner    string
	slots    []*slot
	acquired bool
}

// NewGroup creates a group drawing from pool, labelled with the owning operator.
// A nil pool yields an unmanaged group: Manage does nothing and tensors
// allocate standalone memory.
func NewGroup(pool *Pool, owner string) *Group {
	return &Group{pool: pool, owner: owner}
}

// Owner returns the label of the operator instance that owns the group.
func (g *Group) Owner() string { return g.owner }

// IsManaged reports whether the group draws from a pool.
func (g *Group) IsManaged() bool { return g.pool != nil }

// Manage registers t with the group. It must be called before t is allocated.
func (g *Group) Manage(t *tensor.Tensor) {
	if g.pool == nil {
		return
	}
	s := &slot{t: t}
	t.Allocator().SetAssociatedMemoryGroup(g, len(g.slots))
	g.slots = append(g.slots, s)
}

// FinalizeMemory implements tensor.MemoryGroup.
func (g *Group) FinalizeMemory(idx, size, alignment int) {
	if idx < 0 || idx >= len(g.slots) {
		panic(fmt.Sprintf("memory: group %q has no slot %d", g.owner, idx))
	}
	g.slots[idx].size = size
	g.slots[idx].align = alignment
}

// Acquire binds pooled storage to every finalised tensor.
func (g *Group) Acquire() {
	if g.pool == nil {
		return
	}
	if g.acquired {
		panic(fmt.Sprintf("memory: group %q acquired twice", g.owner))
	}
	g.acquired = true
	for _, s := range g.slots {
		if s.size == 0 || !s.t.Allocator().IsAllocated() {
			continue
		}
		s.buf = g.pool.Acquire(s.size, s.align)
		s.t.Allocator().BindManaged(s.buf)
	}
}

// Release unbinds the storage and returns it to the pool.
func (g *Group) Release() {
	if g.pool == nil || !g.acquired {
		return
	}
	g.acquired = false
	for _, s := range g.slots {
		if s.buf == nil {
			continue
		}
		s.t.Allocator().UnbindManaged()
		g.pool.Release(s.buf)
		s.buf = nil
	}
}

// Scope acquires the group and returns the matching release.
//
//	defer g.Scope()()
func (g *Group) Scope() func() {
	g.Acquire()
	return g.Release
}

// Managed returns the number of tensors registered with the group.
func (g *Group) Managed() int { return len(g.slots) }
