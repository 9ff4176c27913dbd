// Package window partitions tensor coordinate spaces into iteration windows.
//
// A Window holds one (start, end, step) triple per dimension. Kernels compute a
// maximal window from a tensor's valid region, reconcile it with the padding
// every operand can offer (see AccessWindow), then split it into disjoint
// sub-windows for parallel execution or slice it into 3-D units for a queue.
package window

import (
	"fmt"
	"strings"

	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
)

// Named dimensions.
const (
	DimX = 0
	DimY = 1
	DimZ = 2
	DimW = 3
)

// Dimension is the iteration range of one dimension: Start to End (exclusive) by Step.
type Dimension struct {
	Start, End, Step int
}

// NewDimension returns a dimension; a non-positive step defaults to 1.
func NewDimension(start, end, step int) Dimension {
	if step <= 0 {
		step = 1
	}
	return Dimension{Start: start, End: end, Step: step}
}

// NumIterations returns how many steps fit in the range.
func (d Dimension) NumIterations() int {
	if d.End <= d.Start {
		return 0
	}
	return (d.End - d.Start + d.Step - 1) / d.Step
}

// Window is a set of per-dimension iteration ranges.
// Use New; the zero value has zero steps and fails Validate.
type Window struct {
	dims [tensor.MaxDims]Dimension
}

// New returns a window that visits the single coordinate 0 in every dimension.
func New() Window {
	var w Window
	for d := range w.dims {
		w.dims[d] = Dimension{Start: 0, End: 1, Step: 1}
	}
	return w
}

// Steps are the per-dimension step sizes used to build a maximal window.
// Zero entries mean 1.
type Steps [tensor.MaxDims]int

// StepsX returns steps of n along X and 1 elsewhere.
func StepsX(n int) Steps {
	return Steps{n}
}

// At returns dimension d.
func (w Window) At(d int) Dimension { return w.dims[d] }

// X returns dimension 0.
func (w Window) X() Dimension { return w.dims[DimX] }

// Y returns dimension 1.
func (w Window) Y() Dimension { return w.dims[DimY] }

// Z returns dimension 2.
func (w Window) Z() Dimension { return w.dims[DimZ] }

// Set replaces dimension d.
func (w *Window) Set(d int, dim Dimension) {
	if dim.Step <= 0 {
		dim.Step = 1
	}
	w.dims[d] = dim
}

// SetStep changes the step of dimension d.
func (w *Window) SetStep(d, step int) {
	w.dims[d].Step = step
}

// Shift moves dimension d by n coordinates.
func (w *Window) Shift(d, n int) {
	w.dims[d].Start += n
	w.dims[d].End += n
}

// NumIterations returns the number of steps of dimension d.
func (w Window) NumIterations(d int) int { return w.dims[d].NumIterations() }

// NumIterationsTotal returns the number of tiles the window yields.
func (w Window) NumIterationsTotal() int {
	n := 1
	for _, dim := range w.dims {
		n *= dim.NumIterations()
	}
	return n
}

// IsEmpty reports whether the window yields no tiles.
func (w Window) IsEmpty() bool { return w.NumIterationsTotal() == 0 }

// Validate checks End >= Start and Step > 0 for every dimension.
func (w Window) Validate() error {
	for d, dim := range w.dims {
		if dim.Step <= 0 {
			return status.New(status.InvalidSubwindow, "dimension %d has step %d", d, dim.Step)
		}
		if dim.End < dim.Start {
			return status.New(status.InvalidSubwindow, "dimension %d ends at %d before its start %d", d, dim.End, dim.Start)
		}
	}
	return nil
}

// Equal reports whether two windows describe the same ranges.
func (w Window) Equal(o Window) bool { return w.dims == o.dims }

// IsSubwindowOf reports whether w only visits tiles that parent visits, on the same step grid.
func (w Window) IsSubwindowOf(parent Window) bool {
	for d := range w.dims {
		c, p := w.dims[d], parent.dims[d]
		if c.Step != p.Step || c.End < c.Start {
			return false
		}
		if c.Start == c.End {
			if c.Start < p.Start || c.End > p.End {
				return false
			}
			continue
		}
		if c.Start < p.Start || c.End > p.End || (c.Start-p.Start)%c.Step != 0 {
			return false
		}
	}
	return true
}

// Split returns the id-th of total contiguous parts of dimension dim.
//
// The iterations of dim are dealt out so that the first (n % total) parts get
// one extra iteration. For every total, including non-divisors of the extent and
// totals larger than the number of iterations, the parts are disjoint and their
// union is the parent window.
func (w Window) Split(dim, id, total int) Window {
	if total <= 0 || id < 0 || id >= total {
		panic(fmt.Sprintf("window: invalid split %d of %d", id, total))
	}
	d := w.dims[dim]
	numIt := d.NumIterations()
	rem := numIt % total
	work := numIt / total

	var first, n int
	if id < rem {
		first = id * (work + 1)
		n = work + 1
	} else {
		first = id*work + rem
		n = work
	}

	start := min(d.Start+first*d.Step, d.End)
	end := min(d.Start+(first+n)*d.Step, d.End)
	out := w
	out.dims[dim] = Dimension{Start: start, End: end, Step: d.Step}
	return out
}

// CollapseIfPossible merges dimensions first+1 and above into first when all of
// them span the same full range as in full with step 1. Coordinates along the
// merged dimension become linear indices over the merged extents, which address
// the same elements because tensor strides above Y are contiguous.
// The second result reports whether anything was merged.
func (w Window) CollapseIfPossible(full Window, first int) (Window, bool) {
	extent := w.dims[first].End
	merged := false
	for d := first + 1; d < tensor.MaxDims; d++ {
		c, f := w.dims[d], full.dims[d]
		if c.Start != 0 || f.Start != 0 || c.Step > 1 || c.End != f.End {
			return w, false
		}
		if c.End > 1 {
			merged = true
		}
		extent *= c.End
	}
	if !merged {
		return w, false
	}
	c, f := w.dims[first], full.dims[first]
	if c != f || c.Start != 0 || c.Step != 1 {
		return w, false
	}
	out := w
	out.dims[first] = Dimension{Start: 0, End: extent, Step: 1}
	for d := first + 1; d < tensor.MaxDims; d++ {
		out.dims[d] = Dimension{Start: 0, End: 1, Step: 1}
	}
	return out, true
}

// FirstSlice returns the first n-dimensional slice: dimensions below n are kept,
// higher ones are pinned to their first coordinate.
func (w Window) FirstSlice(n int) Window {
	s := w
	for d := n; d < tensor.MaxDims; d++ {
		dim := w.dims[d]
		s.dims[d] = Dimension{Start: dim.Start, End: dim.Start + dim.Step, Step: dim.Step}
	}
	return s
}

// SlideSlice advances slice to the next n-dimensional slice of w.
// It reports false once every slice has been visited.
func (w Window) SlideSlice(n int, slice *Window) bool {
	for d := n; d < tensor.MaxDims; d++ {
		next := slice.dims[d].Start + w.dims[d].Step
		if next < w.dims[d].End {
			slice.dims[d] = Dimension{Start: next, End: next + w.dims[d].Step, Step: w.dims[d].Step}
			for lower := n; lower < d; lower++ {
				dim := w.dims[lower]
				slice.dims[lower] = Dimension{Start: dim.Start, End: dim.Start + dim.Step, Step: dim.Step}
			}
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (w Window) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for d, dim := range w.dims {
		if d > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d:%d:%d", dim.Start, dim.End, dim.Step)
	}
	b.WriteByte(']')
	return b.String()
}

// CalculateMaxWindow returns the window covering the valid region of info, with
// every dimension's end rounded up to a multiple of its step. Kernels rely on the
// padding to absorb the rounded-up tail.
func CalculateMaxWindow(info *tensor.Info, steps Steps) Window {
	valid := info.ValidRegion()
	w := New()
	for d := 0; d < tensor.MaxDims; d++ {
		step := max(steps[d], 1)
		start := valid.Start(d)
		extent := valid.Shape.Dim(d)
		w.dims[d] = Dimension{Start: start, End: start + ceilToMultiple(extent, step), Step: step}
	}
	return w
}

func ceilToMultiple(v, m int) int {
	return (v + m - 1) / m * m
}
