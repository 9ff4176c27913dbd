package window

import (
	"math"

	"github.com/born-ml/opcore/internal/tensor"
)

// AccessWindow declares the X/Y footprint a kernel body touches in one tensor
// for every tile of a window.
//
// While the tensor is still resizable the footprint is satisfied by extending its
// padding. Once its memory is fixed the window is narrowed instead, and the caller
// reports the change as insufficient padding.
type AccessWindow interface {
	// UpdateWindowIfNeeded narrows w to what the fixed tensor can serve.
	UpdateWindowIfNeeded(w *Window) bool
	// UpdatePaddingIfNeeded extends the padding of a resizable tensor to serve w.
	UpdatePaddingIfNeeded(w Window) bool
}

// UpdateWindowAndPadding reconciles w with every access pattern. It reports
// whether the window had to be narrowed; padding extensions are not changes.
func UpdateWindowAndPadding(w *Window, patterns ...AccessWindow) bool {
	changed := false
	for _, p := range patterns {
		if p != nil && p.UpdateWindowIfNeeded(w) {
			changed = true
		}
	}
	for _, p := range patterns {
		if p != nil {
			p.UpdatePaddingIfNeeded(*w)
		}
	}
	return changed
}

// Rectangle accesses a width×height block at (X, Y) relative to every tile,
// with coordinates scaled by ScaleX/ScaleY (fractional scales express
// sub-sampled or half-pixel access).
type Rectangle struct {
	Info          *tensor.Info
	X, Y          int
	Width, Height int
	ScaleX        float64
	ScaleY        float64
}

// NewRectangle returns an unscaled rectangular access.
func NewRectangle(info *tensor.Info, x, y, width, height int) *Rectangle {
	return &Rectangle{Info: info, X: x, Y: y, Width: width, Height: height, ScaleX: 1, ScaleY: 1}
}

// NewHorizontal returns an access of width elements along X only.
func NewHorizontal(info *tensor.Info, x, width int) *Rectangle {
	return NewRectangle(info, x, 0, width, 1)
}

func (r *Rectangle) scale() (float64, float64) {
	sx, sy := r.ScaleX, r.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return sx, sy
}

// bounds returns the accessed element range [minX, maxX) × [minY, maxY) for w.
func (r *Rectangle) bounds(w Window) (minX, maxX, minY, maxY int) {
	sx, sy := r.scale()
	x, y := w.X(), w.Y()
	minX = int(math.Floor(float64(x.Start)*sx)) + r.X
	maxX = int(math.Ceil(float64(x.End-x.Step)*sx)) + r.X + r.Width
	minY = int(math.Floor(float64(y.Start)*sy)) + r.Y
	maxY = int(math.Ceil(float64(y.End-y.Step)*sy)) + r.Y + r.Height
	return minX, maxX, minY, maxY
}

// UpdateWindowIfNeeded implements AccessWindow.
func (r *Rectangle) UpdateWindowIfNeeded(w *Window) bool {
	if r == nil || r.Info == nil || r.Info.IsResizable() || w.IsEmpty() {
		return false
	}
	pad := r.Info.Padding()
	loX, hiX := -pad.Left, r.Info.Dimension(0)+pad.Right
	loY, hiY := -pad.Top, r.Info.Dimension(1)+pad.Bottom
	sx, sy := r.scale()

	changed := false
	x := w.X()
	for x.Start < x.End && int(math.Floor(float64(x.Start)*sx))+r.X < loX {
		x.Start += x.Step
		changed = true
	}
	for x.End > x.Start && int(math.Ceil(float64(x.End-x.Step)*sx))+r.X+r.Width > hiX {
		x.End -= x.Step
		changed = true
	}
	y := w.Y()
	for y.Start < y.End && int(math.Floor(float64(y.Start)*sy))+r.Y < loY {
		y.Start += y.Step
		changed = true
	}
	for y.End > y.Start && int(math.Ceil(float64(y.End-y.Step)*sy))+r.Y+r.Height > hiY {
		y.End -= y.Step
		changed = true
	}
	if changed {
		w.Set(DimX, x)
		w.Set(DimY, y)
	}
	return changed
}

// UpdatePaddingIfNeeded implements AccessWindow.
func (r *Rectangle) UpdatePaddingIfNeeded(w Window) bool {
	if r == nil || r.Info == nil || !r.Info.IsResizable() || w.IsEmpty() {
		return false
	}
	minX, maxX, minY, maxY := r.bounds(w)
	return r.Info.ExtendPadding(tensor.Padding{
		Left:   max(0, -minX),
		Right:  max(0, maxX-r.Info.Dimension(0)),
		Top:    max(0, -minY),
		Bottom: max(0, maxY-r.Info.Dimension(1)),
	})
}

// ComputeValidRegion returns the part of the tensor written when w runs, clipped
// to the tensor and to input, the valid region of the data being read.
func (r *Rectangle) ComputeValidRegion(w Window, input tensor.ValidRegion) tensor.ValidRegion {
	if r == nil || r.Info == nil {
		return input
	}
	var out tensor.ValidRegion
	out.Shape = make(tensor.Shape, r.Info.NumDimensions())
	minX, maxX, minY, maxY := r.bounds(w)
	lo := [2]int{minX, minY}
	hi := [2]int{maxX, maxY}
	for d := 0; d < len(out.Shape); d++ {
		start, end := input.Start(d), input.End(d)
		if d < 2 {
			start = max(start, lo[d], 0)
			end = min(end, hi[d], r.Info.Dimension(d))
		} else {
			end = min(end, r.Info.Dimension(d))
		}
		out.Anchor[d] = start
		out.Shape[d] = max(end-start, 0)
	}
	return out
}

// SetValidRegion stores ComputeValidRegion on the tensor.
func (r *Rectangle) SetValidRegion(w Window, input tensor.ValidRegion) {
	if r == nil || r.Info == nil {
		return
	}
	r.Info.SetValidRegion(r.ComputeValidRegion(w, input))
}

// Static accesses a fixed element range [StartX, EndX) × [StartY, EndY),
// independent of the tile. Parameter tensors such as per-channel slopes use it.
type Static struct {
	Info         *tensor.Info
	StartX, EndX int
	StartY, EndY int
}

// NewStatic returns a static access.
func NewStatic(info *tensor.Info, startX, startY, endX, endY int) *Static {
	return &Static{Info: info, StartX: startX, EndX: endX, StartY: startY, EndY: endY}
}

// UpdateWindowIfNeeded implements AccessWindow. A static range the fixed tensor
// cannot serve empties the window along that dimension.
func (s *Static) UpdateWindowIfNeeded(w *Window) bool {
	if s == nil || s.Info == nil || s.Info.IsResizable() || w.IsEmpty() {
		return false
	}
	pad := s.Info.Padding()
	changed := false
	if s.StartX < -pad.Left || s.EndX > s.Info.Dimension(0)+pad.Right {
		x := w.X()
		w.Set(DimX, Dimension{Start: x.Start, End: x.Start, Step: x.Step})
		changed = true
	}
	if s.StartY < -pad.Top || s.EndY > s.Info.Dimension(1)+pad.Bottom {
		y := w.Y()
		w.Set(DimY, Dimension{Start: y.Start, End: y.Start, Step: y.Step})
		changed = true
	}
	return changed
}

// UpdatePaddingIfNeeded implements AccessWindow.
func (s *Static) UpdatePaddingIfNeeded(Window) bool {
	if s == nil || s.Info == nil || !s.Info.IsResizable() {
		return false
	}
	return s.Info.ExtendPadding(tensor.Padding{
		Left:   max(0, -s.StartX),
		Right:  max(0, s.EndX-s.Info.Dimension(0)),
		Top:    max(0, -s.StartY),
		Bottom: max(0, s.EndY-s.Info.Dimension(1)),
	})
}
