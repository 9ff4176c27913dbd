package tensor

// Padding is the border, in elements, allocated around the X/Y plane of a tensor.
type Padding struct {
	Top, Right, Bottom, Left int
}

// Union returns the element-wise maximum of p and o.
func (p Padding) Union(o Padding) Padding {
	return Padding{
		Top:    max(p.Top, o.Top),
		Right:  max(p.Right, o.Right),
		Bottom: max(p.Bottom, o.Bottom),
		Left:   max(p.Left, o.Left),
	}
}

// Empty reports whether no border is allocated.
func (p Padding) Empty() bool {
	return p == Padding{}
}

// ValidRegion is the part of a tensor holding meaningful values.
type ValidRegion struct {
	Anchor Coordinates
	Shape  Shape
}

// Start returns the first valid coordinate of dimension d.
func (v ValidRegion) Start(d int) int {
	return v.Anchor[d]
}

// End returns one past the last valid coordinate of dimension d.
func (v ValidRegion) End(d int) int {
	return v.Anchor[d] + v.Shape.Dim(d)
}
