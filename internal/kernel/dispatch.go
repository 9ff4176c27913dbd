package kernel

import (
	"slices"

	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/tensor"
)

// AnyLayout keys routines that do not depend on the memory layout.
const AnyLayout = tensor.LayoutUnknown

// Key selects a specialised routine.
type Key struct {
	Layout   tensor.Layout
	DataType tensor.DataType
}

// Table maps (layout, dtype) to a specialised routine.
type Table[F any] map[Key]F

// Lookup returns the routine for (layout, dt), falling back to the AnyLayout
// entry. A missing combination is a NotImplemented error.
func (t Table[F]) Lookup(layout tensor.Layout, dt tensor.DataType) (F, error) {
	if f, ok := t[Key{Layout: layout, DataType: dt}]; ok {
		return f, nil
	}
	if f, ok := t[Key{Layout: AnyLayout, DataType: dt}]; ok {
		return f, nil
	}
	var zero F
	return zero, status.New(status.NotImplemented, "no routine for %s/%s", layout, dt)
}

// DataTypes lists the element types the table covers.
func (t Table[F]) DataTypes() []tensor.DataType {
	var out []tensor.DataType
	for k := range t {
		if !slices.Contains(out, k.DataType) {
			out = append(out, k.DataType)
		}
	}
	slices.Sort(out)
	return out
}

// Capabilities lists, per program name, the element types a device accepts.
type Capabilities map[string][]tensor.DataType

// Has reports whether dt is accepted for name.
func (c Capabilities) Has(name string, dt tensor.DataType) bool {
	return slices.Contains(c[name], dt)
}
