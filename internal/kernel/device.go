package kernel

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// Device is what a kernel needs to know about the hardware it is configured for.
type Device interface {
	// Target returns the hardware class.
	Target() Target
	// Supports reports whether the device implements program name for dt.
	Supports(name string, dt tensor.DataType) bool
	// VectorBytes returns the width of one vector lane group in bytes.
	VectorBytes() int
	// Program resolves an executable for name specialised by opts.
	Program(name string, opts BuildOptions) (Program, error)
}

// Program is an executable kernel body.
type Program interface {
	Name() string
	Launch(args *Args, win window.Window)
}

// Arg is a tensor bound to its storage for one launch.
type Arg struct {
	Info *tensor.Info
	Buf  []byte
}

// Bind captures t's descriptor and currently bound storage.
func Bind(t *tensor.Tensor) Arg {
	return Arg{Info: t.Info(), Buf: t.Buffer()}
}

// Args are the launch arguments of a program.
type Args struct {
	Tensors []Arg
	Alpha   float32
	Beta    float32
	Reshape ReshapeInfo
}

// BuildOptions specialise a program.
type BuildOptions struct {
	DataType tensor.DataType
	Layout   tensor.Layout
	VecSize  int
	InPlace  bool
	// Shape is part of the signature only; programs do not depend on it.
	Shape tensor.Shape
}

// Signature returns the catalog key of program name built with o.
func (o BuildOptions) Signature(name string) string {
	var b strings.Builder
	b.WriteString(name)
	fmt.Fprintf(&b, "_%s_v%d", o.DataType, o.VecSize)
	for _, d := range o.Shape {
		fmt.Fprintf(&b, "_%d", d)
	}
	if o.Layout != AnyLayout {
		b.WriteString("_" + strings.ToLower(o.Layout.String()))
	}
	if o.InPlace {
		b.WriteString("_inplace")
	}
	return b.String()
}

// Builder creates programs. Implementations return a NotImplemented error for
// combinations they have no body for.
type Builder interface {
	Build(name string, opts BuildOptions) (Program, error)
}

// Catalog caches built programs by signature.
type Catalog struct {
	builder  Builder
	mu       sync.Mutex
	programs map[string]Program
}

// NewCatalog returns an empty catalog over builder.
func NewCatalog(builder Builder) *Catalog {
	return &Catalog{builder: builder, programs: make(map[string]Program)}
}

// GetOrBuild returns the cached program for the signature of (name, opts),
// building it on first use.
func (c *Catalog) GetOrBuild(name string, opts BuildOptions) (Program, error) {
	sig := opts.Signature(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.programs[sig]; ok {
		return p, nil
	}
	p, err := c.builder.Build(name, opts)
	if err != nil {
		return nil, err
	}
	slog.Debug("built program", "signature", sig)
	c.programs[sig] = p
	return p, nil
}

// Len returns the number of cached programs.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.programs)
}

// BasicDevice is a Device assembled from a capability set and a catalog.
type BasicDevice struct {
	target      Target
	vectorBytes int
	caps        Capabilities
	catalog     *Catalog
}

// NewDevice returns a device of the given class.
func NewDevice(target Target, vectorBytes int, caps Capabilities, catalog *Catalog) *BasicDevice {
	return &BasicDevice{target: target, vectorBytes: vectorBytes, caps: caps, catalog: catalog}
}

// Target implements Device.
func (d *BasicDevice) Target() Target { return d.target }

// VectorBytes implements Device.
func (d *BasicDevice) VectorBytes() int { return d.vectorBytes }

// Supports implements Device.
func (d *BasicDevice) Supports(name string, dt tensor.DataType) bool { return d.caps.Has(name, dt) }

// Program implements Device.
func (d *BasicDevice) Program(name string, opts BuildOptions) (Program, error) {
	return d.catalog.GetOrBuild(name, opts)
}

// Catalog returns the program cache.
func (d *BasicDevice) Catalog() *Catalog { return d.catalog }
