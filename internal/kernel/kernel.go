// Package kernel defines the validate/configure/run lifecycle shared by every
// compute kernel, the (layout, dtype) dispatch tables and the device contract
// through which kernels resolve executable programs.
package kernel

import (
	"github.com/born-ml/opcore/internal/status"
	"github.com/born-ml/opcore/internal/window"
)

// Kernel is a configured unit of work over a window.
type Kernel interface {
	// Name identifies the kernel in logs and queue commands.
	Name() string
	// Window is the full window computed at configure time.
	Window() window.Window
	// Run processes win, which must be a sub-window of Window().
	Run(win window.Window, ctx Context)
}

// Queue accepts commands for asynchronous, in-order execution.
type Queue interface {
	Enqueue(name string, fn func())
}

// Context describes the executor invoking Run.
type Context struct {
	ThreadID   int
	NumThreads int
	// Queue is nil for host executors, which run each slice synchronously.
	Queue Queue
}

// Base carries the configured window and enforces the run-time contract.
// Concrete kernels embed it.
type Base struct {
	name       string
	win        window.Window
	configured bool
}

// ConfigureBase stores the final window. It is the last step of Configure.
func (b *Base) ConfigureBase(name string, win window.Window) {
	status.ThrowOn(win.Validate())
	b.name = name
	b.win = win
	b.configured = true
}

// Name implements Kernel.
func (b *Base) Name() string { return b.name }

// Window implements Kernel.
func (b *Base) Window() window.Window { return b.win }

// IsConfigured reports whether Configure completed.
func (b *Base) IsConfigured() bool { return b.configured }

// CheckRun panics unless the kernel is configured and win lies inside its window.
func (b *Base) CheckRun(win window.Window) {
	if !b.configured {
		status.Throw(status.UnconfiguredUse, "kernel %q run before configure", b.name)
	}
	if err := win.Validate(); err != nil {
		status.Throw(status.InvalidSubwindow, "kernel %q: %v", b.name, err)
	}
	if !win.IsSubwindowOf(b.win) {
		status.Throw(status.InvalidSubwindow, "kernel %q: %v is not a sub-window of %v", b.name, win, b.win)
	}
}

// Launch runs prog over win. Host contexts run it directly. Queue contexts
// collapse the window and enqueue one command per 3-D slice, with the
// arguments as bound now.
func Launch(ctx Context, prog Program, args *Args, full, win window.Window) {
	if win.IsEmpty() {
		return
	}
	if ctx.Queue == nil {
		prog.Launch(args, win)
		return
	}
	collapsed, _ := win.CollapseIfPossible(full, window.DimZ)
	slice := collapsed.FirstSlice(3)
	for {
		s := slice
		ctx.Queue.Enqueue(prog.Name(), func() { prog.Launch(args, s) })
		if !collapsed.SlideSlice(3, &slice) {
			return
		}
	}
}
