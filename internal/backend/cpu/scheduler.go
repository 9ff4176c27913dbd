package cpu

import (
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/parallel"
)

// Scheduler runs a kernel over its window on a bounded set of goroutines.
//
// The window is split along one dimension into one sub-window per worker.
// Split sub-windows are disjoint and cover the window exactly, so workers
// never write the same output element and need no locking.
type Scheduler struct {
	cfg parallel.Config
}

// NewScheduler returns a scheduler with the given worker count.
func NewScheduler(workers int) *Scheduler {
	return &Scheduler{cfg: parallel.Config{Enabled: workers > 1, NumWorkers: max(workers, 1)}}
}

// NumThreads returns the maximum number of workers.
func (s *Scheduler) NumThreads() int { return s.cfg.NumWorkers }

// Schedule runs k to completion. Fewer workers than configured are used when
// the split dimension has fewer iterations. A panic in a worker is re-raised
// on the caller.
func (s *Scheduler) Schedule(k kernel.Kernel, splitDim int) {
	win := k.Window()
	n := s.cfg.Workers(win.NumIterations(splitDim))
	if n == 1 {
		k.Run(win, kernel.Context{NumThreads: 1})
		return
	}
	parallel.For(n, func(i int) {
		k.Run(win.Split(splitDim, i, n), kernel.Context{ThreadID: i, NumThreads: n})
	}, s.cfg)
}
