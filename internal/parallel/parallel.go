// Package parallel provides bounded fan-out for host executors.
package parallel

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines to use.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
	}
}

// Workers returns how many goroutines a job of n units gets.
func (c Config) Workers(n int) int {
	if !c.Enabled || c.NumWorkers < 2 || n < 2 {
		return 1
	}
	return min(c.NumWorkers, n)
}

// workerPanic carries a recovered panic across the group.
type workerPanic struct {
	value any
}

func (p *workerPanic) Error() string { return fmt.Sprintf("worker panic: %v", p.value) }

// For executes f(i) for i in [0, n) on at most cfg.NumWorkers goroutines and
// waits for all of them. A panic in any worker is re-raised on the caller with
// its original value once every worker has returned.
func For(n int, f func(i int), cfg Config) {
	if n <= 0 {
		return
	}
	if cfg.Workers(n) == 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(cfg.Workers(n))
	for i := range n {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &workerPanic{value: r}
				}
			}()
			f(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if p, ok := err.(*workerPanic); ok {
			panic(p.value)
		}
		panic(err)
	}
}
