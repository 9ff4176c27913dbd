// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package accel provides the queued accelerator backend for opcore operators.
//
// Dispatch enqueues kernel work and returns immediately. Commands execute in
// submission order on a single executor goroutine. Operators ask for a
// blocking dispatch on their final step, and Sync waits for everything
// queued so far.
//
//	b := accel.New()
//	defer b.Close()
//
//	f := function.NewPReLU(b)
//	...
//	f.Run()
//	b.Sync()
package accel

import (
	"github.com/born-ml/opcore/function"
	internalaccel "github.com/born-ml/opcore/internal/backend/accel"
	"github.com/born-ml/opcore/internal/kernel"
)

// Target is the hardware class kernels and heuristics are tuned for.
type Target = kernel.Target

// Hardware classes.
const (
	Midgard Target = kernel.Midgard
	Bifrost Target = kernel.Bifrost
	Valhall Target = kernel.Valhall
)

// Backend dispatches kernels to an in-order command queue.
type Backend = internalaccel.Backend

// Config selects the hardware class, batch size and program builder.
type Config = internalaccel.Config

// QueueStats counts queue activity.
type QueueStats = internalaccel.QueueStats

// Compile-time check that Backend implements function.Backend.
var _ function.Backend = (*Backend)(nil)

// New creates an accelerator backend configured from the OPCORE_* environment.
func New() *Backend {
	return internalaccel.New()
}

// NewWithConfig creates an accelerator backend with an explicit configuration.
func NewWithConfig(cfg Config) *Backend {
	return internalaccel.NewWithConfig(cfg)
}

// DefaultConfig returns the configuration New uses.
func DefaultConfig() Config {
	return internalaccel.DefaultConfig()
}
