// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/opcore/function"
	internalcpu "github.com/born-ml/opcore/internal/backend/cpu"
)

// Backend runs kernels on a pool of host goroutines.
type Backend = internalcpu.CPUBackend

// Config sets the worker count and kernel vector width.
type Config = internalcpu.Config

// Compile-time check that Backend implements function.Backend.
var _ function.Backend = (*Backend)(nil)

// New creates a CPU backend configured from the OPCORE_* environment.
//
// Example:
//
//	b := cpu.New()
//	f := function.NewPReLU(b)
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with an explicit configuration.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// DefaultConfig returns the configuration New uses.
func DefaultConfig() Config {
	return internalcpu.DefaultConfig()
}
