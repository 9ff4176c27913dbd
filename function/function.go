// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package function provides the opcore operators: PReLU and GEMM.
//
// # Lifecycle
//
// Every operator follows the same three steps:
//
//  1. Validate (optional): ValidatePReLU or ValidateGEMM check a
//     configuration on metadata alone and return an error.
//  2. Configure: binds tensors, fills in empty output metadata, extends
//     padding and picks kernels. Invalid arguments panic with an *Error;
//     recover it with [Recover] where a panic is unwelcome.
//  3. Run: dispatches the configured kernels to the backend. Run may be
//     called any number of times.
//
// Allocate tensors after configuring every operator that uses them.
//
// # Example
//
//	b := cpu.New()
//	g := function.NewGEMM(b, function.NewPool())
//	g.Configure(a, bm, nil, out, 1, 0, function.GEMMInfo{})
//	// allocate a, bm and out
//	g.Run()
package function

import (
	"github.com/born-ml/opcore/internal/function"
	"github.com/born-ml/opcore/internal/memory"
	"github.com/born-ml/opcore/internal/tensor"
)

// Info is tensor metadata; see the tensor package.
type Info = tensor.Info

// Backend executes the kernels an operator dispatches.
// The cpu and accel backends implement it.
type Backend = function.Backend

// PReLU computes out = x > 0 ? x : slope[c] * x with one slope per channel.
type PReLU = function.PReLU

// NewPReLU creates an unconfigured PReLU operator.
func NewPReLU(b Backend) *PReLU {
	return function.NewPReLU(b)
}

// ValidatePReLU reports whether Configure would accept the given metadata.
// A nil output means in place.
func ValidatePReLU(b Backend, input, output, slope *Info) error {
	return function.ValidatePReLU(b, input, output, slope)
}

type (
	// GEMM computes out = alpha*A*B + beta*C.
	GEMM = function.GEMM
	// GEMMInfo describes operands and run-to-run guarantees.
	GEMMInfo = function.GEMMInfo
	// GEMMStats counts kernel dispatches of a GEMM.
	GEMMStats = function.GEMMStats
	// GEMMProblem is the input to a ReshapePolicy.
	GEMMProblem = function.GEMMProblem
	// ReshapePolicy decides whether a GEMM reshapes its operands.
	ReshapePolicy = function.ReshapePolicy
	// Option configures a GEMM.
	Option = function.Option
)

// NewGEMM creates an unconfigured GEMM whose scratch tensors come from pool.
// A nil pool gives the GEMM private scratch memory.
func NewGEMM(b Backend, pool *Pool, opts ...Option) *GEMM {
	return function.NewGEMM(b, pool, opts...)
}

// ValidateGEMM reports whether Configure would accept the given metadata.
func ValidateGEMM(b Backend, a, bm, c, output *Info, alpha, beta float32, info GEMMInfo, opts ...Option) error {
	return function.ValidateGEMM(b, a, bm, c, output, alpha, beta, info, opts...)
}

// WithReshapePolicy overrides the reshape heuristic.
func WithReshapePolicy(p ReshapePolicy) Option {
	return function.WithReshapePolicy(p)
}

// Reshape policies.
var (
	DefaultReshapePolicy ReshapePolicy = function.DefaultReshapePolicy
	AlwaysReshape        ReshapePolicy = function.AlwaysReshape
	NeverReshape         ReshapePolicy = function.NeverReshape
)

// Pool recycles scratch memory between operators and runs.
type Pool = memory.Pool

// PoolStats counts pool activity.
type PoolStats = memory.Stats

// NewPool creates an empty pool.
func NewPool() *Pool {
	return memory.NewPool()
}
