// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host backend for opcore operators.
//
// # Overview
//
// Each dispatched kernel's window is split along the operator's split
// dimension into one contiguous range per worker. Workers run concurrently
// and the dispatch returns once all of them finish, so every call blocks.
//
// # Basic Usage
//
//	b := cpu.NewWithConfig(cpu.Config{NumThreads: 4, VectorBytes: 16})
//	g := function.NewGEMM(b, function.NewPool())
//
// # Configuration
//
// OPCORE_NUM_THREADS and OPCORE_VECTOR_BYTES set the defaults used by New.
//
// # Thread Safety
//
// A Backend may be shared by operators. An individual operator must not run
// concurrently with itself.
package cpu
