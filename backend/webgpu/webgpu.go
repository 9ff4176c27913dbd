//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu compiles opcore kernels to WebGPU compute shaders.
//
// The Builder plugs into the accelerator backend. Programs without a shader
// fall back to the host implementations, so every operator the accelerator
// supports still runs.
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Release()
//
//	b := webgpu.NewBackend(accel.Bifrost, gpu)
//	defer b.Close()
package webgpu

import (
	"github.com/born-ml/opcore/backend/accel"
	internalwebgpu "github.com/born-ml/opcore/internal/backend/webgpu"
	"github.com/born-ml/opcore/internal/envconfig"
)

// Builder compiles kernel programs for a WebGPU device.
type Builder = internalwebgpu.Builder

// New opens the default WebGPU adapter. Call Release when done.
//
// Returns an error if no compatible GPU is present.
func New() (*Builder, error) {
	return internalwebgpu.New()
}

// IsAvailable checks whether a WebGPU adapter can be opened.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

// NewBackend creates an accelerator backend whose programs are built by
// builder. The caller keeps ownership of builder and releases it after
// closing the backend.
func NewBackend(target accel.Target, builder *Builder) *accel.Backend {
	return accel.NewWithConfig(accel.Config{
		Target:    target,
		BatchSize: int(envconfig.QueueBatch()),
		Builder:   builder,
	})
}
