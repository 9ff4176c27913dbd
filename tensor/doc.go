// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor describes and holds the operands of opcore operators.
//
// # Overview
//
// A tensor is an [Info] (shape, element type, layout, strides, padding and
// quantization) plus an [Allocator] that owns or borrows its backing bytes.
// Dimension 0 is the fastest varying one. Under NCHW the dimensions are
// width, height, channels, batches; under NHWC they are channels, width,
// height, batches.
//
// # Basic Usage
//
//	in := tensor.New(tensor.Shape{32, 32, 8}, tensor.F32, tensor.NCHW)
//	out := &tensor.Tensor{}
//
//	f := function.NewPReLU(cpu.New())
//	f.Configure(in, out, slope) // may grow in's padding
//
//	in.Allocator().Allocate()    // allocate after configuration
//	out.Allocator().Allocate()
//	in.CopyFrom(values)
//	f.Run()
//
// Allocate tensors after every operator that reads them is configured:
// configuration may extend padding, and a tensor whose memory is already
// bound cannot grow.
//
// # Supported Data Types
//
// Operators accept F32 and F16, and PReLU additionally accepts QASYMM8
// (8-bit asymmetric quantized, described by [QuantizationInfo]).
package tensor
