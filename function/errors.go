// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package function

import (
	"github.com/born-ml/opcore/internal/status"
)

// Error is the error type of every validation and configuration failure.
type Error = status.Error

// Code classifies an Error.
type Code = status.Code

// Sentinels for errors.Is.
var (
	ErrUnsupportedDataType = status.ErrUnsupportedDataType
	ErrUnsupportedLayout   = status.ErrUnsupportedLayout
	ErrShapeMismatch       = status.ErrShapeMismatch
	ErrInsufficientPadding = status.ErrInsufficientPadding
	ErrNullArgument        = status.ErrNullArgument
	ErrAlreadyAllocated    = status.ErrAlreadyAllocated
	ErrNotAllocated        = status.ErrNotAllocated
	ErrUnconfiguredUse     = status.ErrUnconfiguredUse
	ErrInvalidSubwindow    = status.ErrInvalidSubwindow
	ErrAlreadyReshaped     = status.ErrAlreadyReshaped
	ErrNotImplemented      = status.ErrNotImplemented
	ErrMisaligned          = status.ErrMisaligned
)

// CodeOf returns the code carried by err, or OK when err is nil.
func CodeOf(err error) Code {
	return status.CodeOf(err)
}

// Recover turns a configuration panic into an error. Use it deferred:
//
//	func configure() (err error) {
//	    defer function.Recover(&err)
//	    f.Configure(in, out, slope)
//	    return nil
//	}
//
// Panics that are not an *Error are re-raised.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if err, ok := r.(error); ok {
		*errp = err
		return
	}
	panic(r)
}
