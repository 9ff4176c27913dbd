// Package status defines the error taxonomy shared by kernels, operators and allocators.
//
// Validation returns these errors as recoverable values. Configuration and run-time
// misuse convert them into panics through ThrowOn.
package status

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code int

// Error codes.
const (
	OK Code = iota
	UnsupportedDataType
	UnsupportedLayout
	ShapeMismatch
	InsufficientPadding
	NullArgument
	AlreadyAllocated
	NotAllocated
	UnconfiguredUse
	InvalidSubwindow
	AlreadyReshaped
	NotImplemented
	Misaligned
)

// String returns the code name.
func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case UnsupportedDataType:
		return "UnsupportedDataType"
	case UnsupportedLayout:
		return "UnsupportedLayout"
	case ShapeMismatch:
		return "ShapeMismatch"
	case InsufficientPadding:
		return "InsufficientPadding"
	case NullArgument:
		return "NullArgument"
	case AlreadyAllocated:
		return "AlreadyAllocated"
	case NotAllocated:
		return "NotAllocated"
	case UnconfiguredUse:
		return "UnconfiguredUse"
	case InvalidSubwindow:
		return "InvalidSubwindow"
	case AlreadyReshaped:
		return "AlreadyReshaped"
	case NotImplemented:
		return "NotImplemented"
	case Misaligned:
		return "Misaligned"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error carries a code and a human-readable message.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Msg
}

// Is reports whether target is an *Error with the same code.
// This lets callers match against the sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedDataType = &Error{Code: UnsupportedDataType}
	ErrUnsupportedLayout   = &Error{Code: UnsupportedLayout}
	ErrShapeMismatch       = &Error{Code: ShapeMismatch}
	ErrInsufficientPadding = &Error{Code: InsufficientPadding}
	ErrNullArgument        = &Error{Code: NullArgument}
	ErrAlreadyAllocated    = &Error{Code: AlreadyAllocated}
	ErrNotAllocated        = &Error{Code: NotAllocated}
	ErrUnconfiguredUse     = &Error{Code: UnconfiguredUse}
	ErrInvalidSubwindow    = &Error{Code: InvalidSubwindow}
	ErrAlreadyReshaped     = &Error{Code: AlreadyReshaped}
	ErrNotImplemented      = &Error{Code: NotImplemented}
	ErrMisaligned          = &Error{Code: Misaligned}
)

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err. Nil maps to OK; foreign errors map to -1.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return -1
}

// ThrowOn panics with err when it is non-nil.
// Used where a failed precondition leaves no safe way to continue.
func ThrowOn(err error) {
	if err != nil {
		panic(err)
	}
}

// Throw panics with a new *Error.
func Throw(code Code, format string, args ...any) {
	panic(New(code, format, args...))
}

// Recover converts a panic carrying an error back into a returned error.
// Any other panic value is re-raised.
//
//	defer status.Recover(&err)
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
