package lua

import (
	"errors"
	"fmt"
)

// Errors for runtime operations.
var (
	// ErrClosed is returned when operating on a closed runtime.
	ErrClosed = errors.New("lua runtime is closed")

	// ErrBusy is returned when another operation is in flight on the
	// same runtime. Operations are rejected, never queued.
	ErrBusy = errors.New("lua runtime is busy with another operation")

	// ErrReleased is returned when using a reference whose registry
	// slot has already been released.
	ErrReleased = errors.New("reference has been released")
)

// ConversionError reports a failure while converting a value across the
// Go/Lua boundary.
type ConversionError struct {
	// Depth is the nesting depth at which conversion stopped, or 0 if
	// the failure was not depth-related.
	Depth int

	// Msg describes the failure.
	Msg string
}

func (e *ConversionError) Error() string {
	if e.Depth > 0 {
		return fmt.Sprintf("value nesting depth %d exceeds limit of %d", e.Depth, MaxDepth)
	}
	return e.Msg
}

// errDepth builds the typed failure for conversions past MaxDepth.
func errDepth(depth int) *ConversionError {
	return &ConversionError{Depth: depth}
}

// errUnsupported builds the typed failure for shapes the bridge cannot
// represent.
func errUnsupported(v any) *ConversionError {
	return &ConversionError{Msg: fmt.Sprintf("unsupported value shape %T", v)}
}
