// Package lua embeds the gopher-lua interpreter and provides a
// bidirectional value bridge between Go and Lua.
//
// The package is built around three pieces:
//
//   - Value, a closed tagged union covering every shape a Lua value can
//     take on the host side: nil, booleans, integers, floats, byte-safe
//     strings, arrays (dense 1..n tables), string-keyed tables, and four
//     reference kinds (functions, coroutines, opaque userdata handles,
//     and behavioral tables with metatables).
//   - Runtime, which owns one interpreter state, its reference registry
//     and its host-function table, and exposes the public entry points
//     (ExecuteScript, SetGlobal, RegisterFunction, CallFunction,
//     CreateCoroutine, Resume).
//   - The conversion engine, two depth-bounded recursive mappings between
//     interpreter values and Value, plus host-side mirrors ToGo/FromGo.
//
// # Ownership
//
// Scalar and container Values are plain Go data; sharing is free. The
// reference kinds anchor a guest-side value in the runtime's registry
// and must be released at most once. Release is safe to call twice (the
// second call returns ErrReleased) but copies of a reference share the
// slot, so treat one wrapper as the owner.
//
// # Concurrency
//
// A Runtime is not goroutine-safe and never blocks to pretend otherwise:
// every public entry point acquires a single in-flight marker and
// returns ErrBusy immediately when another operation is running. The
// async execution path (ExecuteScriptAsync, ExecuteFileAsync) runs one
// script on a worker goroutine with the marker held and host callbacks
// disabled for the duration. Independent Runtimes share nothing and may
// run fully in parallel.
//
// # Errors
//
// Compile and runtime failures surface as error results, never as
// panics. Conversion failures are *ConversionError values; the depth
// bound (MaxDepth) fails deterministically instead of overflowing the
// call stack on deeply nested or cyclic structures.
package lua
