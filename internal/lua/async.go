package lua

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ScriptResult is the outcome of an asynchronous execution.
type ScriptResult struct {
	Values []Value
	Err    error
}

// SetAsyncMode toggles the callbacks-disabled flag. The async execution
// paths manage it themselves; the setter is the seam for external
// off-thread wrappers that drive the runtime directly.
func (rt *Runtime) SetAsyncMode(on bool) {
	rt.asyncMode.Store(on)
}

// IsAsyncMode reports whether host callbacks are currently disabled.
func (rt *Runtime) IsAsyncMode() bool {
	return rt.asyncMode.Load()
}

// ExecuteScriptAsync runs a script on a worker goroutine. The in-flight
// marker is held from before this returns until the execution
// completes, so any other operation on the runtime is rejected with
// ErrBusy for the duration. Host callbacks are disabled while the
// script runs: the script executes off the controlling thread, and the
// bridge does no cross-thread marshalling by design. The returned
// channel delivers exactly one result and is then closed. There is no
// mid-flight cancellation; completion is observable, not interruptible.
func (rt *Runtime) ExecuteScriptAsync(src string) (<-chan ScriptResult, error) {
	return rt.executeAsync(func() (*lua.LFunction, error) {
		return rt.state.LoadString(src)
	})
}

// ExecuteFileAsync behaves like ExecuteScriptAsync for a script file.
func (rt *Runtime) ExecuteFileAsync(path string) (<-chan ScriptResult, error) {
	return rt.executeAsync(func() (*lua.LFunction, error) {
		return rt.state.LoadFile(path)
	})
}

func (rt *Runtime) executeAsync(load func() (*lua.LFunction, error)) (<-chan ScriptResult, error) {
	// Acquired on the caller's goroutine: once this returns, the busy
	// rejection is already in force.
	if err := rt.enter(); err != nil {
		return nil, err
	}

	ch := make(chan ScriptResult, 1)
	go func() {
		ch <- rt.runAsync(load)
		close(ch)
	}()
	return ch, nil
}

// runAsync executes with async mode set for the duration, cleared on
// every path before the result is delivered.
func (rt *Runtime) runAsync(load func() (*lua.LFunction, error)) ScriptResult {
	defer rt.exit()
	rt.asyncMode.Store(true)
	defer rt.asyncMode.Store(false)

	rt.log.Debug("async execution started", zap.String("runtime_id", rt.id))
	vals, err := rt.execute(load)
	return ScriptResult{Values: vals, Err: err}
}
