package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterFunction makes fn reachable from Lua as a global with the
// given name. Re-registering a name overwrites the prior callable; the
// trampoline resolves by name at call time, so only the latest
// registration is ever reached.
func (rt *Runtime) RegisterFunction(name string, fn HostFunc) error {
	if err := rt.enter(); err != nil {
		return err
	}
	defer rt.exit()
	rt.registerFunction(name, fn)
	return nil
}

// registerFunction is the lock-free variant for callers already holding
// the in-flight marker.
func (rt *Runtime) registerFunction(name string, fn HostFunc) {
	rt.hostFuncs[name] = fn
	rt.state.SetGlobal(name, rt.state.NewFunction(rt.trampoline(name)))
	rt.log.Debug("host function registered",
		zap.String("runtime_id", rt.id),
		zap.String("function", name))
}

// trampoline builds the single dispatch point guest code reaches when
// calling a host function. The runtime is resolved through the closure
// rather than a process-wide pointer, so multiple runtimes coexist
// without sharing dispatch state.
func (rt *Runtime) trampoline(name string) lua.LGFunction {
	return func(L *lua.LState) int {
		fn, ok := rt.hostFuncs[name]
		if !ok {
			L.RaiseError("host function %q is not registered", name)
			return 0
		}

		// Callbacks are categorically disabled while a script runs in
		// async mode: the host side of the bridge lives on the
		// controlling thread and cannot be invoked from the worker.
		if rt.asyncMode.Load() {
			L.RaiseError("host function %q cannot be called while async mode is enabled", name)
			return 0
		}

		n := L.GetTop()
		args := make([]Value, n)
		for i := 1; i <= n; i++ {
			v, err := rt.toValue(L.Get(i), 0)
			if err != nil {
				L.RaiseError("converting argument %d of host function %q: %s", i, name, err)
				return 0
			}
			args[i-1] = v
		}

		result, err := callHost(fn, args)
		if err != nil {
			L.RaiseError("host function %q: %s", name, err)
			return 0
		}
		if result == nil {
			return 0
		}

		lv, err := rt.fromValue(result, 0)
		if err != nil {
			L.RaiseError("converting result of host function %q: %s", name, err)
			return 0
		}
		L.Push(lv)
		return 1
	}
}

// callHost invokes a host callable, converting panics into errors so
// nothing unwinds across the guest/host boundary.
func callHost(fn HostFunc, args []Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(args)
}
