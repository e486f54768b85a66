package lua

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Runtime owns one interpreter state, its reference registry, its
// opaque-handle table and its host-function table.
//
// A Runtime is not goroutine-safe. Operations are strictly sequential:
// each public entry point acquires a single in-flight marker and returns
// ErrBusy immediately when another operation is running. Overlapping
// work is rejected, never queued or silently serialized. Independent
// Runtimes share nothing.
type Runtime struct {
	state *lua.LState

	id  string
	log *zap.Logger

	busy      atomic.Bool
	asyncMode atomic.Bool
	closed    atomic.Bool

	// Registry: anchors guest values referenced from the host. All
	// mutation happens under the sequential-access guarantee, so no
	// locking is needed beyond the busy marker.
	refs    map[int]lua.LValue
	nextRef int

	// Host-originated opaque handles, counted per identity.
	handles    map[uint64]*handleEntry
	nextHandle uint64

	// Host callables reachable from Lua by name.
	hostFuncs map[string]HostFunc

	libs LibrarySet
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLibraries selects which standard libraries the runtime opens.
// The default is AllLibraries.
func WithLibraries(set LibrarySet) Option {
	return func(rt *Runtime) {
		rt.libs = set
	}
}

// WithLogger sets the runtime's logger, overriding the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(rt *Runtime) {
		rt.log = l
	}
}

// New creates a runtime with a fresh interpreter state.
func New(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		id:        uuid.NewString(),
		log:       Logger(),
		refs:      make(map[int]lua.LValue),
		handles:   make(map[uint64]*handleEntry),
		hostFuncs: make(map[string]HostFunc),
		libs:      AllLibraries(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	rt.state = lua.NewState(lua.Options{SkipOpenLibs: true})
	rt.libs.open(rt.state)

	rt.log.Debug("lua runtime created",
		zap.String("runtime_id", rt.id),
		zap.Int("libraries", len(rt.libs)))
	return rt, nil
}

// ID returns the runtime's instance identifier.
func (rt *Runtime) ID() string { return rt.id }

// enter acquires the in-flight marker. The busy flag is a hard
// rejection: blocking here would silently serialize callers and defeat
// the point of moving work off-thread.
func (rt *Runtime) enter() error {
	if rt.closed.Load() {
		return ErrClosed
	}
	if !rt.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	if rt.closed.Load() {
		rt.busy.Store(false)
		return ErrClosed
	}
	return nil
}

func (rt *Runtime) exit() {
	rt.busy.Store(false)
}

// ExecuteScript compiles and runs a script, returning its results in
// order. Compile and runtime errors surface as the error result; an
// empty result slice is a valid success.
func (rt *Runtime) ExecuteScript(src string) ([]Value, error) {
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()
	return rt.execute(func() (*lua.LFunction, error) {
		return rt.state.LoadString(src)
	})
}

// ExecuteFile behaves like ExecuteScript for a script file on disk.
func (rt *Runtime) ExecuteFile(path string) ([]Value, error) {
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()
	return rt.execute(func() (*lua.LFunction, error) {
		return rt.state.LoadFile(path)
	})
}

// execute runs a loaded chunk with panic recovery and collects the
// values it left on the stack, relative to the pre-call top.
func (rt *Runtime) execute(load func() (*lua.LFunction, error)) (vals []Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	fn, err := load()
	if err != nil {
		return nil, err
	}

	L := rt.state
	top := L.GetTop()
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.SetTop(top)
		return nil, err
	}

	n := L.GetTop() - top
	results := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, cerr := rt.toValue(L.Get(top+i+1), 0)
		if cerr != nil {
			L.SetTop(top)
			return nil, fmt.Errorf("converting script result %d: %w", i+1, cerr)
		}
		results = append(results, v)
	}
	L.SetTop(top)
	return results, nil
}

// SetGlobal assigns a global. It accepts a Value, a HostFunc (which is
// registered under the name), or any Go value convertible via FromGo.
func (rt *Runtime) SetGlobal(name string, v any) error {
	switch fn := v.(type) {
	case HostFunc:
		return rt.RegisterFunction(name, fn)
	case func(args []Value) (Value, error):
		return rt.RegisterFunction(name, fn)
	}

	if err := rt.enter(); err != nil {
		return err
	}
	defer rt.exit()

	val, ok := v.(Value)
	if !ok {
		var err error
		val, err = rt.fromGo(v, 0)
		if err != nil {
			return fmt.Errorf("setting global %q: %w", name, err)
		}
	}
	lv, err := rt.fromValue(val, 0)
	if err != nil {
		return fmt.Errorf("setting global %q: %w", name, err)
	}
	rt.state.SetGlobal(name, lv)
	return nil
}

// GetGlobal reads a global. A missing global observes as NilValue;
// absent and nil are the same outcome, as in Lua itself.
func (rt *Runtime) GetGlobal(name string) (Value, error) {
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()

	v, err := rt.toValue(rt.state.GetGlobal(name), 0)
	if err != nil {
		return nil, fmt.Errorf("reading global %q: %w", name, err)
	}
	return v, nil
}

// CallFunction calls an anchored guest function with the given
// arguments and returns its results in order.
func (rt *Runtime) CallFunction(fn *FuncRef, args []Value) (vals []Value, err error) {
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	lfn, err := rt.refLValue(fn.rt, fn.slot, fn.released)
	if err != nil {
		return nil, err
	}

	L := rt.state
	top := L.GetTop()
	L.Push(lfn)
	for i, arg := range args {
		lv, cerr := rt.fromValue(arg, 0)
		if cerr != nil {
			L.SetTop(top)
			return nil, fmt.Errorf("converting argument %d: %w", i+1, cerr)
		}
		L.Push(lv)
	}

	if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
		L.SetTop(top)
		return nil, err
	}

	n := L.GetTop() - top
	results := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, cerr := rt.toValue(L.Get(top+i+1), 0)
		if cerr != nil {
			L.SetTop(top)
			return nil, fmt.Errorf("converting result %d: %w", i+1, cerr)
		}
		results = append(results, v)
	}
	L.SetTop(top)
	return results, nil
}

// NewUserData wraps a Go value as a host-originated opaque handle. The
// guest sees an inert token with no readable structure; the handle
// identity survives round trips through guest code.
func (rt *Runtime) NewUserData(v any) (*UserDataRef, error) {
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()
	return rt.newHandle(v), nil
}

// Close releases the interpreter state. It is safe to call twice;
// closing while an operation is in flight returns ErrBusy.
func (rt *Runtime) Close() error {
	if rt.closed.Load() {
		return nil
	}
	if !rt.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer rt.busy.Store(false)
	if rt.closed.Swap(true) {
		return nil
	}

	rt.state.Close()
	rt.refs = make(map[int]lua.LValue)
	rt.handles = make(map[uint64]*handleEntry)
	rt.hostFuncs = make(map[string]HostFunc)

	rt.log.Debug("lua runtime closed", zap.String("runtime_id", rt.id))
	return nil
}

// IsClosed reports whether Close has completed.
func (rt *Runtime) IsClosed() bool {
	return rt.closed.Load()
}
