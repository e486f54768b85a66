package lua

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Registry management. Every reference kind anchors a guest value in the
// runtime's registry under an integer slot. Slots are never reused, so a
// stale release can never free a newer reference.

func (rt *Runtime) acquireRef(lv lua.LValue) int {
	rt.nextRef++
	rt.refs[rt.nextRef] = lv
	return rt.nextRef
}

func (rt *Runtime) releaseRef(slot int) {
	delete(rt.refs, slot)
}

func (rt *Runtime) refValue(slot int) (lua.LValue, bool) {
	lv, ok := rt.refs[slot]
	return lv, ok
}

// FuncRef anchors a callable guest value so it survives past the stack
// frame that produced it. Call through Runtime.CallFunction.
type FuncRef struct {
	rt       *Runtime
	slot     int
	released bool
}

// Type implements Value.
func (*FuncRef) Type() Type { return TypeFunction }

// String implements Value.
func (f *FuncRef) String() string { return fmt.Sprintf("function: ref %d", f.slot) }

// Release frees the registry slot. The first call wins; later calls
// return ErrReleased. Copies of the wrapper share the slot, so only one
// of them should release.
func (f *FuncRef) Release() error {
	if err := f.rt.enter(); err != nil {
		return err
	}
	defer f.rt.exit()
	if f.released {
		return ErrReleased
	}
	f.rt.releaseRef(f.slot)
	f.released = true
	return nil
}

// CoroRef anchors a coroutine: an independent execution context with its
// own instruction pointer and stack, sharing globals with its parent.
type CoroRef struct {
	rt       *Runtime
	slot     int
	co       *lua.LState
	fn       *lua.LFunction // entry function; nil for guest-created contexts
	cancel   context.CancelFunc
	status   CoroStatus
	released bool
}

// Type implements Value.
func (*CoroRef) Type() Type { return TypeCoroutine }

// String implements Value.
func (c *CoroRef) String() string { return fmt.Sprintf("coroutine: ref %d (%s)", c.slot, c.status) }

// Status reports the coroutine state as of the last resume.
func (c *CoroRef) Status() CoroStatus { return c.status }

// Release frees the registry slot and cancels the thread's context.
func (c *CoroRef) Release() error {
	if err := c.rt.enter(); err != nil {
		return err
	}
	defer c.rt.exit()
	if c.released {
		return ErrReleased
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.rt.releaseRef(c.slot)
	c.released = true
	return nil
}

// handleEntry tracks one host-originated opaque handle identity. The
// same identity may be materialized as multiple distinct guest-side
// blocks; count balances materializations against releases.
type handleEntry struct {
	value any
	count int
}

// hostHandle is the marker stored in guest-side userdata blocks that
// carry a host-originated handle.
type hostHandle struct {
	rt *Runtime
	id uint64
}

// UserDataRef is an opaque handle. Host-originated handles carry a Go
// value the guest treats as an inert token; guest-originated (foreign)
// userdata is anchored so the host can pass it back unchanged.
type UserDataRef struct {
	rt       *Runtime
	slot     int    // foreign userdata registry slot (0 for host handles)
	handle   uint64 // host handle identity (0 for foreign userdata)
	released bool
}

// Type implements Value.
func (*UserDataRef) Type() Type { return TypeUserData }

// String implements Value.
func (u *UserDataRef) String() string {
	if u.handle != 0 {
		return fmt.Sprintf("userdata: handle %d", u.handle)
	}
	return fmt.Sprintf("userdata: ref %d", u.slot)
}

// HostValue returns the wrapped Go value for a host-originated handle.
// The second result is false for foreign userdata and released handles.
func (u *UserDataRef) HostValue() (any, bool) {
	if u.handle == 0 {
		return nil, false
	}
	if err := u.rt.enter(); err != nil {
		return nil, false
	}
	defer u.rt.exit()
	entry, ok := u.rt.handles[u.handle]
	if !ok {
		return nil, false
	}
	return entry.value, true
}

// Release drops one reference. Host handles decrement the identity's
// count and the host-side mapping is removed only at zero, because the
// same identity may have several live guest-side materializations.
func (u *UserDataRef) Release() error {
	if err := u.rt.enter(); err != nil {
		return err
	}
	defer u.rt.exit()
	if u.released {
		return ErrReleased
	}
	u.released = true
	if u.handle != 0 {
		u.rt.releaseHandle(u.handle)
		return nil
	}
	u.rt.releaseRef(u.slot)
	return nil
}

func (rt *Runtime) newHandle(v any) *UserDataRef {
	rt.nextHandle++
	rt.handles[rt.nextHandle] = &handleEntry{value: v, count: 1}
	return &UserDataRef{rt: rt, handle: rt.nextHandle}
}

func (rt *Runtime) releaseHandle(id uint64) {
	entry, ok := rt.handles[id]
	if !ok {
		return
	}
	entry.count--
	if entry.count <= 0 {
		delete(rt.handles, id)
	}
}

// ProxyRef anchors a behavioral table: a table carrying a metatable.
// Unlike plain tables it is never deep-copied; reads, writes,
// enumeration and calls go back through the interpreter so metamethods
// keep firing. See proxy.go for the operations.
type ProxyRef struct {
	rt       *Runtime
	slot     int
	released bool
}

// Type implements Value.
func (*ProxyRef) Type() Type { return TypeProxy }

// String implements Value.
func (p *ProxyRef) String() string { return fmt.Sprintf("proxy: ref %d", p.slot) }

// Release frees the registry slot.
func (p *ProxyRef) Release() error {
	if err := p.rt.enter(); err != nil {
		return err
	}
	defer p.rt.exit()
	if p.released {
		return ErrReleased
	}
	p.rt.releaseRef(p.slot)
	p.released = true
	return nil
}
