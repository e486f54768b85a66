package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Behavioral-table operations. A ProxyRef stays live in the guest:
// every read, write, enumeration and call below re-enters the
// interpreter through its metamethod-honoring paths, so __index,
// __newindex and __call behavior keeps firing.

// Get reads a key from the proxied table, triggering __index.
func (p *ProxyRef) Get(key Value) (Value, error) {
	rt := p.rt
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()

	tbl, err := rt.refLValue(p.rt, p.slot, p.released)
	if err != nil {
		return nil, err
	}
	lkey, err := rt.fromValue(key, 0)
	if err != nil {
		return nil, err
	}

	var lv lua.LValue
	if err := rt.protect(func() {
		lv = rt.state.GetTable(tbl, lkey)
	}); err != nil {
		return nil, err
	}
	return rt.toValue(lv, 0)
}

// Set writes a key on the proxied table, triggering __newindex.
func (p *ProxyRef) Set(key, value Value) error {
	rt := p.rt
	if err := rt.enter(); err != nil {
		return err
	}
	defer rt.exit()

	tbl, err := rt.refLValue(p.rt, p.slot, p.released)
	if err != nil {
		return err
	}
	lkey, err := rt.fromValue(key, 0)
	if err != nil {
		return err
	}
	lval, err := rt.fromValue(value, 0)
	if err != nil {
		return err
	}

	return rt.protect(func() {
		rt.state.SetTable(tbl, lkey, lval)
	})
}

// Len reports the table length as the interpreter sees it.
func (p *ProxyRef) Len() (int, error) {
	rt := p.rt
	if err := rt.enter(); err != nil {
		return 0, err
	}
	defer rt.exit()

	tbl, err := rt.refLValue(p.rt, p.slot, p.released)
	if err != nil {
		return 0, err
	}

	var n int
	if err := rt.protect(func() {
		n = rt.state.ObjLen(tbl)
	}); err != nil {
		return 0, err
	}
	return n, nil
}

// Keys enumerates the table's own keys with raw iteration, skipping
// metamethods; behavior-injected keys are only observable through Get.
func (p *ProxyRef) Keys() ([]Value, error) {
	rt := p.rt
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()

	lv, err := rt.refLValue(p.rt, p.slot, p.released)
	if err != nil {
		return nil, err
	}
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("reference %d is not a table", p.slot)
	}

	var keys []Value
	var convErr error
	tbl.ForEach(func(k, _ lua.LValue) {
		if convErr != nil {
			return
		}
		key, err := rt.toValue(k, 0)
		if err != nil {
			convErr = err
			return
		}
		keys = append(keys, key)
	})
	if convErr != nil {
		return nil, convErr
	}
	return keys, nil
}

// Call invokes the proxied table as a callable (__call) and returns the
// results in order.
func (p *ProxyRef) Call(args []Value) (vals []Value, err error) {
	rt := p.rt
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()

	tbl, err := rt.refLValue(p.rt, p.slot, p.released)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	L := rt.state
	top := L.GetTop()
	L.Push(tbl)
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

// protect runs an unprotected interpreter operation, converting a raised
// Lua error or panic into a Go error.
func (rt *Runtime) protect(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if apiErr, ok := r.(*lua.ApiError); ok {
				err = apiErr
				return
			}
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	fn()
	return nil
}
