package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// MaxDepth bounds recursive conversion in both directions. Structures
// nested past the bound fail with a *ConversionError instead of
// overflowing the call stack; this also terminates cyclic graphs.
const MaxDepth = 100

// toValue converts one interpreter value into a Value. depth is the
// current nesting level; callers start at 0.
func (rt *Runtime) toValue(lv lua.LValue, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, errDepth(depth)
	}
	if lv == nil {
		return NilValue, nil
	}

	switch v := lv.(type) {
	case *lua.LNilType:
		return NilValue, nil
	case lua.LBool:
		return Bool(v), nil
	case lua.LNumber:
		// gopher-lua numbers are float64; exact integer values take the
		// integer subtype, matching the interpreter's own classification.
		f := float64(v)
		if f == float64(int64(f)) {
			return Int(int64(f)), nil
		}
		return Float(f), nil
	case lua.LString:
		// Byte-for-byte copy; embedded zero bytes survive.
		return String(v), nil
	case *lua.LTable:
		// A metatable marks behavior overrides; such tables stay live as
		// proxies and are never deep-copied.
		if v.Metatable != nil && v.Metatable != lua.LNil {
			return &ProxyRef{rt: rt, slot: rt.acquireRef(v)}, nil
		}
		return rt.tableToValue(v, depth)
	case *lua.LFunction:
		return &FuncRef{rt: rt, slot: rt.acquireRef(v)}, nil
	case *lua.LState:
		// A coroutine created guest-side. Its entry frame lives inside
		// the guest, so no function is retained; Resume routes such
		// contexts through the guest's own resume.
		return &CoroRef{
			rt:     rt,
			slot:   rt.acquireRef(v),
			co:     v,
			status: CoroSuspended,
		}, nil
	case *lua.LUserData:
		if h, ok := v.Value.(hostHandle); ok && h.rt == rt {
			// Round trip of a host-originated handle: the wrapper takes
			// over the count the materializing push added.
			return &UserDataRef{rt: rt, handle: h.id}, nil
		}
		// Foreign userdata (created by guest-side library calls): the
		// host cannot interpret it but must be able to pass it back.
		return &UserDataRef{rt: rt, slot: rt.acquireRef(v)}, nil
	default:
		// Channels and any future value kinds are opaque to the host.
		return &UserDataRef{rt: rt, slot: rt.acquireRef(lv)}, nil
	}
}

// tableToValue classifies a plain table as a dense array or a
// string-keyed mapping. The key shape is verified by full iteration, not
// by length heuristics: an array has exactly the integer keys 1..n.
func (rt *Runtime) tableToValue(t *lua.LTable, depth int) (Value, error) {
	isArray := true
	maxN := 0
	count := 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok {
			isArray = false
			return
		}
		n := int(kn)
		if float64(n) != float64(kn) || n < 1 {
			isArray = false
			return
		}
		if n > maxN {
			maxN = n
		}
	})
	if count != maxN {
		isArray = false
	}

	// The empty table is an empty array.
	if isArray || count == 0 {
		arr := make(Array, 0, maxN)
		for i := 1; i <= maxN; i++ {
			item, err := rt.toValue(t.RawGetInt(i), depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
		return arr, nil
	}

	m := make(Table, count)
	var convErr error
	t.ForEach(func(k, v lua.LValue) {
		if convErr != nil {
			return
		}
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = kv.String()
		default:
			// Non-string, non-number keys are skipped.
			return
		}
		item, err := rt.toValue(v, depth+1)
		if err != nil {
			convErr = err
			return
		}
		m[key] = item
	})
	if convErr != nil {
		return nil, convErr
	}
	return m, nil
}

// fromValue converts a Value into an interpreter value. A nil interface
// input converts to Lua nil rather than being dereferenced.
func (rt *Runtime) fromValue(v Value, depth int) (lua.LValue, error) {
	if depth > MaxDepth {
		return nil, errDepth(depth)
	}
	if v == nil {
		return lua.LNil, nil
	}

	switch val := v.(type) {
	case Nil:
		return lua.LNil, nil
	case Bool:
		return lua.LBool(val), nil
	case Int:
		return lua.LNumber(val), nil
	case Float:
		return lua.LNumber(val), nil
	case String:
		return lua.LString(val), nil
	case Array:
		t := rt.state.CreateTable(len(val), 0)
		for i, item := range val {
			lv, err := rt.fromValue(item, depth+1)
			if err != nil {
				return nil, err
			}
			t.RawSetInt(i+1, lv)
		}
		return t, nil
	case Table:
		t := rt.state.CreateTable(0, len(val))
		for k, item := range val {
			lv, err := rt.fromValue(item, depth+1)
			if err != nil {
				return nil, err
			}
			t.RawSetString(k, lv)
		}
		return t, nil
	case *FuncRef:
		return rt.refLValue(val.rt, val.slot, val.released)
	case *CoroRef:
		return rt.refLValue(val.rt, val.slot, val.released)
	case *ProxyRef:
		return rt.refLValue(val.rt, val.slot, val.released)
	case *UserDataRef:
		if val.handle != 0 {
			if val.rt != rt {
				return nil, &ConversionError{Msg: "reference belongs to a different runtime"}
			}
			entry, ok := rt.handles[val.handle]
			if !ok || val.released {
				return nil, ErrReleased
			}
			// A fresh guest-side block per push; each one balances
			// exactly one future release.
			ud := rt.state.NewUserData()
			ud.Value = hostHandle{rt: rt, id: val.handle}
			entry.count++
			return ud, nil
		}
		return rt.refLValue(val.rt, val.slot, val.released)
	default:
		return nil, errUnsupported(v)
	}
}

// refLValue resolves a registry slot for pushing, rejecting released
// references and references owned by another runtime.
func (rt *Runtime) refLValue(owner *Runtime, slot int, released bool) (lua.LValue, error) {
	if owner != rt {
		return nil, &ConversionError{Msg: "reference belongs to a different runtime"}
	}
	if released {
		return nil, ErrReleased
	}
	lv, ok := rt.refValue(slot)
	if !ok {
		return nil, ErrReleased
	}
	return lv, nil
}
