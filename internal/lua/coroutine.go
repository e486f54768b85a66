package lua

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// CoroStatus is a coroutine's lifecycle state.
type CoroStatus int

// Coroutine states. Suspended is the initial state and the state after
// each yield; Running only holds while inside a resume; Dead is
// terminal, reached by normal return or by an uncaught error.
const (
	CoroSuspended CoroStatus = iota
	CoroRunning
	CoroDead
)

// String returns the status name.
func (s CoroStatus) String() string {
	switch s {
	case CoroSuspended:
		return "suspended"
	case CoroRunning:
		return "running"
	case CoroDead:
		return "dead"
	default:
		return "unknown"
	}
}

// ResumeResult carries the outcome of one resume: the status the
// coroutine settled in, the yielded or returned values, and the error
// for the dead-by-error case.
type ResumeResult struct {
	Status CoroStatus
	Values []Value
	Err    error
}

// CreateCoroutine allocates a new execution context for an anchored
// guest function. The context has its own stack and instruction pointer
// but shares global state with the parent.
func (rt *Runtime) CreateCoroutine(fn *FuncRef) (*CoroRef, error) {
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()

	lv, err := rt.refLValue(fn.rt, fn.slot, fn.released)
	if err != nil {
		return nil, err
	}
	lfn, ok := lv.(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("reference %d is not a function", fn.slot)
	}

	co, cancel := rt.state.NewThread()
	return &CoroRef{
		rt:     rt,
		slot:   rt.acquireRef(co),
		co:     co,
		fn:     lfn,
		cancel: cancel,
		status: CoroSuspended,
	}, nil
}

// Resume runs a coroutine until its next yield, return or error.
// Resuming a dead coroutine reports a dead result with an explanatory
// error rather than crashing; conversion failures likewise settle as a
// dead result carrying the conversion error.
func (rt *Runtime) Resume(co *CoroRef, args []Value) (res ResumeResult) {
	if err := rt.enter(); err != nil {
		return ResumeResult{Status: co.status, Err: err}
	}
	defer rt.exit()

	defer func() {
		if r := recover(); r != nil {
			co.status = CoroDead
			res = ResumeResult{Status: CoroDead, Err: fmt.Errorf("lua panic: %v", r)}
		}
	}()

	if co.rt != rt {
		return ResumeResult{Status: co.status, Err: errors.New("coroutine belongs to a different runtime")}
	}
	if co.released {
		return ResumeResult{Status: co.status, Err: ErrReleased}
	}
	if co.status == CoroDead {
		return ResumeResult{Status: CoroDead, Err: errors.New("cannot resume dead coroutine")}
	}

	lvArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		lv, err := rt.fromValue(arg, 0)
		if err != nil {
			co.status = CoroDead
			return ResumeResult{Status: CoroDead, Err: fmt.Errorf("converting resume argument %d: %w", i+1, err)}
		}
		lvArgs[i] = lv
	}

	// Contexts created guest-side keep their entry frame inside the
	// guest; only the guest's own resume knows how to start them.
	if co.fn == nil {
		return rt.resumeViaGuest(co, lvArgs)
	}

	co.status = CoroRunning
	st, rerr, lvValues := rt.state.Resume(co.co, co.fn, lvArgs...)

	switch st {
	case lua.ResumeYield:
		co.status = CoroSuspended
	case lua.ResumeOK:
		co.status = CoroDead
	case lua.ResumeError:
		co.status = CoroDead
		if rerr == nil {
			rerr = errors.New("coroutine failed")
		}
		return ResumeResult{Status: CoroDead, Err: rerr}
	}

	values := make([]Value, 0, len(lvValues))
	for i, lv := range lvValues {
		v, err := rt.toValue(lv, 0)
		if err != nil {
			// Remaining values are dropped so the context's stack does
			// not accumulate unconsumed results.
			co.status = CoroDead
			return ResumeResult{Status: CoroDead, Err: fmt.Errorf("converting resume result %d: %w", i+1, err)}
		}
		values = append(values, v)
	}

	return ResumeResult{Status: co.status, Values: values}
}

// resumeViaGuest drives a guest-created context through coroutine.resume.
// The host never saw the entry function of such a context, and the
// interpreter's direct resume requires one for a thread that has not run
// yet; the guest-side resume uses the frame stored at creation instead.
func (rt *Runtime) resumeViaGuest(co *CoroRef, args []lua.LValue) ResumeResult {
	L := rt.state
	coLib := L.GetGlobal("coroutine")
	if coLib == lua.LNil {
		co.status = CoroDead
		return ResumeResult{Status: CoroDead, Err: errors.New("coroutine library is not loaded")}
	}
	resume := L.GetField(coLib, "resume")
	if resume == lua.LNil {
		co.status = CoroDead
		return ResumeResult{Status: CoroDead, Err: errors.New("coroutine library is not loaded")}
	}

	top := L.GetTop()
	L.Push(resume)
	L.Push(co.co)
	for _, arg := range args {
		L.Push(arg)
	}

	co.status = CoroRunning
	if err := L.PCall(len(args)+1, lua.MultRet, nil); err != nil {
		L.SetTop(top)
		co.status = CoroDead
		return ResumeResult{Status: CoroDead, Err: err}
	}

	// coroutine.resume prefixes results with its ok flag; false carries
	// the guest error message in the second slot.
	n := L.GetTop() - top
	if n < 1 || !lua.LVAsBool(L.Get(top+1)) {
		msg := "coroutine failed"
		if n > 1 {
			msg = L.Get(top + 2).String()
		}
		L.SetTop(top)
		co.status = CoroDead
		return ResumeResult{Status: CoroDead, Err: errors.New(msg)}
	}

	status := CoroSuspended
	if co.co.Dead {
		status = CoroDead
	}

	values := make([]Value, 0, n-1)
	for i := 2; i <= n; i++ {
		v, err := rt.toValue(L.Get(top+i), 0)
		if err != nil {
			L.SetTop(top)
			co.status = CoroDead
			return ResumeResult{Status: CoroDead, Err: fmt.Errorf("converting resume result %d: %w", i-1, err)}
		}
		values = append(values, v)
	}
	L.SetTop(top)

	co.status = status
	return ResumeResult{Status: status, Values: values}
}
