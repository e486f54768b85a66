package lua

import (
	"sort"
	"testing"
)

const proxyScript = `
local backing = {greeting = 'hello'}
local t = setmetatable({10, 20, 30}, {
	__index = backing,
	__newindex = function(t, k, v) rawset(t, k, v .. '!') end,
	__call = function(self, n) return n + 1 end,
})
return t
`

func proxyFromScript(t *testing.T, rt *Runtime, src string) *ProxyRef {
	t.Helper()
	vals, err := rt.ExecuteScript(src)
	if err != nil {
		t.Fatalf("ExecuteScript() error = %v", err)
	}
	p, ok := vals[0].(*ProxyRef)
	if !ok {
		t.Fatalf("script returned %T, want *ProxyRef", vals[0])
	}
	return p
}

func TestProxyGetTriggersIndex(t *testing.T) {
	rt := newTestRuntime(t)
	p := proxyFromScript(t, rt, proxyScript)

	// Injected key, only reachable through __index.
	v, err := p.Get(String("greeting"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != String("hello") {
		t.Errorf("Get(greeting) = %v, want hello", v)
	}

	// Own key, served without the metamethod.
	v, err = p.Get(Int(2))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != Int(20) {
		t.Errorf("Get(2) = %v, want 20", v)
	}

	// Missing everywhere.
	v, err = p.Get(String("absent"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != NilValue {
		t.Errorf("Get(absent) = %v, want nil", v)
	}
}

func TestProxySetTriggersNewindex(t *testing.T) {
	rt := newTestRuntime(t)
	p := proxyFromScript(t, rt, proxyScript)

	if err := p.Set(String("note"), String("written")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, err := p.Get(String("note"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != String("written!") {
		t.Errorf("Get(note) = %v, want the __newindex-decorated value", v)
	}
}

func TestProxyCall(t *testing.T) {
	rt := newTestRuntime(t)
	p := proxyFromScript(t, rt, proxyScript)

	vals, err := p.Call([]Value{Int(41)})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(vals) != 1 || vals[0] != Int(42) {
		t.Errorf("Call(41) = %v, want [42]", vals)
	}
}

func TestProxyCallWithoutMetamethod(t *testing.T) {
	rt := newTestRuntime(t)
	p := proxyFromScript(t, rt, "return setmetatable({}, {__index = function() return 1 end})")

	if _, err := p.Call(nil); err == nil {
		t.Error("calling a non-callable proxy did not fail")
	}
}

func TestProxyLen(t *testing.T) {
	rt := newTestRuntime(t)
	p := proxyFromScript(t, rt, proxyScript)

	n, err := p.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Len() = %d, want 3", n)
	}
}

func TestProxyKeysRaw(t *testing.T) {
	rt := newTestRuntime(t)
	p := proxyFromScript(t, rt, proxyScript)

	keys, err := p.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	// Only own keys; the __index-injected 'greeting' must not appear.
	var got []string
	for _, k := range keys {
		got = append(got, k.String())
	}
	sort.Strings(got)
	want := []string{"1", "2", "3"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestProxyStaysLive(t *testing.T) {
	rt := newTestRuntime(t)
	p := proxyFromScript(t, rt, `
state = setmetatable({}, {__index = function(_, k) return 'lazy:' .. k end})
return state
`)

	// A write performed by later guest code is visible through the proxy.
	if _, err := rt.ExecuteScript("rawset(state, 'direct', 'set-after')"); err != nil {
		t.Fatalf("ExecuteScript() error = %v", err)
	}
	v, err := p.Get(String("direct"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != String("set-after") {
		t.Errorf("Get(direct) = %v, want set-after", v)
	}

	v, err = p.Get(String("anything"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != String("lazy:anything") {
		t.Errorf("Get(anything) = %v, want lazy:anything", v)
	}
}

func TestProxyErrorInMetamethod(t *testing.T) {
	rt := newTestRuntime(t)
	p := proxyFromScript(t, rt, "return setmetatable({}, {__index = function() error('denied') end})")

	if _, err := p.Get(String("k")); err == nil {
		t.Error("erroring __index did not surface as a Go error")
	}
}

func TestProxyAfterRelease(t *testing.T) {
	rt := newTestRuntime(t)
	p := proxyFromScript(t, rt, proxyScript)

	if err := p.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := p.Get(String("greeting")); err == nil {
		t.Error("Get() on a released proxy did not fail")
	}
	if err := p.Set(String("k"), Int(1)); err == nil {
		t.Error("Set() on a released proxy did not fail")
	}
}
