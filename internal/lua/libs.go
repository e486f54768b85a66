package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Library names a Lua standard library that can be opened into a
// runtime. Library selection is policy for the embedding application;
// the bridge itself only needs base semantics.
type Library string

// Standard libraries.
const (
	LibPackage   Library = "package"
	LibBase      Library = "base"
	LibTable     Library = "table"
	LibString    Library = "string"
	LibMath      Library = "math"
	LibOS        Library = "os"
	LibIO        Library = "io"
	LibCoroutine Library = "coroutine"
	LibChannel   Library = "channel"
	LibDebug     Library = "debug"
)

// LibrarySet is an ordered list of libraries to open at New.
type LibrarySet []Library

// AllLibraries returns the full standard set, the default for a new
// runtime.
func AllLibraries() LibrarySet {
	return LibrarySet{
		LibPackage, LibBase, LibTable, LibString, LibMath,
		LibOS, LibIO, LibCoroutine, LibChannel, LibDebug,
	}
}

// SafeLibraries returns the set with no filesystem, system or debug
// access: base, table, string, math and coroutine.
func SafeLibraries() LibrarySet {
	return LibrarySet{LibBase, LibTable, LibString, LibMath, LibCoroutine}
}

// ParseLibrary resolves a library by name, for configuration files.
func ParseLibrary(name string) (Library, error) {
	switch Library(name) {
	case LibPackage, LibBase, LibTable, LibString, LibMath,
		LibOS, LibIO, LibCoroutine, LibChannel, LibDebug:
		return Library(name), nil
	}
	return "", fmt.Errorf("unknown lua library %q", name)
}

var openers = map[Library]lua.LGFunction{
	LibPackage:   lua.OpenPackage,
	LibBase:      lua.OpenBase,
	LibTable:     lua.OpenTable,
	LibString:    lua.OpenString,
	LibMath:      lua.OpenMath,
	LibOS:        lua.OpenOs,
	LibIO:        lua.OpenIo,
	LibCoroutine: lua.OpenCoroutine,
	LibChannel:   lua.OpenChannel,
	LibDebug:     lua.OpenDebug,
}

// open loads the selected libraries into a fresh state created with
// SkipOpenLibs.
func (set LibrarySet) open(L *lua.LState) {
	for _, lib := range set {
		if fn, ok := openers[lib]; ok {
			fn(L)
		}
	}
}
