package lua

import (
	"fmt"
	"strconv"
)

// Type identifies the shape of a Value.
type Type int

// Value shapes.
const (
	TypeNil Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeArray
	TypeTable
	TypeFunction
	TypeCoroutine
	TypeUserData
	TypeProxy
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeTable:
		return "table"
	case TypeFunction:
		return "function"
	case TypeCoroutine:
		return "coroutine"
	case TypeUserData:
		return "userdata"
	case TypeProxy:
		return "proxy"
	default:
		return "unknown"
	}
}

// Value is the closed tagged union of every shape a Lua value takes on
// the host side. The concrete cases are Nil, Bool, Int, Float, String,
// Array, Table, *FuncRef, *CoroRef, *UserDataRef and *ProxyRef.
type Value interface {
	Type() Type
	String() string
}

// Nil is the absent value.
type Nil struct{}

// NilValue is the canonical nil Value.
var NilValue = Nil{}

// Type implements Value.
func (Nil) Type() Type { return TypeNil }

// String implements Value.
func (Nil) String() string { return "nil" }

// Bool is a Lua boolean.
type Bool bool

// Type implements Value.
func (Bool) Type() Type { return TypeBool }

// String implements Value.
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Int is a Lua number with the integer subtype.
type Int int64

// Type implements Value.
func (Int) Type() Type { return TypeInt }

// String implements Value.
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Float is a Lua number with the float subtype.
type Float float64

// Type implements Value.
func (Float) Type() Type { return TypeFloat }

// String implements Value.
func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// String is a Lua string. Lua strings are byte sequences; embedded zero
// bytes are preserved.
type String string

// Type implements Value.
func (String) Type() Type { return TypeString }

// String implements Value.
func (s String) String() string { return string(s) }

// Array is an ordered sequence converted from a table whose keys form a
// dense 1..n integer run.
type Array []Value

// Type implements Value.
func (Array) Type() Type { return TypeArray }

// String implements Value.
func (a Array) String() string { return fmt.Sprintf("array(%d)", len(a)) }

// Table is a string-keyed mapping converted from a table with any other
// key shape. Non-string, non-number keys are dropped during conversion;
// number keys are stringified.
type Table map[string]Value

// Type implements Value.
func (Table) Type() Type { return TypeTable }

// String implements Value.
func (t Table) String() string { return fmt.Sprintf("table(%d)", len(t)) }

// HostFunc is a host-registered callable reachable from Lua by name.
// Errors (and panics) raised by the function become Lua errors carrying
// the function's name.
type HostFunc func(args []Value) (Value, error)
