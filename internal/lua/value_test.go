package lua

import "testing"

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeNil, "nil"},
		{TypeBool, "bool"},
		{TypeInt, "int"},
		{TypeFloat, "float"},
		{TypeString, "string"},
		{TypeArray, "array"},
		{TypeTable, "table"},
		{TypeFunction, "function"},
		{TypeCoroutine, "coroutine"},
		{TypeUserData, "userdata"},
		{TypeProxy, "proxy"},
		{Type(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestValueTypes(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want Type
	}{
		{"nil", NilValue, TypeNil},
		{"bool", Bool(true), TypeBool},
		{"int", Int(42), TypeInt},
		{"float", Float(3.14), TypeFloat},
		{"string", String("x"), TypeString},
		{"array", Array{Int(1)}, TypeArray},
		{"table", Table{"a": Int(1)}, TypeTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Type(); got != tt.want {
				t.Errorf("Type() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"nil", NilValue, "nil"},
		{"true", Bool(true), "true"},
		{"int", Int(-7), "-7"},
		{"float", Float(1.5), "1.5"},
		{"string", String("hello"), "hello"},
		{"array", Array{Int(1), Int(2)}, "array(2)"},
		{"table", Table{"a": Int(1)}, "table(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
