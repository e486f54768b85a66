package lua

import (
	"reflect"
)

// Host-side mirrors of the conversion engine: the same recursive mapping
// one level removed, between Value and native Go values.

// ToGo converts a Value to a plain Go value: scalars to Go scalars,
// arrays to []any, tables to map[string]any. Reference kinds pass
// through unchanged so they can round-trip back through FromGo without
// losing identity. Nesting past MaxDepth fails with a
// *ConversionError, which also terminates cyclic structures.
func ToGo(v Value) (any, error) {
	return toGo(v, 0)
}

func toGo(v Value, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, errDepth(depth)
	}

	switch val := v.(type) {
	case nil, Nil:
		return nil, nil
	case Bool:
		return bool(val), nil
	case Int:
		return int64(val), nil
	case Float:
		return float64(val), nil
	case String:
		return string(val), nil
	case Array:
		arr := make([]any, len(val))
		for i, item := range val {
			conv, err := toGo(item, depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = conv
		}
		return arr, nil
	case Table:
		m := make(map[string]any, len(val))
		for k, item := range val {
			conv, err := toGo(item, depth+1)
			if err != nil {
				return nil, err
			}
			m[k] = conv
		}
		return m, nil
	default:
		// FuncRef, CoroRef, UserDataRef, ProxyRef keep their identity.
		return v, nil
	}
}

// FromGo converts a Go value to a Value. Values that might round-trip
// (reference wrappers, already-converted Values) are detected before any
// generic conversion so the original reference is reconstructed instead
// of deep-copied. Unrecognized types fall back to reflection; anything
// reflection cannot express becomes a host-originated opaque handle.
func (rt *Runtime) FromGo(v any) (Value, error) {
	if err := rt.enter(); err != nil {
		return nil, err
	}
	defer rt.exit()
	return rt.fromGo(v, 0)
}

func (rt *Runtime) fromGo(v any, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, errDepth(depth)
	}
	if v == nil {
		return NilValue, nil
	}

	switch val := v.(type) {
	case Value:
		// Round-trip identity: includes the four reference kinds.
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return Int(val), nil
	case float32:
		return floatValue(float64(val)), nil
	case float64:
		return floatValue(val), nil
	case string:
		return String(val), nil
	case []byte:
		return String(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, item := range val {
			conv, err := rt.fromGo(item, depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = conv
		}
		return arr, nil
	case []string:
		arr := make(Array, len(val))
		for i, s := range val {
			arr[i] = String(s)
		}
		return arr, nil
	case []int:
		arr := make(Array, len(val))
		for i, n := range val {
			arr[i] = Int(n)
		}
		return arr, nil
	case map[string]any:
		m := make(Table, len(val))
		for k, item := range val {
			conv, err := rt.fromGo(item, depth+1)
			if err != nil {
				return nil, err
			}
			m[k] = conv
		}
		return m, nil
	case map[string]string:
		m := make(Table, len(val))
		for k, s := range val {
			m[k] = String(s)
		}
		return m, nil
	default:
		return rt.reflectValue(v, depth)
	}
}

// floatValue classifies exact-integer floats entering from the host side
// as Int. This is the documented lossy edge of the round-trip.
func floatValue(f float64) Value {
	if f == float64(int64(f)) {
		return Int(int64(f))
	}
	return Float(f)
}

// reflectValue converts arbitrary Go values via reflection.
func (rt *Runtime) reflectValue(v any, depth int) (Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return NilValue, nil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return NilValue, nil
		}
		return rt.fromGo(rv.Elem().Interface(), depth)

	case reflect.Slice, reflect.Array:
		arr := make(Array, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			conv, err := rt.fromGo(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = conv
		}
		return arr, nil

	case reflect.Map:
		m := make(Table, rv.Len())
		for _, key := range rv.MapKeys() {
			if key.Kind() != reflect.String {
				// Only string-keyed maps have a table shape.
				continue
			}
			conv, err := rt.fromGo(rv.MapIndex(key).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			m[key.String()] = conv
		}
		return m, nil

	case reflect.Struct:
		return rt.structToTable(rv, depth)

	default:
		// Whatever cannot be represented crosses as an inert token.
		return rt.newHandle(v), nil
	}
}

// structToTable converts a struct to a Table, honoring json tags the way
// the rest of the codebase names fields.
func (rt *Runtime) structToTable(rv reflect.Value, depth int) (Value, error) {
	m := make(Table, rv.NumField())
	rtType := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rtType.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}

		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" && tag != "-" {
			for j := 0; j < len(tag); j++ {
				if tag[j] == ',' {
					tag = tag[:j]
					break
				}
			}
			if tag != "" {
				name = tag
			}
		}

		conv, err := rt.fromGo(rv.Field(i).Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		m[name] = conv
	}

	return m, nil
}
