package prefs

import (
	"math"
	"reflect"
)

// cloneAny deep copies maps, slices, arrays and pointers reachable from value
// so a snapshot never aliases data the caller still holds. Scalars are
// returned as-is.
func cloneAny(value any) any {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	}
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		return nil
	}
	return cloned.Interface()
}

func cloneDetail(detail map[string]any) map[string]any {
	if len(detail) == 0 {
		return nil
	}
	out := make(map[string]any, len(detail))
	for key, value := range detail {
		out[key] = cloneAny(value)
	}
	return out
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}

// Equal reports whether two preference values are equal the way the
// coordinator compares an edit with the persisted baseline.
func Equal(a, b any) bool {
	return valuesEqual(a, b)
}

// valuesEqual compares two preference values structurally. Numbers of
// different Go types compare by value so a value decoded from JSON (float64)
// matches one decoded from TOML (int64). Two integers compare exactly.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := asNumber(a); ok {
		if nb, ok := asNumber(b); ok {
			return na.equal(nb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

type numberKind uint8

const (
	signedNumber numberKind = iota
	unsignedNumber
	floatNumber
)

type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func (n number) equal(o number) bool {
	switch {
	case n.kind == floatNumber && o.kind == floatNumber:
		return n.f == o.f
	case n.kind == floatNumber:
		return o.equalFloat(n.f)
	case o.kind == floatNumber:
		return n.equalFloat(o.f)
	case n.kind == signedNumber && o.kind == signedNumber:
		return n.i == o.i
	case n.kind == unsignedNumber && o.kind == unsignedNumber:
		return n.u == o.u
	case n.kind == signedNumber:
		return n.i >= 0 && uint64(n.i) == o.u
	default:
		return o.i >= 0 && uint64(o.i) == n.u
	}
}

// equalFloat compares an integer with f without rounding the integer.
func (n number) equalFloat(f float64) bool {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return false
	}
	if n.kind == signedNumber {
		return f >= math.MinInt64 && f < 1<<63 && int64(f) == n.i
	}
	return f >= 0 && f < 1<<64 && uint64(f) == n.u
}

func asNumber(value any) (number, bool) {
	switch v := value.(type) {
	case int:
		return number{kind: signedNumber, i: int64(v)}, true
	case int8:
		return number{kind: signedNumber, i: int64(v)}, true
	case int16:
		return number{kind: signedNumber, i: int64(v)}, true
	case int32:
		return number{kind: signedNumber, i: int64(v)}, true
	case int64:
		return number{kind: signedNumber, i: v}, true
	case uint:
		return number{kind: unsignedNumber, u: uint64(v)}, true
	case uint8:
		return number{kind: unsignedNumber, u: uint64(v)}, true
	case uint16:
		return number{kind: unsignedNumber, u: uint64(v)}, true
	case uint32:
		return number{kind: unsignedNumber, u: uint64(v)}, true
	case uint64:
		return number{kind: unsignedNumber, u: v}, true
	case float32:
		return number{kind: floatNumber, f: float64(v)}, true
	case float64:
		return number{kind: floatNumber, f: v}, true
	default:
		return number{}, false
	}
}
