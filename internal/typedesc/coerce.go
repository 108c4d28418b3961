package typedesc

import (
	"fmt"
	"math"
	"reflect"
)

// Coerce converts v to a value of type t. Numeric values are converted
// between Go numeric kinds only when the value is preserved exactly: a
// fractional float, an out of range integer or a negative value for an
// unsigned type is an error. A nil v stays nil.
func Coerce(v any, t Type) (any, error) {
	if v == nil || t == nil || isAny(t) {
		return v, nil
	}
	if IsInstance(v, t) {
		return v, nil
	}
	g, ok := t.(goType)
	if !ok {
		return nil, fmt.Errorf("value of type %T is not a %s", v, t.TypeName())
	}
	rv := reflect.ValueOf(v)
	if numeric(rv.Kind()) && numeric(g.t.Kind()) {
		out, ok := convertNumber(rv, g.t)
		if !ok {
			return nil, fmt.Errorf("value %v of type %T does not fit in %s", v, v, t.TypeName())
		}
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("value of type %T is not a %s", v, t.TypeName())
}

// Nillable reports whether nil is a valid value of t.
func Nillable(t Type) bool {
	g, ok := t.(goType)
	if !ok {
		return true
	}
	switch g.t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func convertNumber(rv reflect.Value, to reflect.Type) (reflect.Value, bool) {
	zero := reflect.Zero(to)
	switch {
	case isInt(rv.Kind()):
		x := rv.Int()
		switch {
		case isInt(to.Kind()):
			if zero.OverflowInt(x) {
				return reflect.Value{}, false
			}
		case isUint(to.Kind()):
			if x < 0 || zero.OverflowUint(uint64(x)) {
				return reflect.Value{}, false
			}
		default:
			f := reflect.ValueOf(x).Convert(to).Float()
			if f >= 0x1p63 || int64(f) != x {
				return reflect.Value{}, false
			}
		}
		return reflect.ValueOf(x).Convert(to), true

	case isUint(rv.Kind()):
		x := rv.Uint()
		switch {
		case isInt(to.Kind()):
			if x > math.MaxInt64 || zero.OverflowInt(int64(x)) {
				return reflect.Value{}, false
			}
		case isUint(to.Kind()):
			if zero.OverflowUint(x) {
				return reflect.Value{}, false
			}
		default:
			f := reflect.ValueOf(x).Convert(to).Float()
			if f >= 0x1p64 || uint64(f) != x {
				return reflect.Value{}, false
			}
		}
		return reflect.ValueOf(x).Convert(to), true

	default:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			if isInt(to.Kind()) || isUint(to.Kind()) {
				return reflect.Value{}, false
			}
			return reflect.ValueOf(f).Convert(to), true
		}
		switch {
		case isInt(to.Kind()):
			if f != math.Trunc(f) || f < -0x1p63 || f >= 0x1p63 || zero.OverflowInt(int64(f)) {
				return reflect.Value{}, false
			}
		case isUint(to.Kind()):
			if f != math.Trunc(f) || f < 0 || f >= 0x1p64 || zero.OverflowUint(uint64(f)) {
				return reflect.Value{}, false
			}
		default:
			if zero.OverflowFloat(f) {
				return reflect.Value{}, false
			}
		}
		return reflect.ValueOf(f).Convert(to), true
	}
}

func numeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
