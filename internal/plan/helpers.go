package plan

import (
	"fmt"
	"reflect"
)

func isNilableKind(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// castBack converts a stored map value to the declared type t: an exact
// or assignable value is taken as-is, numeric widths convert, anything
// else is a cast failure the caller turns into a ConversionError.
func castBack(t reflect.Type, raw any) (reflect.Value, error) {
	v := reflect.ValueOf(raw)
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}

	if v.Type().AssignableTo(t) {
		return v, nil
	}

	if isNumericKind(v.Kind()) && isNumericKind(t.Kind()) {
		return v.Convert(t), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot cast %T to %s", raw, t)
}

// setMaybePointer assigns v (of the pointee type) to dst, allocating
// when dst is a pointer field.
func setMaybePointer(dst reflect.Value, v reflect.Value) {
	if dst.Kind() == reflect.Pointer {
		np := reflect.New(dst.Type().Elem())
		np.Elem().Set(v)
		dst.Set(np)

		return
	}

	dst.Set(v)
}

// derefField returns the field's pointee value and whether it is
// present: a nil pointer reports false.
func derefField(fv reflect.Value) (reflect.Value, bool) {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return reflect.Value{}, false
		}

		return fv.Elem(), true
	}

	return fv, true
}
