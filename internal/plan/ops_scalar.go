package plan

import (
	"encoding"
	"fmt"
	"reflect"

	"github.com/miladamery/map-converter/internal/descriptor"
	"github.com/miladamery/map-converter/temporal"
)

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// directOps handles primitive and opaque fields: the value is stored and
// restored as-is. A nil pointer or nil-able zero is omitted on encode.
func (b *opBuilder) directOps(op *FieldOp, fd *descriptor.FieldDescriptor) {
	idx := fd.Index
	key := fd.MapKey

	target := fd.Type
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}

	op.Encode = func(src reflect.Value, out map[string]any, _ *VisitedSet) error {
		fv := src.Field(idx)

		v, present := derefField(fv)
		if !present {
			return nil
		}

		if isNilableKind(v.Kind()) && v.IsNil() {
			return nil
		}

		out[key] = v.Interface()

		return nil
	}

	op.Decode = func(in map[string]any, dst reflect.Value) error {
		raw, ok := in[key]
		if !ok || raw == nil {
			return nil
		}

		v, err := castBack(target, raw)
		if err != nil {
			return b.convErr(fd.Name, key, err)
		}

		setMaybePointer(dst.Field(idx), v)

		return nil
	}
}

// enumOps stores an enum as its canonical text name and restores it by
// name. An unrecognized name on decode is a ConversionError, never a
// silent default.
func (b *opBuilder) enumOps(op *FieldOp, fd *descriptor.FieldDescriptor) {
	idx := fd.Index
	key := fd.MapKey

	target := fd.Type
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}

	// Marshal through a pointer copy when only the pointer receiver
	// implements TextMarshaler; field values are not addressable.
	marshal := func(v reflect.Value) ([]byte, error) {
		return v.Interface().(encoding.TextMarshaler).MarshalText()
	}
	if !target.Implements(textMarshalerType) {
		marshal = func(v reflect.Value) ([]byte, error) {
			pv := reflect.New(target)
			pv.Elem().Set(v)

			return pv.Interface().(encoding.TextMarshaler).MarshalText()
		}
	}

	op.Encode = func(src reflect.Value, out map[string]any, _ *VisitedSet) error {
		v, present := derefField(src.Field(idx))
		if !present {
			return nil
		}

		text, err := marshal(v)
		if err != nil {
			return b.convErr(fd.Name, key, err)
		}

		out[key] = string(text)

		return nil
	}

	op.Decode = func(in map[string]any, dst reflect.Value) error {
		raw, ok := in[key]
		if !ok || raw == nil {
			return nil
		}

		name, ok := raw.(string)
		if !ok {
			return b.convErr(fd.Name, key, fmt.Errorf("expected enum name string, got %T", raw))
		}

		pv := reflect.New(target)
		if err := pv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(name)); err != nil {
			return b.convErr(fd.Name, key, err)
		}

		setMaybePointer(dst.Field(idx), pv.Elem())

		return nil
	}
}

// temporalOps encodes and decodes date/time fields through the temporal
// codec with the field's resolved strategy. A value that fails both the
// strict and the lenient parse is a ConversionError.
func (b *opBuilder) temporalOps(op *FieldOp, fd *descriptor.FieldDescriptor) {
	idx := fd.Index
	key := fd.MapKey
	kind := fd.Category.Temporal
	cfg := fd.Temporal

	op.Encode = func(src reflect.Value, out map[string]any, _ *VisitedSet) error {
		v, present := derefField(src.Field(idx))
		if !present {
			return nil
		}

		iv := v.Interface()

		// An unset temporal value is the non-pointer analog of nil.
		if z, ok := iv.(interface{ IsZero() bool }); ok && z.IsZero() {
			return nil
		}

		mv, err := temporal.Encode(iv, kind, cfg)
		if err != nil {
			return b.convErr(fd.Name, key, err)
		}

		out[key] = mv

		return nil
	}

	op.Decode = func(in map[string]any, dst reflect.Value) error {
		raw, ok := in[key]
		if !ok || raw == nil {
			return nil
		}

		got, err := temporal.Decode(raw, kind, cfg)
		if err != nil {
			return b.convErr(fd.Name, key, err)
		}

		setMaybePointer(dst.Field(idx), reflect.ValueOf(got))

		return nil
	}
}

// converterOps routes a field through a registered custom converter
// pair, bypassing the category algorithm entirely.
func (b *opBuilder) converterOps(op *FieldOp, fd *descriptor.FieldDescriptor) {
	idx := fd.Index
	key := fd.MapKey
	pair := b.env.converters[fd.Converter]
	target := fd.Type

	op.Encode = func(src reflect.Value, out map[string]any, _ *VisitedSet) error {
		mv, err := pair.Encode(src.Field(idx).Interface())
		if err != nil {
			return b.convErr(fd.Name, key, err)
		}

		if mv == nil {
			return nil
		}

		out[key] = mv

		return nil
	}

	op.Decode = func(in map[string]any, dst reflect.Value) error {
		raw, ok := in[key]
		if !ok || raw == nil {
			return nil
		}

		got, err := pair.Decode(raw)
		if err != nil {
			return b.convErr(fd.Name, key, err)
		}

		if got == nil {
			return nil
		}

		v, err := castBack(target, got)
		if err != nil {
			return b.convErr(fd.Name, key, err)
		}

		dst.Field(idx).Set(v)

		return nil
	}
}
