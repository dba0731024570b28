package plan

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"

	"github.com/miladamery/map-converter/internal/descriptor"
	"github.com/miladamery/map-converter/internal/schema"
	"github.com/miladamery/map-converter/temporal"
)

// elemCodec converts one collection element or map value. enc reports
// skip when a cycle-suppressed element must be omitted from the output.
type elemCodec struct {
	enc func(v reflect.Value, vs *VisitedSet) (any, bool, error)
	dec func(raw any) (reflect.Value, error)
}

func wrapPointer(et reflect.Type, v reflect.Value) reflect.Value {
	if et.Kind() != reflect.Pointer {
		return v
	}

	pv := reflect.New(et.Elem())
	pv.Elem().Set(v)

	return pv
}

// elemCodec derives the codec for element type et under category cat.
// Element categories are restricted to primitive, temporal, nested
// entity and opaque; temporal elements share the field's strategy.
func (b *opBuilder) elemCodec(et reflect.Type, cat *schema.Category, fd *descriptor.FieldDescriptor) (elemCodec, error) {
	if cat == nil {
		return elemCodec{}, fmt.Errorf("field %s: element category missing", fd.Name)
	}

	base := et
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	switch cat.Kind {
	case schema.KindPrimitive, schema.KindOpaque:
		return elemCodec{
			enc: func(v reflect.Value, _ *VisitedSet) (any, bool, error) {
				ev, present := derefField(v)
				if !present {
					return nil, false, nil
				}

				if isNilableKind(ev.Kind()) && ev.IsNil() {
					return nil, false, nil
				}

				return ev.Interface(), false, nil
			},
			dec: func(raw any) (reflect.Value, error) {
				if raw == nil {
					return reflect.Zero(et), nil
				}

				ev, err := castBack(base, raw)
				if err != nil {
					return reflect.Value{}, b.convErr(fd.Name, fd.MapKey, err)
				}

				return wrapPointer(et, ev), nil
			},
		}, nil

	case schema.KindTemporal:
		kind := cat.Temporal
		cfg := fd.Temporal

		return elemCodec{
			enc: func(v reflect.Value, _ *VisitedSet) (any, bool, error) {
				ev, present := derefField(v)
				if !present {
					return nil, false, nil
				}

				mv, err := temporal.Encode(ev.Interface(), kind, cfg)
				if err != nil {
					return nil, false, b.convErr(fd.Name, fd.MapKey, err)
				}

				return mv, false, nil
			},
			dec: func(raw any) (reflect.Value, error) {
				if raw == nil {
					return reflect.Zero(et), nil
				}

				got, err := temporal.Decode(raw, kind, cfg)
				if err != nil {
					return reflect.Value{}, b.convErr(fd.Name, fd.MapKey, err)
				}

				return wrapPointer(et, reflect.ValueOf(got)), nil
			},
		}, nil

	case schema.KindNestedEntity:
		policy := fd.Circular
		ref := b.env.ref(b.ent.QualifiedName, cat.EntityRef)

		return elemCodec{
			enc: func(v reflect.Value, vs *VisitedSet) (any, bool, error) {
				if v.Kind() == reflect.Pointer && v.IsNil() {
					return nil, false, nil
				}

				switch policy.Mode {
				case descriptor.ModeIgnoreIfCircular:
					if v.Kind() == reflect.Pointer && vs.Contains(v) {
						return nil, true, nil
					}
				case descriptor.ModeMaxDepth:
					if vs.Depth() >= policy.MaxDepth {
						return nil, true, nil
					}
				}

				m, skip, err := ref.plan.Encode(v, vs)
				if err != nil || skip {
					return nil, skip, err
				}

				return m, false, nil
			},
			dec: func(raw any) (reflect.Value, error) {
				if raw == nil {
					return reflect.Zero(et), nil
				}

				m, ok := raw.(map[string]any)
				if !ok {
					return reflect.Value{}, b.convErr(fd.Name, fd.MapKey,
						fmt.Errorf("expected nested map, got %T", raw))
				}

				pv, err := ref.plan.NewFromMap(m)
				if err != nil {
					return reflect.Value{}, err
				}

				if et.Kind() == reflect.Pointer {
					return pv, nil
				}

				return pv.Elem(), nil
			},
		}, nil

	default:
		return elemCodec{}, fmt.Errorf("field %s: unsupported element category %v", fd.Name, cat.Kind)
	}
}

// collectionOps encodes slices and arrays as []any. Nil elements are
// preserved as nil entries; cycle-suppressed elements are dropped from
// the encoded list.
func (b *opBuilder) collectionOps(op *FieldOp, fd *descriptor.FieldDescriptor) error {
	idx := fd.Index
	key := fd.MapKey

	bt := fd.Type
	if bt.Kind() == reflect.Pointer {
		bt = bt.Elem()
	}

	et := bt.Elem()
	fixed := bt.Kind() == reflect.Array

	codec, err := b.elemCodec(et, fd.Category.Elem, fd)
	if err != nil {
		return err
	}

	op.Encode = func(src reflect.Value, out map[string]any, vs *VisitedSet) error {
		v, present := derefField(src.Field(idx))
		if !present {
			return nil
		}

		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}

		items := make([]any, 0, v.Len())

		for i := 0; i < v.Len(); i++ {
			mv, skip, err := codec.enc(v.Index(i), vs)
			if err != nil {
				return err
			}

			if skip {
				continue
			}

			items = append(items, mv)
		}

		out[key] = items

		return nil
	}

	op.Decode = func(in map[string]any, dst reflect.Value) error {
		raw, ok := in[key]
		if !ok || raw == nil {
			return nil
		}

		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return b.convErr(fd.Name, key, fmt.Errorf("expected list, got %T", raw))
		}

		if fixed {
			if rv.Len() > bt.Len() {
				return b.convErr(fd.Name, key,
					fmt.Errorf("list of %d exceeds array length %d", rv.Len(), bt.Len()))
			}

			na := reflect.New(bt).Elem()

			for i := 0; i < rv.Len(); i++ {
				ev, err := codec.dec(rv.Index(i).Interface())
				if err != nil {
					return err
				}

				na.Index(i).Set(ev)
			}

			setMaybePointer(dst.Field(idx), na)

			return nil
		}

		ns := reflect.MakeSlice(bt, 0, rv.Len())

		for i := 0; i < rv.Len(); i++ {
			ev, err := codec.dec(rv.Index(i).Interface())
			if err != nil {
				return err
			}

			ns = reflect.Append(ns, ev)
		}

		setMaybePointer(dst.Field(idx), ns)

		return nil
	}

	return nil
}

// roundTripKeyDecoder inverts the canonical text form of a map key back
// to its declared type.
func roundTripKeyDecoder(kt reflect.Type) (func(string) (reflect.Value, error), error) {
	switch kt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(s string) (reflect.Value, error) {
			n, err := cast.ToInt64E(s)
			if err != nil {
				return reflect.Value{}, err
			}

			return reflect.ValueOf(n).Convert(kt), nil
		}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(s string) (reflect.Value, error) {
			n, err := cast.ToUint64E(s)
			if err != nil {
				return reflect.Value{}, err
			}

			return reflect.ValueOf(n).Convert(kt), nil
		}, nil
	case reflect.Float32, reflect.Float64:
		return func(s string) (reflect.Value, error) {
			f, err := cast.ToFloat64E(s)
			if err != nil {
				return reflect.Value{}, err
			}

			return reflect.ValueOf(f).Convert(kt), nil
		}, nil
	case reflect.Bool:
		return func(s string) (reflect.Value, error) {
			t, err := cast.ToBoolE(s)
			if err != nil {
				return reflect.Value{}, err
			}

			return reflect.ValueOf(t).Convert(kt), nil
		}, nil
	default:
		return nil, fmt.Errorf("map key type %s cannot round-trip through text", kt)
	}
}

// mapOps encodes maps as map[string]any, coercing keys to canonical
// text. Non-string keys follow the environment's coercion mode: the
// default text coercion is one-way (decode leaves the field zero, with
// a build-time warning), reject fails the plan, round_trip inverts the
// key on decode.
func (b *opBuilder) mapOps(op *FieldOp, fd *descriptor.FieldDescriptor) error {
	idx := fd.Index
	key := fd.MapKey

	bt := fd.Type
	if bt.Kind() == reflect.Pointer {
		bt = bt.Elem()
	}

	kt := bt.Key()
	stringKey := kt.Kind() == reflect.String

	var keyDec func(string) (reflect.Value, error)

	switch {
	case stringKey:
		keyDec = func(s string) (reflect.Value, error) {
			return reflect.ValueOf(s).Convert(kt), nil
		}
	case b.env.keyMode == CoerceReject:
		return fmt.Errorf("map key type %s is not string (key coercion mode reject)", kt)
	case b.env.keyMode == CoerceRoundTrip:
		var err error

		keyDec, err = roundTripKeyDecoder(kt)
		if err != nil {
			return err
		}
	default:
		b.diags.AddWarning("map_key_lossy",
			fmt.Sprintf("map key type %s is coerced to text; decode leaves the field zero", kt),
			b.ent.QualifiedName, fd.Name)
	}

	codec, err := b.elemCodec(bt.Elem(), fd.Category.Value, fd)
	if err != nil {
		return err
	}

	op.Encode = func(src reflect.Value, out map[string]any, vs *VisitedSet) error {
		v, present := derefField(src.Field(idx))
		if !present {
			return nil
		}

		if v.IsNil() {
			return nil
		}

		m := make(map[string]any, v.Len())

		it := v.MapRange()
		for it.Next() {
			var ks string
			if stringKey {
				ks = it.Key().String()
			} else {
				ks = cast.ToString(it.Key().Interface())
			}

			mv, skip, err := codec.enc(it.Value(), vs)
			if err != nil {
				return err
			}

			if skip {
				continue
			}

			m[ks] = mv
		}

		out[key] = m

		return nil
	}

	op.Decode = func(in map[string]any, dst reflect.Value) error {
		raw, ok := in[key]
		if !ok || raw == nil {
			return nil
		}

		// One-way coercion: the original key type cannot be restored.
		if keyDec == nil {
			return nil
		}

		m, ok := raw.(map[string]any)
		if !ok {
			return b.convErr(fd.Name, key, fmt.Errorf("expected map, got %T", raw))
		}

		nm := reflect.MakeMapWithSize(bt, len(m))

		for ks, rv := range m {
			kv, err := keyDec(ks)
			if err != nil {
				return b.convErr(fd.Name, key, err)
			}

			vv, err := codec.dec(rv)
			if err != nil {
				return err
			}

			nm.SetMapIndex(kv, vv)
		}

		setMaybePointer(dst.Field(idx), nm)

		return nil
	}

	return nil
}
