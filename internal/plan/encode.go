package plan

import (
	"fmt"
	"reflect"
)

// Encode converts one instance to its map form. v is the entity struct
// or a pointer to it; a nil pointer encodes to a nil map. skip reports
// that the instance is already in progress on this call chain, in which
// case the caller omits the field entirely.
func (p *Plan) Encode(v reflect.Value, vs *VisitedSet) (out map[string]any, skip bool, err error) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false, nil
		}

		if !vs.Enter(v) {
			return nil, true, nil
		}
		defer vs.Exit(v)

		v = v.Elem()
	} else {
		// A bare struct value has no identity to cycle on; it still
		// occupies a traversal frame for depth-limited fields.
		vs.EnterValue()
		defer vs.ExitValue()
	}

	if v.Type() != p.GoType {
		return nil, false, fmt.Errorf("plan %s: cannot encode %s", p.QualifiedName, v.Type())
	}

	out = make(map[string]any, len(p.Ops))

	for i := range p.Ops {
		if err := p.Ops[i].Encode(v, out, vs); err != nil {
			return nil, false, err
		}
	}

	return out, false, nil
}

// Decode reads a map into the addressable struct dst. Fields absent from
// the map are left untouched; starting from a zero value therefore gives
// the immutable-construction semantics, while decoding into an existing
// value preserves unmentioned fields.
func (p *Plan) Decode(in map[string]any, dst reflect.Value) error {
	if dst.Type() != p.GoType || !dst.CanSet() {
		return fmt.Errorf("plan %s: cannot decode into %s", p.QualifiedName, dst.Type())
	}

	for i := range p.Ops {
		if err := p.Ops[i].Decode(in, dst); err != nil {
			return err
		}
	}

	return nil
}

// NewFromMap constructs a fresh instance from a map and returns a
// pointer value to it. A nil map yields the zero value.
func (p *Plan) NewFromMap(in map[string]any) (reflect.Value, error) {
	pv := reflect.New(p.GoType)
	if in == nil {
		return pv, nil
	}

	if err := p.Decode(in, pv.Elem()); err != nil {
		return reflect.Value{}, err
	}

	return pv, nil
}
