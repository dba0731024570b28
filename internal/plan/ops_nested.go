package plan

import (
	"fmt"
	"reflect"

	"github.com/miladamery/map-converter/internal/descriptor"
)

// nestedOps recurses into another entity's plan, resolved by name after
// the whole pass has been built. Cycle suppression omits the field; it
// never truncates silently inside the nested map.
func (b *opBuilder) nestedOps(op *FieldOp, fd *descriptor.FieldDescriptor) {
	idx := fd.Index
	key := fd.MapKey
	policy := fd.Circular
	ref := b.env.ref(b.ent.QualifiedName, fd.Category.EntityRef)

	op.Encode = func(src reflect.Value, out map[string]any, vs *VisitedSet) error {
		fv := src.Field(idx)

		switch policy.Mode {
		case descriptor.ModeIgnoreIfCircular:
			if fv.Kind() == reflect.Pointer && !fv.IsNil() && vs.Contains(fv) {
				return nil
			}
		case descriptor.ModeMaxDepth:
			if vs.Depth() >= policy.MaxDepth {
				return nil
			}
		}

		m, skip, err := ref.plan.Encode(fv, vs)
		if err != nil {
			return err
		}

		if skip || m == nil {
			return nil
		}

		out[key] = m

		return nil
	}

	op.Decode = func(in map[string]any, dst reflect.Value) error {
		raw, ok := in[key]
		if !ok || raw == nil {
			return nil
		}

		m, ok := raw.(map[string]any)
		if !ok {
			return b.convErr(fd.Name, key, fmt.Errorf("expected nested map, got %T", raw))
		}

		pv, err := ref.plan.NewFromMap(m)
		if err != nil {
			return err
		}

		fv := dst.Field(idx)
		if fv.Kind() == reflect.Pointer {
			fv.Set(pv)
		} else {
			fv.Set(pv.Elem())
		}

		return nil
	}
}
