// Package plan derives, per entity, the ordered encode/decode operation
// pairs that move field values between typed instances and string-keyed
// maps. Every operation is fixed when the plan is built; invocation never
// re-inspects field metadata.
package plan

import (
	"fmt"

	"github.com/miladamery/map-converter/internal/descriptor"
	"github.com/miladamery/map-converter/internal/diagnostic"
	"github.com/miladamery/map-converter/internal/schema"
)

type opBuilder struct {
	env   *Env
	ent   *descriptor.EntityDescriptor
	diags *diagnostic.Diagnostics
}

// Build derives the conversion plan for one entity and registers it in
// the environment. A failure drops only this entity (reported as an
// error diagnostic) and returns nil.
func Build(ent *descriptor.EntityDescriptor, env *Env, diags *diagnostic.Diagnostics) *Plan {
	b := &opBuilder{env: env, ent: ent, diags: diags}

	p := &Plan{
		QualifiedName: ent.QualifiedName,
		Artifact:      ent.Artifact,
		Package:       ent.Package,
		Immutable:     ent.Immutable,
		GoType:        ent.GoType,
	}

	for i := range ent.Fields {
		fd := &ent.Fields[i]
		if fd.Excluded || fd.Inaccessible {
			continue
		}

		op, err := b.fieldOp(fd)
		if err != nil {
			diags.AddError("plan_failed", err.Error(), ent.QualifiedName, fd.Name)
			return nil
		}

		p.Ops = append(p.Ops, op)
	}

	env.plans[ent.QualifiedName] = p

	return p
}

func (b *opBuilder) fieldOp(fd *descriptor.FieldDescriptor) (FieldOp, error) {
	op := FieldOp{Name: fd.Name, Key: fd.MapKey, Category: fd.Category.Kind}

	if fd.Converter != "" {
		b.converterOps(&op, fd)
		return op, nil
	}

	var err error

	switch fd.Category.Kind {
	case schema.KindPrimitive, schema.KindOpaque:
		b.directOps(&op, fd)
	case schema.KindEnum:
		b.enumOps(&op, fd)
	case schema.KindTemporal:
		b.temporalOps(&op, fd)
	case schema.KindCollection:
		err = b.collectionOps(&op, fd)
	case schema.KindMap:
		err = b.mapOps(&op, fd)
	case schema.KindNestedEntity:
		b.nestedOps(&op, fd)
	default:
		// The category set is closed; reaching here means a new kind was
		// added without a plan algorithm.
		err = fmt.Errorf("no conversion algorithm for category %v", fd.Category.Kind)
	}

	return op, err
}

// convErr wraps a cause with the declaration site.
func (b *opBuilder) convErr(field, key string, err error) error {
	return &ConversionError{Entity: b.ent.QualifiedName, Field: field, Key: key, Err: err}
}

// BuildAll derives plans for every registered entity in the given order,
// then resolves the deferred nested-entity links. A plan whose nested
// target was dropped is dropped as well, transitively; sibling plans are
// unaffected. The returned slice keeps the given order.
func BuildAll(reg *descriptor.Registry, order []string, env *Env, diags *diagnostic.Diagnostics) []*Plan {
	built := make([]*Plan, 0, len(order))

	for _, name := range order {
		ent := reg.Get(name)
		if ent == nil {
			continue
		}

		if p := Build(ent, env, diags); p != nil {
			built = append(built, p)
		}
	}

	// Resolve links; cascade drops until stable.
	for {
		removed := false

		for _, l := range env.links {
			l.plan = env.plans[l.target]
			if l.plan != nil {
				continue
			}

			if _, ok := env.plans[l.owner]; ok {
				diags.AddError("nested_target_missing",
					fmt.Sprintf("nested entity %s is unavailable", l.target), l.owner, "")
				delete(env.plans, l.owner)

				removed = true
			}
		}

		if !removed {
			break
		}
	}

	out := built[:0]

	for _, p := range built {
		if env.plans[p.QualifiedName] == p {
			out = append(out, p)
		}
	}

	return out
}
