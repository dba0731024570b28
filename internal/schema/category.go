package schema

import (
	"github.com/miladamery/map-converter/temporal"
)

// CategoryKind is the closed set of conversion categories.
type CategoryKind int

const (
	_ CategoryKind = iota // zero is the invalid kind

	KindPrimitive
	KindEnum
	KindTemporal
	KindNestedEntity
	KindCollection
	KindMap
	KindOpaque

	// KindTotal is the number of kinds defined.
	KindTotal = int(iota) - 1
)

// String returns a human-readable category name.
func (k CategoryKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindTemporal:
		return "temporal"
	case KindNestedEntity:
		return "nested_entity"
	case KindCollection:
		return "collection"
	case KindMap:
		return "map"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Category tags a declared type with its conversion algorithm. Only the
// fields relevant to Kind are populated; consumers switch on Kind and
// must treat an unhandled kind as a bug.
type Category struct {
	Kind CategoryKind

	// Nullable is set when the declared type is a pointer; the pointee
	// category is described by the remaining fields.
	Nullable bool

	// Temporal is the temporal family, for KindTemporal.
	Temporal temporal.Kind

	// EntityRef is the target's qualified name, for KindNestedEntity.
	// It is a name reference only; descriptor resolution is deferred.
	EntityRef string

	// Elem is the element category, for KindCollection. Restricted to
	// primitive, temporal, nested-entity and opaque.
	Elem *Category

	// Key and Value are the key/value categories, for KindMap. Restricted
	// like Elem.
	Key   *Category
	Value *Category

	// Fixed is set for fixed-size arrays (KindCollection).
	Fixed bool
}

// IsEntityBearing reports whether the category reaches a nested entity
// directly or through a collection element or map value.
func (c Category) IsEntityBearing() bool {
	switch c.Kind {
	case KindNestedEntity:
		return true
	case KindCollection:
		return c.Elem != nil && c.Elem.Kind == KindNestedEntity
	case KindMap:
		return c.Value != nil && c.Value.Kind == KindNestedEntity
	default:
		return false
	}
}

// EntityTarget returns the qualified name of the entity the category
// reaches, or empty when it reaches none.
func (c Category) EntityTarget() string {
	switch c.Kind {
	case KindNestedEntity:
		return c.EntityRef
	case KindCollection:
		if c.Elem != nil {
			return c.Elem.EntityRef
		}
	case KindMap:
		if c.Value != nil {
			return c.Value.EntityRef
		}
	}

	return ""
}
