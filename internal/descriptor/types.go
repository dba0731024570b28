package descriptor

import (
	"reflect"

	"github.com/miladamery/map-converter/internal/schema"
	"github.com/miladamery/map-converter/temporal"
)

// SourceKind records where an entity schema came from.
type SourceKind int

const (
	// SourceOwn is an entity declared by its own registered struct type.
	SourceOwn SourceKind = iota
	// SourceOverlay is a foreign type mapped via a side configuration.
	SourceOverlay
)

// String returns a human-readable source name.
func (s SourceKind) String() string {
	switch s {
	case SourceOwn:
		return "own"
	case SourceOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// CircularMode selects how a nested-entity field behaves when its target
// instance is already on the active encode path.
type CircularMode int

const (
	// ModeTrack suppresses only literal ancestor cycles via the visited set.
	ModeTrack CircularMode = iota
	// ModeIgnoreIfCircular omits the field whenever its target is in the
	// active visited set, overriding the entity-level policy.
	ModeIgnoreIfCircular
	// ModeMaxDepth omits the field once the traversal depth limit is hit.
	ModeMaxDepth
)

// String returns a human-readable mode name.
func (m CircularMode) String() string {
	switch m {
	case ModeTrack:
		return "track"
	case ModeIgnoreIfCircular:
		return "ignore_if_circular"
	case ModeMaxDepth:
		return "max_depth"
	default:
		return "unknown"
	}
}

// CircularPolicy is the per-field cycle handling configuration.
type CircularPolicy struct {
	Mode CircularMode
	// MaxDepth applies to ModeMaxDepth only.
	MaxDepth int
}

// FieldDescriptor describes one convertible field of an entity.
type FieldDescriptor struct {
	// Name is the Go field name.
	Name string
	// MapKey is the key the field is stored under; defaults to Name.
	MapKey string
	// Excluded fields never appear in the output map and decode to zero.
	Excluded bool
	// Index is the reflect field index, bound once at build time.
	Index int
	// Type is the declared Go type.
	Type reflect.Type
	// Category determines the conversion algorithm.
	Category schema.Category
	// Temporal carries the date/time configuration for temporal fields
	// and temporal collection elements.
	Temporal temporal.Config
	// Circular is the cycle policy for entity-bearing fields.
	Circular CircularPolicy
	// Converter names a registered custom converter pair (overlay only).
	Converter string
	// Inaccessible marks an overlay target field that exists but is not
	// exported; it is skipped at conversion time, best-effort.
	Inaccessible bool
}

// EntityDescriptor is the immutable per-entity schema. Built once during
// analysis and owned by the registry.
type EntityDescriptor struct {
	// QualifiedName is the registry key: package path dot type name.
	QualifiedName string
	// GoType is the entity's struct type.
	GoType reflect.Type
	// Artifact is the generated converter name.
	Artifact string
	// Package is the generated-package override, overlay only.
	Package string
	// Immutable entities are constructed in one shot; absent map keys
	// become zero values rather than being left untouched.
	Immutable bool
	// Source records own-declaration versus overlay.
	Source SourceKind
	// Fields is the ordered field list.
	Fields []FieldDescriptor
}

// Dependencies returns the qualified names of entities this descriptor's
// plan requires, in field order, deduplicated. Excluded fields contribute
// nothing.
func (d *EntityDescriptor) Dependencies() []string {
	seen := make(map[string]struct{})

	var deps []string

	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Excluded {
			continue
		}

		target := f.Category.EntityTarget()
		if target == "" || target == d.QualifiedName {
			continue
		}

		if _, ok := seen[target]; ok {
			continue
		}

		seen[target] = struct{}{}
		deps = append(deps, target)
	}

	return deps
}
