package plan

import (
	"fmt"
	"reflect"

	"github.com/miladamery/map-converter/internal/schema"
)

// ConverterFunc converts one field value. Custom converters are
// registered in named encode/decode pairs and referenced from overlay
// configurations.
type ConverterFunc func(src any) (any, error)

// ConverterPair is a registered custom converter.
type ConverterPair struct {
	Encode ConverterFunc
	Decode ConverterFunc
}

// KeyCoercion selects how non-string map keys behave.
type KeyCoercion int

const (
	// CoerceDefault coerces any key to canonical text on encode; decode
	// cannot restore the original key type (documented lossy behavior).
	CoerceDefault KeyCoercion = iota
	// CoerceReject makes a non-string key type a build-time error.
	CoerceReject
	// CoerceRoundTrip structurally inverts keys on decode.
	CoerceRoundTrip
)

// String returns a human-readable coercion mode name.
func (k KeyCoercion) String() string {
	switch k {
	case CoerceDefault:
		return "default"
	case CoerceReject:
		return "reject"
	case CoerceRoundTrip:
		return "round_trip"
	default:
		return "unknown"
	}
}

// ConversionError is a runtime conversion failure that must surface to
// the caller: an unrecognized enum name, a temporal value that fails both
// strict and lenient parsing, or a stored value whose type cannot be cast
// back. Silent defaulting here would be a correctness hazard.
type ConversionError struct {
	Entity string
	Field  string
	Key    string
	Err    error
}

// Error implements error.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s.%s (key %q): %v", e.Entity, e.Field, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// EncodeFunc writes one field of src into out. Returning nil with no key
// written means the field was omitted (nil value or suppressed cycle).
type EncodeFunc func(src reflect.Value, out map[string]any, vs *VisitedSet) error

// DecodeFunc reads one field from in into the addressable struct dst.
// Absent or null map values leave the field untouched.
type DecodeFunc func(in map[string]any, dst reflect.Value) error

// FieldOp is the statically derived encode/decode pair for one field.
type FieldOp struct {
	// Name is the Go field name.
	Name string
	// Key is the map key the field travels under.
	Key string
	// Category names the algorithm the op was derived from.
	Category schema.CategoryKind
	// Encode and Decode are bound once at build time; they perform no
	// per-call type inspection beyond reading the field value.
	Encode EncodeFunc
	Decode DecodeFunc
}

// Plan is the ordered operation list derived for one entity. Plans are
// immutable after linking and safe for unbounded concurrent use.
type Plan struct {
	// QualifiedName keys the plan in its environment.
	QualifiedName string
	// Artifact is the converter name the emission stage uses.
	Artifact string
	// Package is the generated-package override, overlay entities only.
	Package string
	// Immutable entities construct in one shot on decode.
	Immutable bool
	// GoType is the entity struct type.
	GoType reflect.Type
	// Ops is the ordered field operation list.
	Ops []FieldOp
}

// planRef is a deferred-by-name link to another entity's plan, resolved
// after every plan in the pass has been built.
type planRef struct {
	owner  string
	target string
	plan   *Plan
}

// Env owns the plans and converters of one build pass. Nested-entity
// operations resolve their targets through it by qualified name.
type Env struct {
	plans      map[string]*Plan
	converters map[string]ConverterPair
	keyMode    KeyCoercion
	links      []*planRef
}

// NewEnv creates an environment with the given key coercion mode.
func NewEnv(keyMode KeyCoercion) *Env {
	return &Env{
		plans:      make(map[string]*Plan),
		converters: make(map[string]ConverterPair),
		keyMode:    keyMode,
	}
}

// RegisterConverter registers a named encode/decode converter pair.
func (e *Env) RegisterConverter(name string, pair ConverterPair) {
	e.converters[name] = pair
}

// HasConverter reports whether a converter name is registered.
func (e *Env) HasConverter(name string) bool {
	_, ok := e.converters[name]
	return ok
}

// Plan returns the built plan for a qualified name, or nil.
func (e *Env) Plan(qualifiedName string) *Plan {
	return e.plans[qualifiedName]
}

// ref creates a deferred link from owner to the named entity's plan.
func (e *Env) ref(owner, target string) *planRef {
	r := &planRef{owner: owner, target: target}
	e.links = append(e.links, r)

	return r
}
