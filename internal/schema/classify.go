package schema

import (
	"encoding"
	"math/big"
	"reflect"

	"github.com/miladamery/map-converter/temporal"
)

// QualifiedName returns the registry key for a named type: its package
// path and name joined with a dot. Unnamed types yield their Go syntax.
func QualifiedName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.PkgPath() == "" {
		return t.String()
	}

	return t.PkgPath() + "." + t.Name()
}

var (
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

	bigIntType   = reflect.TypeOf(big.Int{})
	bigFloatType = reflect.TypeOf(big.Float{})
	bigRatType   = reflect.TypeOf(big.Rat{})
)

// Classify resolves the conversion category for a declared type.
// known reports whether a qualified name has a registered entity schema
// (own or overlay). Classification never fails; the fallback is OPAQUE.
func Classify(t reflect.Type, known func(qualifiedName string) bool) Category {
	nullable := false
	if t.Kind() == reflect.Pointer {
		if t.Elem().Kind() == reflect.Pointer {
			// Double pointers are not interpreted.
			return Category{Kind: KindOpaque, Nullable: true}
		}

		nullable = true
		t = t.Elem()
	}

	c := classifyValue(t, known)
	c.Nullable = nullable

	return c
}

func classifyValue(t reflect.Type, known func(string) bool) Category {
	switch {
	case isScalar(t):
		return Category{Kind: KindPrimitive}

	case isTemporal(t):
		k, _ := temporal.KindOf(t)
		return Category{Kind: KindTemporal, Temporal: k}

	case isEnum(t):
		return Category{Kind: KindEnum}

	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		elem := classifyElement(t.Elem(), known)
		return Category{
			Kind:  KindCollection,
			Elem:  &elem,
			Fixed: t.Kind() == reflect.Array,
		}

	case t.Kind() == reflect.Map:
		key := classifyElement(t.Key(), known)
		value := classifyElement(t.Elem(), known)

		return Category{Kind: KindMap, Key: &key, Value: &value}

	case known != nil && known(QualifiedName(t)):
		return Category{Kind: KindNestedEntity, EntityRef: QualifiedName(t)}

	default:
		return Category{Kind: KindOpaque}
	}
}

// classifyElement classifies a collection element or map key/value type.
// The result is restricted to primitive, temporal, nested-entity and
// opaque; anything else (including further nesting) degrades to opaque.
func classifyElement(t reflect.Type, known func(string) bool) Category {
	nullable := false
	if t.Kind() == reflect.Pointer && t.Elem().Kind() != reflect.Pointer {
		nullable = true
		t = t.Elem()
	}

	var c Category

	switch {
	case isScalar(t):
		c = Category{Kind: KindPrimitive}
	case isTemporal(t):
		k, _ := temporal.KindOf(t)
		c = Category{Kind: KindTemporal, Temporal: k}
	case known != nil && known(QualifiedName(t)):
		c = Category{Kind: KindNestedEntity, EntityRef: QualifiedName(t)}
	default:
		c = Category{Kind: KindOpaque}
	}

	c.Nullable = nullable

	return c
}

// isScalar reports whether t is a predeclared scalar or a well-known
// arbitrary-precision number. Named scalar types are not scalars here:
// they either carry enum semantics or fall through to opaque.
func isScalar(t reflect.Type) bool {
	if t == bigIntType || t == bigFloatType || t == bigRatType {
		return true
	}

	if t.PkgPath() != "" {
		return false
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func isTemporal(t reflect.Type) bool {
	_, ok := temporal.KindOf(t)
	return ok
}

// isEnum reports whether t follows the symbolic-name convention: a named
// non-struct type whose value marshals to text and whose pointer parses
// text back.
func isEnum(t reflect.Type) bool {
	if t.PkgPath() == "" || t.Kind() == reflect.Struct {
		return false
	}

	ptr := reflect.PointerTo(t)
	if !t.Implements(textMarshalerType) && !ptr.Implements(textMarshalerType) {
		return false
	}

	return ptr.Implements(textUnmarshalerType)
}
