package descriptor

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/miladamery/map-converter/internal/diagnostic"
	"github.com/miladamery/map-converter/internal/schema"
	"github.com/miladamery/map-converter/temporal"
)

// OverlayField maps one configuration entry onto a target field.
type OverlayField struct {
	// Name is the configuration-side field name.
	Name string
	// TargetField is the field on the target type; defaults to Name,
	// matched case-insensitively.
	TargetField string
	// MapKey overrides the map key; defaults to Name.
	MapKey string
	// Ignore excludes the field.
	Ignore bool
	// Converter names a registered custom converter pair.
	Converter string
}

// OverlayConfig is the side configuration for a type that does not own
// its declaration.
type OverlayConfig struct {
	// Target is the qualified name of the foreign type.
	Target string
	// Artifact overrides the generated converter name.
	Artifact string
	// Package overrides the generated package.
	Package string
	// Fields is the mapping list.
	Fields []OverlayField
}

// BuildOverlay assembles a descriptor for a foreign type from its side
// configuration. This is the only place overlay validation happens: the
// target must be a struct, every mapped field must exist on it, and every
// named converter must be registered. A field that exists but is not
// exported is flagged as a warning and skipped at conversion time;
// best-effort output is still produced.
func BuildOverlay(
	cfg OverlayConfig,
	target reflect.Type,
	known func(string) bool,
	hasConverter func(string) bool,
	diags *diagnostic.Diagnostics,
) *EntityDescriptor {
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}

	qname := schema.QualifiedName(target)

	if target.Kind() != reflect.Struct {
		diags.AddError("overlay_not_a_struct",
			fmt.Sprintf("overlay target %s is %s, want struct", qname, target.Kind()), qname, "")
		return nil
	}

	artifact := cfg.Artifact
	if artifact == "" {
		artifact = target.Name() + "Mapper"
	}

	d := &EntityDescriptor{
		QualifiedName: qname,
		GoType:        target,
		Artifact:      artifact,
		Package:       cfg.Package,
		Source:        SourceOverlay,
	}

	for _, of := range cfg.Fields {
		targetName := of.TargetField
		if targetName == "" {
			targetName = of.Name
		}

		sf, ok := findTargetField(target, targetName)
		if !ok {
			diags.AddError("overlay_field_missing",
				fmt.Sprintf("field %q not found on overlay target %s", targetName, qname),
				qname, of.Name)
			return nil
		}

		mapKey := of.MapKey
		if mapKey == "" {
			mapKey = of.Name
		}

		fd := FieldDescriptor{
			Name:      sf.Name,
			MapKey:    mapKey,
			Excluded:  of.Ignore,
			Index:     sf.Index[0],
			Type:      sf.Type,
			Converter: of.Converter,
		}

		if !sf.IsExported() {
			diags.AddWarning("overlay_field_inaccessible",
				fmt.Sprintf("field %q on %s is unexported and will be skipped", sf.Name, qname),
				qname, of.Name)

			fd.Inaccessible = true
		}

		if fd.Converter != "" && !of.Ignore {
			if hasConverter == nil || !hasConverter(fd.Converter) {
				diags.AddError("overlay_converter_unknown",
					fmt.Sprintf("converter %q is not registered", fd.Converter), qname, of.Name)
				return nil
			}
		}

		fd.Category = schema.Classify(sf.Type, known)
		if needsTemporalConfig(fd.Category) {
			fd.Temporal = temporal.DefaultConfig()
		}

		d.Fields = append(d.Fields, fd)
	}

	return d
}

// findTargetField looks the field up by exact name first, then falls back
// to a case-insensitive match.
func findTargetField(t reflect.Type, name string) (reflect.StructField, bool) {
	if sf, ok := t.FieldByName(name); ok && len(sf.Index) == 1 {
		return sf, true
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if strings.EqualFold(sf.Name, name) {
			return sf, true
		}
	}

	return reflect.StructField{}, false
}
