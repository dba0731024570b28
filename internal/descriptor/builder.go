package descriptor

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/miladamery/map-converter/internal/diagnostic"
	"github.com/miladamery/map-converter/internal/schema"
	"github.com/miladamery/map-converter/temporal"
)

// TagName is the struct tag carrying the map key and field options.
const TagName = "mapconv"

// TemporalTagName is the struct tag carrying date/time configuration.
const TemporalTagName = "mapconvtime"

// Declaration is one entity scheduled for schema building.
type Declaration struct {
	// Type is the entity's struct type.
	Type reflect.Type
	// Artifact overrides the generated converter name.
	Artifact string
	// Immutable marks the entity as immutably constructed.
	Immutable bool
}

// Build assembles the descriptor for one declared entity. known reports
// whether a qualified name is scheduled this pass (own or overlay), so
// nested references resolve by name without caring about build order.
//
// A malformed declaration is reported as an error diagnostic and drops
// only this entity; Build then returns nil.
func Build(decl Declaration, known func(string) bool, diags *diagnostic.Diagnostics) *EntityDescriptor {
	t := decl.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	qname := schema.QualifiedName(t)

	if t.Kind() != reflect.Struct {
		diags.AddError("not_a_struct",
			fmt.Sprintf("entity type %s is %s, want struct", qname, t.Kind()), qname, "")
		return nil
	}

	artifact := decl.Artifact
	if artifact == "" {
		artifact = t.Name() + "Mapper"
	}

	d := &EntityDescriptor{
		QualifiedName: qname,
		GoType:        t,
		Artifact:      artifact,
		Immutable:     decl.Immutable,
		Source:        SourceOwn,
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		fd, err := buildField(sf, i, known)
		if err != nil {
			diags.AddError("bad_field_tag", err.Error(), qname, sf.Name)
			return nil
		}

		d.Fields = append(d.Fields, fd)
	}

	return d
}

func buildField(sf reflect.StructField, index int, known func(string) bool) (FieldDescriptor, error) {
	fd := FieldDescriptor{
		Name:   sf.Name,
		MapKey: sf.Name,
		Index:  index,
		Type:   sf.Type,
	}

	if tag, ok := sf.Tag.Lookup(TagName); ok {
		if tag == "-" {
			fd.Excluded = true
		} else if err := parseFieldTag(tag, &fd); err != nil {
			return fd, err
		}
	}

	fd.Category = schema.Classify(sf.Type, known)

	if needsTemporalConfig(fd.Category) {
		cfg, err := parseTemporalTag(sf.Tag.Get(TemporalTagName))
		if err != nil {
			return fd, err
		}

		fd.Temporal = cfg
	}

	return fd, nil
}

func needsTemporalConfig(c schema.Category) bool {
	if c.Kind == schema.KindTemporal {
		return true
	}

	if c.Kind == schema.KindCollection && c.Elem.Kind == schema.KindTemporal {
		return true
	}

	if c.Kind == schema.KindMap && c.Value.Kind == schema.KindTemporal {
		return true
	}

	return false
}

// parseFieldTag handles `mapconv:"key,opt,..."`. The first element is the
// map-key override; an empty first element keeps the field name.
func parseFieldTag(tag string, fd *FieldDescriptor) error {
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		fd.MapKey = parts[0]
	}

	for _, opt := range parts[1:] {
		switch {
		case opt == "ignorecircular":
			fd.Circular = CircularPolicy{Mode: ModeIgnoreIfCircular}
		case strings.HasPrefix(opt, "maxdepth="):
			n, err := strconv.Atoi(strings.TrimPrefix(opt, "maxdepth="))
			if err != nil || n < 1 {
				return fmt.Errorf("invalid maxdepth option %q", opt)
			}

			fd.Circular = CircularPolicy{Mode: ModeMaxDepth, MaxDepth: n}
		case opt == "":
			// trailing comma, tolerated
		default:
			return fmt.Errorf("unknown %s option %q", TagName, opt)
		}
	}

	return nil
}

// parseTemporalTag handles `mapconvtime:"strategy=...,pattern=...,tz=...,
// subsecond,strict"`. Lenient parsing is the default; strict turns it off.
func parseTemporalTag(tag string) (temporal.Config, error) {
	cfg := temporal.DefaultConfig()
	if tag == "" {
		return cfg, nil
	}

	for _, opt := range strings.Split(tag, ",") {
		switch {
		case strings.HasPrefix(opt, "strategy="):
			s, err := temporal.ParseStrategy(strings.TrimPrefix(opt, "strategy="))
			if err != nil {
				return cfg, err
			}

			cfg.Strategy = s
		case strings.HasPrefix(opt, "pattern="):
			cfg.Pattern = strings.TrimPrefix(opt, "pattern=")
		case strings.HasPrefix(opt, "tz="):
			cfg.TZ = strings.TrimPrefix(opt, "tz=")
		case opt == "subsecond":
			cfg.PreserveSubsecond = true
		case opt == "strict":
			cfg.Lenient = false
		case opt == "":
			// trailing comma, tolerated
		default:
			return cfg, fmt.Errorf("unknown %s option %q", TemporalTagName, opt)
		}
	}

	if cfg.Strategy == temporal.StrategyCustomPattern && cfg.Pattern == "" {
		return cfg, fmt.Errorf("%s: pattern strategy requires pattern=", TemporalTagName)
	}

	return cfg, nil
}
