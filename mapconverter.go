// Package mapconverter derives bidirectional converters between typed
// entity structs and their map[string]any form. Entities are declared by
// registering their struct types; foreign types that cannot carry struct
// tags are mapped through overlay side configuration. A single Build
// pass classifies every field, orders entities by their references and
// binds one conversion plan per entity; the resulting mappers perform no
// per-call schema inspection and are safe for concurrent use.
package mapconverter

import (
	"reflect"

	"github.com/miladamery/map-converter/internal/descriptor"
	"github.com/miladamery/map-converter/internal/diagnostic"
	"github.com/miladamery/map-converter/internal/graph"
	"github.com/miladamery/map-converter/internal/plan"
	"github.com/miladamery/map-converter/internal/schema"
)

// ConversionError is a runtime conversion failure: an unrecognized enum
// name, an unparseable temporal value or a stored value that cannot be
// cast back to its declared type.
type ConversionError = plan.ConversionError

// ConverterFunc converts one field value in a custom converter pair.
type ConverterFunc = plan.ConverterFunc

// Diagnostic and Diagnostics re-export the build report types.
type (
	Diagnostic  = diagnostic.Diagnostic
	Diagnostics = diagnostic.Diagnostics
)

// OverlayConfig and OverlayField re-export the overlay side
// configuration types.
type (
	OverlayConfig = descriptor.OverlayConfig
	OverlayField  = descriptor.OverlayField
)

// KeyCoercion selects how non-string map keys behave.
type KeyCoercion = plan.KeyCoercion

const (
	// KeyCoerceDefault coerces keys to canonical text on encode; decode
	// cannot restore the original key type.
	KeyCoerceDefault = plan.CoerceDefault
	// KeyCoerceReject fails the build for non-string key types.
	KeyCoerceReject = plan.CoerceReject
	// KeyCoerceRoundTrip inverts the key text on decode.
	KeyCoerceRoundTrip = plan.CoerceRoundTrip
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithKeyCoercion sets the map key coercion mode for the whole pass.
func WithKeyCoercion(mode KeyCoercion) Option {
	return func(c *Compiler) { c.keyMode = mode }
}

type overlayDecl struct {
	cfg descriptor.OverlayConfig
}

// Compiler collects entity declarations, overlays and custom converters
// for one Build pass. It is not safe for concurrent registration.
type Compiler struct {
	keyMode    plan.KeyCoercion
	decls      []descriptor.Declaration
	overlays   []overlayDecl
	foreign    map[string]reflect.Type
	converters map[string]plan.ConverterPair
}

// NewCompiler creates an empty Compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		foreign:    make(map[string]reflect.Type),
		converters: make(map[string]plan.ConverterPair),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func entityType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

// Register declares an entity by example value (a struct or a pointer
// to one). Field behavior is read from the struct's mapconv tags.
func (c *Compiler) Register(v any) {
	c.decls = append(c.decls, descriptor.Declaration{Type: entityType(v)})
}

// RegisterImmutable declares an entity whose instances are constructed
// in one shot on decode: absent map keys become zero values instead of
// being preserved from an existing instance.
func (c *Compiler) RegisterImmutable(v any) {
	c.decls = append(c.decls, descriptor.Declaration{Type: entityType(v), Immutable: true})
}

// RegisterNamed declares an entity with an explicit converter artifact
// name, overriding the TypeName+"Mapper" default.
func (c *Compiler) RegisterNamed(v any, artifact string) {
	c.decls = append(c.decls, descriptor.Declaration{Type: entityType(v), Artifact: artifact})
}

// RegisterForeignType makes a type addressable by qualified name, so an
// overlay configuration loaded from YAML can bind to it.
func (c *Compiler) RegisterForeignType(v any) {
	t := entityType(v)
	c.foreign[schema.QualifiedName(t)] = t
}

// RegisterOverlay queues one overlay side configuration. The target type
// must be registered via RegisterForeignType before Build.
func (c *Compiler) RegisterOverlay(cfg OverlayConfig) {
	c.overlays = append(c.overlays, overlayDecl{cfg: cfg})
}

// LoadOverlayFile reads a YAML overlay file and queues every overlay in
// it. Malformed YAML fails immediately; semantic validation happens at
// Build time.
func (c *Compiler) LoadOverlayFile(path string) error {
	cfgs, err := descriptor.LoadOverlayFile(path)
	if err != nil {
		return err
	}

	for _, cfg := range cfgs {
		c.RegisterOverlay(cfg)
	}

	return nil
}

// RegisterConverter registers a named encode/decode pair that overlay
// fields can reference by name.
func (c *Compiler) RegisterConverter(name string, encode, decode ConverterFunc) {
	c.converters[name] = plan.ConverterPair{Encode: encode, Decode: decode}
}

// Build runs the whole derivation pass: descriptors, dependency order,
// conversion plans. An invalid entity is dropped with an error
// diagnostic; the rest of the pass proceeds. The result is immutable.
func (c *Compiler) Build() *Result {
	diags := &diagnostic.Diagnostics{}

	// Every name scheduled this pass resolves as a nested entity, so
	// mutual references build regardless of registration order.
	scheduled := make(map[string]struct{}, len(c.decls)+len(c.overlays))

	for _, d := range c.decls {
		t := d.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}

		scheduled[schema.QualifiedName(t)] = struct{}{}
	}

	for _, o := range c.overlays {
		scheduled[o.cfg.Target] = struct{}{}
	}

	known := func(qname string) bool {
		_, ok := scheduled[qname]
		return ok
	}

	env := plan.NewEnv(c.keyMode)
	for name, pair := range c.converters {
		env.RegisterConverter(name, pair)
	}

	reg := descriptor.NewRegistry()

	for _, decl := range c.decls {
		if d := descriptor.Build(decl, known, diags); d != nil {
			reg.Add(d)
		}
	}

	for _, o := range c.overlays {
		target, ok := c.foreign[o.cfg.Target]
		if !ok {
			diags.AddError("overlay_target_unknown",
				"overlay target type is not registered; call RegisterForeignType first",
				o.cfg.Target, "")
			continue
		}

		if d := descriptor.BuildOverlay(o.cfg, target, known, env.HasConverter, diags); d != nil {
			reg.Add(d)
		}
	}

	order := graph.Order(reg, diags)
	plans := plan.BuildAll(reg, order, env, diags)

	r := &Result{
		Diagnostics: *diags,
		mappers:     make(map[string]*Mapper, len(plans)),
	}

	for _, p := range plans {
		r.order = append(r.order, p.QualifiedName)
		r.mappers[p.QualifiedName] = &Mapper{plan: p}
	}

	return r
}
