package mapconverter

import (
	"fmt"
	"reflect"

	"github.com/miladamery/map-converter/internal/plan"
	"github.com/miladamery/map-converter/internal/schema"
)

// Mapper converts instances of one entity type. A Mapper is immutable
// and safe for unbounded concurrent use; each conversion borrows its
// cycle-tracking state from a pool.
type Mapper struct {
	plan *plan.Plan
}

// Name returns the converter artifact name.
func (m *Mapper) Name() string {
	return m.plan.Artifact
}

// ToMap converts an instance (a struct value or a pointer to one) into
// its map form. A nil pointer converts to a nil map.
func (m *Mapper) ToMap(v any) (map[string]any, error) {
	vs := plan.AcquireVisited()
	defer plan.ReleaseVisited(vs)

	out, _, err := m.plan.Encode(reflect.ValueOf(v), vs)

	return out, err
}

// FromMap constructs a fresh instance from a map and returns a pointer
// to it. Absent keys stay at their zero value.
func (m *Mapper) FromMap(in map[string]any) (any, error) {
	pv, err := m.plan.NewFromMap(in)
	if err != nil {
		return nil, err
	}

	return pv.Interface(), nil
}

// FromMapInto decodes a map into an existing instance through a non-nil
// pointer. For a mutable entity, fields absent from the map keep their
// current values; an immutable entity is reset to zero first.
func (m *Mapper) FromMapInto(in map[string]any, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("mapper %s: destination must be a non-nil pointer", m.plan.Artifact)
	}

	ev := rv.Elem()

	if m.plan.Immutable {
		ev.Set(reflect.Zero(ev.Type()))
	}

	return m.plan.Decode(in, ev)
}

// Result is the outcome of one Build pass: the surviving mappers plus
// the full diagnostic report. Entities dropped by an error diagnostic
// have no mapper.
type Result struct {
	// Diagnostics is the complete report of the pass.
	Diagnostics Diagnostics

	mappers map[string]*Mapper
	order   []string
}

// Names returns the surviving entities' qualified names, dependencies
// before dependents.
func (r *Result) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}

// Mapper returns the mapper for the entity of the example value's type,
// or nil when that entity has no plan.
func (r *Result) Mapper(v any) *Mapper {
	return r.mappers[schema.QualifiedName(entityType(v))]
}

// MapperByName returns the mapper for a qualified name, or nil.
func (r *Result) MapperByName(qualifiedName string) *Mapper {
	return r.mappers[qualifiedName]
}

// MapperFor returns the mapper for entity type T, or nil.
func MapperFor[T any](r *Result) *Mapper {
	var zero T
	return r.Mapper(zero)
}

// FieldSummary describes one bound field operation.
type FieldSummary struct {
	Name     string `json:"name"`
	Key      string `json:"key"`
	Category string `json:"category"`
}

// PlanSummary describes one derived plan, for reporting.
type PlanSummary struct {
	Entity    string         `json:"entity"`
	Artifact  string         `json:"artifact"`
	Package   string         `json:"package,omitempty"`
	Immutable bool           `json:"immutable,omitempty"`
	Fields    []FieldSummary `json:"fields"`
}

// Summaries returns one summary per surviving plan, in dependency
// order.
func (r *Result) Summaries() []PlanSummary {
	out := make([]PlanSummary, 0, len(r.order))

	for _, name := range r.order {
		p := r.mappers[name].plan

		s := PlanSummary{
			Entity:    p.QualifiedName,
			Artifact:  p.Artifact,
			Package:   p.Package,
			Immutable: p.Immutable,
		}

		for i := range p.Ops {
			op := &p.Ops[i]
			s.Fields = append(s.Fields, FieldSummary{
				Name:     op.Name,
				Key:      op.Key,
				Category: op.Category.String(),
			})
		}

		out = append(out, s)
	}

	return out
}
