package descriptor

// Registry owns every built descriptor, keyed by qualified name.
// Entities reference each other through this registry by name; it is the
// single place a name resolves to a schema.
type Registry struct {
	byName map[string]*EntityDescriptor
	// order preserves discovery order, used as the fallback emission
	// order for entities stuck in a dependency cycle.
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*EntityDescriptor)}
}

// Add registers a built descriptor. A second registration under the same
// qualified name replaces the first; the discovery order keeps the
// original position.
func (r *Registry) Add(d *EntityDescriptor) {
	if _, ok := r.byName[d.QualifiedName]; !ok {
		r.order = append(r.order, d.QualifiedName)
	}

	r.byName[d.QualifiedName] = d
}

// Get returns the descriptor for a qualified name, or nil.
func (r *Registry) Get(qualifiedName string) *EntityDescriptor {
	return r.byName[qualifiedName]
}

// Known reports whether a qualified name has a registered schema.
func (r *Registry) Known(qualifiedName string) bool {
	_, ok := r.byName[qualifiedName]
	return ok
}

// Remove drops an entity whose schema turned out to be unusable. Its
// discovery-order slot is dropped with it.
func (r *Registry) Remove(qualifiedName string) {
	if _, ok := r.byName[qualifiedName]; !ok {
		return
	}

	delete(r.byName, qualifiedName)

	for i, name := range r.order {
		if name == qualifiedName {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Names returns the qualified names in discovery order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	return len(r.byName)
}
