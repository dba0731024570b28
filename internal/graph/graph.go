// Package graph linearizes the inter-entity reference graph so every
// converter is planned after the converters it depends on. Cycles are
// legitimate (parent/child, peer links); they downgrade to a warning and
// the cycle members keep their discovery order.
package graph

import (
	"sort"
	"strings"

	"github.com/miladamery/map-converter/internal/descriptor"
	"github.com/miladamery/map-converter/internal/diagnostic"
)

// Order returns the registry's entities in dependency order: every entity
// follows the entities its fields reference, where the graph is acyclic.
//
// Kahn's algorithm over the reversed edges: a node is ready once all the
// entities it depends on are emitted. Ties break on discovery order so the
// result is deterministic. If nodes remain after the ready queue drains, a
// true structural cycle exists; a warning diagnostic is emitted and the
// remainder is appended in discovery order. No entity is ever dropped here.
func Order(reg *descriptor.Registry, diags *diagnostic.Diagnostics) []string {
	names := reg.Names()
	if len(names) == 0 {
		return nil
	}

	pos := make(map[string]int, len(names))
	for i, name := range names {
		pos[name] = i
	}

	// indeg counts unresolved dependencies; out lists dependents.
	indeg := make([]int, len(names))
	out := make([][]int, len(names))

	for i, name := range names {
		for _, dep := range reg.Get(name).Dependencies() {
			j, ok := pos[dep]
			if !ok || j == i {
				continue
			}

			indeg[i]++
			out[j] = append(out[j], i)
		}
	}

	for i := range out {
		sort.Ints(out[i])
	}

	var ready []int

	for i := range names {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(names))
	emitted := make([]bool, len(names))

	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]

		order = append(order, names[i])
		emitted[i] = true

		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				// Insert while keeping ready sorted.
				k := sort.SearchInts(ready, j)
				ready = append(ready, 0)
				copy(ready[k+1:], ready[k:])
				ready[k] = j
			}
		}
	}

	if len(order) != len(names) {
		var stuck []string

		for i, name := range names {
			if !emitted[i] {
				stuck = append(stuck, name)
			}
		}

		diags.AddWarning("dependency_cycle",
			"circular entity references detected; cycle members keep discovery order: "+
				strings.Join(stuck, ", "), "", "")

		order = append(order, stuck...)
	}

	return order
}
