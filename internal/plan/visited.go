package plan

import (
	"reflect"
	"sync"
)

// refKey identifies an instance on the active encode path. Pointer and
// type together, so distinct entity types sharing a base address (an
// embedded first field, say) do not collide.
type refKey struct {
	ptr uintptr
	typ reflect.Type
}

// VisitedSet tracks the instances on the current encode call chain. It
// follows a strict push/pop discipline: an instance is a member only
// while its frame is active, so a diamond that reaches the same instance
// along two sibling paths encodes it fully both times. It is not a
// permanent seen-set.
type VisitedSet struct {
	members map[refKey]struct{}
	depth   int
}

// NewVisitedSet creates an empty set. Prefer AcquireVisited for
// per-conversion use.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{members: make(map[refKey]struct{})}
}

func keyOf(ptr reflect.Value) refKey {
	return refKey{ptr: ptr.Pointer(), typ: ptr.Type()}
}

// Enter pushes a pointer-identified instance. It reports false when the
// instance is already on the path; the caller then suppresses the visit
// and must not call Exit.
func (s *VisitedSet) Enter(ptr reflect.Value) bool {
	k := keyOf(ptr)
	if _, ok := s.members[k]; ok {
		return false
	}

	s.members[k] = struct{}{}
	s.depth++

	return true
}

// Exit pops a pointer-identified instance pushed by Enter.
func (s *VisitedSet) Exit(ptr reflect.Value) {
	delete(s.members, keyOf(ptr))
	s.depth--
}

// EnterValue pushes a traversal frame for an instance with no pointer
// identity. It only affects depth accounting.
func (s *VisitedSet) EnterValue() {
	s.depth++
}

// ExitValue pops a frame pushed by EnterValue.
func (s *VisitedSet) ExitValue() {
	s.depth--
}

// Contains reports whether a pointer-identified instance is on the
// active path.
func (s *VisitedSet) Contains(ptr reflect.Value) bool {
	_, ok := s.members[keyOf(ptr)]
	return ok
}

// Depth is the number of active traversal frames.
func (s *VisitedSet) Depth() int {
	return s.depth
}

// Reset empties the set for reuse.
func (s *VisitedSet) Reset() {
	clear(s.members)
	s.depth = 0
}

var visitedPool = sync.Pool{
	New: func() any { return NewVisitedSet() },
}

// AcquireVisited takes a cleared set from the pool.
func AcquireVisited() *VisitedSet {
	vs := visitedPool.Get().(*VisitedSet)
	vs.Reset()

	return vs
}

// ReleaseVisited returns a set to the pool.
func ReleaseVisited(vs *VisitedSet) {
	visitedPool.Put(vs)
}
