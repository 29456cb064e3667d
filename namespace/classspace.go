package namespace

// ClassRef is an opaque reference to a class artifact: a symbolic name
// plus the identity of the artifact (module/archive) that provides it.
// Two refs denote the same class only when both fields match; the same
// name loaded from two independently-deployed artifacts is two different
// classes.
type ClassRef struct {
	Name     string
	Artifact string
}

// Same reports whether both refs resolve to the identical class artifact.
func (r ClassRef) Same(other ClassRef) bool {
	return r.Name == other.Name && r.Artifact == other.Artifact
}

// ClassSpace is the set of class artifacts visible to one deployed
// module. Resolve looks a class up by symbolic name; absent names return
// ok=false.
type ClassSpace interface {
	Resolve(name string) (ClassRef, bool)
}

// MapClassSpace is a ClassSpace backed by a plain map, used by tests and
// by hosts with a static class universe.
type MapClassSpace map[string]ClassRef

// Resolve implements ClassSpace.
func (m MapClassSpace) Resolve(name string) (ClassRef, bool) {
	ref, ok := m[name]
	return ref, ok
}

// Compatible checks that every class the handler depends on resolves, in
// the target class space, to the identical artifact the handler itself
// holds. A handler with no managed classes is trivially compatible; a
// nil space (dry parse) skips the check entirely.
//
// This exists because two independently-deployed modules may each define
// a class with the same name: decorating a graph with metadata built
// against the wrong one silently corrupts downstream instantiation.
func Compatible(h Handler, space ClassSpace) bool {
	if space == nil {
		return true
	}
	managed := h.ManagedClasses()
	if len(managed) == 0 {
		return true
	}
	for _, ref := range managed {
		resolved, ok := space.Resolve(ref.Name)
		if !ok || !resolved.Same(ref) {
			return false
		}
	}
	return true
}
