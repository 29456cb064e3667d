// Package interceptor tracks interceptor bindings against component
// metadata instances during a parse session.
//
// Bindings are keyed by instance identity. When a Decorate call returns
// a new component in place of the one it received, bindings keyed to the
// old instance must be carried forward to the new one or they are lost;
// the parse engine performs this carry-forward on replacement, and
// handlers that re-key manually use CarryForward directly.
package interceptor

import "github.com/c360/blueprint/metadata"

// Interceptor observes or augments the instantiation of one component.
// Its behavior at instantiation time is owned by the runtime; the parse
// layer only tracks which interceptors are bound to which component.
type Interceptor interface {
	// Name identifies the interceptor in diagnostics.
	Name() string
}

// Registry associates component metadata instances with interceptors.
// It is session-scoped and, like the rest of the session state, not safe
// for concurrent use.
type Registry struct {
	bindings map[*metadata.Component][]Interceptor
}

// NewRegistry creates an empty interceptor registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[*metadata.Component][]Interceptor)}
}

// Bind attaches an interceptor to a component instance.
func (r *Registry) Bind(comp *metadata.Component, i Interceptor) {
	if comp == nil || i == nil {
		return
	}
	r.bindings[comp] = append(r.bindings[comp], i)
}

// Of returns the interceptors bound to a component instance, in binding
// order.
func (r *Registry) Of(comp *metadata.Component) []Interceptor {
	bound := r.bindings[comp]
	out := make([]Interceptor, len(bound))
	copy(out, bound)
	return out
}

// CarryForward re-keys every binding held by old to the new instance,
// appending after any bindings new already holds. Bindings on old are
// dropped.
func (r *Registry) CarryForward(old, new *metadata.Component) {
	if old == nil || new == nil || old == new {
		return
	}
	if bound, ok := r.bindings[old]; ok {
		r.bindings[new] = append(r.bindings[new], bound...)
		delete(r.bindings, old)
	}
}
