package namespace

import (
	"fmt"
	"sync"

	"github.com/c360/blueprint/errors"
)

// Registry maps namespace URIs to the currently-applicable handler.
// Registration and deregistration are rare and synchronized against
// concurrent lookups; a reader never observes a handler mid-registration.
//
// Re-registering a namespace supersedes the previous handler for
// subsequent lookups (last-registered-wins). In-flight parse sessions
// cache the handler they resolved and complete with it; a registry swap
// never invalidates a running parse.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds one or more namespace URIs to a handler. An existing
// binding for a namespace is superseded.
func (r *Registry) Register(h Handler, namespaces ...string) error {
	if h == nil {
		return errors.WrapInvalid(fmt.Errorf("handler cannot be nil"),
			"Registry", "Register", "handler validation")
	}
	if len(namespaces) == 0 {
		return errors.WrapInvalid(fmt.Errorf("at least one namespace is required"),
			"Registry", "Register", "namespace validation")
	}
	for _, ns := range namespaces {
		if ns == "" {
			return errors.WrapInvalid(fmt.Errorf("namespace cannot be empty"),
				"Registry", "Register", "namespace validation")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ns := range namespaces {
		r.handlers[ns] = h
	}
	return nil
}

// Deregister removes the binding for a namespace, typically when the
// handler's owning module is unloaded. Subsequent parses of documents
// needing the namespace fail with an unresolved-namespace error rather
// than silently skipping the extension.
func (r *Registry) Deregister(namespace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, namespace)
}

// Lookup returns the handler for a namespace. Not found is a normal,
// expected outcome for non-extensible namespaces and is distinct from a
// handler failing the compatibility check.
func (r *Registry) Lookup(namespace string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[namespace]
	return h, ok
}

// Namespaces returns the registered namespace URIs. Order is
// unspecified.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for ns := range r.handlers {
		out = append(out, ns)
	}
	return out
}
