// Package namespace defines the extension contract for the definition
// language: the handler interface third parties implement to interpret
// custom elements, the class-space model backing the compatibility check,
// and the registry mapping namespace URIs to handlers.
package namespace

import (
	"net/url"

	"github.com/c360/blueprint/document"
	"github.com/c360/blueprint/interceptor"
	"github.com/c360/blueprint/metadata"
)

// ParserContext is the capability object passed to every handler
// invocation. It is implemented by the parse engine and is valid only
// for the duration of the current parse session.
type ParserContext interface {
	// NewMetadata returns a fresh mutable node of the requested kind,
	// scoped to the current graph. Handlers must create nodes through
	// this method so other handlers can rely on the mutable surface.
	NewMetadata(kind metadata.Kind) metadata.Metadata

	// GenerateID mints a graph-wide-unique component identifier.
	// Handlers must not construct ids by hand.
	GenerateID() string

	// ParseElement recursively parses an arbitrary nested element using
	// the same dispatch logic as the top-level engine, letting a handler
	// delegate sub-content it does not itself understand.
	ParseElement(el *document.Element) (metadata.Metadata, error)

	// Component looks up a top-level component declared earlier in the
	// same document, or an environment-supplied handle when a backing
	// runtime is present. Absent entries return (nil, false); a dry
	// parse never panics on missing host handles.
	Component(id string) (metadata.Metadata, bool)

	// Interceptors exposes the session's interceptor bindings. When
	// Decorate returns a new component instance, bindings keyed to the
	// old instance are carried forward by the engine.
	Interceptors() *interceptor.Registry
}

// Handler interprets document elements outside the core grammar. A
// handler is registered for one or more namespace URIs before any
// document referencing them is parsed.
type Handler interface {
	// SchemaLocation returns where the schema for the namespace can be
	// retrieved, or nil if no validation is needed for it.
	SchemaLocation(namespace string) *url.URL

	// ManagedClasses returns the class references that must be
	// consistent between the handler and the class space of the
	// document being parsed. An empty set means no compatibility
	// checks are required.
	ManagedClasses() []ClassRef

	// Parse interprets a stand-alone custom element and returns its
	// metadata. New nodes should come from ctx.NewMetadata so they stay
	// decoratable by other handlers.
	Parse(el *document.Element, ctx ParserContext) (metadata.Metadata, error)

	// Decorate augments the enclosing component with the given custom
	// node. The returned component may be the same instance (preferred,
	// in-place mutation) or a new one; a new instance replaces the
	// enclosing component for all subsequent processing, and interceptor
	// bindings against the old instance are carried forward by the
	// engine.
	Decorate(node *document.Element, component *metadata.Component, ctx ParserContext) (*metadata.Component, error)
}
