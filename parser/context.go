package parser

import (
	"fmt"
	"log/slog"

	"github.com/c360/blueprint/document"
	"github.com/c360/blueprint/errors"
	"github.com/c360/blueprint/interceptor"
	"github.com/c360/blueprint/metadata"
	"github.com/c360/blueprint/namespace"
)

// Context is the per-session capability object handed to every handler
// invocation. It holds the growing graph of top-level components, the
// session id generator, the interceptor bindings, and a cache of the
// handlers resolved so far.
//
// A Context is process-local to one parse invocation and single
// threaded; it is destroyed when the parse completes and must never leak
// handler-visible mutable state into a subsequent parse.
type Context struct {
	parser       *Parser
	graph        *metadata.Graph
	idgen        *metadata.IDGenerator
	space        namespace.ClassSpace
	interceptors *interceptor.Registry
	handlers     map[string]namespace.Handler
	logger       *slog.Logger
	depth        int
}

func newContext(p *Parser, space namespace.ClassSpace, logger *slog.Logger) *Context {
	return &Context{
		parser:       p,
		graph:        metadata.NewGraph(),
		idgen:        metadata.NewIDGenerator(),
		space:        space,
		interceptors: interceptor.NewRegistry(),
		handlers:     make(map[string]namespace.Handler),
		logger:       logger,
	}
}

// NewMetadata returns a fresh mutable node of the requested kind,
// unattached to any graph location.
func (c *Context) NewMetadata(kind metadata.Kind) metadata.Metadata {
	return metadata.New(kind)
}

// GenerateID mints a graph-wide-unique component identifier for this
// session.
func (c *Context) GenerateID() string {
	return c.idgen.Generate()
}

// ParseElement recursively parses a nested element using the same
// dispatch logic as the top-level engine. Every recursion counts against
// the depth limit, including chains of custom elements where a handler
// delegates sub-content back to the engine.
func (c *Context) ParseElement(el *document.Element) (metadata.Metadata, error) {
	if el == nil {
		return nil, errors.NewParseError(errors.KindMalformedDeclaration, nil,
			fmt.Errorf("element is nil"))
	}
	if err := c.enter(el); err != nil {
		return nil, err
	}
	defer c.leave()
	return c.parser.parseValueElement(el, c)
}

// Component looks up a top-level node declared earlier in this document,
// falling back to environment-supplied handles when a backing runtime is
// present. In a dry parse those handles are absent and the lookup
// returns (nil, false).
func (c *Context) Component(id string) (metadata.Metadata, bool) {
	if node, ok := c.graph.Lookup(id); ok {
		return node, true
	}
	if c.parser.environment != nil {
		if node, ok := c.parser.environment[id]; ok {
			return node, true
		}
	}
	return nil, false
}

// Interceptors exposes the session's interceptor bindings.
func (c *Context) Interceptors() *interceptor.Registry {
	return c.interceptors
}

// resolveHandler returns the handler owning the element's namespace.
// The first resolution per namespace is cached for the session, so a
// registry re-registration mid-parse never swaps handlers under a
// running session.
func (c *Context) resolveHandler(el *document.Element) (namespace.Handler, error) {
	if h, ok := c.handlers[el.Namespace]; ok {
		return h, nil
	}
	h, ok := c.parser.registry.Lookup(el.Namespace)
	if !ok {
		return nil, errors.NewParseError(errors.KindUnresolvedNamespace, el,
			fmt.Errorf("namespace %q", el.Namespace))
	}
	c.handlers[el.Namespace] = h
	return h, nil
}

// enter tracks recursion depth against the configured limit.
func (c *Context) enter(el *document.Element) error {
	c.depth++
	if c.depth > c.parser.maxDepth {
		return errors.NewParseError(errors.KindMalformedDeclaration, el,
			fmt.Errorf("element nesting exceeds limit of %d", c.parser.maxDepth))
	}
	return nil
}

func (c *Context) leave() {
	c.depth--
}

var _ namespace.ParserContext = (*Context)(nil)
