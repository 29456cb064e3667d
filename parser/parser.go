// Package parser implements the parse engine for the component
// definition language: it walks a document tree, dispatches custom
// elements to registered namespace handlers, enforces class-space
// consistency, and folds handler results into the session's metadata
// graph.
package parser

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/c360/blueprint/config"
	"github.com/c360/blueprint/document"
	"github.com/c360/blueprint/errors"
	"github.com/c360/blueprint/metadata"
	"github.com/c360/blueprint/metric"
	"github.com/c360/blueprint/namespace"
)

// Core grammar element names.
const (
	elemRoot      = "blueprint"
	elemComponent = "component"
	elemProperty  = "property"
	elemValue     = "value"
	elemRef       = "ref"
	elemList      = "list"
)

// Parser is the extension dispatcher and parse engine. A single Parser
// may run many parse sessions, including concurrently; all per-document
// state lives in the session-scoped Context.
type Parser struct {
	registry    *namespace.Registry
	coreNS      string
	policy      string
	maxDepth    int
	environment map[string]metadata.Metadata
	logger      *slog.Logger
	metrics     *parserMetrics
}

// Option configures a Parser.
type Option func(*Parser)

// WithConfig applies engine configuration (core namespace, decoration
// policy, limits).
func WithConfig(cfg *config.Config) Option {
	return func(p *Parser) {
		if cfg == nil {
			return
		}
		if cfg.CoreNamespace != "" {
			p.coreNS = cfg.CoreNamespace
		}
		if cfg.DecorationPolicy != "" {
			p.policy = cfg.DecorationPolicy
		}
		if cfg.Limits.MaxDepth > 0 {
			p.maxDepth = cfg.Limits.MaxDepth
		}
	}
}

// WithLogger sets the structured logger; by default logging is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEnvironment supplies host-runtime handles visible through
// Context.Component, such as the owning module's handle. Without it
// (a dry parse) lookups for these entries return absent.
func WithEnvironment(env map[string]metadata.Metadata) Option {
	return func(p *Parser) {
		p.environment = env
	}
}

// New creates a parse engine backed by the given handler registry.
func New(registry *namespace.Registry, opts ...Option) (*Parser, error) {
	if registry == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("handler registry is required"),
			"Parser", "New", "registry validation")
	}
	p := &Parser{
		registry: registry,
		coreNS:   config.DefaultCoreNamespace,
		policy:   config.PolicyAbort,
		maxDepth: config.DefaultMaxDepth,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.policy != config.PolicyAbort && p.policy != config.PolicySkip {
		return nil, errors.WrapInvalid(fmt.Errorf("unknown decoration policy %q", p.policy),
			"Parser", "New", "policy validation")
	}
	return p, nil
}

// EnableMetrics registers the engine's Prometheus metrics with the
// given registry. Without it the engine runs unmetered.
func (p *Parser) EnableMetrics(registry *metric.MetricsRegistry) error {
	m, err := newParserMetrics(registry)
	if err != nil {
		return err
	}
	p.metrics = m
	return nil
}

// ParseDocument parses a whole definition document into a metadata
// graph. space is the class space of the module the document belongs
// to; nil denotes a dry parse, in which compatibility checks are
// skipped per-handler and environment handles are absent.
//
// On any failure the session is discarded and no partial graph is
// returned. The returned graph is frozen; it must be treated as an
// immutable snapshot and no handler may retain references into it.
func (p *Parser) ParseDocument(root *document.Element, space namespace.ClassSpace) (*metadata.Graph, error) {
	sessionID := uuid.NewString()
	logger := p.logger.With("session_id", sessionID)
	timer := p.metrics.startSession()

	graph, err := p.parseDocument(root, space, logger)
	if err != nil {
		p.metrics.endSession(timer, false)
		logger.Error("parse session failed", "error", err)
		return nil, err
	}

	graph.Freeze()
	p.metrics.endSession(timer, true)
	logger.Debug("parse session complete", "components", graph.Len())
	return graph, nil
}

func (p *Parser) parseDocument(
	root *document.Element, space namespace.ClassSpace, logger *slog.Logger,
) (*metadata.Graph, error) {
	if root == nil {
		return nil, errors.NewParseError(errors.KindMalformedDeclaration, nil,
			fmt.Errorf("document root is nil"))
	}
	if root.Namespace != p.coreNS || root.Name != elemRoot {
		return nil, errors.NewParseError(errors.KindMalformedDeclaration, root,
			fmt.Errorf("document root must be {%s}%s", p.coreNS, elemRoot))
	}

	ctx := newContext(p, space, logger)
	reserveDeclaredIDs(root, ctx.idgen)

	for _, child := range root.Children {
		if child.Namespace == p.coreNS {
			if child.Name != elemComponent {
				return nil, errors.NewParseError(errors.KindMalformedDeclaration, child,
					fmt.Errorf("unexpected core element %q at document root", child.Name))
			}
			if err := ctx.enter(child); err != nil {
				return nil, err
			}
			_, err := p.parseCoreComponent(child, ctx, true)
			ctx.leave()
			if err != nil {
				return nil, err
			}
			continue
		}

		// Stand-alone custom declaration: classified structurally (a
		// child of the document root) before any handler is consulted.
		if err := p.parseStandalone(child, ctx); err != nil {
			return nil, err
		}
	}

	return ctx.graph, nil
}

// reserveDeclaredIDs walks the tree once so the session generator never
// collides with an id declared anywhere in the document, including ids
// declared after the point of generation.
func reserveDeclaredIDs(el *document.Element, idgen *metadata.IDGenerator) {
	if id, ok := el.Attr("id"); ok && id != "" {
		idgen.Reserve(id)
	}
	for _, child := range el.Children {
		reserveDeclaredIDs(child, idgen)
	}
}

// parseStandalone handles a root-level custom element: resolve the
// owning handler, enforce class-space consistency, invoke Parse, and
// attach the result under its id.
func (p *Parser) parseStandalone(el *document.Element, ctx *Context) error {
	if err := ctx.enter(el); err != nil {
		return err
	}
	defer ctx.leave()

	h, err := ctx.resolveHandler(el)
	if err != nil {
		p.metrics.recordFailure(errors.KindUnresolvedNamespace)
		return err
	}
	if !namespace.Compatible(h, ctx.space) {
		p.metrics.recordFailure(errors.KindIncompatibleHandler)
		return errors.NewParseError(errors.KindIncompatibleHandler, el, nil)
	}

	md, err := invokeParse(h, el, ctx)
	p.metrics.recordInvocation(el.Namespace, "parse", err == nil)
	if err != nil {
		p.metrics.recordFailure(errors.KindHandlerInvocation)
		return errors.NewParseError(errors.KindHandlerInvocation, el, err)
	}
	if md == nil {
		p.metrics.recordFailure(errors.KindHandlerInvocation)
		return errors.NewParseError(errors.KindHandlerInvocation, el,
			fmt.Errorf("handler returned no metadata"))
	}

	id := standaloneID(md, el, ctx)
	if err := ctx.graph.Attach(id, md); err != nil {
		p.metrics.recordFailure(errors.KindDuplicateIdentifier)
		return errors.NewParseError(errors.KindDuplicateIdentifier, el, err)
	}
	return nil
}

// standaloneID picks the graph id for a stand-alone declaration: the
// handler-assigned component id wins, then the element's id attribute,
// then a generated id.
func standaloneID(md metadata.Metadata, el *document.Element, ctx *Context) string {
	if comp, ok := md.(*metadata.Component); ok && comp.ID() != "" {
		return comp.ID()
	}
	if id, ok := el.Attr("id"); ok && id != "" {
		if comp, ok := md.(*metadata.Component); ok {
			comp.SetID(id)
		}
		return id
	}
	id := ctx.GenerateID()
	if comp, ok := md.(*metadata.Component); ok {
		comp.SetID(id)
	}
	return id
}

// parseCoreComponent parses a core <component> element depth-first.
// Top-level components attach to the graph before their children are
// processed so decorations, including replacement, rebind through the
// arena slot; inline components stay detached and the caller uses the
// returned instance. Depth is counted by the caller: the document loop
// for top-level components, Context.ParseElement for inline ones.
func (p *Parser) parseCoreComponent(el *document.Element, ctx *Context, topLevel bool) (*metadata.Component, error) {
	comp := ctx.NewMetadata(metadata.KindComponent).(*metadata.Component)
	if id, ok := el.Attr("id"); ok && id != "" {
		comp.SetID(id)
	} else {
		comp.SetID(ctx.GenerateID())
	}
	comp.SetClassName(el.AttrDefault("class", ""))

	scope := el.AttrDefault("scope", metadata.ScopeSingleton)
	if scope != metadata.ScopeSingleton && scope != metadata.ScopePrototype {
		return nil, errors.NewParseError(errors.KindMalformedDeclaration, el,
			fmt.Errorf("unknown scope %q", scope))
	}
	comp.SetScope(scope)

	if topLevel {
		if err := ctx.graph.Attach(comp.ID(), comp); err != nil {
			p.metrics.recordFailure(errors.KindDuplicateIdentifier)
			return nil, errors.NewParseError(errors.KindDuplicateIdentifier, el, err)
		}
	}

	for _, child := range el.Children {
		if child.Namespace == p.coreNS {
			if child.Name != elemProperty {
				return nil, errors.NewParseError(errors.KindMalformedDeclaration, child,
					fmt.Errorf("unexpected core element %q inside component", child.Name))
			}
			if err := p.parseProperty(child, comp, ctx); err != nil {
				return nil, err
			}
			continue
		}

		// Decoration: a non-core element nested inside an existing
		// component. Decorators see the current state of the component,
		// already modified by earlier handlers.
		replacement, err := p.decorate(child, comp, ctx, topLevel)
		if err != nil {
			return nil, err
		}
		comp = replacement
	}

	return comp, nil
}

// decorate runs the decoration path for one custom child element and
// returns the component every subsequent step must operate on.
func (p *Parser) decorate(
	node *document.Element, comp *metadata.Component, ctx *Context, topLevel bool,
) (*metadata.Component, error) {
	h, err := ctx.resolveHandler(node)
	if err != nil {
		p.metrics.recordFailure(errors.KindUnresolvedNamespace)
		return nil, err
	}

	if !namespace.Compatible(h, ctx.space) {
		if p.policy == config.PolicySkip {
			// Documented policy: the single decoration is skipped, the
			// document proceeds.
			ctx.logger.Warn("skipping incompatible decoration",
				"namespace", node.Namespace, "element", node.Name, "component", comp.ID())
			p.metrics.recordSkip(node.Namespace)
			return comp, nil
		}
		p.metrics.recordFailure(errors.KindIncompatibleHandler)
		return nil, errors.NewParseError(errors.KindIncompatibleHandler, node, nil)
	}

	decorated, err := invokeDecorate(h, node, comp, ctx)
	p.metrics.recordInvocation(node.Namespace, "decorate", err == nil)
	if err != nil {
		p.metrics.recordFailure(errors.KindHandlerInvocation)
		return nil, errors.NewParseError(errors.KindHandlerInvocation, node, err)
	}
	if decorated == nil {
		p.metrics.recordFailure(errors.KindHandlerInvocation)
		return nil, errors.NewParseError(errors.KindHandlerInvocation, node,
			fmt.Errorf("decorate returned no component"))
	}

	if decorated != comp {
		// The handler substituted a new instance: rebind the graph slot
		// and carry the old instance's interceptor bindings forward so
		// they are not silently lost.
		ctx.interceptors.CarryForward(comp, decorated)
		if decorated.ID() == "" {
			decorated.SetID(comp.ID())
		}
		if topLevel {
			if err := ctx.graph.Replace(comp.ID(), decorated); err != nil {
				return nil, errors.NewParseError(errors.KindHandlerInvocation, node, err)
			}
		}
	}
	return decorated, nil
}

// parseProperty parses a core <property> element into a component
// property: a value attribute, a ref attribute, or exactly one child
// element in value position.
func (p *Parser) parseProperty(el *document.Element, comp *metadata.Component, ctx *Context) error {
	name, ok := el.Attr("name")
	if !ok || name == "" {
		return errors.NewParseError(errors.KindMalformedDeclaration, el,
			fmt.Errorf("property requires a name attribute"))
	}

	valueAttr, hasValue := el.Attr("value")
	refAttr, hasRef := el.Attr("ref")

	switch {
	case hasValue && hasRef:
		return errors.NewParseError(errors.KindMalformedDeclaration, el,
			fmt.Errorf("property %q declares both value and ref", name))
	case hasValue:
		v := ctx.NewMetadata(metadata.KindValue).(*metadata.Value)
		v.SetText(valueAttr)
		comp.SetProperty(name, v)
	case hasRef:
		r := ctx.NewMetadata(metadata.KindRef).(*metadata.Ref)
		r.SetComponentID(refAttr)
		comp.SetProperty(name, r)
	case len(el.Children) == 1:
		md, err := ctx.ParseElement(el.Children[0])
		if err != nil {
			return err
		}
		comp.SetProperty(name, md)
	default:
		return errors.NewParseError(errors.KindMalformedDeclaration, el,
			fmt.Errorf("property %q requires a value, a ref, or one child element", name))
	}
	return nil
}

// parseValueElement parses an element in value position: the core value
// kinds, an inline core component, or a custom element delegated to its
// handler's Parse.
func (p *Parser) parseValueElement(el *document.Element, ctx *Context) (metadata.Metadata, error) {
	if el.Namespace != p.coreNS {
		h, err := ctx.resolveHandler(el)
		if err != nil {
			p.metrics.recordFailure(errors.KindUnresolvedNamespace)
			return nil, err
		}
		if !namespace.Compatible(h, ctx.space) {
			p.metrics.recordFailure(errors.KindIncompatibleHandler)
			return nil, errors.NewParseError(errors.KindIncompatibleHandler, el, nil)
		}
		md, err := invokeParse(h, el, ctx)
		p.metrics.recordInvocation(el.Namespace, "parse", err == nil)
		if err != nil {
			p.metrics.recordFailure(errors.KindHandlerInvocation)
			return nil, errors.NewParseError(errors.KindHandlerInvocation, el, err)
		}
		return md, nil
	}

	switch el.Name {
	case elemValue:
		v := ctx.NewMetadata(metadata.KindValue).(*metadata.Value)
		v.SetText(el.Text)
		v.SetTypeName(el.AttrDefault("type", ""))
		return v, nil
	case elemRef:
		target, ok := el.Attr("component")
		if !ok || target == "" {
			return nil, errors.NewParseError(errors.KindMalformedDeclaration, el,
				fmt.Errorf("ref requires a component attribute"))
		}
		r := ctx.NewMetadata(metadata.KindRef).(*metadata.Ref)
		r.SetComponentID(target)
		return r, nil
	case elemList:
		coll := ctx.NewMetadata(metadata.KindCollection).(*metadata.Collection)
		for _, child := range el.Children {
			md, err := ctx.ParseElement(child)
			if err != nil {
				return nil, err
			}
			coll.Append(md)
		}
		return coll, nil
	case elemComponent:
		return p.parseCoreComponent(el, ctx, false)
	default:
		return nil, errors.NewParseError(errors.KindMalformedDeclaration, el,
			fmt.Errorf("unexpected core element %q in value position", el.Name))
	}
}

// invokeParse calls h.Parse, converting a handler panic into an error so
// a misbehaving extension aborts only the parse session, not the host.
func invokeParse(h namespace.Handler, el *document.Element, ctx *Context) (md metadata.Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			md = nil
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Parse(el, ctx)
}

// invokeDecorate calls h.Decorate with the same panic conversion.
func invokeDecorate(
	h namespace.Handler, node *document.Element, comp *metadata.Component, ctx *Context,
) (out *metadata.Component, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Decorate(node, comp, ctx)
}
