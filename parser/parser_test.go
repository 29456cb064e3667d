package parser

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/blueprint/config"
	"github.com/c360/blueprint/document"
	"github.com/c360/blueprint/errors"
	"github.com/c360/blueprint/interceptor"
	"github.com/c360/blueprint/metadata"
	"github.com/c360/blueprint/namespace"
)

const (
	coreNS = config.DefaultCoreNamespace
	testNS = "urn:test:widgets"
)

// fakeHandler implements namespace.Handler with pluggable behavior.
type fakeHandler struct {
	managed    []namespace.ClassRef
	schema     *url.URL
	parseFn    func(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error)
	decorateFn func(node *document.Element, comp *metadata.Component, ctx namespace.ParserContext) (*metadata.Component, error)
}

func (f *fakeHandler) SchemaLocation(string) *url.URL       { return f.schema }
func (f *fakeHandler) ManagedClasses() []namespace.ClassRef { return f.managed }

func (f *fakeHandler) Parse(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
	if f.parseFn == nil {
		return nil, fmt.Errorf("parse not supported")
	}
	return f.parseFn(el, ctx)
}

func (f *fakeHandler) Decorate(
	node *document.Element, comp *metadata.Component, ctx namespace.ParserContext,
) (*metadata.Component, error) {
	if f.decorateFn == nil {
		return nil, fmt.Errorf("decorate not supported")
	}
	return f.decorateFn(node, comp, ctx)
}

// componentParser returns a parse func producing a component through the
// context factory, optionally with a fixed id.
func componentParser(id string) func(*document.Element, namespace.ParserContext) (metadata.Metadata, error) {
	return func(_ *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
		comp := ctx.NewMetadata(metadata.KindComponent).(*metadata.Component)
		comp.SetClassName("test.Widget")
		if id != "" {
			comp.SetID(id)
		}
		return comp, nil
	}
}

func mustParse(t *testing.T, doc string) *document.Element {
	t.Helper()
	root, err := document.ParseXML([]byte(doc))
	require.NoError(t, err)
	return root
}

func newTestParser(t *testing.T, reg *namespace.Registry, opts ...Option) *Parser {
	t.Helper()
	p, err := New(reg, opts...)
	require.NoError(t, err)
	return p
}

func coreDoc(body string) string {
	return fmt.Sprintf(
		`<blueprint xmlns=%q xmlns:w=%q>%s</blueprint>`, coreNS, testNS, body)
}

func TestParseCoreOnlyDocument(t *testing.T) {
	reg := namespace.NewRegistry()
	// A tattletale under an unused namespace: core-only parsing must
	// never touch the dispatcher.
	invoked := false
	require.NoError(t, reg.Register(&fakeHandler{
		parseFn: func(*document.Element, namespace.ParserContext) (metadata.Metadata, error) {
			invoked = true
			return nil, nil
		},
	}, "urn:unused"))

	p := newTestParser(t, reg)
	root := mustParse(t, coreDoc(`
		<component id="a" class="example.Service">
			<property name="host" value="localhost"/>
			<property name="db" ref="database"/>
		</component>
		<component id="database" class="example.DB" scope="prototype"/>
	`))

	graph, err := p.ParseDocument(root, nil)
	require.NoError(t, err)
	assert.False(t, invoked)
	assert.True(t, graph.Frozen())
	require.Equal(t, 2, graph.Len())

	comp, ok := graph.Component("a")
	require.True(t, ok)
	assert.Equal(t, "example.Service", comp.ClassName())
	assert.Equal(t, metadata.ScopeSingleton, comp.Scope())

	host, ok := comp.Property("host")
	require.True(t, ok)
	assert.Equal(t, "localhost", host.(*metadata.Value).Text())

	db, ok := comp.Property("db")
	require.True(t, ok)
	assert.Equal(t, "database", db.(*metadata.Ref).ComponentID())

	proto, ok := graph.Component("database")
	require.True(t, ok)
	assert.Equal(t, metadata.ScopePrototype, proto.Scope())
}

func TestParseStandaloneRoutesToHandler(t *testing.T) {
	reg := namespace.NewRegistry()
	var seen *document.Element
	h := &fakeHandler{parseFn: func(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
		seen = el
		return componentParser("")(el, ctx)
	}}
	require.NoError(t, reg.Register(h, testNS))

	p := newTestParser(t, reg)
	graph, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget id="w1"/>`)), nil)
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, "widget", seen.Name)

	// Handler left the id empty, so the element-declared id is used.
	comp, ok := graph.Component("w1")
	require.True(t, ok)
	assert.Equal(t, "w1", comp.ID())
}

func TestParseStandaloneGeneratedID(t *testing.T) {
	reg := namespace.NewRegistry()
	require.NoError(t, reg.Register(&fakeHandler{parseFn: componentParser("")}, testNS))

	p := newTestParser(t, reg)
	graph, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget/>`)), nil)
	require.NoError(t, err)

	ids := graph.IDs()
	require.Len(t, ids, 1)
	assert.True(t, strings.HasPrefix(ids[0], ".component-"))
}

func TestReRegisterLastWins(t *testing.T) {
	reg := namespace.NewRegistry()
	firstInvoked, secondInvoked := false, false

	require.NoError(t, reg.Register(&fakeHandler{
		parseFn: func(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
			firstInvoked = true
			return componentParser("x")(el, ctx)
		},
	}, testNS))
	require.NoError(t, reg.Register(&fakeHandler{
		parseFn: func(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
			secondInvoked = true
			return componentParser("x")(el, ctx)
		},
	}, testNS))

	p := newTestParser(t, reg)
	_, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget/>`)), nil)
	require.NoError(t, err)
	assert.False(t, firstInvoked)
	assert.True(t, secondInvoked)
}

func TestIncompatibleHandlerNeverInvoked(t *testing.T) {
	reg := namespace.NewRegistry()
	invoked := false
	h := &fakeHandler{
		managed: []namespace.ClassRef{{Name: "test.Widget", Artifact: "widgets-1.0"}},
		parseFn: func(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
			invoked = true
			return componentParser("")(el, ctx)
		},
	}
	require.NoError(t, reg.Register(h, testNS))

	// The document's class space loads test.Widget from a different
	// artifact than the handler was built against.
	space := namespace.MapClassSpace{
		"test.Widget": {Name: "test.Widget", Artifact: "widgets-2.0"},
	}

	p := newTestParser(t, reg)
	_, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget/>`)), space)
	require.Error(t, err)
	assert.Equal(t, errors.KindIncompatibleHandler, errors.KindOf(err))
	assert.False(t, invoked)
}

func TestUnresolvedNamespace(t *testing.T) {
	p := newTestParser(t, namespace.NewRegistry())
	_, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget/>`)), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindUnresolvedNamespace, errors.KindOf(err))

	var pe *errors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, testNS, pe.Namespace)
}

func TestDecorateInPlace(t *testing.T) {
	reg := namespace.NewRegistry()
	h := &fakeHandler{
		decorateFn: func(_ *document.Element, comp *metadata.Component, ctx namespace.ParserContext) (*metadata.Component, error) {
			v := ctx.NewMetadata(metadata.KindValue).(*metadata.Value)
			v.SetText("bar")
			comp.SetProperty("foo", v)
			return comp, nil
		},
	}
	require.NoError(t, reg.Register(h, testNS))

	p := newTestParser(t, reg)
	graph, err := p.ParseDocument(mustParse(t, coreDoc(`
		<component id="A" class="example.Service">
			<w:augment/>
		</component>
	`)), nil)
	require.NoError(t, err)

	// Exactly one component A, decorated in place, no duplicates.
	require.Equal(t, 1, graph.Len())
	comp, ok := graph.Component("A")
	require.True(t, ok)
	foo, ok := comp.Property("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", foo.(*metadata.Value).Text())
}

func TestDecorateReplacement(t *testing.T) {
	reg := namespace.NewRegistry()

	var (
		sessionInterceptors *interceptor.Registry
		oldComp             *metadata.Component
		newComp             *metadata.Component
	)
	audit := &namedInterceptor{name: "audit"}

	h := &fakeHandler{
		decorateFn: func(_ *document.Element, comp *metadata.Component, ctx namespace.ParserContext) (*metadata.Component, error) {
			sessionInterceptors = ctx.Interceptors()
			oldComp = comp
			// An interceptor bound before the replacement must survive it.
			ctx.Interceptors().Bind(comp, audit)

			replacement := ctx.NewMetadata(metadata.KindComponent).(*metadata.Component)
			replacement.SetClassName("example.Proxy")
			newComp = replacement
			return replacement, nil
		},
	}
	require.NoError(t, reg.Register(h, testNS))

	p := newTestParser(t, reg)
	graph, err := p.ParseDocument(mustParse(t, coreDoc(`
		<component id="A" class="example.Service">
			<w:proxy/>
		</component>
	`)), nil)
	require.NoError(t, err)

	// All subsequent processing operates on the new instance.
	bound, ok := graph.Component("A")
	require.True(t, ok)
	require.Same(t, newComp, bound)
	assert.NotSame(t, oldComp, bound)
	assert.Equal(t, "A", bound.ID())
	assert.Equal(t, "example.Proxy", bound.ClassName())

	// Interceptor bindings were carried forward to the new instance.
	carried := sessionInterceptors.Of(newComp)
	require.Len(t, carried, 1)
	assert.Equal(t, "audit", carried[0].Name())
	assert.Empty(t, sessionInterceptors.Of(oldComp))
}

func TestDecorationSeesEarlierDecorations(t *testing.T) {
	reg := namespace.NewRegistry()
	var observed []string
	h := &fakeHandler{
		decorateFn: func(node *document.Element, comp *metadata.Component, ctx namespace.ParserContext) (*metadata.Component, error) {
			for _, prop := range comp.Properties() {
				observed = append(observed, prop.Name)
			}
			v := ctx.NewMetadata(metadata.KindValue).(*metadata.Value)
			v.SetText("set")
			comp.SetProperty(node.AttrDefault("prop", "unnamed"), v)
			return comp, nil
		},
	}
	require.NoError(t, reg.Register(h, testNS))

	p := newTestParser(t, reg)
	_, err := p.ParseDocument(mustParse(t, coreDoc(`
		<component id="A" class="example.Service">
			<w:augment prop="first"/>
			<w:augment prop="second"/>
		</component>
	`)), nil)
	require.NoError(t, err)

	// The second decorator saw the property the first one added.
	assert.Equal(t, []string{"first"}, observed)
}

func TestDuplicateIdentifierCustom(t *testing.T) {
	reg := namespace.NewRegistry()
	require.NoError(t, reg.Register(&fakeHandler{parseFn: componentParser("x")}, testNS))

	p := newTestParser(t, reg)
	graph, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget/><w:widget/>`)), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindDuplicateIdentifier, errors.KindOf(err))
	assert.Nil(t, graph, "no partial graph on failure")
}

func TestDuplicateIdentifierCore(t *testing.T) {
	p := newTestParser(t, namespace.NewRegistry())
	graph, err := p.ParseDocument(mustParse(t, coreDoc(`
		<component id="x" class="a.A"/>
		<component id="x" class="b.B"/>
	`)), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindDuplicateIdentifier, errors.KindOf(err))
	assert.Nil(t, graph)
}

func TestDryParseSkipsCompatibilityAndEnvLookups(t *testing.T) {
	reg := namespace.NewRegistry()
	invoked := false
	h := &fakeHandler{
		managed: []namespace.ClassRef{{Name: "test.Widget", Artifact: "widgets-1.0"}},
		parseFn: func(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
			invoked = true
			// No backing runtime: host handles are absent, not a fault.
			handle, ok := ctx.Component("hostModule")
			assert.False(t, ok)
			assert.Nil(t, handle)
			return componentParser("w")(el, ctx)
		},
	}
	require.NoError(t, reg.Register(h, testNS))

	p := newTestParser(t, reg)
	_, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget/>`)), nil)
	require.NoError(t, err)
	assert.True(t, invoked)
}

func TestEnvironmentHandles(t *testing.T) {
	reg := namespace.NewRegistry()
	handle := metadata.New(metadata.KindValue).(*metadata.Value)
	handle.SetText("module-7")

	var got metadata.Metadata
	h := &fakeHandler{
		parseFn: func(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
			got, _ = ctx.Component("hostModule")
			return componentParser("w")(el, ctx)
		},
	}
	require.NoError(t, reg.Register(h, testNS))

	p := newTestParser(t, reg,
		WithEnvironment(map[string]metadata.Metadata{"hostModule": handle}))
	_, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget/>`)), nil)
	require.NoError(t, err)
	assert.Same(t, handle, got)
}

func TestHandlerErrorBecomesInvocationFailure(t *testing.T) {
	reg := namespace.NewRegistry()
	require.NoError(t, reg.Register(&fakeHandler{
		parseFn: func(*document.Element, namespace.ParserContext) (metadata.Metadata, error) {
			return nil, fmt.Errorf("widget exploded")
		},
	}, testNS))

	p := newTestParser(t, reg)
	_, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget/>`)), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindHandlerInvocation, errors.KindOf(err))

	var pe *errors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Location.IsZero())
	assert.Contains(t, err.Error(), "widget exploded")
}

func TestHandlerPanicBecomesInvocationFailure(t *testing.T) {
	reg := namespace.NewRegistry()
	require.NoError(t, reg.Register(&fakeHandler{
		parseFn: func(*document.Element, namespace.ParserContext) (metadata.Metadata, error) {
			panic("handler bug")
		},
		decorateFn: func(*document.Element, *metadata.Component, namespace.ParserContext) (*metadata.Component, error) {
			panic("handler bug")
		},
	}, testNS))

	p := newTestParser(t, reg)

	_, err := p.ParseDocument(mustParse(t, coreDoc(`<w:widget/>`)), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindHandlerInvocation, errors.KindOf(err))

	_, err = p.ParseDocument(mustParse(t, coreDoc(`
		<component id="A"><w:augment/></component>
	`)), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindHandlerInvocation, errors.KindOf(err))
}

func TestMalformedDeclarations(t *testing.T) {
	p := newTestParser(t, namespace.NewRegistry())

	tests := []struct {
		name string
		doc  string
	}{
		{"wrong root", fmt.Sprintf(`<definitions xmlns=%q/>`, coreNS)},
		{"unexpected core element at root", coreDoc(`<property name="x"/>`)},
		{"unknown scope", coreDoc(`<component id="a" scope="session"/>`)},
		{"property without name", coreDoc(`<component id="a"><property value="v"/></component>`)},
		{"property with value and ref", coreDoc(`<component id="a"><property name="p" value="v" ref="r"/></component>`)},
		{"property with nothing", coreDoc(`<component id="a"><property name="p"/></component>`)},
		{"ref without component", coreDoc(`<component id="a"><property name="p"><ref/></property></component>`)},
		{"unknown element in value position", coreDoc(`<component id="a"><property name="p"><blueprint/></property></component>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseDocument(mustParse(t, tt.doc), nil)
			require.Error(t, err)
			assert.Equal(t, errors.KindMalformedDeclaration, errors.KindOf(err))
		})
	}
}

func TestSkipPolicyForIncompatibleDecoration(t *testing.T) {
	reg := namespace.NewRegistry()
	invoked := false
	h := &fakeHandler{
		managed: []namespace.ClassRef{{Name: "test.Widget", Artifact: "widgets-1.0"}},
		decorateFn: func(_ *document.Element, comp *metadata.Component, _ namespace.ParserContext) (*metadata.Component, error) {
			invoked = true
			return comp, nil
		},
	}
	require.NoError(t, reg.Register(h, testNS))

	space := namespace.MapClassSpace{
		"test.Widget": {Name: "test.Widget", Artifact: "widgets-2.0"},
	}

	cfg := config.Default()
	cfg.DecorationPolicy = config.PolicySkip
	p := newTestParser(t, reg, WithConfig(cfg))

	// The incompatible decoration is skipped; the document still parses.
	graph, err := p.ParseDocument(mustParse(t, coreDoc(`
		<component id="A" class="example.Service">
			<w:augment/>
		</component>
	`)), space)
	require.NoError(t, err)
	assert.False(t, invoked)
	assert.True(t, graph.Contains("A"))
}

func TestAbortPolicyForIncompatibleDecoration(t *testing.T) {
	reg := namespace.NewRegistry()
	h := &fakeHandler{
		managed: []namespace.ClassRef{{Name: "test.Widget", Artifact: "widgets-1.0"}},
	}
	require.NoError(t, reg.Register(h, testNS))

	space := namespace.MapClassSpace{
		"test.Widget": {Name: "test.Widget", Artifact: "widgets-2.0"},
	}

	p := newTestParser(t, reg)
	_, err := p.ParseDocument(mustParse(t, coreDoc(`
		<component id="A"><w:augment/></component>
	`)), space)
	require.Error(t, err)
	assert.Equal(t, errors.KindIncompatibleHandler, errors.KindOf(err))
}

func TestNestedValuePositions(t *testing.T) {
	reg := namespace.NewRegistry()
	require.NoError(t, reg.Register(&fakeHandler{
		parseFn: func(_ *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
			v := ctx.NewMetadata(metadata.KindValue).(*metadata.Value)
			v.SetText("from-handler")
			return v, nil
		},
	}, testNS))

	p := newTestParser(t, reg)
	graph, err := p.ParseDocument(mustParse(t, coreDoc(`
		<component id="a" class="example.Service">
			<property name="endpoints">
				<list>
					<value type="int">8080</value>
					<ref component="db"/>
					<w:widget/>
					<component class="example.Inline">
						<property name="nested" value="yes"/>
					</component>
				</list>
			</property>
		</component>
	`)), nil)
	require.NoError(t, err)

	comp, ok := graph.Component("a")
	require.True(t, ok)
	prop, ok := comp.Property("endpoints")
	require.True(t, ok)

	coll := prop.(*metadata.Collection)
	vals := coll.Values()
	require.Len(t, vals, 4)

	assert.Equal(t, "8080", vals[0].(*metadata.Value).Text())
	assert.Equal(t, "int", vals[0].(*metadata.Value).TypeName())
	assert.Equal(t, "db", vals[1].(*metadata.Ref).ComponentID())
	assert.Equal(t, "from-handler", vals[2].(*metadata.Value).Text())

	inline := vals[3].(*metadata.Component)
	assert.Equal(t, "example.Inline", inline.ClassName())
	// Inline components get generated ids and stay off the top-level graph.
	assert.True(t, strings.HasPrefix(inline.ID(), ".component-"))
	assert.Equal(t, 1, graph.Len())
}

func TestGeneratedIDsAvoidDeclaredIDs(t *testing.T) {
	p := newTestParser(t, namespace.NewRegistry())

	// The later component explicitly claims ".component-1"; the earlier
	// anonymous component must not collide with it.
	graph, err := p.ParseDocument(mustParse(t, coreDoc(`
		<component class="a.A"/>
		<component id=".component-1" class="b.B"/>
	`)), nil)
	require.NoError(t, err)

	ids := graph.IDs()
	require.Len(t, ids, 2)
	assert.Equal(t, ".component-2", ids[0])
	assert.Equal(t, ".component-1", ids[1])
}

func TestDepthLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxDepth = 2
	p := newTestParser(t, namespace.NewRegistry(), WithConfig(cfg))

	_, err := p.ParseDocument(mustParse(t, coreDoc(`
		<component id="a">
			<property name="p">
				<list>
					<list>
						<value>deep</value>
					</list>
				</list>
			</property>
		</component>
	`)), nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindMalformedDeclaration, errors.KindOf(err))
}

func TestDepthLimitBoundsHandlerRecursion(t *testing.T) {
	reg := namespace.NewRegistry()
	require.NoError(t, reg.Register(&fakeHandler{
		parseFn: func(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
			if len(el.Children) == 1 {
				return ctx.ParseElement(el.Children[0])
			}
			return ctx.NewMetadata(metadata.KindValue), nil
		},
	}, testNS))

	cfg := config.Default()
	cfg.Limits.MaxDepth = 3
	p := newTestParser(t, reg, WithConfig(cfg))

	// A chain of custom elements where each handler invocation delegates
	// its child back to the engine must count against the limit too.
	nested := `<w:widget/>`
	for i := 0; i < 6; i++ {
		nested = `<w:widget>` + nested + `</w:widget>`
	}
	_, err := p.ParseDocument(mustParse(t, coreDoc(nested)), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting exceeds limit")
}

func TestSessionsAreIsolated(t *testing.T) {
	p := newTestParser(t, namespace.NewRegistry())
	doc := coreDoc(`<component class="a.A"/>`)

	first, err := p.ParseDocument(mustParse(t, doc), nil)
	require.NoError(t, err)
	second, err := p.ParseDocument(mustParse(t, doc), nil)
	require.NoError(t, err)

	// The id counter restarts per session: both graphs bind the same
	// generated id, proving no session state leaked between parses.
	assert.Equal(t, first.IDs(), second.IDs())
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	cfg := config.Default()
	cfg.DecorationPolicy = "sometimes"
	_, err = New(namespace.NewRegistry(), WithConfig(cfg))
	assert.Error(t, err)
}

// namedInterceptor is a trivial interceptor for replacement tests.
type namedInterceptor struct {
	name string
}

func (n *namedInterceptor) Name() string { return n.name }
