// Package ext implements the first-party extension namespace: property
// placeholder support for the core definition grammar.
//
// Two elements are understood. A stand-alone <property-placeholder>
// declares a placeholder source whose entries become component
// properties. A <substitute/> decoration rewrites ${key} markers in the
// enclosing component's literal property values in place, which is the
// preferred decoration style: no new instance, no interceptor re-keying.
//
// The handler itself is stateless after construction: document-declared
// defaults live on the placeholder component inside the session's graph,
// and a substitution reaches them through its source attribute. Nothing
// a document declares survives its own parse session, and one handler
// instance serves concurrent sessions safely.
package ext

import (
	"fmt"
	"net/url"
	"os"
	"regexp"

	"github.com/c360/blueprint/document"
	"github.com/c360/blueprint/metadata"
	"github.com/c360/blueprint/namespace"
)

// Namespace is the URI the handler is registered under.
const Namespace = "http://c360.io/schema/blueprint-ext/v1"

const schemaURL = "https://c360.io/schema/blueprint-ext/v1.xsd"

const (
	elemPlaceholder = "property-placeholder"
	elemSubstitute  = "substitute"
	elemDefault     = "default-property"
)

const placeholderClass = "blueprint.ext.PropertyPlaceholder"

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Handler is the ext namespace handler. Values for substitution come
// from the configured map first, then from the defaults of the session's
// placeholder component named by the substitution's source attribute,
// then from process environment variables when the element enables them.
//
// values is read-only after New; the handler carries no per-session
// state.
type Handler struct {
	values map[string]string
}

// New creates the handler with the given placeholder values.
func New(values map[string]string) *Handler {
	if values == nil {
		values = make(map[string]string)
	}
	return &Handler{values: values}
}

// SchemaLocation implements namespace.Handler.
func (h *Handler) SchemaLocation(ns string) *url.URL {
	if ns != Namespace {
		return nil
	}
	u, err := url.Parse(schemaURL)
	if err != nil {
		return nil
	}
	return u
}

// ManagedClasses implements namespace.Handler. The handler carries no
// class dependencies, so no compatibility checks are required.
func (h *Handler) ManagedClasses() []namespace.ClassRef {
	return nil
}

// Parse handles the stand-alone <property-placeholder> element. The
// resulting component records the effective placeholder entries so the
// runtime (and export tooling) can see which values were in force.
func (h *Handler) Parse(el *document.Element, ctx namespace.ParserContext) (metadata.Metadata, error) {
	if el.Name != elemPlaceholder {
		return nil, fmt.Errorf("unexpected element %q in ext namespace", el.Name)
	}

	comp := ctx.NewMetadata(metadata.KindComponent).(*metadata.Component)
	comp.SetClassName(placeholderClass)
	if id, ok := el.Attr("id"); ok && id != "" {
		comp.SetID(id)
	} else {
		comp.SetID(ctx.GenerateID())
	}

	for _, child := range el.Children {
		if child.Namespace != Namespace || child.Name != elemDefault {
			return nil, fmt.Errorf("unexpected child element %q in property-placeholder", child.Name)
		}
		name, ok := child.Attr("name")
		if !ok || name == "" {
			return nil, fmt.Errorf("default-property requires a name attribute")
		}
		// Configured values win over document defaults. The effective
		// entry is recorded on the component, keeping the handler's own
		// map untouched by document content.
		value := child.AttrDefault("value", "")
		if configured, ok := h.values[name]; ok {
			value = configured
		}
		v := ctx.NewMetadata(metadata.KindValue).(*metadata.Value)
		v.SetText(value)
		comp.SetProperty(name, v)
	}

	return comp, nil
}

// Decorate handles the <substitute/> decoration: every ${key} marker in
// the enclosing component's literal values is replaced. The optional
// source attribute names a placeholder component declared earlier in the
// same document whose entries serve as defaults. The component is
// mutated in place and returned unchanged.
func (h *Handler) Decorate(
	node *document.Element, comp *metadata.Component, ctx namespace.ParserContext,
) (*metadata.Component, error) {
	if node.Name != elemSubstitute {
		return nil, fmt.Errorf("unexpected decoration element %q in ext namespace", node.Name)
	}
	useEnv := node.AttrDefault("environment", "false") == "true"

	defaults, err := sourceDefaults(node, ctx)
	if err != nil {
		return nil, err
	}

	for _, prop := range comp.Properties() {
		v, ok := prop.Value.(*metadata.Value)
		if !ok {
			continue
		}
		text, err := h.substitute(v.Text(), defaults, useEnv)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", prop.Name, err)
		}
		v.SetText(text)
	}
	return comp, nil
}

// sourceDefaults collects the entries of the placeholder component named
// by the source attribute. Document-declared defaults travel through the
// session's graph, never through handler state.
func sourceDefaults(node *document.Element, ctx namespace.ParserContext) (map[string]string, error) {
	source, ok := node.Attr("source")
	if !ok || source == "" {
		return nil, nil
	}
	md, ok := ctx.Component(source)
	if !ok {
		return nil, fmt.Errorf("no placeholder component %q declared before this point", source)
	}
	ph, ok := md.(*metadata.Component)
	if !ok || ph.ClassName() != placeholderClass {
		return nil, fmt.Errorf("component %q is not a property placeholder", source)
	}

	defaults := make(map[string]string)
	for _, prop := range ph.Properties() {
		if v, ok := prop.Value.(*metadata.Value); ok {
			defaults[prop.Name] = v.Text()
		}
	}
	return defaults, nil
}

func (h *Handler) substitute(text string, defaults map[string]string, useEnv bool) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(text, func(marker string) string {
		key := placeholderPattern.FindStringSubmatch(marker)[1]
		if v, ok := h.values[key]; ok {
			return v
		}
		if v, ok := defaults[key]; ok {
			return v
		}
		if useEnv {
			if v, ok := os.LookupEnv(key); ok {
				return v
			}
		}
		missing = append(missing, key)
		return marker
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("no value for placeholder(s) %v", missing)
	}
	return out, nil
}

var _ namespace.Handler = (*Handler)(nil)
