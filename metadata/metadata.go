// Package metadata provides the mutable intermediate representation of a
// component graph: nodes describing components, their properties, and
// references, plus the arena-owned graph that holds canonical nodes for
// one parse session.
//
// Nodes are created only through New so that every instance a namespace
// handler receives uniformly exposes the mutable surface other handlers
// expect. After the session publishes the graph via Graph.Freeze, the
// graph is an immutable snapshot and handlers must not retain references
// to its nodes.
package metadata

// Kind tags a metadata node with its variant.
type Kind int

const (
	// KindComponent describes one assembled object.
	KindComponent Kind = iota
	// KindValue is a literal value, optionally typed.
	KindValue
	// KindRef is a reference to another component by id.
	KindRef
	// KindCollection is an ordered list of metadata values.
	KindCollection
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindComponent:
		return "component"
	case KindValue:
		return "value"
	case KindRef:
		return "ref"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Metadata is the root of everything the parser can produce: a tagged
// value representing either a component, a value, a reference, or a
// collection.
type Metadata interface {
	MetadataKind() Kind
}

// Scope markers for component lifecycle.
const (
	ScopeSingleton = "singleton"
	ScopePrototype = "prototype"
)

// New returns a fresh mutable node of the requested kind, unattached to
// any graph location. This is the only supported construction path;
// handlers must not assemble nodes from struct literals.
func New(kind Kind) Metadata {
	switch kind {
	case KindComponent:
		return &Component{scope: ScopeSingleton, propIndex: make(map[string]int)}
	case KindValue:
		return &Value{}
	case KindRef:
		return &Ref{}
	case KindCollection:
		return &Collection{}
	default:
		return nil
	}
}

// Value is a literal value node. TypeName optionally names the target
// type the runtime should coerce the text into.
type Value struct {
	text     string
	typeName string
}

// MetadataKind implements Metadata.
func (v *Value) MetadataKind() Kind { return KindValue }

// Text returns the literal text.
func (v *Value) Text() string { return v.text }

// SetText sets the literal text.
func (v *Value) SetText(text string) { v.text = text }

// TypeName returns the optional target type name.
func (v *Value) TypeName() string { return v.typeName }

// SetTypeName sets the target type name.
func (v *Value) SetTypeName(name string) { v.typeName = name }

// Ref is a reference to another component in the same graph.
type Ref struct {
	componentID string
}

// MetadataKind implements Metadata.
func (r *Ref) MetadataKind() Kind { return KindRef }

// ComponentID returns the referenced component id.
func (r *Ref) ComponentID() string { return r.componentID }

// SetComponentID sets the referenced component id.
func (r *Ref) SetComponentID(id string) { r.componentID = id }

// Collection is an ordered list of metadata values.
type Collection struct {
	values []Metadata
}

// MetadataKind implements Metadata.
func (c *Collection) MetadataKind() Kind { return KindCollection }

// Values returns the collection entries in declaration order.
func (c *Collection) Values() []Metadata {
	out := make([]Metadata, len(c.values))
	copy(out, c.values)
	return out
}

// Append adds a value to the end of the collection.
func (c *Collection) Append(m Metadata) { c.values = append(c.values, m) }

// Len returns the number of entries.
func (c *Collection) Len() int { return len(c.values) }

// Property is one named property declaration on a component.
type Property struct {
	Name  string
	Value Metadata
}

// Component is a named, identified node describing one assembled object:
// an identifier unique within the graph, a scope marker, and a mapping
// from property name to the metadata populating that property.
//
// Property writes are last-write-wins per key but preserve the position
// of the first declaration, since the surrounding language treats
// declaration order as meaningful (constructor-argument positions).
type Component struct {
	id        string
	className string
	scope     string
	props     []Property
	propIndex map[string]int
}

// MetadataKind implements Metadata.
func (c *Component) MetadataKind() Kind { return KindComponent }

// ID returns the component identifier.
func (c *Component) ID() string { return c.id }

// SetID sets the component identifier. Identifiers must come from the
// document or from the session id generator, never from ad-hoc strings,
// to preserve graph-wide uniqueness.
func (c *Component) SetID(id string) { c.id = id }

// ClassName returns the symbolic class name the runtime instantiates.
func (c *Component) ClassName() string { return c.className }

// SetClassName sets the symbolic class name.
func (c *Component) SetClassName(name string) { c.className = name }

// Scope returns the lifecycle scope marker.
func (c *Component) Scope() string { return c.scope }

// SetScope sets the lifecycle scope marker.
func (c *Component) SetScope(scope string) { c.scope = scope }

// SetProperty sets the property value for name. Setting an existing key
// replaces its value in place, keeping the original declaration position.
func (c *Component) SetProperty(name string, value Metadata) {
	if idx, ok := c.propIndex[name]; ok {
		c.props[idx].Value = value
		return
	}
	if c.propIndex == nil {
		c.propIndex = make(map[string]int)
	}
	c.propIndex[name] = len(c.props)
	c.props = append(c.props, Property{Name: name, Value: value})
}

// Property returns the value for name and whether it is declared.
func (c *Component) Property(name string) (Metadata, bool) {
	idx, ok := c.propIndex[name]
	if !ok {
		return nil, false
	}
	return c.props[idx].Value, true
}

// Properties returns the property declarations in insertion order.
func (c *Component) Properties() []Property {
	out := make([]Property, len(c.props))
	copy(out, c.props)
	return out
}
