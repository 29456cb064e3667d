// Package document defines the element tree consumed by the parse engine.
//
// The tokenizer that produces this tree is a collaborator, not part of the
// engine: any front end that can build an Element tree (the bundled XML
// loader, a test fixture, a generated document) feeds the same parser.
package document

// Location identifies a position in the source document. Line and Column
// are 1-based; a zero Location means the position is unknown.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// IsZero reports whether the location carries no position information.
func (l Location) IsZero() bool {
	return l.Line == 0 && l.Column == 0
}

// Attribute is a single name/value pair on an element. Namespace is empty
// for unprefixed attributes.
type Attribute struct {
	Namespace string
	Name      string
	Value     string
}

// Element is one node of the document tree. Children preserves document
// order; Text is the concatenated character data directly under the
// element with surrounding whitespace trimmed.
type Element struct {
	Namespace  string
	Name       string
	Attributes []Attribute
	Children   []*Element
	Text       string
	Location   Location

	parent *Element
}

// Parent returns the enclosing element, or nil for the document root.
func (e *Element) Parent() *Element {
	return e.parent
}

// Attr returns the value of the named unprefixed attribute and whether it
// is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Namespace == "" && a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrDefault returns the named attribute value or def when absent.
func (e *Element) AttrDefault(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// AppendChild adds child to the element and records the parent link used
// by the dispatcher's structural classification.
func (e *Element) AppendChild(child *Element) {
	child.parent = e
	e.Children = append(e.Children, child)
}

// QName returns the element name qualified by its namespace, in
// "{namespace}name" form, for diagnostics.
func (e *Element) QName() string {
	if e.Namespace == "" {
		return e.Name
	}
	return "{" + e.Namespace + "}" + e.Name
}
