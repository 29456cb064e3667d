package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<blueprint xmlns="urn:core" xmlns:t="urn:test">
  <component id="svc" class="example.Service">
    <property name="host" value="localhost"/>
    <t:widget size="large">inner text</t:widget>
  </component>
</blueprint>`

func TestParseXML(t *testing.T) {
	root, err := ParseXML([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "urn:core", root.Namespace)
	assert.Equal(t, "blueprint", root.Name)
	assert.Nil(t, root.Parent())
	require.Len(t, root.Children, 1)

	comp := root.Children[0]
	assert.Equal(t, "component", comp.Name)
	assert.Equal(t, "urn:core", comp.Namespace)
	assert.Same(t, root, comp.Parent())

	id, ok := comp.Attr("id")
	require.True(t, ok)
	assert.Equal(t, "svc", id)
	assert.Equal(t, "example.Service", comp.AttrDefault("class", ""))
	assert.Equal(t, "fallback", comp.AttrDefault("missing", "fallback"))

	require.Len(t, comp.Children, 2)
	prop := comp.Children[0]
	assert.Equal(t, "property", prop.Name)

	widget := comp.Children[1]
	assert.Equal(t, "urn:test", widget.Namespace)
	assert.Equal(t, "widget", widget.Name)
	assert.Equal(t, "inner text", widget.Text)
	assert.Equal(t, "{urn:test}widget", widget.QName())
}

func TestParseXMLLocations(t *testing.T) {
	root, err := ParseXML([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, 1, root.Location.Line)

	comp := root.Children[0]
	assert.Equal(t, 2, comp.Location.Line)

	widget := comp.Children[1]
	assert.Equal(t, 4, widget.Location.Line)
}

func TestParseXMLNamespaceDeclarationsFiltered(t *testing.T) {
	root, err := ParseXML([]byte(sampleDoc))
	require.NoError(t, err)

	for _, a := range root.Attributes {
		assert.NotEqual(t, "xmlns", a.Name)
		assert.NotEqual(t, "xmlns", a.Namespace)
	}
}

func TestParseXMLErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty document", ""},
		{"unclosed element", "<a><b></a>"},
		{"multiple roots", "<a/><b/>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseXML([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadXML(t *testing.T) {
	root, err := LoadXML(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	assert.Equal(t, "blueprint", root.Name)
}

func TestAppendChildSetsParent(t *testing.T) {
	parent := &Element{Name: "parent"}
	child := &Element{Name: "child"}

	parent.AppendChild(child)

	require.Len(t, parent.Children, 1)
	assert.Same(t, parent, child.Parent())
}
