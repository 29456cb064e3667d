package document

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// LoadXML reads an XML document from r and returns its root element.
// Element locations are recovered from token offsets so parse failures can
// point at the offending line and column.
func LoadXML(r io.Reader) (*Element, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("document.LoadXML: read failed: %w", err)
	}
	return ParseXML(data)
}

// ParseXML builds an element tree from raw XML bytes.
func ParseXML(data []byte) (*Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	lines := newLineIndex(data)

	var root *Element
	var stack []*Element

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document.ParseXML: tokenize failed: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{
				Namespace: t.Name.Space,
				Name:      t.Name.Local,
				Location:  lines.locate(offset),
			}
			for _, a := range t.Attr {
				// xmlns declarations are namespace plumbing, not data.
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				el.Attributes = append(el.Attributes, Attribute{
					Namespace: a.Name.Space,
					Name:      a.Name.Local,
					Value:     a.Value,
				})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("document.ParseXML: multiple root elements")
				}
				root = el
			} else {
				stack[len(stack)-1].AppendChild(el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("document.ParseXML: empty document")
	}
	trimText(root)
	return root, nil
}

func trimText(e *Element) {
	e.Text = strings.TrimSpace(e.Text)
	for _, c := range e.Children {
		trimText(c)
	}
}

// lineIndex maps byte offsets to line/column positions.
type lineIndex struct {
	starts []int64
}

func newLineIndex(data []byte) *lineIndex {
	idx := &lineIndex{starts: []int64{0}}
	for i, b := range data {
		if b == '\n' {
			idx.starts = append(idx.starts, int64(i)+1)
		}
	}
	return idx
}

func (li *lineIndex) locate(offset int64) Location {
	line := 0
	for line+1 < len(li.starts) && li.starts[line+1] <= offset {
		line++
	}
	return Location{
		Line:   line + 1,
		Column: int(offset-li.starts[line]) + 1,
	}
}
