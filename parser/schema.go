package parser

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/c360/blueprint/errors"
)

// SchemaLocations collects the schema URLs for the given namespaces from
// their registered handlers, for a document-validation collaborator. A
// handler returning nil for a namespace means no validation is needed
// and the namespace is omitted from the result; a namespace with no
// registered handler is an error.
func (p *Parser) SchemaLocations(namespaces []string) (map[string]*url.URL, error) {
	out := make(map[string]*url.URL)
	var missing []string

	for _, ns := range namespaces {
		if ns == p.coreNS {
			continue
		}
		h, ok := p.registry.Lookup(ns)
		if !ok {
			missing = append(missing, ns)
			continue
		}
		if loc := h.SchemaLocation(ns); loc != nil {
			out[ns] = loc
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.Wrap(
			fmt.Errorf("namespaces %v: %w", missing, errors.ErrUnresolvedNamespace),
			"Parser", "SchemaLocations", "handler lookup")
	}
	return out, nil
}
