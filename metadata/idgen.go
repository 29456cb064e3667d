package metadata

import "fmt"

// idPrefix matches the convention the surrounding language uses for
// generated component ids; the leading dot keeps generated ids out of
// the namespace of document-declared ids, which may not start with ".".
const idPrefix = ".component-"

// IDGenerator mints graph-wide-unique identifiers for one parse session.
// It is not safe for concurrent use; a session is single-threaded.
type IDGenerator struct {
	next int
	used map[string]struct{}
}

// NewIDGenerator creates a generator for a fresh session.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{next: 1, used: make(map[string]struct{})}
}

// Reserve records an identifier already present in the document or graph
// so Generate never collides with it.
func (g *IDGenerator) Reserve(id string) {
	g.used[id] = struct{}{}
}

// Generate returns a fresh identifier, unique against every id reserved
// or previously generated in this session.
func (g *IDGenerator) Generate() string {
	for {
		id := fmt.Sprintf("%s%d", idPrefix, g.next)
		g.next++
		if _, taken := g.used[id]; !taken {
			g.used[id] = struct{}{}
			return id
		}
	}
}
