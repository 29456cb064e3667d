package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/c360/blueprint/errors"
)

// Graph is the arena-owned store of top-level metadata for one parse
// session. Nodes are addressed by stable id; replacing a node (the
// decorate-returns-new-instance case) is an O(1) rebind of the arena
// slot, so every later lookup observes the new instance without any
// pointer chasing across the graph.
//
// A Graph is exclusively owned by its parse session and is not safe for
// concurrent mutation. Once published via Freeze it must be treated as
// an immutable snapshot.
type Graph struct {
	arena  []graphSlot
	index  map[string]int
	frozen bool
}

type graphSlot struct {
	id   string
	node Metadata
}

// NewGraph creates an empty metadata graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Attach binds a top-level node under id. Attaching an id that is
// already bound is a declaration conflict.
func (g *Graph) Attach(id string, node Metadata) error {
	if g.frozen {
		return errors.Wrap(errors.ErrGraphFrozen, "Graph", "Attach", "mutation check")
	}
	if id == "" || node == nil {
		return errors.Wrap(fmt.Errorf("id and node are required"), "Graph", "Attach", "input validation")
	}
	if _, exists := g.index[id]; exists {
		return errors.Wrap(
			fmt.Errorf("id %q: %w", id, errors.ErrDuplicateIdentifier),
			"Graph", "Attach", "duplicate id check")
	}
	g.index[id] = len(g.arena)
	g.arena = append(g.arena, graphSlot{id: id, node: node})
	return nil
}

// Replace rebinds the arena slot for id to node. All subsequent lookups,
// later decorators, and final assembly operate on the new instance.
func (g *Graph) Replace(id string, node Metadata) error {
	if g.frozen {
		return errors.Wrap(errors.ErrGraphFrozen, "Graph", "Replace", "mutation check")
	}
	idx, exists := g.index[id]
	if !exists {
		return errors.Wrap(fmt.Errorf("id %q not bound", id), "Graph", "Replace", "slot lookup")
	}
	g.arena[idx].node = node
	return nil
}

// Lookup returns the node currently bound to id.
func (g *Graph) Lookup(id string) (Metadata, bool) {
	idx, exists := g.index[id]
	if !exists {
		return nil, false
	}
	return g.arena[idx].node, true
}

// Contains reports whether id is bound in the graph.
func (g *Graph) Contains(id string) bool {
	_, exists := g.index[id]
	return exists
}

// Component returns the component bound to id, or false when id is
// absent or bound to a non-component node.
func (g *Graph) Component(id string) (*Component, bool) {
	node, ok := g.Lookup(id)
	if !ok {
		return nil, false
	}
	comp, ok := node.(*Component)
	return comp, ok
}

// Nodes returns the top-level nodes in attach order.
func (g *Graph) Nodes() []Metadata {
	out := make([]Metadata, len(g.arena))
	for i, slot := range g.arena {
		out[i] = slot.node
	}
	return out
}

// Components returns the top-level component nodes in attach order.
func (g *Graph) Components() []*Component {
	out := make([]*Component, 0, len(g.arena))
	for _, slot := range g.arena {
		if comp, ok := slot.node.(*Component); ok {
			out = append(out, comp)
		}
	}
	return out
}

// Len returns the number of top-level nodes.
func (g *Graph) Len() int {
	return len(g.arena)
}

// IDs returns the bound ids in attach order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.arena))
	for i, slot := range g.arena {
		out[i] = slot.id
	}
	return out
}

// Freeze publishes the graph as the immutable snapshot handed to the
// instantiation runtime. Mutators fail after Freeze.
func (g *Graph) Freeze() {
	g.frozen = true
}

// Frozen reports whether the graph has been published.
func (g *Graph) Frozen() bool {
	return g.frozen
}

// MarshalJSON renders the graph for export tooling: an ordered array of
// node descriptions keyed by id.
func (g *Graph) MarshalJSON() ([]byte, error) {
	type slotJSON struct {
		ID   string `json:"id"`
		Node any    `json:"node"`
	}

	out := make([]slotJSON, 0, len(g.arena))
	for _, slot := range g.arena {
		out = append(out, slotJSON{ID: slot.id, Node: describe(slot.node)})
	}
	return json.Marshal(map[string]any{"components": out})
}

func describe(m Metadata) any {
	switch n := m.(type) {
	case *Value:
		out := map[string]any{"kind": "value", "text": n.Text()}
		if n.TypeName() != "" {
			out["type"] = n.TypeName()
		}
		return out
	case *Ref:
		return map[string]any{"kind": "ref", "component": n.ComponentID()}
	case *Collection:
		vals := make([]any, 0, n.Len())
		for _, v := range n.Values() {
			vals = append(vals, describe(v))
		}
		return map[string]any{"kind": "collection", "values": vals}
	case *Component:
		props := make([]any, 0, len(n.Properties()))
		for _, p := range n.Properties() {
			props = append(props, map[string]any{"name": p.Name, "value": describe(p.Value)})
		}
		return map[string]any{
			"kind": "component", "id": n.ID(), "class": n.ClassName(),
			"scope": n.Scope(), "properties": props,
		}
	default:
		return nil
	}
}
