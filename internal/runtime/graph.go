package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/graft/pkg/domain"
)

// NodeFunc is a unit of computation. It receives the current merged
// state, the node's recomputed dynamic input (nil when none is declared)
// and the run configuration, and returns zero or more Commands. A nil
// command slice means "continue via the default edge".
//
// Node functions must treat the state as read-only; all mutation flows
// through the returned Commands.
type NodeFunc func(ctx context.Context, st domain.State, input any, cfg domain.RunConfig) ([]domain.Command, error)

// InputFunc derives a node's ephemeral input from the current state.
// It is invoked with the state exactly as committed after the previous
// step's merges, never earlier, and must be pure.
type InputFunc func(st domain.State) any

// Node is a named unit in the graph.
type Node struct {
	Name  string
	Run   NodeFunc
	Input InputFunc // optional dynamic input
}

// Graph is a compiled, immutable graph definition: nodes, static default
// edges and the entry point. Build one through the graft package builder.
type Graph struct {
	schema *domain.Schema
	nodes  map[string]*Node
	edges  map[string]string
	entry  string
}

// NewGraph assembles and validates a graph definition.
func NewGraph(schema *domain.Schema, nodes []*Node, edges map[string]string, entry string) (*Graph, error) {
	if schema == nil {
		return nil, fmt.Errorf("graph requires a state schema")
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("graph requires at least one node")
	}

	byName := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		if n.Name == "" || n.Name == domain.End {
			return nil, fmt.Errorf("invalid node name %q", n.Name)
		}
		if n.Run == nil {
			return nil, fmt.Errorf("node %q has no function", n.Name)
		}
		if _, dup := byName[n.Name]; dup {
			return nil, fmt.Errorf("duplicate node name %q", n.Name)
		}
		byName[n.Name] = n
	}

	if entry == "" {
		return nil, fmt.Errorf("graph requires an entry node")
	}
	if _, ok := byName[entry]; !ok {
		return nil, fmt.Errorf("entry node %q is not defined", entry)
	}

	for from, to := range edges {
		if _, ok := byName[from]; !ok {
			return nil, fmt.Errorf("edge from unknown node %q", from)
		}
		if to != domain.End {
			if _, ok := byName[to]; !ok {
				return nil, fmt.Errorf("edge from %q to unknown node %q", from, to)
			}
		}
	}

	copied := make(map[string]string, len(edges))
	for k, v := range edges {
		copied[k] = v
	}

	return &Graph{schema: schema, nodes: byName, edges: copied, entry: entry}, nil
}

// Schema returns the graph's state schema.
func (g *Graph) Schema() *domain.Schema { return g.schema }

// Entry returns the entry node name.
func (g *Graph) Entry() string { return g.entry }

// Node returns a node by name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// DefaultEdge returns the static default edge for a node, if declared.
func (g *Graph) DefaultEdge(name string) (string, bool) {
	to, ok := g.edges[name]
	return to, ok
}
