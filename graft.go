package graft

import (
	"fmt"

	"github.com/aretw0/graft/internal/runtime"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// NodeFunc is a unit of computation in the graph. See runtime.NodeFunc.
type NodeFunc = runtime.NodeFunc

// InputFunc derives a node's ephemeral input from the current state.
type InputFunc = runtime.InputFunc

// Graph is a compiled, immutable graph definition ready for execution.
type Graph = runtime.Graph

// ToolNodeOption configures a tool-dispatch node.
type ToolNodeOption = runtime.ToolNodeOption

// Re-exported dispatch-node options.
var (
	WithCallsField    = runtime.WithCallsField
	WithMessagesField = runtime.WithMessagesField
	Sequential        = runtime.Sequential
)

// Builder assembles a graph definition. Methods chain; errors accumulate
// and surface at Compile.
type Builder struct {
	schema *domain.Schema
	nodes  []*runtime.Node
	edges  map[string]string
	entry  string
	errs   []error
}

// New starts a graph definition over the given state schema.
func New(schema *domain.Schema) *Builder {
	return &Builder{
		schema: schema,
		edges:  make(map[string]string),
	}
}

// NodeOption configures a node at declaration time.
type NodeOption func(*runtime.Node)

// WithInput registers the node's dynamic-input function. It is invoked
// with the state exactly as committed after the previous step's merges:
// an update produced in step K is visible here starting at step K+1.
func WithInput(fn InputFunc) NodeOption {
	return func(n *runtime.Node) { n.Input = fn }
}

// AddNode declares a named node.
func (b *Builder) AddNode(name string, fn NodeFunc, opts ...NodeOption) *Builder {
	node := &runtime.Node{Name: name, Run: fn}
	for _, opt := range opts {
		opt(node)
	}
	b.nodes = append(b.nodes, node)
	return b
}

// AddToolNode declares a tool-dispatch node bound to this graph's schema.
func (b *Builder) AddToolNode(name string, exec ports.ToolExecutor, opts ...ToolNodeOption) *Builder {
	if b.schema == nil {
		b.errs = append(b.errs, fmt.Errorf("tool node %q requires a schema", name))
		return b
	}
	return b.AddNode(name, runtime.NewToolNode(exec, b.schema, opts...))
}

// AddEdge declares the static default edge followed when a node's
// commands carry no routing directive. One default edge per node; use
// domain.End as the target to make the node terminal by default.
func (b *Builder) AddEdge(from, to string) *Builder {
	if _, dup := b.edges[from]; dup {
		b.errs = append(b.errs, fmt.Errorf("node %q already has a default edge", from))
		return b
	}
	b.edges[from] = to
	return b
}

// SetEntry declares the node every run starts at.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// Compile validates the definition and returns the immutable graph.
func (b *Builder) Compile() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("invalid graph definition: %w", b.errs[0])
	}
	return runtime.NewGraph(b.schema, b.nodes, b.edges, b.entry)
}
