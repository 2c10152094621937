// Package registry manages the tools available to a graph's
// tool-dispatch node. Tools are uniform callables keyed by name; a tool
// may return a plain value (wrapped into a default result message), a
// domain.Command (used verbatim), or an error (contained as an error
// result message).
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/graft/pkg/domain"
)

// ToolFunc is the signature every tool implements. It receives the full
// call (arguments plus the unique call identifier) and the immutable run
// configuration, keeping tools referentially transparent and testable in
// isolation.
type ToolFunc func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error)

type entry struct {
	tool   domain.Tool
	fn     ToolFunc
	schema *openapi3.Schema // compiled from tool.Parameters, nil if none
}

// Registry is a concurrency-safe mapping from tool name to callable.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds a tool. If the tool declares Parameters, the JSON Schema
// is compiled once here and every call's arguments are validated against
// it before the function runs. Re-registering a name overwrites.
func (r *Registry) Register(tool domain.Tool, fn ToolFunc) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if fn == nil {
		return fmt.Errorf("tool %q: function is required", tool.Name)
	}

	var schema *openapi3.Schema
	if len(tool.Parameters) > 0 {
		raw, err := json.Marshal(tool.Parameters)
		if err != nil {
			return fmt.Errorf("tool %q: invalid parameters schema: %w", tool.Name, err)
		}
		schema = &openapi3.Schema{}
		if err := schema.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("tool %q: invalid parameters schema: %w", tool.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = entry{tool: tool, fn: fn, schema: schema}
	return nil
}

// MustRegister is Register, panicking on error. Intended for static
// wiring at startup.
func (r *Registry) MustRegister(tool domain.Tool, fn ToolFunc) {
	if err := r.Register(tool, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the metadata for a registered tool.
func (r *Registry) Lookup(name string) (domain.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.tool, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute resolves a call and runs the tool. Errors are typed:
// *domain.ToolNotFoundError when the name is unknown, and
// *domain.ToolExecutionError for argument-schema violations and errors
// raised by the tool itself. Callers (the dispatch node) contain both.
func (r *Registry) Execute(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
	r.mu.RLock()
	e, ok := r.tools[call.Name]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.ToolNotFoundError{Name: call.Name}
	}

	if e.schema != nil {
		if err := validateArgs(e.schema, call.Args); err != nil {
			return nil, &domain.ToolExecutionError{Tool: call.Name, CallID: call.ID, Cause: err}
		}
	}

	result, err := e.fn(ctx, call, cfg)
	if err != nil {
		return nil, &domain.ToolExecutionError{Tool: call.Name, CallID: call.ID, Cause: err}
	}
	return result, nil
}

// validateArgs checks arguments against the tool's declared schema.
// Arguments are normalized through JSON first so Go integers validate
// like the wire form they represent.
func validateArgs(schema *openapi3.Schema, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("arguments are not JSON-representable: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return err
	}
	if err := schema.VisitJSON(normalized); err != nil {
		return fmt.Errorf("arguments do not match schema: %w", err)
	}
	return nil
}

// DecodeArgs decodes a call's argument map into a typed struct using
// mapstructure tags, so tool implementations can work with real types
// instead of map lookups.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}
