package graft

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/graft/internal/metrics"
	"github.com/aretw0/graft/internal/runtime"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Engine is the high-level entry point for running a compiled graph.
// It wraps the internal runtime and provides a simplified API for
// consumers.
type Engine struct {
	graph   *Graph
	rt      *runtime.Engine
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	store   ports.RunStore
	promReg prometheus.Registerer
	max     int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithStore makes the engine publish run snapshots through the store
// after every step.
func WithStore(store ports.RunStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithMetrics registers prometheus collectors on the given registerer
// and wires them into the run loop and the tool-dispatch hooks.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.promReg = reg }
}

// WithMaxSteps bounds the number of steps one run may execute.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.max = n }
}

// NewEngine initializes an engine for a compiled graph.
func NewEngine(graph *Graph, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	e := &Engine{graph: graph}
	for _, opt := range opts {
		opt(e)
	}

	rtOpts := []runtime.EngineOption{
		runtime.WithMaxSteps(e.max),
	}
	if e.logger != nil {
		rtOpts = append(rtOpts, runtime.WithLogger(e.logger))
	}
	if e.store != nil {
		rtOpts = append(rtOpts, runtime.WithStore(e.store))
	}

	hooks := e.hooks
	if e.promReg != nil {
		m := metrics.New(e.promReg)
		rtOpts = append(rtOpts, runtime.WithMetrics(m))
		hooks = instrumentHooks(hooks, m)
	}
	rtOpts = append(rtOpts, runtime.WithLifecycleHooks(hooks))

	e.rt = runtime.NewEngine(graph, rtOpts...)
	return e, nil
}

// RunOption configures one run.
type RunOption = runtime.RunOption

// Re-exported run options.
var (
	WithRunID     = runtime.WithRunID
	WithRunConfig = runtime.WithRunConfig
)

// RunIDFromContext reports the identifier of the run executing the
// current node, or "" outside a run. Collaborators invoked from node
// functions (models, tools) can use it to key per-run state.
func RunIDFromContext(ctx context.Context) string {
	return runtime.RunIDFromContext(ctx)
}

// Invoke executes the graph to completion. On failure the returned run
// still carries the state as of the last successful merge for
// diagnostics.
func (e *Engine) Invoke(ctx context.Context, initial domain.State, opts ...RunOption) (*domain.Run, error) {
	return e.rt.Invoke(ctx, initial, opts...)
}

// Stream executes the graph and returns a one-shot, forward-only channel
// of step events: one per completed step, carrying that step's post-merge
// contribution to the state. The channel closes when the run terminates.
func (e *Engine) Stream(ctx context.Context, initial domain.State, opts ...RunOption) <-chan domain.StepEvent {
	return e.rt.Stream(ctx, initial, opts...)
}

// Graph returns the compiled graph definition for introspection.
func (e *Engine) Graph() *Graph { return e.graph }

// Start is Invoke with explicit run ID and config, the calling
// convention transport adapters use.
func (e *Engine) Start(ctx context.Context, initial domain.State, runID string, cfg domain.RunConfig) (*domain.Run, error) {
	return e.Invoke(ctx, initial, runOptions(runID, cfg)...)
}

// StartStream is Stream with explicit run ID and config.
func (e *Engine) StartStream(ctx context.Context, initial domain.State, runID string, cfg domain.RunConfig) <-chan domain.StepEvent {
	return e.Stream(ctx, initial, runOptions(runID, cfg)...)
}

func runOptions(runID string, cfg domain.RunConfig) []RunOption {
	var opts []RunOption
	if runID != "" {
		opts = append(opts, WithRunID(runID))
	}
	if cfg != nil {
		opts = append(opts, WithRunConfig(cfg))
	}
	return opts
}

// instrumentHooks layers metric counting over user hooks.
func instrumentHooks(user domain.LifecycleHooks, m *metrics.Metrics) domain.LifecycleHooks {
	out := user
	prev := user.OnToolReturn
	out.OnToolReturn = func(ctx context.Context, ev *domain.ToolEvent) {
		m.ObserveToolCall(ev.ToolName, ev.IsError)
		if prev != nil {
			prev(ctx, ev)
		}
	}
	return out
}
