package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/graft/internal/metrics"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// ErrMaxStepsExceeded is returned when a run reaches its step budget
// without terminating.
var ErrMaxStepsExceeded = errors.New("run exceeded max steps")

// DefaultMaxSteps bounds runaway graphs. Override with WithMaxSteps.
const DefaultMaxSteps = 128

// Engine is the graph scheduler. It owns the run loop: select the next
// node, recompute its dynamic input from the post-merge state, invoke it,
// reduce its Commands into the state, and route until a terminal
// directive or no edge remains. A single run executes one node at a time;
// concurrency exists only inside the tool-dispatch barrier.
type Engine struct {
	graph    *Graph
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	metrics  *metrics.Metrics
	store    ports.RunStore
	maxSteps int
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) { e.hooks = hooks }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithStore makes the engine write run snapshots through the given store
// after every step. Store failures are logged, never fatal to the run.
func WithStore(store ports.RunStore) EngineOption {
	return func(e *Engine) { e.store = store }
}

// WithMaxSteps overrides the step budget. Zero or negative restores the
// default.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// NewEngine creates an engine for a compiled graph.
func NewEngine(graph *Graph, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:    graph,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOption configures one run.
type RunOption func(*runParams)

type runParams struct {
	runID string
	cfg   domain.RunConfig
}

// WithRunID fixes the run identifier (default: random UUID).
func WithRunID(id string) RunOption {
	return func(p *runParams) { p.runID = id }
}

// WithRunConfig passes the opaque configuration bag readable by tools.
// The engine never mutates it.
func WithRunConfig(cfg domain.RunConfig) RunOption {
	return func(p *runParams) { p.cfg = cfg }
}

// Invoke executes the graph to completion and returns the final run
// snapshot. On failure the returned run carries the state as of the last
// successful merge alongside the error.
func (e *Engine) Invoke(ctx context.Context, initial domain.State, opts ...RunOption) (*domain.Run, error) {
	return e.execute(ctx, initial, nil, opts...)
}

// Stream executes the graph on a new goroutine and returns a one-shot,
// forward-only channel of step events. The channel is closed when the
// run reaches a terminal status; the final event carries that status and,
// on failure, the error.
func (e *Engine) Stream(ctx context.Context, initial domain.State, opts ...RunOption) <-chan domain.StepEvent {
	events := make(chan domain.StepEvent, 1)
	go func() {
		defer close(events)
		emit := func(ev domain.StepEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
		if _, err := e.execute(ctx, initial, emit, opts...); err != nil {
			e.logger.Debug("streamed run ended with error", "err", err)
		}
	}()
	return events
}

func (e *Engine) execute(ctx context.Context, initial domain.State, emit func(domain.StepEvent), opts ...RunOption) (*domain.Run, error) {
	params := &runParams{}
	for _, opt := range opts {
		opt(params)
	}
	if params.runID == "" {
		params.runID = uuid.NewString()
	}

	run := domain.NewRun(params.runID)
	logger := e.logger.With("run", run.ID)

	st, err := e.graph.Schema().Init(initial)
	if err != nil {
		return e.fail(ctx, run, st, "", emit, err)
	}
	run.State = st
	run.Status = domain.StatusRunning

	ctx = withHooks(ctx, e.hooks)
	ctx = withRunID(ctx, run.ID)

	// Frontier is a FIFO of pending node names. A Goto with several
	// names enqueues them all; execution stays strictly one node at a
	// time.
	frontier := []string{e.graph.Entry()}

	for len(frontier) > 0 {
		// Cancellation boundary: between steps only. A step's merge is
		// all-or-nothing, so no partial update is ever committed.
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, run, st, "", emit, err)
		}
		if run.Steps >= e.maxSteps {
			return e.fail(ctx, run, st, "", emit, ErrMaxStepsExceeded)
		}

		name := frontier[0]
		frontier = frontier[1:]

		node, ok := e.graph.Node(name)
		if !ok {
			return e.fail(ctx, run, st, name, emit, &domain.NodeError{Node: name, Cause: errors.New("node not defined")})
		}

		if e.hooks.OnNodeEnter != nil {
			e.hooks.OnNodeEnter(ctx, name, st)
		}

		// Dynamic input is recomputed from the state exactly as it
		// stands after the previous step's merges were committed.
		var input any
		if node.Input != nil {
			input = node.Input(st)
		}

		started := time.Now()
		cmds, err := node.Run(ctx, st, input, params.cfg)
		if err != nil {
			return e.fail(ctx, run, st, name, emit, &domain.NodeError{Node: name, Cause: err})
		}

		// Merge commands in the order produced, against a scratch state:
		// a schema violation discards the whole step.
		next := st
		updates := make([]domain.State, 0, len(cmds))
		for _, cmd := range cmds {
			if len(cmd.Update) == 0 {
				continue
			}
			merged, err := e.graph.Schema().Merge(next, cmd.Update)
			if err != nil {
				return e.fail(ctx, run, st, name, emit, err)
			}
			next = merged
			updates = append(updates, cmd.Update)
		}
		st = next
		run.State = st
		run.Steps++
		run.UpdatedAt = time.Now().UTC()

		// The step's observable contribution is the coalesced update,
		// never the whole state.
		contribution, err := e.graph.Schema().Coalesce(updates...)
		if err != nil {
			return e.fail(ctx, run, st, name, emit, err)
		}

		routing := domain.Routing(cmds)
		terminal := false
		if len(routing) == 0 {
			if to, ok := e.graph.DefaultEdge(name); ok && to != domain.End {
				frontier = append(frontier, to)
			}
		} else {
			for _, to := range routing {
				if to == domain.End {
					terminal = true
					break
				}
				if _, ok := e.graph.Node(to); !ok {
					return e.fail(ctx, run, st, name, emit, &domain.NodeError{Node: name, Cause: errors.New("goto targets unknown node " + to)})
				}
				frontier = append(frontier, to)
			}
		}
		if terminal {
			frontier = frontier[:0]
		}
		if len(frontier) == 0 {
			run.Status = domain.StatusTerminated
		}

		ev := domain.StepEvent{
			RunID:     run.ID,
			Seq:       run.Steps,
			Node:      name,
			Update:    contribution,
			Status:    run.Status,
			Timestamp: run.UpdatedAt,
		}
		if e.hooks.OnNodeLeave != nil {
			e.hooks.OnNodeLeave(ctx, &ev)
		}
		if emit != nil {
			emit(ev)
		}
		if e.metrics != nil {
			e.metrics.ObserveStep(name, time.Since(started))
		}
		e.saveSnapshot(ctx, logger, run)

		logger.Debug("step completed", "node", name, "seq", run.Steps, "status", run.Status)
	}

	run.Status = domain.StatusTerminated
	if e.metrics != nil {
		e.metrics.ObserveRun(string(run.Status))
	}
	e.saveSnapshot(ctx, logger, run)
	return run.Clone(), nil
}

// fail transitions the run to Failed. The state as of the last successful
// merge stays on the run for diagnostics; nothing is silently dropped.
func (e *Engine) fail(ctx context.Context, run *domain.Run, st domain.State, node string, emit func(domain.StepEvent), cause error) (*domain.Run, error) {
	run.Status = domain.StatusFailed
	run.State = st
	run.Err = cause.Error()
	run.UpdatedAt = time.Now().UTC()

	logger := e.logger.With("run", run.ID)
	logger.Error("run failed", "node", node, "err", cause)

	ev := domain.StepEvent{
		RunID:     run.ID,
		Seq:       run.Steps,
		Node:      node,
		Status:    domain.StatusFailed,
		Err:       cause.Error(),
		Timestamp: run.UpdatedAt,
	}
	if emit != nil {
		emit(ev)
	}
	if e.metrics != nil {
		e.metrics.ObserveRun(string(domain.StatusFailed))
	}
	e.saveSnapshot(ctx, logger, run)
	return run.Clone(), cause
}

func (e *Engine) saveSnapshot(ctx context.Context, logger *slog.Logger, run *domain.Run) {
	if e.store == nil {
		return
	}
	// Snapshot writes use a detached context so a cancelled run still
	// records its final status.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.store.Save(saveCtx, run.Clone()); err != nil {
		logger.Warn("run snapshot save failed", "err", err)
	}
}
