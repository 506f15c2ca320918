package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxelbird/scenesmith/agent"
	"github.com/voxelbird/scenesmith/artifact"
	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/logging"
	"github.com/voxelbird/scenesmith/model"
	"github.com/voxelbird/scenesmith/observability"
	"github.com/voxelbird/scenesmith/session"
)

// LoopExhaustedError reports that the iteration cap was reached without the
// model emitting a terminal answer.
type LoopExhaustedError struct {
	Agent      string // Agent whose loop was exhausted
	Iterations int    // Tool-call rounds that were dispatched
}

func (e *LoopExhaustedError) Error() string {
	return fmt.Sprintf("invocation loop for agent %s exhausted after %d tool-call rounds", e.Agent, e.Iterations)
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxIterations caps the number of tool-call rounds per invocation.
	MaxIterations int
	// MaxParallelTools limits concurrent tool dispatches within one round.
	MaxParallelTools int
	// SessionStore persists transcripts.
	SessionStore core.SessionStore
	// ArtifactStore collects artifact descriptors recorded by tools.
	ArtifactStore core.ArtifactStore
	// Logger receives structured loop events.
	Logger logging.Logger
	// Metrics receives loop instrumentation (nil disables).
	Metrics *observability.Metrics
}

// Runner drives invocation loops. It is stateless apart from its injected
// stores and safe for concurrent use, provided no two concurrent runs target
// the same session (single-writer invariant, enforced by the pipeline).
type Runner struct {
	maxIterations    int
	maxParallelTools int

	sessions  core.SessionStore
	artifacts core.ArtifactStore
	logger    logging.Logger
	metrics   *observability.Metrics
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxIterations:    8,
		MaxParallelTools: 4,
		SessionStore:     session.NewInMemoryStore(),
		ArtifactStore:    artifact.NewInMemoryStore(),
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		maxIterations:    opts.MaxIterations,
		maxParallelTools: opts.MaxParallelTools,
		sessions:         opts.SessionStore,
		artifacts:        opts.ArtifactStore,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
	}
}

// Sessions returns the session store backing this runner.
func (r *Runner) Sessions() core.SessionStore { return r.sessions }

// Artifacts returns the artifact store backing this runner.
func (r *Runner) Artifacts() core.ArtifactStore { return r.artifacts }

// Result is the outcome of one completed invocation loop.
type Result struct {
	RunID      string // Correlation ID shared by all turns of this invocation
	FinalText  string // Terminal assistant answer
	Iterations int    // Tool-call rounds dispatched before termination
}

// Run executes one invocation loop for the agent against the session
// identified by key. The session must have been created beforehand.
//
// Cancellation is observed at the two suspension points (model call, tool
// dispatch); a cancelled run returns the context error so callers can
// distinguish it from loop exhaustion.
func (r *Runner) Run(ctx context.Context, ag *agent.Agent, key core.SessionKey, message string) (*Result, error) {
	if _, err := r.sessions.Get(key); err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	runID := core.NewID()
	logger := r.logger

	logger.Debug("runner.loop.start", "agent", ag.Name(), "session", key.String(), "run_id", runID)

	if err := r.sessions.AppendTurn(key, core.NewUserTurn(runID, message)); err != nil {
		return nil, fmt.Errorf("failed to append user turn: %w", err)
	}

	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("runner.loop.cancelled", "agent", ag.Name(), "run_id", runID)
			return nil, err
		}

		resp, err := r.callModel(ctx, ag, key)
		if err != nil {
			return nil, err
		}

		assistantTurn := core.NewAssistantTurn(runID, ag.Name(), resp.Content)
		if err := r.sessions.AppendTurn(key, assistantTurn); err != nil {
			return nil, fmt.Errorf("failed to append assistant turn: %w", err)
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			r.metrics.ObserveLoop(iterations)
			logger.Info("runner.loop.final", "agent", ag.Name(), "run_id", runID, "iterations", iterations)
			return &Result{RunID: runID, FinalText: assistantTurn.Text(), Iterations: iterations}, nil
		}

		if iterations >= r.maxIterations {
			r.metrics.ObserveLoop(iterations)
			logger.Error("runner.loop.exhausted", "agent", ag.Name(), "run_id", runID, "iterations", iterations)
			return nil, &LoopExhaustedError{Agent: ag.Name(), Iterations: iterations}
		}
		iterations++

		logger.Debug("runner.loop.tool_round", "agent", ag.Name(), "run_id", runID, "round", iterations, "calls", len(calls))

		results, err := r.dispatchRound(ctx, ag, runID, calls)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			if err := r.sessions.AppendTurn(key, core.NewToolResultTurn(runID, ag.Name(), res)); err != nil {
				return nil, fmt.Errorf("failed to append tool result turn: %w", err)
			}
		}
	}
}

// callModel submits the current transcript plus tool declarations to the
// backing model. Cancellation during the call surfaces as the context error.
func (r *Runner) callModel(ctx context.Context, ag *agent.Agent, key core.SessionKey) (*model.Response, error) {
	sess, err := r.sessions.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	turns := sess.Conversation()
	contents := make([]core.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, t.Content)
	}

	req := model.Request{
		Instructions: ag.Instruction(),
		Contents:     contents,
		Tools:        ag.ToolDefinitions(),
	}

	resp, err := ag.Model().Generate(ctx, req)
	r.metrics.ObserveModelCall(ag.Name(), err != nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("model generate failed: %w", err)
	}
	return resp, nil
}
