package runner

import (
	"context"
	"sync"
	"time"

	"github.com/voxelbird/scenesmith/agent"
	"github.com/voxelbird/scenesmith/core"
)

// dispatchRound executes one round of requested tool calls, possibly in
// parallel, and returns the results buffered in request order. Result order
// is significant: later tools in the same round may depend on earlier ones'
// side effects, so results are appended by original request index, never by
// completion order.
//
// The registry guarantees total closure, so every call yields a ToolResult;
// the only error this function returns is the context's own, when the round
// was cancelled mid-flight.
func (r *Runner) dispatchRound(
	ctx context.Context,
	ag *agent.Agent,
	runID string,
	calls []core.ToolCallRequest,
) ([]core.ToolResult, error) {
	n := len(calls)

	// The model may omit call IDs; assign them up front so transcript
	// correlation survives regardless of provider.
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = core.NewID()
		}
	}

	// Fast path: single call, execute inline.
	if n == 1 {
		res := r.dispatchSingle(ctx, ag, runID, calls[0])
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []core.ToolResult{res}, nil
	}

	maxPar := r.maxParallelTools
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]core.ToolResult, n)
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range calls {
		if ctx.Err() != nil { // pre-check cancellation
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, call core.ToolCallRequest) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			results[idx] = r.dispatchSingle(ctx, ag, runID, call)
		}(i, calls[i])
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug(
		"runner.tools.batch.complete",
		"agent", ag.Name(),
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results, nil
}

// dispatchSingle runs one tool call through the agent's registry.
func (r *Runner) dispatchSingle(ctx context.Context, ag *agent.Agent, runID string, call core.ToolCallRequest) core.ToolResult {
	toolCtx := core.NewToolContext(ctx, runID, call.ID, r.logger, r.artifacts)

	start := time.Now()
	res := ag.Registry().Dispatch(toolCtx, call)
	dur := time.Since(start)

	r.metrics.ObserveToolDispatch(call.Name, res.Failed())
	r.logger.Info(
		"runner.tool.executed",
		"agent", ag.Name(),
		"tool", call.Name,
		"duration_ms", dur.Milliseconds(),
		"error", res.Failed(),
	)
	return res
}
