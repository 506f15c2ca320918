package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxelbird/scenesmith/agent"
	"github.com/voxelbird/scenesmith/core"
)

// RetryPolicy decides how a stage reacts to a contract violation.
type RetryPolicy int

const (
	// RetryOnceOnViolation re-prompts the stage agent once, in the same
	// session, with a corrective instruction. A second violation aborts.
	RetryOnceOnViolation RetryPolicy = iota

	// AbortOnViolation fails the stage on the first violation.
	AbortOnViolation
)

// StageError wraps a failure with the identity of the stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Cancelled reports whether the stage failed because the run's context was
// cancelled or timed out, as opposed to a contract or model failure.
func (e *StageError) Cancelled() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}

// stage bundles everything one pipeline stage needs: the agent that runs
// it, the session it converses in, and the contract its answer must meet.
type stage struct {
	name     string
	agent    *agent.Agent
	session  core.SessionKey
	contract StageContract
}

// stageResult carries the validated output together with the raw terminal
// answer and the runs that produced it. runIDs covers every attempt, not
// just the one whose answer passed validation: tools dispatched during a
// violated attempt still produced real artifacts, and a corrective attempt
// may legitimately answer without re-invoking them.
type stageResult struct {
	value  any
	raw    string
	runIDs []string
}

// run executes one stage: prompt the agent, validate the terminal answer,
// and on violation optionally issue a single corrective turn in the same
// session before giving up. All failures come back as *StageError.
func (p *Pipeline) run(ctx context.Context, st stage, prompt string) (*stageResult, error) {
	if _, err := p.runner.Sessions().Create(st.session); err != nil {
		return nil, &StageError{Stage: st.name, Err: fmt.Errorf("create session: %w", err)}
	}

	attempts := 1
	if p.retry == RetryOnceOnViolation {
		attempts = 2
	}

	message := prompt
	var lastViolation error
	runIDs := make([]string, 0, attempts)
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := p.runner.Run(ctx, st.agent, st.session, message)
		if err != nil {
			p.metrics.ObserveStage(st.name, "error")
			return nil, &StageError{Stage: st.name, Err: err}
		}
		runIDs = append(runIDs, res.RunID)

		value, verr := st.contract.Validate(res.FinalText)
		if verr == nil {
			p.metrics.ObserveStage(st.name, "ok")
			p.logger.Info("pipeline.stage.complete",
				"stage", st.name,
				"attempt", attempt,
				"iterations", res.Iterations,
			)
			return &stageResult{value: value, raw: res.FinalText, runIDs: runIDs}, nil
		}

		lastViolation = verr
		p.logger.Warn("pipeline.stage.contract_violation",
			"stage", st.name,
			"attempt", attempt,
			"reason", verr.Error(),
		)
		message = correctivePrompt(st.contract, verr.Error())
	}

	p.metrics.ObserveStage(st.name, "violation")
	return nil, &StageError{
		Stage: st.name,
		Err:   &ContractViolationError{Stage: st.name, Reason: lastViolation.Error()},
	}
}
