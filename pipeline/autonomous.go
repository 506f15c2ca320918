package pipeline

import (
	"context"
	"fmt"

	"github.com/voxelbird/scenesmith/agent"
	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/runner"
)

// AutonomousResult is the outcome of a single-loop run, where one agent
// with the full toolset works the whole task in a single session instead
// of going through the staged pipeline.
type AutonomousResult struct {
	RunID      string
	FinalText  string
	Iterations int
	Artifacts  []core.Artifact
}

func autonomousPrompt(req Request) string {
	return fmt.Sprintf(`Produce a complete content package about the following topic: %s

Work in this order:
1. Write a video script with exactly %d scenes, in %s.
2. Pick the visual keywords for the script.
3. Generate one image per keyword with the generate_image tool.

Finish with a summary of the script and the generated files.`,
		req.Topic, req.SceneCount, req.Language)
}

// RunAutonomous executes the whole task in one invocation loop. The agent
// must carry every tool it needs; the loop's iteration cap is the only
// bound on how long it works. Artifacts recorded during the run are
// collected from the runner's store.
func RunAutonomous(ctx context.Context, r *runner.Runner, ag *agent.Agent, key core.SessionKey, req Request) (*AutonomousResult, error) {
	if req.Topic == "" {
		return nil, fmt.Errorf("pipeline: topic must not be empty")
	}
	if req.Language == "" {
		req.Language = defaultLanguage
	}
	if req.SceneCount <= 0 {
		req.SceneCount = defaultSceneCount
	}

	if _, err := r.Sessions().Create(key); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	res, err := r.Run(ctx, ag, key, autonomousPrompt(req))
	if err != nil {
		return nil, err
	}

	out := &AutonomousResult{
		RunID:      res.RunID,
		FinalText:  res.FinalText,
		Iterations: res.Iterations,
	}
	if artifacts, aerr := r.Artifacts().List(res.RunID); aerr == nil {
		out.Artifacts = artifacts
	}
	return out, nil
}
