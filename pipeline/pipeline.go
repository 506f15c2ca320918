// Package pipeline chains agents into a staged content workflow. Each stage
// prompts one agent through the runner, validates the terminal answer
// against a typed contract, and hands the validated value to the next
// stage. Contract violations trigger at most one corrective re-prompt
// before the pipeline aborts with the identity of the failing stage.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/voxelbird/scenesmith/agent"
	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/logging"
	"github.com/voxelbird/scenesmith/observability"
	"github.com/voxelbird/scenesmith/runner"
)

// Stage names, used in StageError and log events.
const (
	StageScript    = "script"
	StageKeywords  = "keywords"
	StageArtifacts = "artifacts"
)

const (
	defaultMinKeywords = 5
	defaultMaxKeywords = 8
	defaultSceneCount  = 3
	defaultLanguage    = "English"
)

// Options configures a Pipeline.
type Options struct {
	// AppID and UserID scope the sessions the pipeline creates. One fresh
	// session is created per stage per run.
	AppID  string
	UserID string

	// Retry is the contract-violation policy for every stage.
	Retry RetryPolicy

	// MinKeywords and MaxKeywords bound the stage-2 keyword list.
	MinKeywords int
	MaxKeywords int

	Logger  logging.Logger
	Metrics *observability.Metrics
}

// Pipeline wires three agents into the topic-to-package workflow:
// script writing, keyword extraction, and artifact generation.
type Pipeline struct {
	runner        *runner.Runner
	scriptAgent   *agent.Agent
	keywordAgent  *agent.Agent
	artifactAgent *agent.Agent

	appID       string
	userID      string
	retry       RetryPolicy
	minKeywords int
	maxKeywords int
	logger      logging.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline over the given runner and stage agents.
func New(r *runner.Runner, scriptAgent, keywordAgent, artifactAgent *agent.Agent, optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		AppID:       "scenesmith",
		UserID:      "local",
		Retry:       RetryOnceOnViolation,
		MinKeywords: defaultMinKeywords,
		MaxKeywords: defaultMaxKeywords,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Pipeline{
		runner:        r,
		scriptAgent:   scriptAgent,
		keywordAgent:  keywordAgent,
		artifactAgent: artifactAgent,
		appID:         opts.AppID,
		userID:        opts.UserID,
		retry:         opts.Retry,
		minKeywords:   opts.MinKeywords,
		maxKeywords:   opts.MaxKeywords,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

// Request describes one pipeline run.
type Request struct {
	Topic      string
	Language   string // Defaults to English
	SceneCount int    // Defaults to 3
}

// Run executes the three stages in order. On failure the returned error is
// a *StageError naming the failing stage, and the returned Result still
// carries the outputs of every stage that completed before the failure.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Topic == "" {
		return nil, fmt.Errorf("pipeline: topic must not be empty")
	}
	if req.Language == "" {
		req.Language = defaultLanguage
	}
	if req.SceneCount <= 0 {
		req.SceneCount = defaultSceneCount
	}

	started := time.Now()
	pipelineID := core.NewID()
	result := &Result{
		Topic:      req.Topic,
		Language:   req.Language,
		SceneCount: req.SceneCount,
		StartedAt:  started,
		RawOutputs: make(map[string]string, 3),
	}
	defer func() {
		result.Duration = time.Since(started)
		p.metrics.ObserveRunDuration(result.Duration)
	}()

	p.logger.Info("pipeline.run.start",
		"pipeline_id", pipelineID,
		"topic", req.Topic,
		"scene_count", req.SceneCount,
	)

	// Stage 1: topic -> script.
	scriptStage := stage{
		name:     StageScript,
		agent:    p.scriptAgent,
		session:  p.sessionKey(StageScript, pipelineID),
		contract: ScriptContract{ExpectedScenes: req.SceneCount},
	}
	out, err := p.run(ctx, scriptStage, scriptPrompt(req.Topic, req.Language, req.SceneCount))
	if err != nil {
		return result, err
	}
	result.Script = out.value.(*Script)
	result.RawOutputs[StageScript] = out.raw

	// Stage 2: script -> keywords.
	keywordStage := stage{
		name:     StageKeywords,
		agent:    p.keywordAgent,
		session:  p.sessionKey(StageKeywords, pipelineID),
		contract: KeywordsContract{MinKeywords: p.minKeywords, MaxKeywords: p.maxKeywords},
	}
	out, err = p.run(ctx, keywordStage, keywordPrompt(result.Script, p.minKeywords, p.maxKeywords))
	if err != nil {
		return result, err
	}
	result.Keywords = out.value.([]string)
	result.RawOutputs[StageKeywords] = out.raw

	// Stage 3: keywords -> artifact manifest.
	artifactStage := stage{
		name:     StageArtifacts,
		agent:    p.artifactAgent,
		session:  p.sessionKey(StageArtifacts, pipelineID),
		contract: ManifestContract{Keywords: result.Keywords},
	}
	out, err = p.run(ctx, artifactStage, artifactPrompt(result.Keywords))
	if err != nil {
		return result, err
	}
	result.Manifest = out.value.(*Manifest)
	result.RawOutputs[StageArtifacts] = out.raw

	for _, runID := range out.runIDs {
		if artifacts, aerr := p.runner.Artifacts().List(runID); aerr == nil {
			result.Artifacts = append(result.Artifacts, artifacts...)
		}
	}

	p.logger.Info("pipeline.run.complete",
		"pipeline_id", pipelineID,
		"scenes", len(result.Script.Scenes),
		"keywords", len(result.Keywords),
		"artifacts", len(result.Manifest.Artifacts),
		"duration", time.Since(started).String(),
	)
	return result, nil
}

// sessionKey builds the per-stage session key. Each pipeline run gets fresh
// sessions so stage transcripts never bleed across runs.
func (p *Pipeline) sessionKey(stageName, pipelineID string) core.SessionKey {
	return core.SessionKey{
		AppID:     p.appID,
		UserID:    p.userID,
		SessionID: fmt.Sprintf("%s-%s", stageName, pipelineID),
	}
}
