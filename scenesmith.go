// Package scenesmith provides a high-level façade over the runner and
// pipeline packages enabling rapid construction of topic-to-content
// workflows. Most applications interact with this package by:
//  1. Creating a SceneSmith via New() (optionally overriding the default
//     in-memory stores, model, logger and metrics)
//  2. Producing a full content package from a topic (Produce)
//  3. Or running one agent through a single invocation loop (Invoke)
//
// The façade delegates orchestration to runner.Runner and pipeline.Pipeline
// while keeping setup ergonomics concise. All defaults are safe for local
// development and testing.
package scenesmith

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/voxelbird/scenesmith/agent"
	"github.com/voxelbird/scenesmith/artifact"
	"github.com/voxelbird/scenesmith/config"
	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/logging"
	"github.com/voxelbird/scenesmith/media"
	"github.com/voxelbird/scenesmith/model"
	"github.com/voxelbird/scenesmith/model/anthropic"
	"github.com/voxelbird/scenesmith/model/openai"
	"github.com/voxelbird/scenesmith/observability"
	"github.com/voxelbird/scenesmith/pipeline"
	"github.com/voxelbird/scenesmith/runner"
	"github.com/voxelbird/scenesmith/session"
	"github.com/voxelbird/scenesmith/tool"
)

// Options configures a SceneSmith instance.
type Options struct {
	// Model backs every agent. Defaults to the provider selected by Config.
	Model model.Model

	// Stores (default to in-memory implementations if not provided)
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore

	// Logger (defaults to a slog JSON logger per Config)
	Logger logging.Logger

	// Metrics (nil disables instrumentation)
	Metrics *observability.Metrics

	// ExtraTools are added to the artifact agent and the autonomous agent
	// alongside the built-in media tools.
	ExtraTools []tool.Tool
}

// SceneSmith is the high-level façade aggregating configuration, the
// invocation runner and the staged pipeline.
type SceneSmith struct {
	cfg      config.Config
	llm      model.Model
	runner   *runner.Runner
	pipeline *pipeline.Pipeline
	tools    []tool.Tool
	logger   logging.Logger
}

// New creates a SceneSmith instance from a configuration with optional
// overrides. Any unset service is initialized with a sensible default.
func New(cfg config.Config, optFns ...func(o *Options)) (*SceneSmith, error) {
	opts := Options{
		SessionStore:  session.NewInMemoryStore(),
		ArtifactStore: artifact.NewInMemoryStore(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NewLogger(cfg.LoggingConfig())
	}

	llm := opts.Model
	if llm == nil {
		var err error
		if llm, err = newModel(cfg); err != nil {
			return nil, err
		}
	}

	mediaTools := append([]tool.Tool{
		media.NewGenerateImageTool(cfg.OutputDir),
		media.NewGenerateAudioTool(cfg.OutputDir),
		media.NewStockSearchTool(),
		media.NewContentPointsTool(llm),
	}, opts.ExtraTools...)

	r := runner.New(func(o *runner.Options) {
		o.MaxIterations = cfg.MaxIterations
		o.MaxParallelTools = cfg.MaxParallelTools
		o.SessionStore = opts.SessionStore
		o.ArtifactStore = opts.ArtifactStore
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	scriptAgent, keywordAgent, artifactAgent := pipeline.NewAgents(llm, mediaTools...)
	p := pipeline.New(r, scriptAgent, keywordAgent, artifactAgent, func(o *pipeline.Options) {
		o.MinKeywords = cfg.MinKeywords
		o.MaxKeywords = cfg.MaxKeywords
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	return &SceneSmith{
		cfg:      cfg,
		llm:      llm,
		runner:   r,
		pipeline: p,
		tools:    mediaTools,
		logger:   opts.Logger,
	}, nil
}

func newModel(cfg config.Config) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.ModelName != "" {
				o.Model = cfg.ModelName
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.ModelName != "" {
				o.Model = anthropicsdk.Model(cfg.ModelName)
			}
			o.APIKey = cfg.AnthropicAPIKey
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Runner exposes the underlying invocation runner.
func (s *SceneSmith) Runner() *runner.Runner { return s.runner }

// Pipeline exposes the underlying staged pipeline.
func (s *SceneSmith) Pipeline() *pipeline.Pipeline { return s.pipeline }

// Produce runs the staged pipeline for a topic and returns the assembled
// content package. On failure the partial result of the completed stages is
// returned alongside the error.
func (s *SceneSmith) Produce(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	if req.Language == "" {
		req.Language = s.cfg.Language
	}
	if req.SceneCount <= 0 {
		req.SceneCount = s.cfg.SceneCount
	}
	return s.pipeline.Run(ctx, req)
}

// ProduceAutonomous runs the whole task through a single agent carrying the
// full toolset in one invocation loop.
func (s *SceneSmith) ProduceAutonomous(ctx context.Context, req pipeline.Request) (*pipeline.AutonomousResult, error) {
	ag := agent.New("producer", s.llm, func(o *agent.Options) {
		o.Description = "Produces complete content packages end to end"
		o.Tools = s.tools
	})
	key := core.SessionKey{AppID: "scenesmith", UserID: "local", SessionID: "autonomous-" + core.NewID()}
	return pipeline.RunAutonomous(ctx, s.runner, ag, key, req)
}

// Invoke runs one agent through a single invocation loop in the given
// session, creating the session when it does not exist yet.
func (s *SceneSmith) Invoke(ctx context.Context, ag *agent.Agent, key core.SessionKey, message string) (*runner.Result, error) {
	if _, err := s.runner.Sessions().Get(key); err != nil {
		if _, cerr := s.runner.Sessions().Create(key); cerr != nil {
			return nil, cerr
		}
	}
	return s.runner.Run(ctx, ag, key, message)
}
