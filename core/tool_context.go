package core

import (
	"context"
	"time"

	"github.com/voxelbird/scenesmith/logging"
)

// ToolContext is the per-call environment handed to a tool implementation.
// It carries the run correlation identifiers, a logger, the cancellation
// context, and access to the artifact store so content-producing tools can
// record what they generated.
type ToolContext struct {
	ctx       context.Context
	runID     string
	callID    string
	logger    logging.Logger
	artifacts ArtifactStore
}

// NewToolContext builds a tool context for one tool call. A nil logger is
// substituted with a no-op implementation.
func NewToolContext(ctx context.Context, runID, callID string, logger logging.Logger, artifacts ArtifactStore) *ToolContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{ctx: ctx, runID: runID, callID: callID, logger: logger, artifacts: artifacts}
}

// Context returns the cancellation context of the surrounding invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// RunID returns the invocation identifier the call belongs to.
func (tc *ToolContext) RunID() string { return tc.runID }

// CallID returns the tool call identifier issued by the model.
func (tc *ToolContext) CallID() string { return tc.callID }

// Logger returns the logger scoped to this invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// RecordArtifact stores an artifact descriptor for the current run, filling
// in ID and timestamp when absent. It is a no-op when the invocation was
// started without an artifact store.
func (tc *ToolContext) RecordArtifact(a Artifact) error {
	if tc.artifacts == nil {
		return nil
	}
	if a.ID == "" {
		a.ID = NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return tc.artifacts.Save(tc.runID, a)
}
