// Package artifact provides the in-memory ArtifactStore implementation that
// collects artifact descriptors produced by tools during a pipeline run.
package artifact

import (
	"errors"
	"sync"

	"github.com/voxelbird/scenesmith/core"
)

// ErrNotFound is returned when no artifacts exist for a run.
var ErrNotFound = errors.New("artifact not found")

// InMemoryStore is a trivial in-process ArtifactStore keeping descriptors in
// a map guarded by an RWMutex. Append order per run is preserved, which
// matters when the manifest is assembled one-artifact-per-keyword.
//
// Layout: runID -> ordered artifact descriptors
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string][]core.Artifact
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string][]core.Artifact)}
}

// Save appends the artifact descriptor for the given run.
func (a *InMemoryStore) Save(runID string, art core.Artifact) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.artifacts[runID] = append(a.artifacts[runID], art)
	return nil
}

// List returns a snapshot of the artifacts recorded for the run in append
// order. The slice is safe for caller mutation.
func (a *InMemoryStore) List(runID string) ([]core.Artifact, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.artifacts[runID]
	if !ok {
		return []core.Artifact{}, nil
	}
	res := make([]core.Artifact, len(m))
	copy(res, m)
	return res, nil
}

// Get returns a single artifact by id or ErrNotFound.
func (a *InMemoryStore) Get(runID, artifactID string) (core.Artifact, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, art := range a.artifacts[runID] {
		if art.ID == artifactID {
			return art, nil
		}
	}
	return core.Artifact{}, ErrNotFound
}
