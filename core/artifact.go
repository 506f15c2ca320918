package core

import "time"

// Artifact describes one generated or located piece of auxiliary content
// (placeholder image, narration file, stock media reference). Tools record
// artifacts through their ToolContext; the pipeline assembles the final
// manifest from the store after the last stage terminates.
type Artifact struct {
	ID        string    `json:"id"`
	Keyword   string    `json:"keyword,omitempty"` // Keyword or text the artifact was produced for
	Path      string    `json:"path,omitempty"`    // Local file path, if materialized
	URL       string    `json:"url,omitempty"`     // Remote reference, if located rather than generated
	MimeType  string    `json:"mime_type,omitempty"`
	Tool      string    `json:"tool"` // Producing tool name
	CreatedAt time.Time `json:"created_at"`
}

// ArtifactStore collects artifact descriptors per run.
type ArtifactStore interface {
	Save(runID string, a Artifact) error
	List(runID string) ([]Artifact, error)
}
