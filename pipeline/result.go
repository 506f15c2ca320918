package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/voxelbird/scenesmith/core"
)

// Result is the assembled output of a pipeline run. On failure it carries
// whatever the completed stages produced; later fields stay zero.
type Result struct {
	Topic      string `json:"topic"`
	Language   string `json:"language"`
	SceneCount int    `json:"scene_count"`

	Script   *Script   `json:"script,omitempty"`
	Keywords []string  `json:"keywords,omitempty"`
	Manifest *Manifest `json:"manifest,omitempty"`

	// Artifacts lists the descriptors tools recorded during the artifact
	// stage, in the order they were produced.
	Artifacts []core.Artifact `json:"artifacts,omitempty"`

	// RawOutputs maps stage name to the raw terminal answer, kept for
	// inspection and debugging.
	RawOutputs map[string]string `json:"-"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"-"`
}

// Save writes the result as indented JSON into dir, under a filename
// derived from the topic, and returns the written path.
func (r *Result) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, slugify(r.Topic)+".json")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}

// slugify turns a topic into a safe filename stem: lowercase, alphanumeric
// runs joined by underscores.
func slugify(topic string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(topic) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	s := strings.TrimRight(b.String(), "_")
	if s == "" {
		return "result"
	}
	return s
}
