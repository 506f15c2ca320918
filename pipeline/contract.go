package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ContractViolationError reports that a stage's terminal answer did not
// parse into the required structured shape. Violations are surfaced, never
// silently coerced: mismatched data is not truncated, re-keyed or
// default-filled to make it fit.
type ContractViolationError struct {
	Stage  string // Stage whose contract was violated
	Reason string // Human-readable mismatch description
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("stage %s contract violation: %s", e.Stage, e.Reason)
}

// StageContract declares the structured shape a stage must hand downstream
// and knows how to validate a terminal answer against it.
type StageContract interface {
	// Describe summarizes the required shape for corrective prompts.
	Describe() string

	// Validate parses the terminal answer and checks its shape. The
	// returned value is the typed stage output; a non-nil error describes
	// the mismatch (the stage wraps it into a ContractViolationError).
	Validate(raw string) (any, error)
}

// Scene is one scene of a generated script.
type Scene struct {
	Title   string   `json:"title" mapstructure:"title"`
	Content []string `json:"content" mapstructure:"content"`
}

// Script is the stage-1 output: an ordered list of scenes.
type Script struct {
	Scenes []Scene `json:"scenes" mapstructure:"scenes"`
}

// ManifestEntry links one keyword to the artifact generated for it.
type ManifestEntry struct {
	Keyword string `json:"keyword" mapstructure:"keyword"`
	File    string `json:"file" mapstructure:"file"`
}

// Manifest is the stage-3 output: one artifact entry per keyword.
type Manifest struct {
	Artifacts []ManifestEntry `json:"artifacts" mapstructure:"artifacts"`
}

// extractJSON applies the only permitted normalization before parsing a
// terminal answer: surrounding whitespace is trimmed and a single enclosing
// markdown code fence (with optional language tag) is stripped. Nothing else
// is repaired; any remaining mismatch is a contract violation.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return s
	}
	if j := strings.LastIndex(s, "```"); j >= 0 {
		s = s[:j]
	}
	return strings.TrimSpace(s)
}

// decodeObject parses the normalized answer into a generic JSON object.
func decodeObject(raw string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &m); err != nil {
		return nil, fmt.Errorf("answer is not a JSON object: %v", err)
	}
	return m, nil
}

// ScriptContract validates the stage-1 script shape: a "scenes" list where
// every scene has a non-empty "title" string and a "content" list with at
// least one string. ExpectedScenes, when positive, pins the exact scene count.
type ScriptContract struct {
	ExpectedScenes int
}

// Describe implements StageContract.
func (c ScriptContract) Describe() string {
	count := "one or more"
	if c.ExpectedScenes > 0 {
		count = fmt.Sprintf("exactly %d", c.ExpectedScenes)
	}
	return fmt.Sprintf(`a JSON object {"scenes": [...]} with %s scene objects, each having a "title" string and a non-empty "content" list of strings`, count)
}

// Validate implements StageContract.
func (c ScriptContract) Validate(raw string) (any, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	scenes, ok := m["scenes"].([]any)
	if !ok {
		return nil, fmt.Errorf(`missing or invalid "scenes" array`)
	}
	if c.ExpectedScenes > 0 && len(scenes) != c.ExpectedScenes {
		return nil, fmt.Errorf("expected %d scenes, got %d", c.ExpectedScenes, len(scenes))
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf(`"scenes" must not be empty`)
	}

	for i, s := range scenes {
		scene, ok := s.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("scene %d is not an object", i)
		}
		title, ok := scene["title"].(string)
		if !ok || strings.TrimSpace(title) == "" {
			return nil, fmt.Errorf(`scene %d is missing a "title" string`, i)
		}
		content, ok := scene["content"].([]any)
		if !ok || len(content) == 0 {
			return nil, fmt.Errorf(`scene %d is missing a non-empty "content" list`, i)
		}
		for j, line := range content {
			if _, ok := line.(string); !ok {
				return nil, fmt.Errorf("scene %d content line %d is not a string", i, j)
			}
		}
	}

	var script Script
	if err := mapstructure.Decode(m, &script); err != nil {
		return nil, fmt.Errorf("failed to decode script: %v", err)
	}
	return &script, nil
}

// KeywordsContract validates the stage-2 keyword list: a flat "keywords"
// array of MinKeywords to MaxKeywords non-empty strings. Duplicates are a
// violation: the stage-3 manifest requires exactly one entry per keyword,
// which a repeated keyword would make impossible to satisfy.
type KeywordsContract struct {
	MinKeywords int
	MaxKeywords int
}

// Describe implements StageContract.
func (c KeywordsContract) Describe() string {
	return fmt.Sprintf(`a JSON object {"keywords": [...]} with %d to %d distinct keyword strings`, c.MinKeywords, c.MaxKeywords)
}

// Validate implements StageContract.
func (c KeywordsContract) Validate(raw string) (any, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	rawKeywords, ok := m["keywords"].([]any)
	if !ok {
		return nil, fmt.Errorf(`missing or invalid "keywords" array`)
	}
	if n := len(rawKeywords); n < c.MinKeywords || n > c.MaxKeywords {
		return nil, fmt.Errorf("expected between %d and %d keywords, got %d", c.MinKeywords, c.MaxKeywords, n)
	}

	keywords := make([]string, 0, len(rawKeywords))
	seen := make(map[string]bool, len(rawKeywords))
	for i, k := range rawKeywords {
		kw, ok := k.(string)
		if !ok || strings.TrimSpace(kw) == "" {
			return nil, fmt.Errorf("keyword %d is not a non-empty string", i)
		}
		if seen[kw] {
			return nil, fmt.Errorf("duplicate keyword %q", kw)
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	return keywords, nil
}

// ManifestContract validates the stage-3 artifact manifest: exactly one
// entry per expected keyword, each naming the keyword and the generated file.
type ManifestContract struct {
	Keywords []string
}

// Describe implements StageContract.
func (c ManifestContract) Describe() string {
	return fmt.Sprintf(`a JSON object {"artifacts": [...]} with exactly %d entries, one {"keyword": "...", "file": "..."} object per keyword`, len(c.Keywords))
}

// Validate implements StageContract.
func (c ManifestContract) Validate(raw string) (any, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	entries, ok := m["artifacts"].([]any)
	if !ok {
		return nil, fmt.Errorf(`missing or invalid "artifacts" array`)
	}
	if len(entries) != len(c.Keywords) {
		return nil, fmt.Errorf("expected exactly %d artifact entries, got %d", len(c.Keywords), len(entries))
	}

	expected := make(map[string]bool, len(c.Keywords))
	for _, k := range c.Keywords {
		expected[k] = false
	}
	for i, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("artifact entry %d is not an object", i)
		}
		kw, ok := entry["keyword"].(string)
		if !ok || kw == "" {
			return nil, fmt.Errorf(`artifact entry %d is missing a "keyword" string`, i)
		}
		seen, known := expected[kw]
		if !known {
			return nil, fmt.Errorf("artifact entry %d references unknown keyword %q", i, kw)
		}
		if seen {
			return nil, fmt.Errorf("duplicate artifact entry for keyword %q", kw)
		}
		expected[kw] = true
		if file, ok := entry["file"].(string); !ok || file == "" {
			return nil, fmt.Errorf(`artifact entry %d is missing a "file" string`, i)
		}
	}

	var manifest Manifest
	if err := mapstructure.Decode(m, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %v", err)
	}
	return &manifest, nil
}
