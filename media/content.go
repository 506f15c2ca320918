package media

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/model"
	"github.com/voxelbird/scenesmith/tool"
)

type contentPointsArgs struct {
	Topic      string `json:"topic" jsonschema:"required" jsonschema_description:"Topic the narration is about"`
	Count      int    `json:"count,omitempty" jsonschema_description:"Number of narration lines to draft (default 3)"`
	SceneTitle string `json:"scene_title,omitempty" jsonschema_description:"Title of the scene the narration belongs to"`
}

// ContentPointsResult is the payload returned by the content tool.
type ContentPointsResult struct {
	Lines []string `json:"lines"`
}

// NewContentPointsTool returns the generate_content_points tool: a nested
// model call that drafts narration lines for one scene. The model's raw
// text is cleaned into plain narration lines before it is returned.
func NewContentPointsTool(llm model.Model) *tool.FunctionTool {
	return tool.NewFunctionTool(
		"generate_content_points",
		"Draft narration lines for one scene of a script about a topic.",
		tool.MustSchema[contentPointsArgs](),
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			var in contentPointsArgs
			if err := mapstructure.Decode(args, &in); err != nil {
				return nil, fmt.Errorf("decode arguments: %w", err)
			}
			if in.Count <= 0 {
				in.Count = 3
			}

			prompt := fmt.Sprintf("Write %d short narration lines about %q.", in.Count, in.Topic)
			if in.SceneTitle != "" {
				prompt = fmt.Sprintf("Write %d short narration lines for the scene %q of a video about %q.",
					in.Count, in.SceneTitle, in.Topic)
			}

			resp, err := llm.Generate(toolCtx.Context(), model.Request{
				Contents: []core.Content{{
					Role:  core.RoleUser,
					Parts: []core.Part{core.TextPart{Text: prompt}},
				}},
			})
			if err != nil {
				return nil, fmt.Errorf("draft narration: %w", err)
			}

			lines := CleanContentLines(strings.Split(resp.Text(), "\n"))
			if len(lines) == 0 {
				return nil, fmt.Errorf("model returned no usable narration lines")
			}
			return ContentPointsResult{Lines: lines}, nil
		},
	)
}

// Conversational openers that are noise in narration output.
var fillerPrefixes = []string{
	"sure",
	"certainly",
	"of course",
	"here is",
	"here's",
	"here are",
}

// CleanContentLines normalizes raw model output into narration lines:
// blank lines and conversational filler are dropped, and list numbering or
// bullet markers are stripped from what remains.
func CleanContentLines(raw []string) []string {
	cleaned := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isFiller(line) {
			continue
		}
		line = stripListMarker(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return cleaned
}

func isFiller(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range fillerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// stripListMarker removes a leading "1. ", "1) ", "- " or "* " marker.
func stripListMarker(line string) string {
	trimmed := strings.TrimLeft(line, "0123456789")
	if trimmed != line {
		if rest, ok := cutMarker(trimmed, ".", ")"); ok {
			return rest
		}
		return line
	}
	if rest, ok := cutMarker(line, "-", "*"); ok {
		return rest
	}
	return line
}

func cutMarker(s string, markers ...string) (string, bool) {
	for _, m := range markers {
		if strings.HasPrefix(s, m) {
			return strings.TrimSpace(strings.TrimPrefix(s, m)), true
		}
	}
	return s, false
}
