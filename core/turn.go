package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation roles used in transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Turn is one committed entry of a session transcript. After being appended
// it is treated as immutable: transcripts only ever grow and no turn is
// edited or removed once committed.
type Turn struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Author    string    `json:"author"` // Agent name, "user" or tool author
	Timestamp time.Time `json:"timestamp"`
	Content   Content   `json:"content"`
}

// NewTurn creates a bare turn authored by author bound to a run.
func NewTurn(runID, author string) Turn {
	return Turn{
		ID:        NewID(),
		RunID:     runID,
		Author:    author,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserTurn creates a user-authored text turn.
func NewUserTurn(runID, text string) Turn {
	t := NewTurn(runID, RoleUser)
	t.Content = Content{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
	return t
}

// NewAssistantTurn wraps assistant content (text and/or tool call requests)
// produced by the backing model.
func NewAssistantTurn(runID, author string, content Content) Turn {
	t := NewTurn(runID, author)
	content.Role = RoleAssistant
	t.Content = content
	return t
}

// NewToolResultTurn records the outcome of a previously requested tool call.
func NewToolResultTurn(runID, author string, result ToolResult) Turn {
	t := NewTurn(runID, author)
	t.Content = Content{Role: RoleTool, Parts: []Part{ToolResultPart{Result: result}}}
	return t
}

// NewID generates a new unique identifier for turns, runs and tool calls.
func NewID() string { return uuid.NewString() }

// ToolCalls returns any ToolCallRequest parts contained within the turn
// preserving their original order.
func (t Turn) ToolCalls() []ToolCallRequest {
	var calls []ToolCallRequest
	for _, p := range t.Content.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			calls = append(calls, tc.Call)
		}
	}
	return calls
}

// ToolResults returns any ToolResult parts contained within the turn
// preserving their original order.
func (t Turn) ToolResults() []ToolResult {
	var results []ToolResult
	for _, p := range t.Content.Parts {
		if tr, ok := p.(ToolResultPart); ok {
			results = append(results, tr.Result)
		}
	}
	return results
}

// Text concatenates all text parts of the turn.
func (t Turn) Text() string {
	var sb strings.Builder
	for _, p := range t.Content.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// IsFinal reports whether the turn is a terminal assistant answer: assistant
// role content with no pending tool call requests.
func (t Turn) IsFinal() bool {
	return t.Content.Role == RoleAssistant && len(t.ToolCalls()) == 0
}
