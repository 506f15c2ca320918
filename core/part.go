package core

import "encoding/json"

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ToolCallRequest describes a tool invocation requested by the model.
type ToolCallRequest struct {
	ID        string `json:"id,omitempty"`        // Correlates the request with its result
	Name      string `json:"name"`                // Tool name as declared in the registry
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument payload
}

// ToolCallPart wraps a ToolCallRequest as a content part.
type ToolCallPart struct {
	Call ToolCallRequest
}

// isPart implements the Part interface for ToolCallPart.
func (ToolCallPart) isPart() {}

// ToolResult describes the outcome of one dispatched tool call. Exactly one
// of Payload or Error is meaningful; a non-empty Error marks failure. A
// ToolResult is always well-formed data: tool failures are carried here,
// never raised past the dispatch boundary.
type ToolResult struct {
	ID      string `json:"id,omitempty"`      // Matches the originating ToolCallRequest ID
	Name    string `json:"name"`              // Tool name
	Payload any    `json:"payload,omitempty"` // Successful result (any JSON-serializable shape)
	Error   string `json:"error,omitempty"`   // Populated on failure
}

// Failed reports whether the result carries an error instead of a payload.
func (r ToolResult) Failed() bool { return r.Error != "" }

// Serialize renders the result as the structured-text form handed back to
// the model. Marshalling problems degrade to an error object so the caller
// always receives valid JSON.
func (r ToolResult) Serialize() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"error":"unserializable tool result"}`
	}
	return string(b)
}

// ToolResultPart wraps a ToolResult as a content part.
type ToolResultPart struct {
	Result ToolResult
}

// isPart implements the Part interface for ToolResultPart.
func (ToolResultPart) isPart() {}

// Content holds role + ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"` // Conversation role (user, assistant, tool, system)
	Parts []Part `json:"parts"`          // Ordered heterogeneous parts
}
