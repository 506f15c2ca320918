// Package model defines the backing model boundary: a normalized request
// carrying the transcript plus declared tool schemas, and a response that is
// either a terminal textual answer or one or more tool call requests. The
// orchestration core treats any implementation as an opaque service call.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/voxelbird/scenesmith/core"
)

// ToolDefinition declaratively exposes a callable tool to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual tool exposed to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the invocation loop.
type Request struct {
	Instructions string           `json:"instructions"` // System instructions for the model
	Contents     []core.Content   `json:"contents"`     // Transcript converted to provider messages
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the complete model output for one request.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// ToolCalls returns the tool call requests contained in the response in
// their original order. An empty result marks a terminal answer.
func (r *Response) ToolCalls() []core.ToolCallRequest {
	var calls []core.ToolCallRequest
	for _, p := range r.Content.Parts {
		if tc, ok := p.(core.ToolCallPart); ok {
			calls = append(calls, tc.Call)
		}
	}
	return calls
}

// Text concatenates the text parts of the response.
func (r *Response) Text() string {
	var text string
	for _, p := range r.Content.Parts {
		if tp, ok := p.(core.TextPart); ok {
			text += tp.Text
		}
	}
	return text
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// TextResponse builds a terminal assistant response with a single text part.
func TextResponse(text string) *Response {
	return &Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: []core.Part{core.TextPart{Text: text}}},
		FinishReason: "stop",
	}
}

// ToolCallResponse builds a response requesting the given tool calls in order.
func ToolCallResponse(calls ...core.ToolCallRequest) *Response {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		if c.ID == "" {
			c.ID = core.NewID()
		}
		parts = append(parts, core.ToolCallPart{Call: c})
	}
	return &Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	}
}

// ScriptedModel is a deterministic in-memory Model for tests and examples.
// It replays a fixed queue of responses and records every request it saw.
// When the queue runs dry it answers with a canned echo of the last text
// part, or with Repeat's response if configured.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	queue    []*Response
	Repeat   *Response     // Optional response replayed after the queue is exhausted
	Requests []Request     // Every request received, in order
	Hook     func(Request) // Optional inspection hook invoked per request
}

// NewScriptedModel constructs a ScriptedModel replaying the given responses.
func NewScriptedModel(name string, responses ...*Response) *ScriptedModel {
	return &ScriptedModel{
		info:  Info{Name: name, Provider: "scripted", SupportsTools: true},
		queue: responses,
	}
}

// Enqueue appends further responses to the replay queue.
func (m *ScriptedModel) Enqueue(responses ...*Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// Generate implements Model by replaying the next queued response.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Hook != nil {
		m.Hook(req)
	}

	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp, nil
	}
	if m.Repeat != nil {
		return m.Repeat, nil
	}

	var lastText string
	if len(req.Contents) > 0 {
		last := req.Contents[len(req.Contents)-1]
		for _, p := range last.Parts {
			if tp, ok := p.(core.TextPart); ok {
				lastText += tp.Text
			}
		}
	}
	return TextResponse(fmt.Sprintf("Scripted response to: %s", lastText)), nil
}

// Info implements Model interface.
func (m *ScriptedModel) Info() Info { return m.info }
