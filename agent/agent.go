// Package agent defines the Agent identity: a name and description bound to
// a backing model and a fixed tool registry. Agents are stateless and
// reusable across sessions; all conversational state lives in the session
// store and all per-run state in the invocation loop.
package agent

import (
	"github.com/voxelbird/scenesmith/model"
	"github.com/voxelbird/scenesmith/tool"
)

// Options configures an Agent instance. Use functional options with New to
// override defaults.
type Options struct {
	// Description is a human-readable summary of the agent's specialty,
	// surfaced in logs and available for prompt construction.
	Description string
	// Instruction is the system instruction sent with every model request.
	Instruction string
	// Tools is the fixed capability set exposed to the model.
	Tools []tool.Tool
}

// Agent binds an identity to a backing model and a tool registry. It holds
// no mutable state after construction and is safe for concurrent use across
// sessions.
type Agent struct {
	name        string
	description string
	instruction string
	llm         model.Model
	registry    *tool.Registry
}

// New creates an agent with the given name and backing model.
func New(name string, llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Agent{
		name:        name,
		description: opts.Description,
		instruction: opts.Instruction,
		llm:         llm,
		registry:    tool.NewRegistry(opts.Tools...),
	}
}

// Name returns the agent's identifier.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's human-readable description.
func (a *Agent) Description() string { return a.description }

// Instruction returns the system instruction sent with every model request.
func (a *Agent) Instruction() string { return a.instruction }

// Model returns the backing language model.
func (a *Agent) Model() model.Model { return a.llm }

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *tool.Registry { return a.registry }

// ToolDefinitions renders the registry as declarations for the model
// request, in registration order.
func (a *Agent) ToolDefinitions() []model.ToolDefinition {
	tools := a.registry.Tools()
	if len(tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
