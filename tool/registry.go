package tool

import (
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/voxelbird/scenesmith/core"
)

// Registry is the fixed set of tools available to one agent. It resolves
// tool call requests to callables and guarantees total closure: Dispatch
// always produces a ToolResult-shaped outcome, never an uncaught fault. The
// invocation loop therefore never observes an error from a tool; failures
// are converted to data and fed back to the model.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from the given tools. Later registrations
// with a duplicate name replace earlier ones.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Dispatch looks up and executes the requested tool, converting every
// failure mode (unknown name, malformed argument payload, execution error,
// panic) into an error-carrying ToolResult. The caller always receives a
// well-formed result matching the request's ID and name.
func (r *Registry) Dispatch(toolCtx *core.ToolContext, call core.ToolCallRequest) (res core.ToolResult) {
	res = core.ToolResult{ID: call.ID, Name: call.Name}

	impl, ok := r.tools[call.Name]
	if !ok {
		toolCtx.Logger().Warn("tool.dispatch.unknown", "tool", call.Name)
		res.Error = NewToolError(call.Name, fmt.Sprintf("tool %q is not registered", call.Name), CodeNotFound).Error()
		return res
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			toolCtx.Logger().Warn("tool.dispatch.bad_arguments", "tool", call.Name, "error", err.Error())
			res.Error = NewToolError(call.Name, fmt.Sprintf("failed to decode arguments: %v", err), CodeBadArgs).Error()
			return res
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			toolCtx.Logger().Error("tool.dispatch.panic", "tool", call.Name, "recover", fmt.Sprintf("%v", rec), "stack", string(debug.Stack()))
			res.Payload = nil
			res.Error = NewToolError(call.Name, fmt.Sprintf("panic: %v", rec), CodePanic).Error()
		}
	}()

	payload, err := impl.Call(toolCtx, args)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Payload = payload
	return res
}
