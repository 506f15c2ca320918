// Package tool implements the function calling subsystem: the Tool
// interface, a schema-validated FunctionTool adapter, and the Registry that
// dispatches model-issued tool call requests with total closure (every
// request yields a ToolResult, never an uncaught fault).
package tool

import (
	"fmt"

	"github.com/voxelbird/scenesmith/core"
	"github.com/voxelbird/scenesmith/internal/util"
)

// Tool defines a callable capability exposed to an agent.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle their own failures and return errors rather than panic
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool
	// (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool
	// does. It is provided to the model to help it decide when to call it.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already-deserialized arguments and the
	// per-call ToolContext.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes attached to ToolError for categorization.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "TOOL_NOT_FOUND"
	CodeBadArgs    = "ARGUMENT_DECODE_ERROR"
	CodePanic      = "PANIC"
)

// ToolError represents errors that occur during tool dispatch or execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
