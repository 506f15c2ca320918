// Package runner implements the invocation loop: one conversational
// exchange between an agent and its backing model, including tool dispatch.
//
// The loop is a small state machine:
//
//	AWAITING_MODEL -> (TOOL_REQUESTED -> DISPATCHING -> AWAITING_MODEL)* -> FINAL
//
// Each cycle submits the accumulated transcript plus the agent's tool
// declarations, appends the model's answer to the session, dispatches any
// requested tools through the agent's registry, appends their results in
// request order, and resubmits. A terminal answer (no tool call requests)
// ends the loop; an iteration cap bounds the number of tool-call rounds so
// a misbehaving model cannot loop forever.
package runner
