package turn

import (
	"ai-marketplace-be/pkg/rag/filter"
	"ai-marketplace-be/pkg/rag/tooldecision"
	"ai-marketplace-be/pkg/search"
)

type EventType string

const (
	// EventContent carries one streamed text fragment of the reply.
	EventContent EventType = "content"
	// EventToolResult carries the outcome of a successful tool execution.
	EventToolResult EventType = "tool_result"
	// EventToolError reports a failed tool execution. The turn still
	// completes normally afterwards.
	EventToolError EventType = "tool_error"
	// EventNoTool signals that analysis decided against tool execution.
	EventNoTool EventType = "no_tool"
	// EventError reports a fatal turn failure. No further events follow.
	EventError EventType = "error"
	// EventDone is the completion sentinel, always last on success.
	EventDone EventType = "done"
)

// Event is one frame emitted to the caller during a turn. Within a turn the
// order is always: zero or more content frames, then exactly one of
// tool_result/tool_error/no_tool, then done. A fatal error frame replaces
// everything after the content frames.
type Event struct {
	Type        EventType              `json:"type"`
	Stage       int                    `json:"stage,omitempty"`
	Content     string                 `json:"content,omitempty"`
	Error       string                 `json:"error,omitempty"`
	ToolResult  *search.Result         `json:"tool_result,omitempty"`
	Decision    *tooldecision.Decision `json:"analysis,omitempty"`
	FilterState filter.State           `json:"filter_state,omitempty"`
}

// EmitFunc delivers one event to the caller. Returning an error aborts the
// turn (treated as caller disconnect).
type EmitFunc func(event Event) error
