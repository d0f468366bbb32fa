package workflow

import "github.com/Cyclone1070/codeagent/internal/tool"

// Event is the interface for all workflow events.
// Renderers handle events via type switch.
type Event interface {
	isEvent()
}

// TextEvent is emitted when the LLM produces text output.
type TextEvent struct {
	Text string
}

func (TextEvent) isEvent() {}

// ThinkingEvent is emitted before each agent invocation.
type ThinkingEvent struct {
	Iteration int
}

func (ThinkingEvent) isEvent() {}

// DoneEvent is emitted when the workflow loop completes.
type DoneEvent struct {
	Iterations int
	Completed  bool
}

func (DoneEvent) isEvent() {}

// ToolStartEvent is emitted when a tool execution begins.
type ToolStartEvent struct {
	ToolName       string
	RequestDisplay string // e.g., "npm install"
}

func (ToolStartEvent) isEvent() {}

// ToolEndEvent is emitted when a tool completes.
type ToolEndEvent struct {
	ToolName string
	Display  tool.ToolDisplay
}

func (ToolEndEvent) isEvent() {}

// SummaryEvent is emitted when the completion marker is detected.
type SummaryEvent struct {
	Summary string
}

func (SummaryEvent) isEvent() {}
