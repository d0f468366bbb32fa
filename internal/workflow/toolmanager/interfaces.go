package toolmanager

import (
	"context"

	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/Cyclone1070/codeagent/internal/workflow"
)

// toolImpl defines the interface for individual tools.
// Request structs should implement fmt.Stringer for display.
type toolImpl interface {
	// Name returns the tool's identifier.
	Name() string

	// Declaration returns the tool's schema for the LLM.
	Declaration() tool.Declaration

	// Input returns a pointer to the input struct (e.g., &TerminalRequest{}).
	Input() any

	// Execute runs the tool with typed input against the run state.
	Execute(ctx context.Context, input any, state *workflow.RunState) (tool.Result, error)
}

// validator is implemented by request structs that check their own fields.
type validator interface {
	Validate() error
}
