package shell

import (
	"context"

	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/Cyclone1070/codeagent/internal/workflow"
)

// Name is the tool name the agent calls.
const Name = "terminal"

// failurePrefix starts every diagnostic returned by the sandbox session.
const failurePrefix = "Command failed:"

// commandRunner runs commands in a sandbox and never fails.
type commandRunner interface {
	Run(ctx context.Context, sandboxID, command string) string
}

// TerminalTool runs shell commands inside the run's sandbox.
type TerminalTool struct {
	runner    commandRunner
	sandboxID string
}

// NewTerminalTool creates a TerminalTool bound to one sandbox.
func NewTerminalTool(runner commandRunner, sandboxID string) *TerminalTool {
	if runner == nil {
		panic("runner is required")
	}
	return &TerminalTool{runner: runner, sandboxID: sandboxID}
}

func (t *TerminalTool) Name() string { return Name }

func (t *TerminalTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        Name,
		Description: "Use this terminal to run commands",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"command": {Type: tool.TypeString, Description: "Shell command to run in the sandbox"},
			},
			Required: []string{"command"},
		},
	}
}

func (t *TerminalTool) Input() any { return &TerminalRequest{} }

// Execute runs the command. Failures are returned as diagnostic text, so the
// only error is context cancellation.
func (t *TerminalTool) Execute(ctx context.Context, input any, _ *workflow.RunState) (tool.Result, error) {
	req := input.(*TerminalRequest)

	out := t.runner.Run(ctx, t.sandboxID, req.Command)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &TerminalResult{Command: req.Command, Output: out}, nil
}
