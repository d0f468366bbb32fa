package shell

import (
	"strings"

	"github.com/Cyclone1070/codeagent/internal/tool"
)

// TerminalRequest is the validated argument set of the terminal tool.
type TerminalRequest struct {
	Command string `json:"command"`
}

// Validate checks the request before execution.
func (r *TerminalRequest) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return &CommandRequiredError{}
	}
	return nil
}

func (r *TerminalRequest) String() string {
	return r.Command
}

// TerminalResult is what the agent sees after a command ran.
type TerminalResult struct {
	Command string
	Output  string
}

// Failed reports whether the output is a failure diagnostic.
func (r *TerminalResult) Failed() bool {
	return strings.HasPrefix(r.Output, failurePrefix)
}

func (r *TerminalResult) LLMContent() string {
	return r.Output
}

func (r *TerminalResult) Display() tool.ToolDisplay {
	return tool.CommandDisplay{
		Command: r.Command,
		Output:  r.Output,
		Failed:  r.Failed(),
	}
}
