package services

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/codeagent/internal/tool"
)

// DescribeTool returns a one-line description of a tool invocation.
func DescribeTool(name, request string) string {
	if request == "" {
		return name
	}
	switch name {
	case "terminal":
		return fmt.Sprintf("$ %s", request)
	default:
		return fmt.Sprintf("%s %s", name, request)
	}
}

// DescribeDisplay returns the plain-text body for a tool result.
func DescribeDisplay(d tool.ToolDisplay) string {
	switch v := d.(type) {
	case nil:
		return ""
	case tool.StringDisplay:
		return string(v)
	case tool.CommandDisplay:
		out := strings.TrimRight(v.Output, "\n")
		if v.Failed {
			return "exit non-zero\n" + out
		}
		return out
	case tool.FilesDisplay:
		return fmt.Sprintf("%s %d file(s): %s", v.Verb, len(v.Paths), strings.Join(v.Paths, ", "))
	default:
		return fmt.Sprintf("%v", v)
	}
}
