package views

import (
	"fmt"
	"strings"
)

// RenderThinking renders the status line shown before each model call.
func RenderThinking(iteration, max int) string {
	return StatusThinkingStyle.Render(fmt.Sprintf("… Generating (step %d/%d)", iteration, max))
}

// RenderToolStart renders the line shown when a tool begins.
func RenderToolStart(description string) string {
	return StatusExecutingStyle.Render("▸ " + description)
}

// RenderToolEnd renders a tool's output, indented under its start line.
func RenderToolEnd(body string, failed bool) string {
	if body == "" {
		return ""
	}
	if failed {
		return StatusErrorStyle.Render("✘ ") + ToolOutputStyle.Render(body)
	}
	return ToolOutputStyle.Render(body)
}

// RenderDone renders the final status line of a run.
func RenderDone(iterations int, completed bool) string {
	if completed {
		return StatusDoneStyle.Render(fmt.Sprintf("✔ Done in %d step(s)", iterations))
	}
	return StatusErrorStyle.Render(fmt.Sprintf("✘ Stopped after %d step(s) without a summary", iterations))
}

// RenderSeparator renders a dim horizontal rule.
func RenderSeparator(width int) string {
	if width < 20 {
		width = 20
	}
	return SeparatorStyle.Render(strings.Repeat("─", width))
}
