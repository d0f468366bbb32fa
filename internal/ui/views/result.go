package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Cyclone1070/codeagent/internal/ui/services"
	"github.com/charmbracelet/lipgloss"
)

// Outcome is what the CLI shows once a run has been classified.
type Outcome struct {
	Title   string
	URL     string
	Summary string
	Files   map[string]string
	Failed  bool
}

// RenderOutcome renders the final block: title, preview URL, file list and
// the summary as markdown.
func RenderOutcome(o Outcome, width int, renderer services.MarkdownRenderer) string {
	if o.Failed {
		return lipgloss.JoinVertical(lipgloss.Left,
			RenderSeparator(width),
			StatusErrorStyle.Render("Something went wrong. Please try again."),
		)
	}

	paths := make([]string, 0, len(o.Files))
	for p := range o.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	sections := []string{
		RenderSeparator(width),
		LabelStyle.Render(o.Title),
	}
	if o.URL != "" {
		sections = append(sections, fmt.Sprintf("Preview: %s", o.URL))
	}
	if len(paths) > 0 {
		sections = append(sections, ToolOutputStyle.Render(strings.Join(paths, "\n")))
	}
	if o.Summary != "" {
		sections = append(sections, AssistantMessageStyle.Render(services.RenderMarkdown(o.Summary, width, renderer)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
