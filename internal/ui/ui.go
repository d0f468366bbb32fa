// Package ui renders workflow progress and the final outcome to a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/Cyclone1070/codeagent/internal/ui/services"
	"github.com/Cyclone1070/codeagent/internal/ui/views"
	"github.com/Cyclone1070/codeagent/internal/workflow"
)

// UI writes one line per workflow event. It never reads input.
type UI struct {
	out           io.Writer
	renderer      services.MarkdownRenderer
	width         int
	maxIterations int
	verbose       bool
}

// NewUI creates a UI writing to out.
func NewUI(out io.Writer, renderer services.MarkdownRenderer, width, maxIterations int) *UI {
	if out == nil {
		panic("out is required")
	}
	return &UI{out: out, renderer: renderer, width: width, maxIterations: maxIterations}
}

// WithVerbose makes the UI print intermediate model text as well as tool activity.
func (u *UI) WithVerbose(v bool) *UI {
	u.verbose = v
	return u
}

// Consume renders events until the channel is closed.
func (u *UI) Consume(events <-chan workflow.Event) {
	for ev := range events {
		u.Handle(ev)
	}
}

// Handle renders a single event.
func (u *UI) Handle(ev workflow.Event) {
	switch e := ev.(type) {
	case workflow.ThinkingEvent:
		u.println(views.RenderThinking(e.Iteration, u.maxIterations))
	case workflow.TextEvent:
		if u.verbose && e.Text != "" {
			u.println(views.AssistantMessageStyle.Render(e.Text))
		}
	case workflow.ToolStartEvent:
		u.println(views.RenderToolStart(services.DescribeTool(e.ToolName, e.RequestDisplay)))
	case workflow.ToolEndEvent:
		u.println(views.RenderToolEnd(services.DescribeDisplay(e.Display), failed(e.Display)))
	case workflow.SummaryEvent:
		// Rendered with the outcome.
	case workflow.DoneEvent:
		u.println(views.RenderDone(e.Iterations, e.Completed))
	}
}

// WriteOutcome renders the classified result of a run.
func (u *UI) WriteOutcome(o views.Outcome) {
	u.println(views.RenderOutcome(o, u.width, u.renderer))
}

func (u *UI) println(s string) {
	if s == "" {
		return
	}
	fmt.Fprintln(u.out, s)
}

func failed(d tool.ToolDisplay) bool {
	switch v := d.(type) {
	case tool.CommandDisplay:
		return v.Failed
	case tool.StringDisplay:
		return strings.HasPrefix(string(v), "Failed:")
	}
	return false
}
