package loop

import (
	"context"
	"fmt"
	"strings"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/workflow"
)

// DefaultMaxIterations is the iteration ceiling used when none is configured.
const DefaultMaxIterations = 15

// DefaultCompletionMarker is the text the agent emits when it is done.
const DefaultCompletionMarker = "<task_summary>"

// Result is what a finished loop hands to the persister.
type Result struct {
	State      *workflow.RunState
	Iterations int
}

// Loop drives a single coding agent until it reports completion or
// reaches the iteration ceiling.
type Loop struct {
	provider      llmProvider
	tools         toolManager
	events        chan<- workflow.Event
	maxIterations int
	systemPrompt  string
	marker        string
}

func NewLoop(provider llmProvider, tools toolManager, events chan<- workflow.Event, maxIterations int, systemPrompt, marker string) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if marker == "" {
		marker = DefaultCompletionMarker
	}
	return &Loop{
		provider:      provider,
		tools:         tools,
		events:        events,
		maxIterations: maxIterations,
		systemPrompt:  systemPrompt,
		marker:        marker,
	}
}

// Run executes the loop with prior conversation turns followed by input.
// Reaching the ceiling without a summary is not an error; the caller
// classifies the empty summary.
func (l *Loop) Run(ctx context.Context, history []provider.Message, input string) (*Result, error) {
	state := workflow.NewRunState()

	messages := make([]provider.Message, 0, len(history)+2)
	if l.systemPrompt != "" {
		messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: l.systemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: input})

	iterations := 0
	defer func() {
		l.emit(workflow.DoneEvent{Iterations: iterations, Completed: state.Done()})
	}()

	for !state.Done() && iterations < l.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l.emit(workflow.ThinkingEvent{Iteration: iterations + 1})

		resp, err := l.provider.Generate(ctx, messages, l.tools.Declarations())
		if err != nil {
			return nil, fmt.Errorf("provider.Generate: %w", err)
		}
		iterations++

		messages = append(messages, *resp)

		if resp.Content != "" {
			l.emit(workflow.TextEvent{Text: resp.Content})
		}

		for _, tc := range resp.ToolCalls {
			toolResp, err := l.tools.Execute(ctx, tc, state, l.events)
			if err != nil {
				return nil, fmt.Errorf("tools.Execute (%s): %w", tc.Function.Name, err)
			}
			messages = append(messages, toolResp)
		}

		if strings.Contains(resp.Content, l.marker) && state.Complete(resp.Content) {
			l.emit(workflow.SummaryEvent{Summary: state.Summary})
		}
	}

	return &Result{State: state, Iterations: iterations}, nil
}

func (l *Loop) emit(e workflow.Event) {
	if l.events != nil {
		l.events <- e
	}
}
