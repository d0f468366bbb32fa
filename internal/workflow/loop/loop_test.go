package loop

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/Cyclone1070/codeagent/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	generateFunc func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error)
}

func (m *mockProvider) Generate(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
	return m.generateFunc(ctx, messages, tools)
}

type mockToolManager struct {
	declarations []tool.Declaration
	executeFunc  func(ctx context.Context, tc provider.ToolCall, state *workflow.RunState, events chan<- workflow.Event) (provider.Message, error)
}

func (m *mockToolManager) Declarations() []tool.Declaration {
	return m.declarations
}

func (m *mockToolManager) Execute(ctx context.Context, tc provider.ToolCall, state *workflow.RunState, events chan<- workflow.Event) (provider.Message, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, tc, state, events)
	}
	return provider.Message{Role: provider.RoleTool, ToolCallID: tc.ID, Content: "ok"}, nil
}

func text(s string) *provider.Message {
	return &provider.Message{Role: provider.RoleAssistant, Content: s}
}

func toolCalls(names ...string) *provider.Message {
	msg := &provider.Message{Role: provider.RoleAssistant}
	for i, n := range names {
		msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{
			ID:       fmt.Sprintf("call-%d", i+1),
			Function: provider.FunctionCall{Name: n},
		})
	}
	return msg
}

func TestRun_SentinelStopsLoopAndCapturesFullText(t *testing.T) {
	events := make(chan workflow.Event, 20)
	final := "All done.\n<task_summary>\nBuilt a landing page.\n</task_summary>"

	calls := 0
	mp := &mockProvider{
		generateFunc: func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			calls++
			if calls == 1 {
				return toolCalls("createOrUpdateFiles"), nil
			}
			return text(final), nil
		},
	}
	mtm := &mockToolManager{
		executeFunc: func(ctx context.Context, tc provider.ToolCall, state *workflow.RunState, events chan<- workflow.Event) (provider.Message, error) {
			state.PutFile("app/page.tsx", "x")
			return provider.Message{Role: provider.RoleTool, ToolCallID: tc.ID, Content: "Files written: app/page.tsx"}, nil
		},
	}

	res, err := NewLoop(mp, mtm, events, 15, "system", DefaultCompletionMarker).Run(context.Background(), nil, "build it")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, final, res.State.Summary)
	assert.Equal(t, map[string]string{"app/page.tsx": "x"}, res.State.Files)

	assert.Equal(t, workflow.ThinkingEvent{Iteration: 1}, <-events)
	assert.Equal(t, workflow.ThinkingEvent{Iteration: 2}, <-events)
	assert.Equal(t, workflow.TextEvent{Text: final}, <-events)
	assert.Equal(t, workflow.SummaryEvent{Summary: final}, <-events)
	assert.Equal(t, workflow.DoneEvent{Iterations: 2, Completed: true}, <-events)
}

func TestRun_TextWithoutMarker_Continues(t *testing.T) {
	calls := 0
	mp := &mockProvider{
		generateFunc: func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			calls++
			if calls < 3 {
				return text("still working"), nil
			}
			return text("<task_summary>done</task_summary>"), nil
		},
	}

	res, err := NewLoop(mp, &mockToolManager{}, nil, 15, "", "").Run(context.Background(), nil, "go")

	require.NoError(t, err)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, "<task_summary>done</task_summary>", res.State.Summary)
}

func TestRun_CeilingReached_ReturnsEmptySummaryWithoutError(t *testing.T) {
	calls := 0
	mp := &mockProvider{
		generateFunc: func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			calls++
			return toolCalls("terminal"), nil
		},
	}

	res, err := NewLoop(mp, &mockToolManager{}, nil, 15, "", "").Run(context.Background(), nil, "go")

	require.NoError(t, err)
	assert.Equal(t, 15, calls)
	assert.Equal(t, 15, res.Iterations)
	assert.Empty(t, res.State.Summary)
}

func TestNewLoop_Defaults(t *testing.T) {
	l := NewLoop(nil, nil, nil, 0, "", "")

	assert.Equal(t, DefaultMaxIterations, l.maxIterations)
	assert.Equal(t, DefaultCompletionMarker, l.marker)
}

func TestRun_BuildsMessagesFromSystemHistoryAndInput(t *testing.T) {
	var seen []provider.Message
	mp := &mockProvider{
		generateFunc: func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			seen = append([]provider.Message(nil), messages...)
			return text("<task_summary>ok</task_summary>"), nil
		},
	}
	history := []provider.Message{
		{Role: provider.RoleUser, Content: "make a todo app"},
		{Role: provider.RoleAssistant, Content: "Here it is"},
	}

	_, err := NewLoop(mp, &mockToolManager{}, nil, 15, "you are a coder", "").Run(context.Background(), history, "add dark mode")

	require.NoError(t, err)
	assert.Equal(t, []provider.Message{
		{Role: provider.RoleSystem, Content: "you are a coder"},
		{Role: provider.RoleUser, Content: "make a todo app"},
		{Role: provider.RoleAssistant, Content: "Here it is"},
		{Role: provider.RoleUser, Content: "add dark mode"},
	}, seen)
}

func TestRun_ToolCallsDispatchedInOrderAndAppended(t *testing.T) {
	var order []string
	var second []provider.Message
	calls := 0
	mp := &mockProvider{
		generateFunc: func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			calls++
			if calls == 1 {
				return toolCalls("terminal", "createOrUpdateFiles", "readFiles"), nil
			}
			second = append([]provider.Message(nil), messages...)
			return text("<task_summary>ok</task_summary>"), nil
		},
	}
	mtm := &mockToolManager{
		declarations: []tool.Declaration{{Name: "terminal"}},
		executeFunc: func(ctx context.Context, tc provider.ToolCall, state *workflow.RunState, events chan<- workflow.Event) (provider.Message, error) {
			order = append(order, tc.Function.Name)
			return provider.Message{Role: provider.RoleTool, ToolCallID: tc.ID, Content: tc.Function.Name + " result"}, nil
		},
	}

	_, err := NewLoop(mp, mtm, nil, 15, "", "").Run(context.Background(), nil, "go")

	require.NoError(t, err)
	assert.Equal(t, []string{"terminal", "createOrUpdateFiles", "readFiles"}, order)
	require.Len(t, second, 5)
	assert.Equal(t, "call-1", second[2].ToolCallID)
	assert.Equal(t, "readFiles result", second[4].Content)
}

func TestRun_SummaryIsSetOnlyOnce(t *testing.T) {
	mp := &mockProvider{
		generateFunc: func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			return &provider.Message{
				Role:      provider.RoleAssistant,
				Content:   "<task_summary>first</task_summary>",
				ToolCalls: []provider.ToolCall{{ID: "c", Function: provider.FunctionCall{Name: "terminal"}}},
			}, nil
		},
	}

	res, err := NewLoop(mp, &mockToolManager{}, nil, 15, "", "").Run(context.Background(), nil, "go")

	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, "<task_summary>first</task_summary>", res.State.Summary)
}

func TestRun_ProviderError_ReturnsError(t *testing.T) {
	mp := &mockProvider{
		generateFunc: func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			return nil, provider.ErrRateLimit
		},
	}
	events := make(chan workflow.Event, 10)

	res, err := NewLoop(mp, &mockToolManager{}, events, 5, "", "").Run(context.Background(), nil, "hi")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, provider.ErrRateLimit)
	assert.Contains(t, err.Error(), "provider.Generate")
}

func TestRun_ToolError_ReturnsError(t *testing.T) {
	mp := &mockProvider{
		generateFunc: func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			return toolCalls("createOrUpdateFiles"), nil
		},
	}
	mtm := &mockToolManager{
		executeFunc: func(ctx context.Context, tc provider.ToolCall, state *workflow.RunState, events chan<- workflow.Event) (provider.Message, error) {
			return provider.Message{}, fmt.Errorf("write fail")
		},
	}

	_, err := NewLoop(mp, mtm, make(chan workflow.Event, 10), 5, "", "").Run(context.Background(), nil, "hi")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tools.Execute (createOrUpdateFiles)")
}

func TestRun_ContextCancelled_ReturnsError(t *testing.T) {
	mp := &mockProvider{
		generateFunc: func(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			return text("ok"), nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoop(mp, &mockToolManager{}, nil, 5, "", "").Run(ctx, nil, "hi")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ContextCancelledMidRun_StopsBeforeNextIteration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	calls := 0
	mp := &mockProvider{
		generateFunc: func(c context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
			calls++
			cancel()
			return text("working"), nil
		},
	}

	_, err := NewLoop(mp, &mockToolManager{}, nil, 15, "", "").Run(ctx, nil, "hi")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
