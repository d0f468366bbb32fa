package summarize

import (
	"context"
	"testing"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/testing/testhelpers"
	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SendsSystemPromptAndInputWithoutTools(t *testing.T) {
	mp := testhelpers.NewMockProvider().WithTextResponse("Landing Page")
	var gotTools []tool.Declaration
	mp.OnGenerateCalled = func(messages []provider.Message, tools []tool.Declaration) {
		gotTools = tools
	}

	out, err := NewTitleAgent(mp).Run(context.Background(), "<task_summary>built it</task_summary>")

	require.NoError(t, err)
	require.Len(t, mp.Calls, 1)
	assert.Empty(t, gotTools)
	assert.Equal(t, []provider.Message{
		{Role: provider.RoleSystem, Content: TitlePrompt},
		{Role: provider.RoleUser, Content: "<task_summary>built it</task_summary>"},
	}, mp.Calls[0])

	title, ok := FirstText(out)
	assert.True(t, ok)
	assert.Equal(t, "Landing Page", title)
}

func TestRun_ToolCallFirst_NoUsableOutput(t *testing.T) {
	mp := testhelpers.NewMockProvider().WithToolCallResponse("terminal", map[string]any{"command": "ls"})

	out, err := NewResponseAgent(mp).Run(context.Background(), "summary")

	require.NoError(t, err)
	require.Len(t, out, 1)
	_, ok := FirstText(out)
	assert.False(t, ok)
}

func TestRun_TextAndToolCall_TextComesFirst(t *testing.T) {
	mp := testhelpers.NewMockProvider().WithResponse(provider.Message{
		Role:    provider.RoleAssistant,
		Content: "Here is your app.",
		ToolCalls: []provider.ToolCall{
			{ID: "c1", Function: provider.FunctionCall{Name: "terminal"}},
		},
	})

	out, err := NewResponseAgent(mp).Run(context.Background(), "summary")

	require.NoError(t, err)
	require.Len(t, out, 2)
	text, ok := FirstText(out)
	assert.True(t, ok)
	assert.Equal(t, "Here is your app.", text)
}

func TestRun_ProviderError_IsWrappedWithAgentName(t *testing.T) {
	mp := testhelpers.NewMockProvider()
	mp.Err = provider.ErrRateLimit

	_, err := NewTitleAgent(mp).Run(context.Background(), "summary")

	assert.ErrorIs(t, err, provider.ErrRateLimit)
	assert.Contains(t, err.Error(), TitleAgent)
}

func TestFirstText(t *testing.T) {
	_, ok := FirstText(nil)
	assert.False(t, ok)

	_, ok = FirstText([]provider.Message{{Role: provider.RoleAssistant}})
	assert.False(t, ok)

	text, ok := FirstText([]provider.Message{{Role: provider.RoleAssistant, Content: "a"}, {Role: provider.RoleAssistant, Content: "b"}})
	assert.True(t, ok)
	assert.Equal(t, "a", text)
}
