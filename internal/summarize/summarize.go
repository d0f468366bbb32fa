// Package summarize runs the single-shot agents that turn a finished run
// into a fragment title and a user-facing reply.
package summarize

import (
	"context"
	"fmt"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/tool"
)

// Agent names.
const (
	TitleAgent    = "fragment-title-generator"
	ResponseAgent = "response-generator"
)

type llmProvider interface {
	Generate(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error)
}

// Agent is a stateless, tool-less model invocation with a fixed system prompt.
type Agent struct {
	name         string
	provider     llmProvider
	systemPrompt string
}

func NewAgent(name string, provider llmProvider, systemPrompt string) *Agent {
	return &Agent{name: name, provider: provider, systemPrompt: systemPrompt}
}

// NewTitleAgent creates the fragment title generator.
func NewTitleAgent(provider llmProvider) *Agent {
	return NewAgent(TitleAgent, provider, TitlePrompt)
}

// NewResponseAgent creates the reply generator.
func NewResponseAgent(provider llmProvider) *Agent {
	return NewAgent(ResponseAgent, provider, ResponsePrompt)
}

func (a *Agent) Name() string { return a.name }

// Run sends input once and returns the reply as output messages: the text
// first, if any, then one message per tool call.
func (a *Agent) Run(ctx context.Context, input string) ([]provider.Message, error) {
	messages := []provider.Message{
		{Role: provider.RoleSystem, Content: a.systemPrompt},
		{Role: provider.RoleUser, Content: input},
	}

	resp, err := a.provider.Generate(ctx, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	var out []provider.Message
	if resp.Content != "" {
		out = append(out, provider.Message{Role: provider.RoleAssistant, Content: resp.Content})
	}
	for _, tc := range resp.ToolCalls {
		out = append(out, provider.Message{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{tc}})
	}
	return out, nil
}

// FirstText returns the content of the first output message when it is a
// text message. Any other shape reports no usable output.
func FirstText(msgs []provider.Message) (string, bool) {
	if len(msgs) == 0 || !msgs[0].IsText() {
		return "", false
	}
	return msgs[0].Content, true
}
