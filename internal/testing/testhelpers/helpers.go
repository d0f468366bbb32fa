// Package testhelpers provides shared utilities for workflow tests.
package testhelpers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/tool"
)

// MockProvider is a scripted LLM. Responses are returned in order; once the
// script runs out it keeps answering with DefaultText.
type MockProvider struct {
	mu        sync.Mutex
	responses []provider.Message
	index     int

	DefaultText string
	Err         error

	// Calls records the conversation passed to each Generate call.
	Calls [][]provider.Message

	// OnGenerateCalled is a callback for observing Generate calls.
	OnGenerateCalled func(messages []provider.Message, tools []tool.Declaration)
}

// NewMockProvider creates an empty script.
func NewMockProvider() *MockProvider {
	return &MockProvider{DefaultText: "Working on it."}
}

// WithTextResponse queues a plain text reply.
func (m *MockProvider) WithTextResponse(text string) *MockProvider {
	m.responses = append(m.responses, provider.Message{
		Role:    provider.RoleAssistant,
		Content: text,
	})
	return m
}

// WithToolCallResponse queues a reply that calls one tool with args encoded as JSON.
func (m *MockProvider) WithToolCallResponse(name string, args any) *MockProvider {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	m.responses = append(m.responses, provider.Message{
		Role: provider.RoleAssistant,
		ToolCalls: []provider.ToolCall{{
			ID:       fmt.Sprintf("call-%d", len(m.responses)+1),
			Function: provider.FunctionCall{Name: name, Arguments: raw},
		}},
	})
	return m
}

// WithResponse queues an arbitrary reply.
func (m *MockProvider) WithResponse(msg provider.Message) *MockProvider {
	m.responses = append(m.responses, msg)
	return m
}

// Generate returns the next scripted reply.
func (m *MockProvider) Generate(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]provider.Message, len(messages))
	copy(snapshot, messages)
	m.Calls = append(m.Calls, snapshot)

	if m.OnGenerateCalled != nil {
		m.OnGenerateCalled(messages, tools)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	if m.index >= len(m.responses) {
		return &provider.Message{Role: provider.RoleAssistant, Content: m.DefaultText}, nil
	}
	resp := m.responses[m.index]
	m.index++
	return &resp, nil
}

// CallCount returns how many times Generate was called.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
