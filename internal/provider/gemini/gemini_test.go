package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: "model", Parts: parts},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestGenerate_TextResponse_ConcatenatesParts(t *testing.T) {
	client := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			assert.Equal(t, "gemini-2.5-flash", model)
			return textResponse(&genai.Part{Text: "Hello "}, &genai.Part{Text: "there!"}), nil
		},
	}

	msg, err := New(client, "gemini-2.5-flash").Generate(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "hi"}}, nil)

	require.NoError(t, err)
	assert.Equal(t, provider.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello there!", msg.Content)
	assert.Empty(t, msg.ToolCalls)
}

func TestGenerate_ThoughtPartsAreDropped(t *testing.T) {
	client := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse(&genai.Part{Text: "thinking...", Thought: true}, &genai.Part{Text: "answer"}), nil
		},
	}

	msg, err := New(client, "m").Generate(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "hi"}}, nil)

	require.NoError(t, err)
	assert.Equal(t, "answer", msg.Content)
}

func TestGenerate_ToolCalls_KeepOrderAndGetIDs(t *testing.T) {
	client := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse(
				&genai.Part{Text: "Let me set up."},
				&genai.Part{FunctionCall: &genai.FunctionCall{ID: "fc-1", Name: "terminal", Args: map[string]any{"command": "npm i"}}},
				&genai.Part{FunctionCall: &genai.FunctionCall{Name: "readFiles", Args: map[string]any{"files": []any{"a.ts"}}}},
			), nil
		},
	}

	msg, err := New(client, "m").Generate(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "hi"}}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Let me set up.", msg.Content)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, "fc-1", msg.ToolCalls[0].ID)
	assert.Equal(t, "terminal", msg.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"command":"npm i"}`, string(msg.ToolCalls[0].Function.Arguments))
	assert.NotEmpty(t, msg.ToolCalls[1].ID)
	assert.Equal(t, "readFiles", msg.ToolCalls[1].Function.Name)
}

func TestGenerate_SendsSystemInstructionAndTools(t *testing.T) {
	var gotConfig *genai.GenerateContentConfig
	var gotContents []*genai.Content
	client := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotConfig = config
			gotContents = contents
			return textResponse(&genai.Part{Text: "ok"}), nil
		},
	}
	decls := []tool.Declaration{{
		Name:        "createOrUpdateFiles",
		Description: "write",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"files": {
					Type: tool.TypeArray,
					Items: &tool.Schema{
						Type: tool.TypeObject,
						Properties: map[string]*tool.Schema{
							"path": {Type: tool.TypeString},
						},
						Required: []string{"path"},
					},
				},
			},
			Required: []string{"files"},
		},
	}}

	_, err := New(client, "m").Generate(context.Background(), []provider.Message{
		{Role: provider.RoleSystem, Content: "be helpful"},
		{Role: provider.RoleUser, Content: "hi"},
	}, decls)

	require.NoError(t, err)
	require.NotNil(t, gotConfig.SystemInstruction)
	assert.Equal(t, "be helpful", gotConfig.SystemInstruction.Parts[0].Text)
	require.Len(t, gotContents, 1)
	assert.Equal(t, "user", gotContents[0].Role)

	require.Len(t, gotConfig.Tools, 1)
	fd := gotConfig.Tools[0].FunctionDeclarations[0]
	assert.Equal(t, "createOrUpdateFiles", fd.Name)
	items := fd.Parameters.Properties["files"].Items
	assert.Equal(t, genai.TypeObject, items.Type)
	assert.Equal(t, genai.TypeString, items.Properties["path"].Type)
	assert.Equal(t, []string{"path"}, items.Required)
	assert.Len(t, gotConfig.SafetySettings, 4)
}

func TestGenerate_NoContent_ReturnsInvalidRequest(t *testing.T) {
	client := &MockGeminiClient{}

	_, err := New(client, "m").Generate(context.Background(), []provider.Message{{Role: provider.RoleSystem, Content: "only system"}}, nil)

	assert.ErrorIs(t, err, provider.ErrInvalidRequest)
}

func TestGenerate_NoCandidates_ReturnsEmptyResponse(t *testing.T) {
	client := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		},
	}

	_, err := New(client, "m").Generate(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "hi"}}, nil)

	assert.ErrorIs(t, err, provider.ErrEmptyResponse)
}

func TestGenerate_SafetyBlocked(t *testing.T) {
	client := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}, nil
		},
	}

	_, err := New(client, "m").Generate(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "hi"}}, nil)

	assert.ErrorIs(t, err, provider.ErrContentBlocked)
	assert.False(t, provider.IsRetryable(err))
}

func TestGenerate_APIErrors_AreMapped(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		sentinel  error
		retryable bool
	}{
		{"auth", genai.APIError{Code: 401, Message: "bad key"}, provider.ErrAuthentication, false},
		{"rate limit", genai.APIError{Code: 429, Message: "slow down"}, provider.ErrRateLimit, true},
		{"bad request", genai.APIError{Code: 400, Message: "bad"}, provider.ErrInvalidRequest, false},
		{"unavailable", genai.APIError{Code: 503, Message: "down"}, nil, true},
		{"transport", errors.New("connection reset"), provider.ErrNetwork, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &MockGeminiClient{
				GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
					return nil, tc.err
				},
			}

			_, err := New(client, "m").Generate(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "hi"}}, nil)

			var perr *provider.ProviderError
			require.ErrorAs(t, err, &perr)
			if tc.sentinel != nil {
				assert.ErrorIs(t, err, tc.sentinel)
			}
			assert.Equal(t, tc.retryable, provider.IsRetryable(err))
		})
	}
}

func TestToGeminiContents_ToolTurnsRoundTrip(t *testing.T) {
	messages := []provider.Message{
		{Role: provider.RoleUser, Content: "build"},
		{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{
			{ID: "c1", Function: provider.FunctionCall{Name: "terminal", Arguments: json.RawMessage(`{"command":"ls"}`)}},
			{ID: "c2", Function: provider.FunctionCall{Name: "readFiles", Arguments: json.RawMessage(`{"files":["a"]}`)}},
		}},
		{Role: provider.RoleTool, ToolCallID: "c1", Content: "a\n"},
		{Role: provider.RoleTool, ToolCallID: "c2", Content: "[]"},
		{Role: provider.RoleAssistant, Content: "done"},
	}

	contents, system := toGeminiContents(messages)

	assert.Nil(t, system)
	require.Len(t, contents, 4)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "terminal", contents[1].Parts[0].FunctionCall.Name)
	assert.Equal(t, map[string]any{"command": "ls"}, contents[1].Parts[0].FunctionCall.Args)

	responses := contents[2]
	assert.Equal(t, "user", responses.Role)
	require.Len(t, responses.Parts, 2)
	assert.Equal(t, "terminal", responses.Parts[0].FunctionResponse.Name)
	assert.Equal(t, "c1", responses.Parts[0].FunctionResponse.ID)
	assert.Equal(t, map[string]any{"output": "a\n"}, responses.Parts[0].FunctionResponse.Response)
	assert.Equal(t, "readFiles", responses.Parts[1].FunctionResponse.Name)

	assert.Equal(t, "done", contents[3].Parts[0].Text)
}

func TestDecodeArgs_MalformedBecomesEmpty(t *testing.T) {
	assert.Equal(t, map[string]any{}, decodeArgs(json.RawMessage(`{nope`)))
	assert.Equal(t, map[string]any{}, decodeArgs(nil))
}
