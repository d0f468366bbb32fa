package gemini

import (
	"context"

	"github.com/Cyclone1070/codeagent/internal/provider"
	"github.com/Cyclone1070/codeagent/internal/tool"
)

// GeminiProvider generates assistant messages with a Gemini model.
type GeminiProvider struct {
	client    GeminiClient
	modelName string
}

// New creates a new GeminiProvider with the specified client and model.
func New(client GeminiClient, modelName string) *GeminiProvider {
	return &GeminiProvider{
		client:    client,
		modelName: modelName,
	}
}

// Model returns the model name requests are sent to.
func (p *GeminiProvider) Model() string {
	return p.modelName
}

// Generate sends the conversation to the model and returns its reply.
func (p *GeminiProvider) Generate(ctx context.Context, messages []provider.Message, tools []tool.Declaration) (*provider.Message, error) {
	contents, system := toGeminiContents(messages)
	if len(contents) == 0 {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeInvalidRequest,
			Message: "no content to send",
		}
	}

	resp, err := p.client.GenerateContent(ctx, p.modelName, contents, toGeminiConfig(system, tools))
	if err != nil {
		return nil, mapGeminiError(err)
	}

	return fromGeminiResponse(resp)
}
