package generation

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// DefaultOpenAIModel is the fallback chat model when none is configured.
const DefaultOpenAIModel = "gpt-4o"

// openaiProvider wraps the official OpenAI client for JSON-mode chat
// completions.
type openaiProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(client *openai.Client, model string) *openaiProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &openaiProvider{client: client, model: model}
}

// generate runs a single completion. When jsonOutput is set the JSON
// response format is enforced so the model cannot return prose.
func (p *openaiProvider) generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64, jsonOutput bool) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       p.model,
		Temperature: openai.Float(temperature),
	}
	if jsonOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *openaiProvider) modelName() string {
	return p.model
}
