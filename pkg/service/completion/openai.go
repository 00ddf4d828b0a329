package completion

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// OpenAIProvider completes with OpenAI chat completions
type OpenAIProvider struct {
	client openai.Client
	model  string
}

var _ Provider = &OpenAIProvider{}

// NewOpenAIProvider creates a provider. baseURL may be empty for the public endpoint.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	for _, turn := range req.History {
		if turn.Role == types.MessageRoleAI {
			messages = append(messages, openai.AssistantMessage(turn.Content))
		} else {
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(p.model),
		Messages:            messages,
		Temperature:         openai.Float(float64(req.Params.Temperature)),
		MaxCompletionTokens: openai.Int(int64(req.Params.MaxTokens)),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create chat completion", goerr.V("model", p.model))
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}
