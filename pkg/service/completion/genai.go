package completion

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"google.golang.org/api/option"
)

// GenAIProvider completes with the API-key Gemini client
type GenAIProvider struct {
	client *genai.Client
	model  string
}

var _ Provider = &GenAIProvider{}

// NewGenAIProvider connects with apiKey. Close releases the client.
func NewGenAIProvider(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	return &GenAIProvider{client: client, model: model}, nil
}

func (p *GenAIProvider) Close() error {
	return p.client.Close()
}

func (p *GenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	m := p.client.GenerativeModel(p.model)
	m.SetTemperature(req.Params.Temperature)
	m.SetMaxOutputTokens(req.Params.MaxTokens)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.SystemPrompt)},
	}

	chat := m.StartChat()
	for _, turn := range req.History {
		role := "user"
		if turn.Role == types.MessageRoleAI {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	resp, err := chat.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content with genai", goerr.V("model", p.model))
	}

	return genaiText(resp), nil
}

func genaiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var sb strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// first candidate only
		break
	}
	return sb.String()
}
