package completion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// ClientFactory builds an LLM client for a parameter set
type ClientFactory func(ctx context.Context, params Params) (gollem.LLMClient, error)

// GollemProvider completes through gollem. Generation parameters are client options in
// gollem, so one client is kept per distinct Params.
type GollemProvider struct {
	factory ClientFactory

	mu      sync.Mutex
	clients map[Params]gollem.LLMClient
}

var _ Provider = &GollemProvider{}

// NewGollemProvider creates a provider that obtains clients from factory
func NewGollemProvider(factory ClientFactory) *GollemProvider {
	return &GollemProvider{
		factory: factory,
		clients: make(map[Params]gollem.LLMClient),
	}
}

func (p *GollemProvider) client(ctx context.Context, params Params) (gollem.LLMClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[params]; ok {
		return c, nil
	}

	c, err := p.factory(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM client",
			goerr.V("temperature", params.Temperature), goerr.V("max_tokens", params.MaxTokens))
	}
	p.clients[params] = c
	return c, nil
}

func (p *GollemProvider) Complete(ctx context.Context, req Request) (string, error) {
	client, err := p.client(ctx, req.Params)
	if err != nil {
		return "", err
	}

	session, err := client.NewSession(ctx, gollem.WithSessionSystemPrompt(req.SystemPrompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(renderConversation(req.History, req.Prompt)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil {
		return "", nil
	}

	return strings.Join(resp.Texts, ""), nil
}

// renderConversation flattens history into the prompt for providers without a chat history API
func renderConversation(history []Turn, prompt string) string {
	if len(history) == 0 {
		return prompt
	}

	var sb strings.Builder
	sb.WriteString("## Conversation so far\n\n")
	for _, turn := range history {
		speaker := "User"
		if turn.Role == types.MessageRoleAI {
			speaker = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s\n\n", speaker, turn.Content)
	}
	sb.WriteString("## Current request\n\n")
	sb.WriteString(prompt)
	return sb.String()
}
