package completion

import (
	"context"

	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// Params are generation parameters for one call
type Params struct {
	Temperature float32
	MaxTokens   int32
}

// Turn is one earlier message of the conversation
type Turn struct {
	Role    types.MessageRole `json:"role"`
	Content string            `json:"content"`
}

// Request is a single completion call
type Request struct {
	SystemPrompt string
	Prompt       string
	History      []Turn
	Params       Params
}

// Provider is a text-completion backend. An empty string with nil error means no content.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}
