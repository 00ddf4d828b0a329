package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/service/completion"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	defaultGenAIModel  = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

// LLM selects and configures the completion provider
type LLM struct {
	provider string
	gemini   Gemini

	genaiAPIKey   string
	openaiAPIKey  string
	openaiBaseURL string
}

func (l *LLM) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "Completion provider (gemini, genai, openai). Empty disables generation.",
			Category:    "LLM",
			Sources:     cli.EnvVars("COGSMITH_LLM_PROVIDER"),
			Destination: &l.provider,
		},
		&cli.StringFlag{
			Name:        "genai-api-key",
			Usage:       "Gemini API key (genai provider)",
			Category:    "LLM",
			Sources:     cli.EnvVars("COGSMITH_GENAI_API_KEY", "GEMINI_API_KEY"),
			Destination: &l.genaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key (openai provider)",
			Category:    "LLM",
			Sources:     cli.EnvVars("COGSMITH_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &l.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "OpenAI compatible endpoint (openai provider)",
			Category:    "LLM",
			Sources:     cli.EnvVars("COGSMITH_OPENAI_BASE_URL"),
			Destination: &l.openaiBaseURL,
		},
	}
	return append(flags, l.gemini.Flags()...)
}

func (l LLM) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("provider", l.provider),
		slog.Bool("genai_api_key_set", l.genaiAPIKey != ""),
		slog.Bool("openai_api_key_set", l.openaiAPIKey != ""),
		slog.String("openai_base_url", l.openaiBaseURL),
	}
	attrs = append(attrs, l.gemini.LogAttrs()...)
	return slog.GroupValue(attrs...)
}

// Provider returns the configured provider name
func (l *LLM) Provider() string {
	return l.provider
}

// Configure creates the completion Provider. models supplies per-provider model names.
// Returns a nil provider when none is selected; generation operations are then unavailable.
// The returned function releases provider resources.
func (l *LLM) Configure(ctx context.Context, models Models) (completion.Provider, func(), error) {
	noop := func() {}

	switch l.provider {
	case "":
		logging.Default().Warn("No LLM provider configured, generation is disabled")
		return nil, noop, nil

	case "gemini":
		factory := l.gemini.ClientFactory(models.Gemini)
		if factory == nil {
			return nil, nil, goerr.Wrap(ErrMissingParameter, "gemini-project is required for gemini provider",
				goerr.V(ParameterKey, "gemini-project"))
		}
		return completion.NewGollemProvider(factory), noop, nil

	case "genai":
		if l.genaiAPIKey == "" {
			return nil, nil, goerr.Wrap(ErrMissingParameter, "genai-api-key is required for genai provider",
				goerr.V(ParameterKey, "genai-api-key"))
		}
		model := models.GenAI
		if model == "" {
			model = defaultGenAIModel
		}
		p, err := completion.NewGenAIProvider(ctx, l.genaiAPIKey, model)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create genai provider")
		}
		return p, func() {
			if err := p.Close(); err != nil {
				logging.Default().Warn("failed to close genai client", "error", err.Error())
			}
		}, nil

	case "openai":
		if l.openaiAPIKey == "" {
			return nil, nil, goerr.Wrap(ErrMissingParameter, "openai-api-key is required for openai provider",
				goerr.V(ParameterKey, "openai-api-key"))
		}
		model := models.OpenAI
		if model == "" {
			model = defaultOpenAIModel
		}
		return completion.NewOpenAIProvider(l.openaiAPIKey, model, l.openaiBaseURL), noop, nil

	default:
		return nil, nil, goerr.Wrap(ErrInvalidProvider, "unknown LLM provider", goerr.V(ProviderKey, l.provider))
	}
}
