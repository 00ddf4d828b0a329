package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/secmon-lab/cogsmith/pkg/service/completion"
	"github.com/urfave/cli/v3"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini holds configuration for the Vertex AI Gemini client
type Gemini struct {
	projectID string
	location  string
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Vertex AI Gemini",
			Category:    "LLM",
			Sources:     cli.EnvVars("COGSMITH_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Vertex AI Gemini",
			Value:       "us-central1",
			Category:    "LLM",
			Sources:     cli.EnvVars("COGSMITH_GEMINI_LOCATION"),
			Destination: &g.location,
		},
	}
}

// LogAttrs returns log attributes for the Gemini configuration
func (g *Gemini) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
	}
}

// ClientFactory returns a factory creating one gollem Gemini client per parameter set.
// Returns nil if projectID is not configured.
func (g *Gemini) ClientFactory(model string) completion.ClientFactory {
	if g.projectID == "" {
		return nil
	}
	if model == "" {
		model = defaultGeminiModel
	}

	projectID, location := g.projectID, g.location
	return func(ctx context.Context, params completion.Params) (gollem.LLMClient, error) {
		client, err := gemini.New(ctx, projectID, location,
			gemini.WithModel(model),
			gemini.WithTemperature(params.Temperature),
			gemini.WithMaxTokens(params.MaxTokens),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client", goerr.V("model", model))
		}
		return client, nil
	}
}
