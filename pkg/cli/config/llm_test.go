package config_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/cogsmith/pkg/cli/config"
)

func TestLLM_Configure(t *testing.T) {
	t.Run("no provider disables generation", func(t *testing.T) {
		p, closer, err := config.NewLLMForTest("", "", "").Configure(t.Context(), config.Models{})
		gt.NoError(t, err).Required()
		gt.Value(t, p).Nil()
		closer()
	})

	t.Run("openai with key", func(t *testing.T) {
		p, closer, err := config.NewLLMForTest("openai", "", "sk-test").Configure(t.Context(), config.Models{OpenAI: "gpt-4o"})
		gt.NoError(t, err).Required()
		gt.Value(t, p).NotNil()
		closer()
	})

	t.Run("openai without key", func(t *testing.T) {
		_, _, err := config.NewLLMForTest("openai", "", "").Configure(t.Context(), config.Models{})
		gt.Bool(t, errors.Is(err, config.ErrMissingParameter)).True()
	})

	t.Run("genai without key", func(t *testing.T) {
		_, _, err := config.NewLLMForTest("genai", "", "").Configure(t.Context(), config.Models{})
		gt.Bool(t, errors.Is(err, config.ErrMissingParameter)).True()
	})

	t.Run("gemini without project", func(t *testing.T) {
		_, _, err := config.NewLLMForTest("gemini", "", "").Configure(t.Context(), config.Models{})
		gt.Bool(t, errors.Is(err, config.ErrMissingParameter)).True()
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, _, err := config.NewLLMForTest("claude", "", "").Configure(t.Context(), config.Models{})
		gt.Bool(t, errors.Is(err, config.ErrInvalidProvider)).True()
	})
}
