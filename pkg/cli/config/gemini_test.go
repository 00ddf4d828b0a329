package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/cogsmith/pkg/cli/config"
)

func TestGemini_ClientFactory(t *testing.T) {
	t.Run("returns nil factory when project ID is empty", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "us-central1")
		gt.Value(t, cfg.ClientFactory("")).Nil()
	})

	t.Run("returns factory when project ID is set", func(t *testing.T) {
		cfg := config.NewGeminiForTest("my-project", "us-central1")
		gt.Value(t, cfg.ClientFactory("gemini-2.5-pro")).NotNil()
	})

	t.Run("returns flags", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "")
		flags := cfg.Flags()
		gt.Value(t, len(flags)).Equal(2)
	})
}
