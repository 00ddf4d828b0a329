package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/cogsmith/pkg/cli/config"
)

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestLoadPipelineFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "full configuration",
			content: `
[generation]
timeout = "90s"

[generation.code]
temperature = 0.2
max_tokens = 8192

[generation.chat]
temperature = 0.9

[models]
gemini = "gemini-2.5-pro"
openai = "gpt-4o"

[validator]
elevated_permissions = ["administrator", "ban_members"]
`,
		},
		{
			name:    "empty file keeps defaults",
			content: "",
		},
		{
			name: "temperature out of range",
			content: `
[generation.code]
temperature = 3.5
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "non-positive max tokens",
			content: `
[generation.chat]
max_tokens = 0
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "broken timeout",
			content: `
[generation]
timeout = "soon"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "unknown key",
			content: `
[generation]
retries = 3
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name:    "malformed TOML",
			content: `[generation`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := config.LoadPipelineFile(writeTOML(t, tt.content))
			if tt.wantErr != nil {
				gt.Bool(t, errors.Is(err, tt.wantErr)).True()
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, file).NotNil()
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadPipelineFile(filepath.Join(t.TempDir(), "none.toml"))
		gt.Bool(t, errors.Is(err, config.ErrConfigNotFound)).True()
	})
}

func TestPipelineFile_Values(t *testing.T) {
	file, err := config.LoadPipelineFile(writeTOML(t, `
[generation]
timeout = "90s"

[generation.code]
max_tokens = 8192

[models]
openai = "gpt-4o"

[validator]
elevated_permissions = ["manage_guild"]
`))
	gt.NoError(t, err).Required()

	gt.Value(t, file.Timeout()).Equal(90 * time.Second)
	gt.Value(t, file.Models.OpenAI).Equal("gpt-4o")
	gt.Number(t, *file.Generation.Code.MaxTokens).Equal(8192)
	gt.Value(t, file.Generation.Code.Temperature).Nil()
	gt.Array(t, file.CompletionOptions(file.NewValidator())).Length(4)

	report := file.NewValidator().Validate("import discord\n# needs manage_guild\n")
	gt.Value(t, report).NotNil()
}

func TestPipeline_Configure(t *testing.T) {
	t.Run("no path returns empty file", func(t *testing.T) {
		file, err := config.NewPipelineForTest("").Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, file.Timeout()).Equal(time.Duration(0))
	})

	t.Run("path is loaded", func(t *testing.T) {
		path := writeTOML(t, "[models]\ngenai = \"gemini-2.0-flash\"\n")
		file, err := config.NewPipelineForTest(path).Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, file.Models.GenAI).Equal("gemini-2.0-flash")
	})
}
