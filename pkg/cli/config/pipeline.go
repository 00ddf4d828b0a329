package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/cogsmith/pkg/service/codecheck"
	"github.com/secmon-lab/cogsmith/pkg/service/completion"
	"github.com/urfave/cli/v3"
)

// PipelineFile is the optional TOML file tuning generation and validation
type PipelineFile struct {
	Generation Generation `toml:"generation"`
	Models     Models     `toml:"models"`
	Validator  Validation `toml:"validator"`
}

// Generation overrides completion parameters. Unset values keep the built-in defaults.
type Generation struct {
	Timeout string        `toml:"timeout"`
	Code    ParamsSection `toml:"code"`
	Chat    ParamsSection `toml:"chat"`
}

// ParamsSection is one generation parameter set
type ParamsSection struct {
	Temperature *float32 `toml:"temperature"`
	MaxTokens   *int32   `toml:"max_tokens"`
}

// Models names the model each provider uses
type Models struct {
	Gemini string `toml:"gemini"`
	GenAI  string `toml:"genai"`
	OpenAI string `toml:"openai"`
}

// Validation configures the plugin code validator
type Validation struct {
	ElevatedPermissions []string `toml:"elevated_permissions"`
}

func (p ParamsSection) validate(section string) error {
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return goerr.Wrap(ErrInvalidConfig, "temperature must be between 0 and 2",
			goerr.V(FieldKey, section+".temperature"), goerr.V("value", *p.Temperature))
	}
	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "max_tokens must be positive",
			goerr.V(FieldKey, section+".max_tokens"), goerr.V("value", *p.MaxTokens))
	}
	return nil
}

func (p ParamsSection) apply(base completion.Params) completion.Params {
	if p.Temperature != nil {
		base.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		base.MaxTokens = *p.MaxTokens
	}
	return base
}

// Validate checks value ranges of the file
func (f *PipelineFile) Validate() error {
	if f.Generation.Timeout != "" {
		d, err := time.ParseDuration(f.Generation.Timeout)
		if err != nil {
			return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid timeout",
				goerr.V(FieldKey, "generation.timeout"), goerr.V("value", f.Generation.Timeout))
		}
		if d <= 0 {
			return goerr.Wrap(ErrInvalidConfig, "timeout must be positive",
				goerr.V(FieldKey, "generation.timeout"), goerr.V("value", f.Generation.Timeout))
		}
	}
	if err := f.Generation.Code.validate("generation.code"); err != nil {
		return err
	}
	if err := f.Generation.Chat.validate("generation.chat"); err != nil {
		return err
	}
	for i, perm := range f.Validator.ElevatedPermissions {
		if perm == "" {
			return goerr.Wrap(ErrInvalidConfig, "empty permission name",
				goerr.V(FieldKey, "validator.elevated_permissions"), goerr.V("index", i))
		}
	}
	return nil
}

// Timeout returns the configured per-call timeout, or zero when unset
func (f *PipelineFile) Timeout() time.Duration {
	d, _ := time.ParseDuration(f.Generation.Timeout)
	return d
}

// NewValidator builds the code validator described by the file
func (f *PipelineFile) NewValidator() *codecheck.Validator {
	if len(f.Validator.ElevatedPermissions) == 0 {
		return codecheck.New()
	}
	return codecheck.New(codecheck.WithElevatedPermissions(f.Validator.ElevatedPermissions))
}

// CompletionOptions returns completion service options for the file and validator v
func (f *PipelineFile) CompletionOptions(v *codecheck.Validator) []completion.Option {
	return []completion.Option{
		completion.WithCodeParams(f.Generation.Code.apply(completion.DefaultCodeParams)),
		completion.WithChatParams(f.Generation.Chat.apply(completion.DefaultChatParams)),
		completion.WithTimeout(f.Timeout()),
		completion.WithValidator(v),
	}
}

// LoadPipelineFile reads and validates a pipeline TOML file. Unknown keys are rejected.
func LoadPipelineFile(path string) (*PipelineFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "pipeline config not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read pipeline config", goerr.V(ConfigPathKey, path))
	}

	var file PipelineFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse pipeline config",
			goerr.V(ConfigPathKey, path))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "pipeline config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &file, nil
}

// Pipeline holds the CLI flag pointing at the pipeline file
type Pipeline struct {
	path string
}

func (p *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "pipeline-config",
			Aliases:     []string{"c"},
			Usage:       "Path to pipeline TOML file (generation params, models, validator)",
			Sources:     cli.EnvVars("COGSMITH_PIPELINE_CONFIG"),
			Destination: &p.path,
		},
	}
}

func (p Pipeline) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", p.path))
}

// Path returns the configured file path, empty when unset
func (p *Pipeline) Path() string {
	return p.path
}

// Configure loads the file. Without a path the built-in defaults apply.
func (p *Pipeline) Configure() (*PipelineFile, error) {
	if p.path == "" {
		return &PipelineFile{}, nil
	}
	return LoadPipelineFile(p.path)
}
