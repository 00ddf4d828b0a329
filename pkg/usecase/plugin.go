package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"github.com/secmon-lab/cogsmith/pkg/service/codecheck"
	"github.com/secmon-lab/cogsmith/pkg/service/completion"
	"github.com/secmon-lab/cogsmith/pkg/service/marks"
)

// PluginUseCase holds the stateless plugin operations: generation, validation and parsing
type PluginUseCase struct {
	completion *completion.Service
	validator  *codecheck.Validator
}

func NewPluginUseCase(svc *completion.Service, validator *codecheck.Validator) *PluginUseCase {
	return &PluginUseCase{
		completion: svc,
		validator:  validator,
	}
}

// GenerateInput is a stateless generation request
type GenerateInput struct {
	SessionID model.SessionID   `json:"sessionId"`
	Step      types.StepID      `json:"step"`
	Prompt    string            `json:"prompt"`
	History   []completion.Turn `json:"history"`
}

// GenerateStep produces one response without touching any session
func (uc *PluginUseCase) GenerateStep(ctx context.Context, in GenerateInput) (*completion.StepOutput, error) {
	if uc.completion == nil {
		return nil, goerr.Wrap(ErrCompletionUnavailable, "cannot generate")
	}
	if !in.Step.IsValid() {
		return nil, validationError("invalid step", goerr.V(StepKey, in.Step))
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, validationError("prompt is required")
	}
	for i, turn := range in.History {
		if !turn.Role.IsValid() {
			return nil, validationError("invalid role in history", goerr.V("index", i), goerr.V("role", turn.Role))
		}
	}

	out, err := uc.completion.Generate(ctx, completion.StepRequest(in))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate", goerr.V(SessionIDKey, in.SessionID), goerr.V(StepKey, in.Step))
	}
	return out, nil
}

// ValidationResult is a validation report with the enhanced code when enhancement applied
type ValidationResult struct {
	Report   *codecheck.Report `json:"report"`
	Enhanced string            `json:"enhanced"`
	Changed  bool              `json:"changed"`
}

// ValidatePlugin validates code and enhances it when valid
func (uc *PluginUseCase) ValidatePlugin(code string) (*ValidationResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, validationError("code is required")
	}

	enhanced, changed := uc.validator.Enhance(code)
	return &ValidationResult{
		Report:   uc.validator.Validate(code),
		Enhanced: enhanced,
		Changed:  changed,
	}, nil
}

// ParseResult is the classification of a model response with every mark found in it
type ParseResult struct {
	Response *marks.Response `json:"response"`
	Marks    []model.Mark    `json:"marks"`
	// Ambiguous is set when code was expected but only the fallback matched
	Ambiguous bool `json:"ambiguous"`
}

// ParseResponse classifies text. expectCode reports ambiguity without failing.
func (uc *PluginUseCase) ParseResponse(text string, expectCode bool) *ParseResult {
	result := &ParseResult{Marks: marks.Scan(text)}
	if expectCode {
		resp, err := marks.ParseExpectingCode(text)
		result.Response = resp
		result.Ambiguous = err != nil
		return result
	}
	result.Response = marks.Parse(text)
	return result
}
