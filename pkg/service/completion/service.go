package completion

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"github.com/secmon-lab/cogsmith/pkg/service/codecheck"
	"github.com/secmon-lab/cogsmith/pkg/service/marks"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
)

//go:embed prompt/*.md
var promptFS embed.FS

var (
	stepTemplates = template.Must(template.ParseFS(promptFS, "prompt/*.md"))
	protocolRules = mustReadPrompt("prompt/protocol.md")

	pythonBlockPattern = regexp.MustCompile("(?s)```(?:python|py)[ \\t]*\\r?\\n(.*?)```")
	anyBlockPattern    = regexp.MustCompile("(?s)```[a-zA-Z0-9]*[ \\t]*\\r?\\n(.*?)```")
	pluginBlockPattern = regexp.MustCompile(`(?s)\[2\](.*?)\[2\]`)
)

func mustReadPrompt(name string) string {
	b, err := promptFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Default generation parameters
var (
	DefaultCodeParams = Params{Temperature: 0.3, MaxTokens: 4096}
	DefaultChatParams = Params{Temperature: 0.7, MaxTokens: 2048}
)

// DefaultTimeout bounds one completion call
const DefaultTimeout = 2 * time.Minute

// StepRequest is one generation for a pipeline step
type StepRequest struct {
	SessionID model.SessionID
	Step      types.StepID
	Prompt    string
	History   []Turn
}

// StepOutput is the post-processed result of one generation
type StepOutput struct {
	// Text is the response shown to the user. For invalid code it carries an appended issue summary.
	Text string `json:"text"`
	// RawText is the unmodified model output
	RawText       string            `json:"rawText"`
	Marks         []model.Mark      `json:"marks"`
	Response      *marks.Response   `json:"response"`
	GeneratedCode string            `json:"generatedCode,omitempty"`
	Validation    *codecheck.Report `json:"validation,omitempty"`
}

// Service builds step prompts, calls a Provider and post-processes its output
type Service struct {
	provider   Provider
	validator  *codecheck.Validator
	codeParams Params
	chatParams Params
	timeout    time.Duration
}

// Option configures Service
type Option func(*Service)

// WithCodeParams overrides parameters of the code generation step
func WithCodeParams(p Params) Option {
	return func(s *Service) {
		s.codeParams = p
	}
}

// WithChatParams overrides parameters of all other steps
func WithChatParams(p Params) Option {
	return func(s *Service) {
		s.chatParams = p
	}
}

// WithTimeout sets the per-call timeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithValidator replaces the code validator
func WithValidator(v *codecheck.Validator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// New creates a Service
func New(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider:   provider,
		validator:  codecheck.New(),
		codeParams: DefaultCodeParams,
		chatParams: DefaultChatParams,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParamsFor returns the generation parameters used for step
func (s *Service) ParamsFor(step types.StepID) Params {
	if step == types.StepGeneration {
		return s.codeParams
	}
	return s.chatParams
}

// Generate produces one model response for req.Step
func (s *Service) Generate(ctx context.Context, req StepRequest) (*StepOutput, error) {
	if !req.Step.IsValid() {
		return nil, goerr.Wrap(model.ErrUnknownStep, "cannot generate for step", goerr.V(StepKey, req.Step))
	}

	system, err := SystemPrompt(req.SessionID, req.Step)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	raw, err := s.provider.Complete(ctx, Request{
		SystemPrompt: system,
		Prompt:       req.Prompt,
		History:      req.History,
		Params:       s.ParamsFor(req.Step),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = goerr.Wrap(ErrGeneration, "completion timed out",
				goerr.V("timeout", s.timeout.String()), goerr.V("cause", err.Error()))
		}
		return nil, goerr.Wrap(joinGeneration(err), "completion failed",
			goerr.V(SessionIDKey, req.SessionID), goerr.V(StepKey, req.Step))
	}
	if strings.TrimSpace(raw) == "" {
		return nil, goerr.Wrap(ErrGeneration, "completion returned no content",
			goerr.V(SessionIDKey, req.SessionID), goerr.V(StepKey, req.Step))
	}

	logging.From(ctx).Debug("completion finished",
		"session_id", req.SessionID,
		"step", req.Step,
		"duration", time.Since(started).String(),
		"length", len(raw),
	)

	out := &StepOutput{
		Text:     raw,
		RawText:  raw,
		Marks:    marks.Scan(raw),
		Response: marks.Parse(raw),
	}

	if req.Step.IsCodeProducing() {
		s.postProcessCode(ctx, out)
	}

	return out, nil
}

func (s *Service) postProcessCode(ctx context.Context, out *StepOutput) {
	code := ExtractCode(out.RawText)
	if code == "" {
		logging.From(ctx).Debug("no code found in code-producing step",
			"type", out.Response.Type, "fallback", out.Response.Fallback)
		return
	}

	out.GeneratedCode = code
	out.Validation = s.validator.Validate(code)
	if !out.Validation.IsValid {
		out.Text = out.RawText + "\n\n" + IssueSummary(out.Validation)
	}
}

// joinGeneration makes every provider failure match ErrGeneration while keeping the cause
func joinGeneration(err error) error {
	if errors.Is(err, ErrGeneration) {
		return err
	}
	return errors.Join(ErrGeneration, err)
}

type promptData struct {
	SessionID string
	StepName  string
	Protocol  string
}

// SystemPrompt renders the system instruction for step
func SystemPrompt(sessionID model.SessionID, step types.StepID) (string, error) {
	var buf bytes.Buffer
	data := promptData{
		SessionID: sessionID.String(),
		StepName:  step.DisplayName(),
		Protocol:  protocolRules,
	}
	if err := stepTemplates.ExecuteTemplate(&buf, step.String()+".md", data); err != nil {
		return "", goerr.Wrap(err, "failed to render system prompt", goerr.V(StepKey, step))
	}
	return buf.String(), nil
}

// ExtractCode returns the first fenced python block of text. When there is none it falls
// back to the content of a [2]..[2] pair, with any fence stripped.
func ExtractCode(text string) string {
	if m := pythonBlockPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	m := pluginBlockPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	segment := strings.TrimSpace(m[1])
	if b := anyBlockPattern.FindStringSubmatch(segment); b != nil {
		return strings.TrimSpace(b[1])
	}
	return segment
}

// IssueSummary renders a validation report as a [5]-tagged error block
func IssueSummary(r *codecheck.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[5] The generated code did not pass validation (score %d/100).\n", r.Score)
	for _, issue := range r.Issues() {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", issue.Severity, issue.Category, issue.Message)
	}
	return strings.TrimRight(sb.String(), "\n")
}
