package usecase

import (
	"time"

	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/service/artifact"
	"github.com/secmon-lab/cogsmith/pkg/service/codecheck"
	"github.com/secmon-lab/cogsmith/pkg/service/completion"
)

type UseCases struct {
	repo       interfaces.Repository
	clock      func() time.Time
	completion *completion.Service
	validator  *codecheck.Validator
	exporter   artifact.Exporter
	authorizer interfaces.Authorizer
	gate       bool

	Session     *SessionUseCase
	Pipeline    *PipelineUseCase
	FollowUp    *FollowUpUseCase
	CodeVersion *CodeVersionUseCase
	Plugin      *PluginUseCase
}

type Option func(*UseCases)

// WithClock replaces the time source
func WithClock(clock func() time.Time) Option {
	return func(uc *UseCases) {
		uc.clock = clock
	}
}

// WithCompletion sets the completion service. Without it, generation operations fail.
func WithCompletion(svc *completion.Service) Option {
	return func(uc *UseCases) {
		uc.completion = svc
	}
}

// WithValidator sets the plugin code validator
func WithValidator(v *codecheck.Validator) Option {
	return func(uc *UseCases) {
		uc.validator = v
	}
}

// WithExporter enables artifact export of completed sessions
func WithExporter(e artifact.Exporter) Option {
	return func(uc *UseCases) {
		uc.exporter = e
	}
}

// WithAuthorizer sets the authorizer of admin operations
func WithAuthorizer(a interfaces.Authorizer) Option {
	return func(uc *UseCases) {
		uc.authorizer = a
	}
}

// WithFollowUpGate turns the new-session gate on or off. It is on by default.
func WithFollowUpGate(enabled bool) Option {
	return func(uc *UseCases) {
		uc.gate = enabled
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:      repo,
		clock:     func() time.Time { return time.Now().UTC() },
		validator: codecheck.New(),
		gate:      true,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.FollowUp = NewFollowUpUseCase(repo, uc.clock, uc.authorizer)
	uc.Session = NewSessionUseCase(repo, uc.FollowUp, uc.clock, uc.exporter, uc.gate)
	uc.CodeVersion = NewCodeVersionUseCase(repo, uc.clock)
	uc.Pipeline = NewPipelineUseCase(repo, uc.completion, uc.clock)
	uc.Plugin = NewPluginUseCase(uc.completion, uc.validator)

	return uc
}
