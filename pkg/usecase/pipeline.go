package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"github.com/secmon-lab/cogsmith/pkg/service/codecheck"
	"github.com/secmon-lab/cogsmith/pkg/service/completion"
	"github.com/secmon-lab/cogsmith/pkg/service/marks"
	"github.com/secmon-lab/cogsmith/pkg/utils/errutil"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
)

// Progress reported for a step that is still waiting on the user
const (
	progressStep    = 25
	progressCeiling = 90
)

// RunStepResult is the outcome of one orchestrated step run
type RunStepResult struct {
	Session     *model.Session         `json:"session"`
	Output      *completion.StepOutput `json:"output"`
	UserMessage model.Message          `json:"userMessage"`
	AIMessage   model.Message          `json:"aiMessage"`
	StepDone    bool                   `json:"stepDone"`
	CodeVersion *model.CodeVersion     `json:"codeVersion,omitempty"`
}

// PipelineUseCase drives one step of a session through the completion service.
// It is a caller of the store and applies the step state machine itself.
type PipelineUseCase struct {
	repo       interfaces.Repository
	completion *completion.Service
	clock      func() time.Time
}

func NewPipelineUseCase(repo interfaces.Repository, svc *completion.Service, clock func() time.Time) *PipelineUseCase {
	return &PipelineUseCase{
		repo:       repo,
		completion: svc,
		clock:      clock,
	}
}

// RunStep records the user prompt, generates the step response, records it and moves the
// step forward: completed when it produced what the step needs, in-progress when the
// model is waiting on the user, error when generation failed.
func (uc *PipelineUseCase) RunStep(ctx context.Context, userID string, id model.SessionID, step types.StepID, prompt string) (*RunStepResult, error) {
	if uc.completion == nil {
		return nil, goerr.Wrap(ErrCompletionUnavailable, "cannot run step", goerr.V(SessionIDKey, id))
	}
	if !step.IsValid() {
		return nil, validationError("invalid step", goerr.V(StepKey, step))
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, validationError("prompt is required", goerr.V(StepKey, step))
	}

	sessions := uc.repo.Session()
	s, err := sessions.Get(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(translate(err), "failed to get session", goerr.V(SessionIDKey, id))
	}
	if s.Status != types.SessionStatusActive {
		return nil, goerr.Wrap(ErrSessionNotActive, "only active sessions can run steps",
			goerr.V(SessionIDKey, id), goerr.V("status", s.Status))
	}

	current := s.Step(step)
	if current == nil {
		return nil, validationError("step not in pipeline", goerr.V(StepKey, step))
	}
	if !current.Status.CanTransitionTo(types.StepStatusInProgress) {
		return nil, validationError("step cannot be started", goerr.V(StepKey, step), goerr.V("status", current.Status))
	}

	logger := logging.From(ctx).With("session_id", id, "step", step)
	now := uc.clock()
	index := step.Index()

	start := current.StartTime
	if start == nil || current.Status.IsTerminal() {
		start = &now
	}
	if err := sessions.UpdateStep(ctx, userID, id, model.StepUpdate{
		StepID:      step,
		Status:      types.StepStatusInProgress,
		Progress:    current.Progress,
		StartTime:   start,
		CurrentStep: max(s.CurrentStep, index),
	}, now); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to start step", goerr.V(SessionIDKey, id), goerr.V(StepKey, step))
	}

	history := make([]completion.Turn, 0, len(s.Messages))
	for _, m := range s.Messages {
		history = append(history, completion.Turn{Role: m.Role, Content: m.Content})
	}

	userMsg := model.NewMessage(types.MessageRoleUser, prompt, step, now)
	if err := sessions.AppendMessage(ctx, userID, id, userMsg, now); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to record user message", goerr.V(SessionIDKey, id))
	}

	out, err := uc.completion.Generate(ctx, completion.StepRequest{
		SessionID: id,
		Step:      step,
		Prompt:    prompt,
		History:   history,
	})
	if err != nil {
		end := uc.clock()
		if updateErr := sessions.UpdateStep(ctx, userID, id, model.StepUpdate{
			StepID:      step,
			Status:      types.StepStatusError,
			Progress:    current.Progress,
			EndTime:     &end,
			CurrentStep: max(s.CurrentStep, index),
		}, end); updateErr != nil {
			errutil.Handle(ctx, updateErr, "failed to mark step as error")
		}
		return nil, goerr.Wrap(err, "failed to generate step response",
			goerr.V(SessionIDKey, id), goerr.V(StepKey, step))
	}

	answered := uc.clock()
	aiMsg := model.NewMessage(types.MessageRoleAI, out.Text, step, answered)
	aiMsg.Marks = marks.Scan(out.Text)
	if err := sessions.AppendMessage(ctx, userID, id, aiMsg, answered); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to record AI message", goerr.V(SessionIDKey, id))
	}

	done := stepDone(step, out.Response, out.Validation)
	progress := current.Progress
	if progress < progressCeiling {
		progress = min(progress+progressStep, progressCeiling)
	}
	update := model.StepUpdate{
		StepID:      step,
		Status:      types.StepStatusInProgress,
		Progress:    progress,
		CurrentStep: max(s.CurrentStep, index),
	}
	if done {
		update.Status = types.StepStatusCompleted
		update.Progress = 100
		update.EndTime = &answered
		update.CurrentStep = max(s.CurrentStep, index+1)
	}
	if err := sessions.UpdateStep(ctx, userID, id, update, answered); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to advance step", goerr.V(SessionIDKey, id), goerr.V(StepKey, step))
	}

	result := &RunStepResult{
		Output:      out,
		UserMessage: userMsg,
		AIMessage:   aiMsg,
		StepDone:    done,
	}

	if out.GeneratedCode != "" {
		v, err := uc.repo.CodeVersion().Create(ctx, userID, &model.CodeVersion{
			ID:           model.NewCodeVersionID(),
			SessionID:    id,
			Code:         out.GeneratedCode,
			Instructions: out.Response.UsageInstructions,
			Prompt:       prompt,
			CreatedAt:    uc.clock(),
		})
		if err != nil {
			return nil, goerr.Wrap(translate(err), "failed to save code version", goerr.V(SessionIDKey, id))
		}
		result.CodeVersion = v
	}

	logger.Info("step run finished",
		"response_type", out.Response.Type,
		"done", done,
		"status", update.Status,
		"progress", update.Progress,
	)

	result.Session, err = sessions.Get(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(translate(err), "failed to reload session", goerr.V(SessionIDKey, id))
	}
	return result, nil
}

// stepDone decides whether a response finishes its step. Code steps need code that
// passes validation; other steps finish unless the model is asking the user for
// something or refused the request.
func stepDone(step types.StepID, resp *marks.Response, validation *codecheck.Report) bool {
	if validation != nil && !validation.IsValid {
		return false
	}
	if resp.Type.HasCode() {
		return true
	}
	if step.IsCodeProducing() {
		return false
	}

	switch resp.Type {
	case marks.ResponseMissingDetails, marks.ResponseOutOfScope:
		return false
	case marks.ResponseQuestion:
		// unannotated text lands here too; it is not a question to the user
		return resp.Fallback
	default:
		return true
	}
}
