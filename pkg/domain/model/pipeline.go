package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// PipelineStep is one of the five fixed phases of a session
type PipelineStep struct {
	ID        types.StepID     `json:"id"`
	Name      string           `json:"name"`
	Status    types.StepStatus `json:"status"`
	Progress  int              `json:"progress"`
	StartTime *time.Time       `json:"startTime,omitempty"`
	EndTime   *time.Time       `json:"endTime,omitempty"`
}

// Copy returns a deep copy of the step
func (p PipelineStep) Copy() PipelineStep {
	p.StartTime = copyTime(p.StartTime)
	p.EndTime = copyTime(p.EndTime)
	return p
}

// NewPipeline returns the five steps in fixed order, all pending with zero progress
func NewPipeline() []PipelineStep {
	ids := types.AllStepIDs()
	steps := make([]PipelineStep, len(ids))
	for i, id := range ids {
		steps[i] = PipelineStep{
			ID:       id,
			Name:     id.DisplayName(),
			Status:   types.StepStatusPending,
			Progress: 0,
		}
	}
	return steps
}

// StepUpdate is an externally decided transition of a single step.
// The store records it as submitted; ordering and transition legality are the caller's concern.
type StepUpdate struct {
	StepID      types.StepID     `json:"stepId"`
	Status      types.StepStatus `json:"status"`
	Progress    int              `json:"progress"`
	StartTime   *time.Time       `json:"startTime,omitempty"`
	EndTime     *time.Time       `json:"endTime,omitempty"`
	CurrentStep int              `json:"currentStep"`
}

// Validate checks that the update is well-formed on its own
func (u StepUpdate) Validate() error {
	if !u.StepID.IsValid() {
		return goerr.Wrap(ErrUnknownStep, "invalid step ID", goerr.V(StepIDKey, u.StepID))
	}
	if !u.Status.IsValid() {
		return goerr.New("invalid step status", goerr.V(StepIDKey, u.StepID), goerr.V("status", u.Status))
	}
	if u.Progress < 0 || u.Progress > 100 {
		return goerr.Wrap(ErrInvalidProgress, "invalid progress", goerr.V("progress", u.Progress))
	}
	if u.CurrentStep < 0 || u.CurrentStep > types.TotalSteps {
		return goerr.Wrap(ErrInvalidStepIndex, "invalid current step", goerr.V("current_step", u.CurrentStep))
	}
	return nil
}

// Step returns the pipeline entry for id, or nil if the pipeline has none
func (s *Session) Step(id types.StepID) *PipelineStep {
	for i := range s.Pipeline {
		if s.Pipeline[i].ID == id {
			return &s.Pipeline[i]
		}
	}
	return nil
}

// ApplyStepUpdate updates only the matching step plus currentStep and lastUpdated.
// Timestamps that are nil in the update keep their stored value. Step order and
// per-step transitions are not checked here; only an active session accepts updates.
func (s *Session) ApplyStepUpdate(u StepUpdate, now time.Time) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if s.Status != types.SessionStatusActive {
		return goerr.Wrap(ErrSessionNotActive, "cannot update pipeline",
			goerr.V(SessionIDKey, s.ID), goerr.V("status", s.Status))
	}

	step := s.Step(u.StepID)
	if step == nil {
		return goerr.Wrap(ErrUnknownStep, "step not in pipeline",
			goerr.V(SessionIDKey, s.ID), goerr.V(StepIDKey, u.StepID))
	}

	step.Status = u.Status
	step.Progress = u.Progress
	if u.StartTime != nil {
		step.StartTime = copyTime(u.StartTime)
	}
	if u.EndTime != nil {
		step.EndTime = copyTime(u.EndTime)
	}

	s.CurrentStep = u.CurrentStep
	s.LastUpdated = now
	return nil
}
