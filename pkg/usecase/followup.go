package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// SessionWithUrgency is an incomplete session classified for follow-up
type SessionWithUrgency struct {
	Session              *model.Session `json:"session"`
	Urgency              types.Urgency  `json:"urgency"`
	HoursSinceUpdate     float64        `json:"hoursSinceUpdate"`
	CompletionPercentage int            `json:"completionPercentage"`
}

// IncompleteReport lists a user's incomplete sessions, most recently updated first
type IncompleteReport struct {
	Sessions              []SessionWithUrgency `json:"sessions"`
	TotalIncomplete       int                  `json:"totalIncomplete"`
	CriticalCount         int                  `json:"criticalCount"`
	ShouldEnforceFollowUp bool                 `json:"shouldEnforceFollowUp"`
}

// GateState tells whether a user may start a new session
type GateState struct {
	Open       bool              `json:"open"`
	Incomplete int               `json:"incomplete"`
	Critical   int               `json:"critical"`
	SessionIDs []model.SessionID `json:"sessionIds"`
}

type FollowUpUseCase struct {
	repo       interfaces.Repository
	clock      func() time.Time
	authorizer interfaces.Authorizer
}

func NewFollowUpUseCase(repo interfaces.Repository, clock func() time.Time, authorizer interfaces.Authorizer) *FollowUpUseCase {
	return &FollowUpUseCase{
		repo:       repo,
		clock:      clock,
		authorizer: authorizer,
	}
}

// ListIncomplete classifies every incomplete session of userID
func (uc *FollowUpUseCase) ListIncomplete(ctx context.Context, userID string) (*IncompleteReport, error) {
	if userID == "" {
		return nil, validationError("user ID is required")
	}

	sessions, err := uc.repo.Session().ListIncomplete(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list incomplete sessions", goerr.V(UserIDKey, userID))
	}

	now := uc.clock()
	report := &IncompleteReport{
		Sessions: make([]SessionWithUrgency, 0, len(sessions)),
	}
	for _, s := range sessions {
		elapsed := max(now.Sub(s.LastUpdated), 0)
		entry := SessionWithUrgency{
			Session:              s,
			Urgency:              model.ClassifyUrgency(elapsed),
			HoursSinceUpdate:     elapsed.Hours(),
			CompletionPercentage: s.CompletionPercentage(),
		}
		if entry.Urgency == types.UrgencyCritical {
			report.CriticalCount++
		}
		report.Sessions = append(report.Sessions, entry)
	}
	report.TotalIncomplete = len(report.Sessions)
	report.ShouldEnforceFollowUp = report.TotalIncomplete > 0

	return report, nil
}

// ListIncompleteAsAdmin inspects another user's incomplete sessions
func (uc *FollowUpUseCase) ListIncompleteAsAdmin(ctx context.Context, callerID, targetUserID string) (*IncompleteReport, error) {
	if uc.authorizer == nil || !uc.authorizer.IsAdmin(ctx, callerID) {
		return nil, goerr.Wrap(ErrAccessDenied, "admin privilege required", goerr.V(UserIDKey, callerID))
	}
	return uc.ListIncomplete(ctx, targetUserID)
}

// GenerateReminder builds the reminder for one incomplete session
func (uc *FollowUpUseCase) GenerateReminder(ctx context.Context, userID string, id model.SessionID) (*model.Reminder, error) {
	s, err := uc.repo.Session().Get(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(translate(err), "failed to get session", goerr.V(SessionIDKey, id))
	}
	if !s.Status.IsIncomplete() {
		return nil, goerr.Wrap(ErrSessionNotActive, "completed session needs no reminder", goerr.V(SessionIDKey, id))
	}

	elapsed := max(uc.clock().Sub(s.LastUpdated), 0)
	r := model.BuildReminder(s.Name, s.CompletionPercentage(), elapsed.Hours())
	return &r, nil
}

// Gate reports whether userID may create a new session. Only active sessions
// with follow-up enforced hold the gate; abandoned ones count as resolved.
func (uc *FollowUpUseCase) Gate(ctx context.Context, userID string) (*GateState, error) {
	report, err := uc.ListIncomplete(ctx, userID)
	if err != nil {
		return nil, err
	}

	state := &GateState{
		SessionIDs: make([]model.SessionID, 0, len(report.Sessions)),
	}
	for _, entry := range report.Sessions {
		if entry.Session.Status != types.SessionStatusActive {
			continue
		}
		state.Incomplete++
		if entry.Urgency == types.UrgencyCritical {
			state.Critical++
		}
		state.SessionIDs = append(state.SessionIDs, entry.Session.ID)
	}
	state.Open = state.Incomplete == 0
	return state, nil
}
