package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"github.com/secmon-lab/cogsmith/pkg/service/artifact"
	"github.com/secmon-lab/cogsmith/pkg/service/marks"
	"github.com/secmon-lab/cogsmith/pkg/utils/async"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
)

type SessionUseCase struct {
	repo     interfaces.Repository
	followUp *FollowUpUseCase
	clock    func() time.Time
	exporter artifact.Exporter
	gate     bool
}

func NewSessionUseCase(repo interfaces.Repository, followUp *FollowUpUseCase, clock func() time.Time, exporter artifact.Exporter, gate bool) *SessionUseCase {
	return &SessionUseCase{
		repo:     repo,
		followUp: followUp,
		clock:    clock,
		exporter: exporter,
		gate:     gate,
	}
}

type createOptions struct {
	bypassReason string
}

// CreateOption configures CreateSession
type CreateOption func(*createOptions)

// WithGateBypass creates the session even while the follow-up gate is closed.
// The reason is logged and stored on the session.
func WithGateBypass(reason string) CreateOption {
	return func(o *createOptions) {
		o.bypassReason = strings.TrimSpace(reason)
	}
}

// CreateSession starts a new session with a pending pipeline. It refuses with
// ErrFollowUpRequired while the user has sessions needing follow-up.
func (uc *SessionUseCase) CreateSession(ctx context.Context, userID, name, description string, opts ...CreateOption) (*model.Session, error) {
	if userID == "" {
		return nil, validationError("user ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("session name is required")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, validationError("session description is required")
	}

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := model.NewSession(userID, name, description, uc.clock())

	if uc.gate {
		state, err := uc.followUp.Gate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !state.Open {
			if o.bypassReason == "" {
				return nil, goerr.Wrap(ErrFollowUpRequired, "resume or abandon incomplete sessions first",
					goerr.V(UserIDKey, userID),
					goerr.V("incomplete", state.Incomplete),
					goerr.V("critical", state.Critical))
			}

			logging.From(ctx).Warn("follow-up gate bypassed",
				"user_id", userID,
				"session_id", s.ID,
				"reason", o.bypassReason,
				"incomplete", state.Incomplete,
			)
			s.GateBypassReason = o.bypassReason
		}
	}

	created, err := uc.repo.Session().Create(ctx, s)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create session", goerr.V(UserIDKey, userID))
	}
	return created, nil
}

func (uc *SessionUseCase) GetSession(ctx context.Context, userID string, id model.SessionID) (*model.Session, error) {
	s, err := uc.repo.Session().Get(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(translate(err), "failed to get session", goerr.V(SessionIDKey, id))
	}
	return s, nil
}

func (uc *SessionUseCase) ListSessions(ctx context.Context, userID string) ([]*model.Session, error) {
	sessions, err := uc.repo.Session().ListByUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list sessions", goerr.V(UserIDKey, userID))
	}
	return sessions, nil
}

// MessageInput is a message submitted by a caller
type MessageInput struct {
	Role      types.MessageRole `json:"role"`
	Content   string            `json:"content"`
	StepID    types.StepID      `json:"stepId,omitempty"`
	Marks     []model.Mark      `json:"marks,omitempty"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
}

func (uc *SessionUseCase) buildMessage(in MessageInput) (model.Message, error) {
	if !in.Role.IsValid() {
		return model.Message{}, validationError("invalid message role", goerr.V("role", in.Role))
	}
	if strings.TrimSpace(in.Content) == "" {
		return model.Message{}, validationError("message content is required")
	}
	if in.StepID != "" && !in.StepID.IsValid() {
		return model.Message{}, validationError("invalid step ID", goerr.V(StepKey, in.StepID))
	}

	ts := uc.clock()
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}

	msg := model.NewMessage(in.Role, in.Content, in.StepID, ts)
	switch {
	case in.Marks != nil:
		msg.Marks = in.Marks
	case in.Role == types.MessageRoleAI:
		msg.Marks = marks.Scan(in.Content)
	}
	return msg, nil
}

// AppendMessage appends one message. AI messages without marks get them scanned from content.
func (uc *SessionUseCase) AppendMessage(ctx context.Context, userID string, id model.SessionID, in MessageInput) (*model.Message, error) {
	msg, err := uc.buildMessage(in)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.Session().AppendMessage(ctx, userID, id, msg, uc.clock()); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to append message", goerr.V(SessionIDKey, id))
	}
	return &msg, nil
}

// ReplaceMessages swaps the conversation for an edited history. Messages keep
// their IDs when given.
func (uc *SessionUseCase) ReplaceMessages(ctx context.Context, userID string, id model.SessionID, msgs []model.Message) ([]model.Message, error) {
	replaced := make([]model.Message, 0, len(msgs))
	for i, m := range msgs {
		built, err := uc.buildMessage(MessageInput{
			Role:      m.Role,
			Content:   m.Content,
			StepID:    m.StepID,
			Marks:     m.Marks,
			Timestamp: timePtr(m.Timestamp),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "invalid message in history", goerr.V("index", i))
		}
		if m.ID != "" {
			built.ID = m.ID
		}
		replaced = append(replaced, built)
	}

	if err := uc.repo.Session().ReplaceMessages(ctx, userID, id, replaced, uc.clock()); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to replace messages", goerr.V(SessionIDKey, id))
	}
	return replaced, nil
}

// UpdatePipelineStep records a step update as submitted. Step order is not enforced.
func (uc *SessionUseCase) UpdatePipelineStep(ctx context.Context, userID string, id model.SessionID, update model.StepUpdate) (*model.Session, error) {
	if err := update.Validate(); err != nil {
		return nil, goerr.Wrap(translate(err), "invalid step update", goerr.V(SessionIDKey, id))
	}

	if err := uc.repo.Session().UpdateStep(ctx, userID, id, update, uc.clock()); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to update pipeline step",
			goerr.V(SessionIDKey, id), goerr.V(StepKey, update.StepID))
	}
	return uc.GetSession(ctx, userID, id)
}

// CompleteSession stores the final plugin and exports it when an exporter is configured
func (uc *SessionUseCase) CompleteSession(ctx context.Context, userID string, id model.SessionID, code string, metadata *model.PluginMetadata) (*model.Session, error) {
	if strings.TrimSpace(code) == "" {
		return nil, validationError("generated code is required", goerr.V(SessionIDKey, id))
	}
	if metadata == nil || strings.TrimSpace(metadata.Name) == "" {
		return nil, validationError("plugin metadata with a name is required", goerr.V(SessionIDKey, id))
	}
	if !marks.ValidatePluginName(metadata.Name) {
		logging.From(ctx).Info("plugin name does not follow naming rules",
			"session_id", id, "name", metadata.Name)
	}

	if err := uc.repo.Session().Complete(ctx, userID, id, code, metadata, uc.clock()); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to complete session", goerr.V(SessionIDKey, id))
	}

	s, err := uc.GetSession(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if uc.exporter != nil {
		exported := s.Copy()
		async.Dispatch(ctx, func(ctx context.Context) error {
			a, err := artifact.FromSession(exported)
			if err != nil {
				return err
			}
			return uc.exporter.Export(ctx, a)
		})
	}

	return s, nil
}

func (uc *SessionUseCase) AbandonSession(ctx context.Context, userID string, id model.SessionID, reason string) (*model.Session, error) {
	if err := uc.repo.Session().Abandon(ctx, userID, id, strings.TrimSpace(reason), uc.clock()); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to abandon session", goerr.V(SessionIDKey, id))
	}
	return uc.GetSession(ctx, userID, id)
}

func (uc *SessionUseCase) ResumeSession(ctx context.Context, userID string, id model.SessionID) (*model.Session, error) {
	if err := uc.repo.Session().Resume(ctx, userID, id, uc.clock()); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to resume session", goerr.V(SessionIDKey, id))
	}
	return uc.GetSession(ctx, userID, id)
}

func (uc *SessionUseCase) EnforceFollowUp(ctx context.Context, userID string, id model.SessionID, reason string) (*model.Session, error) {
	if err := uc.repo.Session().EnforceFollowUp(ctx, userID, id, strings.TrimSpace(reason), uc.clock()); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to enforce follow-up", goerr.V(SessionIDKey, id))
	}
	return uc.GetSession(ctx, userID, id)
}

func (uc *SessionUseCase) DisableFollowUp(ctx context.Context, userID string, id model.SessionID) (*model.Session, error) {
	if err := uc.repo.Session().DisableFollowUp(ctx, userID, id, uc.clock()); err != nil {
		return nil, goerr.Wrap(translate(err), "failed to disable follow-up", goerr.V(SessionIDKey, id))
	}
	return uc.GetSession(ctx, userID, id)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
