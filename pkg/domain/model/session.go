package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// SessionID is a UUID-based identifier for Session
type SessionID string

// NewSessionID generates a new time-ordered SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String())
}

// String returns the string representation of the session ID
func (id SessionID) String() string {
	return string(id)
}

// PluginMetadata describes the generated plugin
type PluginMetadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Author       string   `json:"author"`
	Permissions  []string `json:"permissions"`
	Dependencies []string `json:"dependencies"`
}

// Session is one plugin-generation effort owned by a single user.
// It exclusively owns its Messages and Pipeline.
type Session struct {
	ID          SessionID           `json:"sessionId"`
	UserID      string              `json:"userId"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Status      types.SessionStatus `json:"status"`
	CurrentStep int                 `json:"currentStep"`
	TotalSteps  int                 `json:"totalSteps"`
	Pipeline    []PipelineStep      `json:"pipeline"`
	Messages    []Message           `json:"messages"`

	GeneratedCode  string          `json:"generatedCode,omitempty"`
	PluginMetadata *PluginMetadata `json:"pluginMetadata,omitempty"`

	FollowUpEnforced bool   `json:"followUpEnforced"`
	FollowUpReason   string `json:"followUpReason,omitempty"`
	GateBypassReason string `json:"gateBypassReason,omitempty"`

	AbandonReason string     `json:"abandonReason,omitempty"`
	AbandonedAt   *time.Time `json:"abandonedAt,omitempty"`
	ResumedAt     *time.Time `json:"resumedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewSession returns an active session with a fresh pending pipeline
func NewSession(userID, name, description string, now time.Time) *Session {
	return &Session{
		ID:               NewSessionID(),
		UserID:           userID,
		Name:             name,
		Description:      description,
		Status:           types.SessionStatusActive,
		CurrentStep:      0,
		TotalSteps:       types.TotalSteps,
		Pipeline:         NewPipeline(),
		Messages:         []Message{},
		FollowUpEnforced: true,
		CreatedAt:        now,
		LastUpdated:      now,
	}
}

// Validate checks the structural invariants of the session
func (s *Session) Validate() error {
	if s.ID == "" {
		return goerr.New("session ID is required")
	}
	if s.UserID == "" {
		return goerr.New("session user ID is required", goerr.V(SessionIDKey, s.ID))
	}
	if !s.Status.IsValid() {
		return goerr.New("invalid session status", goerr.V(SessionIDKey, s.ID), goerr.V("status", s.Status))
	}
	if s.TotalSteps != types.TotalSteps || len(s.Pipeline) != types.TotalSteps {
		return goerr.New("pipeline must have exactly five steps",
			goerr.V(SessionIDKey, s.ID),
			goerr.V("total_steps", s.TotalSteps),
			goerr.V("pipeline_length", len(s.Pipeline)))
	}
	if s.CurrentStep < 0 || s.CurrentStep > s.TotalSteps {
		return goerr.New("current step out of range", goerr.V(SessionIDKey, s.ID), goerr.V("current_step", s.CurrentStep))
	}
	if s.Status == types.SessionStatusCompleted && (s.GeneratedCode == "" || s.PluginMetadata == nil) {
		return goerr.New("completed session requires generated code and plugin metadata", goerr.V(SessionIDKey, s.ID))
	}
	return nil
}

// CompletionPercentage returns how far through the pipeline the session is
func (s *Session) CompletionPercentage() int {
	return CompletionPercentage(s.CurrentStep, s.TotalSteps)
}

// AppendMessage appends msg to the conversation. Existing messages are never touched.
func (s *Session) AppendMessage(msg Message, now time.Time) {
	s.Messages = append(s.Messages, msg.Copy())
	s.LastUpdated = now
}

// ReplaceMessages swaps the whole conversation, used when history is edited
func (s *Session) ReplaceMessages(msgs []Message, now time.Time) {
	replaced := make([]Message, len(msgs))
	for i, m := range msgs {
		replaced[i] = m.Copy()
	}
	s.Messages = replaced
	s.LastUpdated = now
}

// Complete marks an active session completed with its final code and metadata
func (s *Session) Complete(code string, metadata *PluginMetadata, now time.Time) error {
	if s.Status != types.SessionStatusActive {
		return goerr.Wrap(ErrSessionNotActive, "cannot complete session",
			goerr.V(SessionIDKey, s.ID), goerr.V("status", s.Status))
	}
	s.Status = types.SessionStatusCompleted
	s.GeneratedCode = code
	s.PluginMetadata = metadata.Copy()
	s.CompletedAt = &now
	s.LastUpdated = now
	return nil
}

// Abandon marks the session abandoned, remembering why.
// Abandoning an abandoned session only refreshes the reason.
func (s *Session) Abandon(reason string, now time.Time) error {
	if s.Status == types.SessionStatusCompleted {
		return goerr.Wrap(ErrSessionCompleted, "cannot abandon session", goerr.V(SessionIDKey, s.ID))
	}
	s.Status = types.SessionStatusAbandoned
	s.AbandonReason = reason
	s.AbandonedAt = &now
	s.LastUpdated = now
	return nil
}

// Resume puts an abandoned session back to active and clears abandon tracking.
// Resuming an active session only refreshes lastUpdated.
func (s *Session) Resume(now time.Time) error {
	switch s.Status {
	case types.SessionStatusCompleted:
		return goerr.Wrap(ErrSessionCompleted, "cannot resume session", goerr.V(SessionIDKey, s.ID))
	case types.SessionStatusActive:
		s.LastUpdated = now
		return nil
	}
	s.Status = types.SessionStatusActive
	s.AbandonReason = ""
	s.AbandonedAt = nil
	s.ResumedAt = &now
	s.LastUpdated = now
	return nil
}

// EnforceFollowUp flags the session as requiring follow-up
func (s *Session) EnforceFollowUp(reason string, now time.Time) {
	s.FollowUpEnforced = true
	s.FollowUpReason = reason
	s.LastUpdated = now
}

// DisableFollowUp excludes the session from follow-up enforcement
func (s *Session) DisableFollowUp(now time.Time) {
	s.FollowUpEnforced = false
	s.FollowUpReason = ""
	s.LastUpdated = now
}

// NeedsFollowUp reports whether the session counts as incomplete for enforcement
func (s *Session) NeedsFollowUp() bool {
	return s.Status.IsIncomplete() && s.FollowUpEnforced
}

// Copy returns a deep copy of the session
func (s *Session) Copy() *Session {
	if s == nil {
		return nil
	}
	copied := *s

	copied.Pipeline = make([]PipelineStep, len(s.Pipeline))
	for i, step := range s.Pipeline {
		copied.Pipeline[i] = step.Copy()
	}

	copied.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		copied.Messages[i] = m.Copy()
	}

	copied.PluginMetadata = s.PluginMetadata.Copy()
	copied.AbandonedAt = copyTime(s.AbandonedAt)
	copied.ResumedAt = copyTime(s.ResumedAt)
	copied.CompletedAt = copyTime(s.CompletedAt)
	return &copied
}

// Copy returns a deep copy of the metadata
func (m *PluginMetadata) Copy() *PluginMetadata {
	if m == nil {
		return nil
	}
	return &PluginMetadata{
		Name:         m.Name,
		Version:      m.Version,
		Author:       m.Author,
		Permissions:  append([]string{}, m.Permissions...),
		Dependencies: append([]string{}, m.Dependencies...),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
