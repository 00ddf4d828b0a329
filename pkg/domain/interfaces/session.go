package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/cogsmith/pkg/domain/model"
)

// SessionRepository persists pipeline sessions. Every operation is scoped by
// (userID, sessionID) and applies as one atomic document update. Mutations stamp
// lastUpdated with the now given by the caller.
type SessionRepository interface {
	// Create stores a new session as given
	Create(ctx context.Context, s *model.Session) (*model.Session, error)

	// Get retrieves a session owned by userID
	Get(ctx context.Context, userID string, id model.SessionID) (*model.Session, error)

	// ListByUser retrieves all sessions of userID, most recently updated first
	ListByUser(ctx context.Context, userID string) ([]*model.Session, error)

	// AppendMessage appends one message to the end of the conversation
	AppendMessage(ctx context.Context, userID string, id model.SessionID, msg model.Message, now time.Time) error

	// ReplaceMessages swaps the whole message list, used for history edits
	ReplaceMessages(ctx context.Context, userID string, id model.SessionID, msgs []model.Message, now time.Time) error

	// UpdateStep records a step update as submitted, without ordering checks
	UpdateStep(ctx context.Context, userID string, id model.SessionID, update model.StepUpdate, now time.Time) error

	// Complete marks the session completed with its code and metadata
	Complete(ctx context.Context, userID string, id model.SessionID, code string, metadata *model.PluginMetadata, now time.Time) error

	// Abandon marks the session abandoned
	Abandon(ctx context.Context, userID string, id model.SessionID, reason string, now time.Time) error

	// Resume puts an abandoned session back to active
	Resume(ctx context.Context, userID string, id model.SessionID, now time.Time) error

	// EnforceFollowUp sets the follow-up-required flag
	EnforceFollowUp(ctx context.Context, userID string, id model.SessionID, reason string, now time.Time) error

	// DisableFollowUp excludes the session from follow-up enforcement
	DisableFollowUp(ctx context.Context, userID string, id model.SessionID, now time.Time) error

	// ListIncomplete retrieves active and abandoned sessions whose follow-up is not
	// disabled, most recently updated first
	ListIncomplete(ctx context.Context, userID string) ([]*model.Session, error)
}
