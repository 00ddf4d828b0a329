package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
)

type sessionRepository struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*model.Session
}

func newSessionRepository() *sessionRepository {
	return &sessionRepository{
		sessions: make(map[model.SessionID]*model.Session),
	}
}

func (r *sessionRepository) Create(ctx context.Context, s *model.Session) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return nil, goerr.New("session already exists", goerr.V(model.SessionIDKey, s.ID))
	}

	r.sessions[s.ID] = s.Copy()
	return s.Copy(), nil
}

// lookup returns the stored session if it belongs to userID. Caller holds the lock.
func (r *sessionRepository) lookup(userID string, id model.SessionID) (*model.Session, error) {
	s, exists := r.sessions[id]
	if !exists || s.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "session not found",
			goerr.V(model.SessionIDKey, id), goerr.V(model.UserIDKey, userID))
	}
	return s, nil
}

func (r *sessionRepository) Get(ctx context.Context, userID string, id model.SessionID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	return s.Copy(), nil
}

func (r *sessionRepository) list(userID string, filter func(*model.Session) bool) []*model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*model.Session{}
	for _, s := range r.sessions {
		if s.UserID == userID && filter(s) {
			result = append(result, s.Copy())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastUpdated.After(result[j].LastUpdated)
	})
	return result
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]*model.Session, error) {
	return r.list(userID, func(*model.Session) bool { return true }), nil
}

func (r *sessionRepository) ListIncomplete(ctx context.Context, userID string) ([]*model.Session, error) {
	return r.list(userID, (*model.Session).NeedsFollowUp), nil
}

// update applies mutate to a working copy and stores it only when mutate succeeds
func (r *sessionRepository) update(userID string, id model.SessionID, now time.Time, mutate func(s *model.Session, now time.Time) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.lookup(userID, id)
	if err != nil {
		return err
	}

	working := stored.Copy()
	if err := mutate(working, now.UTC()); err != nil {
		return err
	}

	r.sessions[id] = working
	return nil
}

func (r *sessionRepository) AppendMessage(ctx context.Context, userID string, id model.SessionID, msg model.Message, now time.Time) error {
	return r.update(userID, id, now, func(s *model.Session, now time.Time) error {
		s.AppendMessage(msg, now)
		return nil
	})
}

func (r *sessionRepository) ReplaceMessages(ctx context.Context, userID string, id model.SessionID, msgs []model.Message, now time.Time) error {
	return r.update(userID, id, now, func(s *model.Session, now time.Time) error {
		s.ReplaceMessages(msgs, now)
		return nil
	})
}

func (r *sessionRepository) UpdateStep(ctx context.Context, userID string, id model.SessionID, update model.StepUpdate, now time.Time) error {
	return r.update(userID, id, now, func(s *model.Session, now time.Time) error {
		return s.ApplyStepUpdate(update, now)
	})
}

func (r *sessionRepository) Complete(ctx context.Context, userID string, id model.SessionID, code string, metadata *model.PluginMetadata, now time.Time) error {
	return r.update(userID, id, now, func(s *model.Session, now time.Time) error {
		return s.Complete(code, metadata, now)
	})
}

func (r *sessionRepository) Abandon(ctx context.Context, userID string, id model.SessionID, reason string, now time.Time) error {
	return r.update(userID, id, now, func(s *model.Session, now time.Time) error {
		return s.Abandon(reason, now)
	})
}

func (r *sessionRepository) Resume(ctx context.Context, userID string, id model.SessionID, now time.Time) error {
	return r.update(userID, id, now, func(s *model.Session, now time.Time) error {
		return s.Resume(now)
	})
}

func (r *sessionRepository) EnforceFollowUp(ctx context.Context, userID string, id model.SessionID, reason string, now time.Time) error {
	return r.update(userID, id, now, func(s *model.Session, now time.Time) error {
		s.EnforceFollowUp(reason, now)
		return nil
	})
}

func (r *sessionRepository) DisableFollowUp(ctx context.Context, userID string, id model.SessionID, now time.Time) error {
	return r.update(userID, id, now, func(s *model.Session, now time.Time) error {
		s.DisableFollowUp(now)
		return nil
	})
}

// owns reports whether the session exists and belongs to userID
func (r *sessionRepository) owns(userID string, id model.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, err := r.lookup(userID, id)
	return err == nil
}
