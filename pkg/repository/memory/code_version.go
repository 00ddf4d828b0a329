package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
)

type codeVersionRepository struct {
	mu       sync.RWMutex
	sessions *sessionRepository
	versions map[model.SessionID][]*model.CodeVersion
}

func newCodeVersionRepository(sessions *sessionRepository) *codeVersionRepository {
	return &codeVersionRepository{
		sessions: sessions,
		versions: make(map[model.SessionID][]*model.CodeVersion),
	}
}

func copyCodeVersion(v *model.CodeVersion) *model.CodeVersion {
	copied := *v
	return &copied
}

func (r *codeVersionRepository) Create(ctx context.Context, userID string, v *model.CodeVersion) (*model.CodeVersion, error) {
	if !r.sessions.owns(userID, v.SessionID) {
		return nil, goerr.Wrap(ErrNotFound, "session not found",
			goerr.V(model.SessionIDKey, v.SessionID), goerr.V(model.UserIDKey, userID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyCodeVersion(v)
	if created.ID == "" {
		created.ID = model.NewCodeVersionID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.Version = len(r.versions[v.SessionID]) + 1

	r.versions[v.SessionID] = append(r.versions[v.SessionID], created)
	return copyCodeVersion(created), nil
}

func (r *codeVersionRepository) List(ctx context.Context, userID string, sessionID model.SessionID) ([]*model.CodeVersion, error) {
	if !r.sessions.owns(userID, sessionID) {
		return nil, goerr.Wrap(ErrNotFound, "session not found",
			goerr.V(model.SessionIDKey, sessionID), goerr.V(model.UserIDKey, userID))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.CodeVersion, 0, len(r.versions[sessionID]))
	for _, v := range r.versions[sessionID] {
		result = append(result, copyCodeVersion(v))
	}
	return result, nil
}
