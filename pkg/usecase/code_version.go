package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
)

type CodeVersionUseCase struct {
	repo  interfaces.Repository
	clock func() time.Time
}

func NewCodeVersionUseCase(repo interfaces.Repository, clock func() time.Time) *CodeVersionUseCase {
	return &CodeVersionUseCase{repo: repo, clock: clock}
}

// SaveVersion stores code as the next version of the session
func (uc *CodeVersionUseCase) SaveVersion(ctx context.Context, userID string, id model.SessionID, code, instructions, prompt string) (*model.CodeVersion, error) {
	if strings.TrimSpace(code) == "" {
		return nil, validationError("code is required", goerr.V(SessionIDKey, id))
	}

	v, err := uc.repo.CodeVersion().Create(ctx, userID, &model.CodeVersion{
		ID:           model.NewCodeVersionID(),
		SessionID:    id,
		Code:         code,
		Instructions: instructions,
		Prompt:       prompt,
		CreatedAt:    uc.clock(),
	})
	if err != nil {
		return nil, goerr.Wrap(translate(err), "failed to save code version", goerr.V(SessionIDKey, id))
	}
	return v, nil
}

func (uc *CodeVersionUseCase) ListVersions(ctx context.Context, userID string, id model.SessionID) ([]*model.CodeVersion, error) {
	versions, err := uc.repo.CodeVersion().List(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(translate(err), "failed to list code versions", goerr.V(SessionIDKey, id))
	}
	return versions, nil
}
