package interfaces

import (
	"context"

	"github.com/secmon-lab/cogsmith/pkg/domain/model"
)

// CodeVersionRepository stores immutable code snapshots per session
type CodeVersionRepository interface {
	// Create stores v with the next version number of its session, assigned atomically
	Create(ctx context.Context, userID string, v *model.CodeVersion) (*model.CodeVersion, error)

	// List retrieves all versions of a session in ascending version order
	List(ctx context.Context, userID string, sessionID model.SessionID) ([]*model.CodeVersion, error)
}
