package rdb

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"gorm.io/gorm"
)

type codeVersionRepository struct {
	db         *gorm.DB
	maxRetries int
}

func (r *codeVersionRepository) owns(ctx context.Context, db *gorm.DB, userID string, id model.SessionID) error {
	var count int64
	err := db.WithContext(ctx).Model(&sessionRow{}).
		Where("session_id = ? AND user_id = ?", string(id), userID).
		Count(&count).Error
	if err != nil {
		return goerr.Wrap(err, "failed to check session owner", goerr.V(model.SessionIDKey, id))
	}
	if count == 0 {
		return goerr.Wrap(ErrNotFound, "session not found",
			goerr.V(model.SessionIDKey, id), goerr.V(model.UserIDKey, userID))
	}
	return nil
}

// Create inserts max(version)+1. The unique (session_id, version) index turns a concurrent
// insert of the same number into gorm.ErrDuplicatedKey, which is retried.
func (r *codeVersionRepository) Create(ctx context.Context, userID string, v *model.CodeVersion) (*model.CodeVersion, error) {
	created := *v
	if created.ID == "" {
		created.ID = model.NewCodeVersionID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := r.owns(ctx, tx, userID, v.SessionID); err != nil {
				return err
			}

			var latest int
			if err := tx.Model(&codeVersionRow{}).
				Where("session_id = ?", string(v.SessionID)).
				Select("COALESCE(MAX(version), 0)").
				Scan(&latest).Error; err != nil {
				return goerr.Wrap(err, "failed to get latest version")
			}

			created.Version = latest + 1
			return tx.Create(toCodeVersionRow(&created)).Error
		})

		switch {
		case err == nil:
			return &created, nil
		case errors.Is(err, gorm.ErrDuplicatedKey):
			continue
		case errors.Is(err, ErrNotFound):
			return nil, err
		default:
			return nil, goerr.Wrap(err, "failed to create code version", goerr.V(model.SessionIDKey, v.SessionID))
		}
	}

	return nil, goerr.Wrap(ErrConflict, "gave up assigning code version",
		goerr.V(model.SessionIDKey, v.SessionID), goerr.V("attempts", r.maxRetries))
}

func (r *codeVersionRepository) List(ctx context.Context, userID string, sessionID model.SessionID) ([]*model.CodeVersion, error) {
	if err := r.owns(ctx, r.db, userID, sessionID); err != nil {
		return nil, err
	}

	var rows []codeVersionRow
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", string(sessionID)).
		Order("version ASC").
		Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list code versions", goerr.V(model.SessionIDKey, sessionID))
	}

	versions := make([]*model.CodeVersion, 0, len(rows))
	for i := range rows {
		versions = append(versions, rows[i].toModel())
	}
	return versions, nil
}
