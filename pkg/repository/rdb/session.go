package rdb

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"gorm.io/gorm"
)

type sessionRepository struct {
	db         *gorm.DB
	maxRetries int
}

func (r *sessionRepository) Create(ctx context.Context, s *model.Session) (*model.Session, error) {
	row, err := toSessionRow(s, 1)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to create session", goerr.V(model.SessionIDKey, s.ID))
	}
	return s.Copy(), nil
}

func (r *sessionRepository) getRow(ctx context.Context, db *gorm.DB, userID string, id model.SessionID) (*sessionRow, error) {
	var row sessionRow
	err := db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", string(id), userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(ErrNotFound, "session not found",
				goerr.V(model.SessionIDKey, id), goerr.V(model.UserIDKey, userID))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V(model.SessionIDKey, id))
	}
	return &row, nil
}

func (r *sessionRepository) Get(ctx context.Context, userID string, id model.SessionID) (*model.Session, error) {
	row, err := r.getRow(ctx, r.db, userID, id)
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

func (r *sessionRepository) find(ctx context.Context, q *gorm.DB) ([]*model.Session, error) {
	var rows []sessionRow
	if err := q.WithContext(ctx).Order("last_updated DESC").Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list sessions")
	}

	sessions := make([]*model.Session, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]*model.Session, error) {
	return r.find(ctx, r.db.Where("user_id = ?", userID))
}

func (r *sessionRepository) ListIncomplete(ctx context.Context, userID string) ([]*model.Session, error) {
	q := r.db.Where("user_id = ? AND status IN ? AND follow_up_enforced = ?", userID,
		[]string{types.SessionStatusActive.String(), types.SessionStatusAbandoned.String()}, true)
	return r.find(ctx, q)
}

// update reads the row, applies mutate and writes it back only if the revision is unchanged.
// A lost race is retried up to maxRetries times.
func (r *sessionRepository) update(ctx context.Context, userID string, id model.SessionID, now time.Time, mutate func(s *model.Session, now time.Time) error) error {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		row, err := r.getRow(ctx, r.db, userID, id)
		if err != nil {
			return err
		}

		s, err := row.toModel()
		if err != nil {
			return err
		}
		if err := mutate(s, now.UTC()); err != nil {
			return err
		}

		next, err := toSessionRow(s, row.Revision+1)
		if err != nil {
			return err
		}

		result := r.db.WithContext(ctx).Model(&sessionRow{}).
			Where("session_id = ? AND user_id = ? AND revision = ?", row.SessionID, userID, row.Revision).
			Updates(map[string]any{
				"status":             next.Status,
				"follow_up_enforced": next.FollowUpEnforced,
				"last_updated":       next.LastUpdated,
				"revision":           next.Revision,
				"document":           next.Document,
			})
		if result.Error != nil {
			return goerr.Wrap(result.Error, "failed to update session", goerr.V(model.SessionIDKey, id))
		}
		if result.RowsAffected == 1 {
			return nil
		}
	}

	return goerr.Wrap(ErrConflict, "gave up updating session",
		goerr.V(model.SessionIDKey, id), goerr.V("attempts", r.maxRetries))
}

func (r *sessionRepository) AppendMessage(ctx context.Context, userID string, id model.SessionID, msg model.Message, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		s.AppendMessage(msg, now)
		return nil
	})
}

func (r *sessionRepository) ReplaceMessages(ctx context.Context, userID string, id model.SessionID, msgs []model.Message, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		s.ReplaceMessages(msgs, now)
		return nil
	})
}

func (r *sessionRepository) UpdateStep(ctx context.Context, userID string, id model.SessionID, update model.StepUpdate, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		return s.ApplyStepUpdate(update, now)
	})
}

func (r *sessionRepository) Complete(ctx context.Context, userID string, id model.SessionID, code string, metadata *model.PluginMetadata, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		return s.Complete(code, metadata, now)
	})
}

func (r *sessionRepository) Abandon(ctx context.Context, userID string, id model.SessionID, reason string, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		return s.Abandon(reason, now)
	})
}

func (r *sessionRepository) Resume(ctx context.Context, userID string, id model.SessionID, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		return s.Resume(now)
	})
}

func (r *sessionRepository) EnforceFollowUp(ctx context.Context, userID string, id model.SessionID, reason string, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		s.EnforceFollowUp(reason, now)
		return nil
	})
}

func (r *sessionRepository) DisableFollowUp(ctx context.Context, userID string, id model.SessionID, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		s.DisableFollowUp(now)
		return nil
	})
}
