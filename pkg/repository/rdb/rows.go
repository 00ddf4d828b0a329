package rdb

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
)

// sessionRow keeps the whole session as a JSON document. The other columns duplicate
// document fields for filtering and ordering.
type sessionRow struct {
	SessionID        string    `gorm:"column:session_id;primaryKey;size:64"`
	UserID           string    `gorm:"column:user_id;size:255;not null;index:idx_plugin_sessions_user_updated,priority:1"`
	Status           string    `gorm:"column:status;size:16;not null"`
	FollowUpEnforced bool      `gorm:"column:follow_up_enforced;not null"`
	LastUpdated      time.Time `gorm:"column:last_updated;not null;index:idx_plugin_sessions_user_updated,priority:2"`
	Revision         int64     `gorm:"column:revision;not null"`
	Document         string    `gorm:"column:document;type:longtext;not null"`
}

func (sessionRow) TableName() string {
	return "plugin_sessions"
}

func toSessionRow(s *model.Session, revision int64) (*sessionRow, error) {
	doc, err := json.Marshal(s)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode session", goerr.V(model.SessionIDKey, s.ID))
	}
	return &sessionRow{
		SessionID:        string(s.ID),
		UserID:           s.UserID,
		Status:           string(s.Status),
		FollowUpEnforced: s.FollowUpEnforced,
		LastUpdated:      s.LastUpdated.UTC(),
		Revision:         revision,
		Document:         string(doc),
	}, nil
}

func (r *sessionRow) toModel() (*model.Session, error) {
	var s model.Session
	if err := json.Unmarshal([]byte(r.Document), &s); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session", goerr.V(model.SessionIDKey, r.SessionID))
	}
	return &s, nil
}

type codeVersionRow struct {
	ID           string    `gorm:"column:id;primaryKey;size:64"`
	SessionID    string    `gorm:"column:session_id;size:64;not null;uniqueIndex:idx_code_versions_session_version,priority:1"`
	Version      int       `gorm:"column:version;not null;uniqueIndex:idx_code_versions_session_version,priority:2"`
	Code         string    `gorm:"column:code;type:longtext;not null"`
	Instructions string    `gorm:"column:instructions;type:text"`
	Prompt       string    `gorm:"column:prompt;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (codeVersionRow) TableName() string {
	return "code_versions"
}

func toCodeVersionRow(v *model.CodeVersion) *codeVersionRow {
	return &codeVersionRow{
		ID:           string(v.ID),
		SessionID:    string(v.SessionID),
		Version:      v.Version,
		Code:         v.Code,
		Instructions: v.Instructions,
		Prompt:       v.Prompt,
		CreatedAt:    v.CreatedAt.UTC(),
	}
}

func (r *codeVersionRow) toModel() *model.CodeVersion {
	return &model.CodeVersion{
		ID:           model.CodeVersionID(r.ID),
		SessionID:    model.SessionID(r.SessionID),
		Code:         r.Code,
		Instructions: r.Instructions,
		Version:      r.Version,
		Prompt:       r.Prompt,
		CreatedAt:    r.CreatedAt,
	}
}
