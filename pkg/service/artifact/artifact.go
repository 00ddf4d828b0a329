// Package artifact exports completed plugins to object storage.
package artifact

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
)

// Artifact is the exported form of a completed session
type Artifact struct {
	SessionID   model.SessionID       `json:"sessionId"`
	UserID      string                `json:"userId"`
	Name        string                `json:"name"`
	Code        string                `json:"code"`
	Metadata    *model.PluginMetadata `json:"pluginMetadata"`
	CompletedAt time.Time             `json:"completedAt"`
}

// FromSession builds an artifact from a completed session
func FromSession(s *model.Session) (*Artifact, error) {
	if s.GeneratedCode == "" || s.PluginMetadata == nil {
		return nil, goerr.New("session has no plugin to export",
			goerr.V(model.SessionIDKey, s.ID), goerr.V("status", s.Status))
	}

	completedAt := s.LastUpdated
	if s.CompletedAt != nil {
		completedAt = *s.CompletedAt
	}

	return &Artifact{
		SessionID:   s.ID,
		UserID:      s.UserID,
		Name:        s.PluginMetadata.Name,
		Code:        s.GeneratedCode,
		Metadata:    s.PluginMetadata,
		CompletedAt: completedAt,
	}, nil
}

// Exporter stores plugin artifacts
type Exporter interface {
	Export(ctx context.Context, a *Artifact) error
}

// Object is one stored file of an artifact
type Object struct {
	Name        string
	ContentType string
	Data        []byte
}

// Objects returns the plugin source and its manifest, named under prefix/sessionID/
func (a *Artifact) Objects(prefix string) ([]Object, error) {
	manifest, err := json.MarshalIndent(a.Metadata, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal plugin manifest", goerr.V(model.SessionIDKey, a.SessionID))
	}

	name := a.Name
	if name == "" {
		name = "plugin"
	}
	dir := path.Join(prefix, a.SessionID.String())

	return []Object{
		{Name: path.Join(dir, name+".py"), ContentType: "text/x-python", Data: []byte(a.Code)},
		{Name: path.Join(dir, "manifest.json"), ContentType: "application/json", Data: manifest},
	}, nil
}
