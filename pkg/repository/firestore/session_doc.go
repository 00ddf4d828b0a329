package firestore

import (
	"time"

	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// sessionDoc is the Firestore document representation of model.Session
type sessionDoc struct {
	ID               string             `firestore:"sessionId"`
	UserID           string             `firestore:"userId"`
	Name             string             `firestore:"name"`
	Description      string             `firestore:"description"`
	Status           string             `firestore:"status"`
	CurrentStep      int                `firestore:"currentStep"`
	TotalSteps       int                `firestore:"totalSteps"`
	Pipeline         []pipelineStepDoc  `firestore:"pipeline"`
	Messages         []messageDoc       `firestore:"messages"`
	GeneratedCode    string             `firestore:"generatedCode,omitempty"`
	PluginMetadata   *pluginMetadataDoc `firestore:"pluginMetadata,omitempty"`
	FollowUpEnforced bool               `firestore:"followUpEnforced"`
	FollowUpReason   string             `firestore:"followUpReason,omitempty"`
	GateBypassReason string             `firestore:"gateBypassReason,omitempty"`
	AbandonReason    string             `firestore:"abandonReason,omitempty"`
	AbandonedAt      *time.Time         `firestore:"abandonedAt,omitempty"`
	ResumedAt        *time.Time         `firestore:"resumedAt,omitempty"`
	CompletedAt      *time.Time         `firestore:"completedAt,omitempty"`
	CreatedAt        time.Time          `firestore:"created_at"`
	LastUpdated      time.Time          `firestore:"last_updated"`

	// CodeVersionCount is the last assigned code version number
	CodeVersionCount int64 `firestore:"codeVersionCount"`
}

type pipelineStepDoc struct {
	ID        string     `firestore:"id"`
	Name      string     `firestore:"name"`
	Status    string     `firestore:"status"`
	Progress  int        `firestore:"progress"`
	StartTime *time.Time `firestore:"startTime,omitempty"`
	EndTime   *time.Time `firestore:"endTime,omitempty"`
}

type messageDoc struct {
	ID        string    `firestore:"id"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	Marks     []markDoc `firestore:"marks"`
	Timestamp time.Time `firestore:"timestamp"`
	StepID    string    `firestore:"stepId,omitempty"`
}

type markDoc struct {
	Type     string `firestore:"type"`
	Code     int    `firestore:"code"`
	Context  string `firestore:"context"`
	Resolved bool   `firestore:"resolved"`
	Position int    `firestore:"position"`
}

type pluginMetadataDoc struct {
	Name         string   `firestore:"name"`
	Version      string   `firestore:"version"`
	Author       string   `firestore:"author"`
	Permissions  []string `firestore:"permissions"`
	Dependencies []string `firestore:"dependencies"`
}

func toSessionDoc(s *model.Session) *sessionDoc {
	d := &sessionDoc{
		ID:               string(s.ID),
		UserID:           s.UserID,
		Name:             s.Name,
		Description:      s.Description,
		Status:           string(s.Status),
		CurrentStep:      s.CurrentStep,
		TotalSteps:       s.TotalSteps,
		Pipeline:         make([]pipelineStepDoc, len(s.Pipeline)),
		Messages:         make([]messageDoc, len(s.Messages)),
		GeneratedCode:    s.GeneratedCode,
		FollowUpEnforced: s.FollowUpEnforced,
		FollowUpReason:   s.FollowUpReason,
		GateBypassReason: s.GateBypassReason,
		AbandonReason:    s.AbandonReason,
		AbandonedAt:      s.AbandonedAt,
		ResumedAt:        s.ResumedAt,
		CompletedAt:      s.CompletedAt,
		CreatedAt:        s.CreatedAt,
		LastUpdated:      s.LastUpdated,
	}

	for i, p := range s.Pipeline {
		d.Pipeline[i] = pipelineStepDoc{
			ID:        string(p.ID),
			Name:      p.Name,
			Status:    string(p.Status),
			Progress:  p.Progress,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
		}
	}

	for i, m := range s.Messages {
		md := messageDoc{
			ID:        string(m.ID),
			Role:      string(m.Role),
			Content:   m.Content,
			Marks:     make([]markDoc, len(m.Marks)),
			Timestamp: m.Timestamp,
			StepID:    string(m.StepID),
		}
		for j, mk := range m.Marks {
			md.Marks[j] = markDoc{
				Type:     string(mk.Type),
				Code:     mk.Code,
				Context:  mk.Context,
				Resolved: mk.Resolved,
				Position: mk.Position,
			}
		}
		d.Messages[i] = md
	}

	if s.PluginMetadata != nil {
		d.PluginMetadata = &pluginMetadataDoc{
			Name:         s.PluginMetadata.Name,
			Version:      s.PluginMetadata.Version,
			Author:       s.PluginMetadata.Author,
			Permissions:  s.PluginMetadata.Permissions,
			Dependencies: s.PluginMetadata.Dependencies,
		}
	}

	return d
}

func fromSessionDoc(d *sessionDoc) *model.Session {
	s := &model.Session{
		ID:               model.SessionID(d.ID),
		UserID:           d.UserID,
		Name:             d.Name,
		Description:      d.Description,
		Status:           types.SessionStatus(d.Status),
		CurrentStep:      d.CurrentStep,
		TotalSteps:       d.TotalSteps,
		Pipeline:         make([]model.PipelineStep, len(d.Pipeline)),
		Messages:         make([]model.Message, len(d.Messages)),
		GeneratedCode:    d.GeneratedCode,
		FollowUpEnforced: d.FollowUpEnforced,
		FollowUpReason:   d.FollowUpReason,
		GateBypassReason: d.GateBypassReason,
		AbandonReason:    d.AbandonReason,
		AbandonedAt:      d.AbandonedAt,
		ResumedAt:        d.ResumedAt,
		CompletedAt:      d.CompletedAt,
		CreatedAt:        d.CreatedAt,
		LastUpdated:      d.LastUpdated,
	}

	for i, p := range d.Pipeline {
		s.Pipeline[i] = model.PipelineStep{
			ID:        types.StepID(p.ID),
			Name:      p.Name,
			Status:    types.StepStatus(p.Status),
			Progress:  p.Progress,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
		}
	}

	for i, md := range d.Messages {
		m := model.Message{
			ID:        model.MessageID(md.ID),
			Role:      types.MessageRole(md.Role),
			Content:   md.Content,
			Marks:     make([]model.Mark, len(md.Marks)),
			Timestamp: md.Timestamp,
			StepID:    types.StepID(md.StepID),
		}
		for j, mk := range md.Marks {
			m.Marks[j] = model.Mark{
				Type:     types.MarkType(mk.Type),
				Code:     mk.Code,
				Context:  mk.Context,
				Resolved: mk.Resolved,
				Position: mk.Position,
			}
		}
		s.Messages[i] = m
	}

	if d.PluginMetadata != nil {
		s.PluginMetadata = &model.PluginMetadata{
			Name:         d.PluginMetadata.Name,
			Version:      d.PluginMetadata.Version,
			Author:       d.PluginMetadata.Author,
			Permissions:  d.PluginMetadata.Permissions,
			Dependencies: d.PluginMetadata.Dependencies,
		}
	}

	return s
}

// codeVersionDoc is the Firestore document representation of model.CodeVersion
type codeVersionDoc struct {
	ID           string    `firestore:"id"`
	SessionID    string    `firestore:"sessionId"`
	Code         string    `firestore:"code"`
	Instructions string    `firestore:"instructions"`
	Version      int       `firestore:"version"`
	Prompt       string    `firestore:"prompt"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

func toCodeVersionDoc(v *model.CodeVersion) *codeVersionDoc {
	return &codeVersionDoc{
		ID:           string(v.ID),
		SessionID:    string(v.SessionID),
		Code:         v.Code,
		Instructions: v.Instructions,
		Version:      v.Version,
		Prompt:       v.Prompt,
		CreatedAt:    v.CreatedAt,
	}
}

func fromCodeVersionDoc(d *codeVersionDoc) *model.CodeVersion {
	return &model.CodeVersion{
		ID:           model.CodeVersionID(d.ID),
		SessionID:    model.SessionID(d.SessionID),
		Code:         d.Code,
		Instructions: d.Instructions,
		Version:      d.Version,
		Prompt:       d.Prompt,
		CreatedAt:    d.CreatedAt,
	}
}
