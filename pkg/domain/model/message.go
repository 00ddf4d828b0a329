package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// MessageID is unique within a session
type MessageID string

// NewMessageID generates a new MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

// Mark is an annotation found in AI-authored text
type Mark struct {
	Type     types.MarkType `json:"type"`
	Code     int            `json:"code"`
	Context  string         `json:"context"`
	Resolved bool           `json:"resolved"`
	Position int            `json:"position"`
}

// Message is one turn of the session conversation
type Message struct {
	ID        MessageID         `json:"id"`
	Role      types.MessageRole `json:"role"`
	Content   string            `json:"content"`
	Marks     []Mark            `json:"marks"`
	Timestamp time.Time         `json:"timestamp"`
	StepID    types.StepID      `json:"stepId,omitempty"`
}

// NewMessage creates a message with a fresh ID
func NewMessage(role types.MessageRole, content string, stepID types.StepID, ts time.Time) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      role,
		Content:   content,
		Marks:     []Mark{},
		Timestamp: ts,
		StepID:    stepID,
	}
}

// Copy returns a deep copy of the message
func (m Message) Copy() Message {
	if m.Marks != nil {
		m.Marks = append([]Mark{}, m.Marks...)
	}
	return m
}
