package model

import (
	"time"

	"github.com/google/uuid"
)

// CodeVersionID identifies a saved code version
type CodeVersionID string

// NewCodeVersionID generates a new CodeVersionID
func NewCodeVersionID() CodeVersionID {
	return CodeVersionID(uuid.New().String())
}

// CodeVersion is an immutable snapshot of generated code. Editing creates a new version.
type CodeVersion struct {
	ID           CodeVersionID `json:"id"`
	SessionID    SessionID     `json:"sessionId"`
	Code         string        `json:"code"`
	Instructions string        `json:"instructions"`
	Version      int           `json:"version"`
	Prompt       string        `json:"prompt"`
	CreatedAt    time.Time     `json:"createdAt"`
}
