package types

import "fmt"

// SessionStatus represents the lifecycle status of a plugin generation session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// AllSessionStatuses returns all valid session statuses
func AllSessionStatuses() []SessionStatus {
	return []SessionStatus{
		SessionStatusActive,
		SessionStatusCompleted,
		SessionStatusAbandoned,
	}
}

// IsValid checks if the session status is valid
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive,
		SessionStatusCompleted,
		SessionStatusAbandoned:
		return true
	default:
		return false
	}
}

// IsIncomplete reports whether a session in this status still needs follow-up
func (s SessionStatus) IsIncomplete() bool {
	return s == SessionStatusActive || s == SessionStatusAbandoned
}

// String returns the string representation of the session status
func (s SessionStatus) String() string {
	return string(s)
}

// ParseSessionStatus parses a string into a SessionStatus
func ParseSessionStatus(s string) (SessionStatus, error) {
	status := SessionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid session status: %s", s)
	}
	return status, nil
}
