package types

import "fmt"

// MessageRole is the author of a session message
type MessageRole string

const (
	MessageRoleUser MessageRole = "user"
	MessageRoleAI   MessageRole = "ai"
)

// IsValid checks if the message role is valid
func (r MessageRole) IsValid() bool {
	return r == MessageRoleUser || r == MessageRoleAI
}

// String returns the string representation of the message role
func (r MessageRole) String() string {
	return string(r)
}

// ParseMessageRole parses a string into a MessageRole
func ParseMessageRole(s string) (MessageRole, error) {
	role := MessageRole(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid message role: %s", s)
	}
	return role, nil
}

// MarkType is the kind of annotation a numeric mark stands for
type MarkType string

const (
	MarkTypeQuestion      MarkType = "question"
	MarkTypeCode          MarkType = "code"
	MarkTypeMissingDetail MarkType = "missing_detail"
	MarkTypeConfirmation  MarkType = "confirmation"
	MarkTypeError         MarkType = "error"
)

// MarkTypeFromCode maps a numeric mark (1-5) to its type
func MarkTypeFromCode(code int) (MarkType, bool) {
	switch code {
	case 1:
		return MarkTypeQuestion, true
	case 2:
		return MarkTypeCode, true
	case 3:
		return MarkTypeMissingDetail, true
	case 4:
		return MarkTypeConfirmation, true
	case 5:
		return MarkTypeError, true
	default:
		return "", false
	}
}

// Code returns the numeric mark for the type, or 0 if unknown
func (m MarkType) Code() int {
	switch m {
	case MarkTypeQuestion:
		return 1
	case MarkTypeCode:
		return 2
	case MarkTypeMissingDetail:
		return 3
	case MarkTypeConfirmation:
		return 4
	case MarkTypeError:
		return 5
	default:
		return 0
	}
}

// String returns the string representation of the mark type
func (m MarkType) String() string {
	return string(m)
}
