package model

import "github.com/m-mizutani/goerr/v2"

// Validation errors
var (
	ErrUnknownStep      = goerr.New("step not found in pipeline")
	ErrInvalidProgress  = goerr.New("progress must be between 0 and 100")
	ErrInvalidStepIndex = goerr.New("current step out of range")
)

// State errors
var (
	ErrSessionNotActive = goerr.New("session is not active")
	ErrSessionCompleted = goerr.New("session is already completed")
)

// Context keys for error values
const (
	SessionIDKey = "session_id"
	UserIDKey    = "user_id"
	StepIDKey    = "step_id"
)
