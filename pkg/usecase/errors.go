package usecase

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
)

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrSessionNotFound = fmt.Errorf("session %w", interfaces.ErrNotFound)

	// Input errors
	ErrValidation = errors.New("validation failed")

	// State errors
	ErrSessionNotActive = errors.New("session is not active")
	ErrFollowUpRequired = errors.New("incomplete sessions require follow-up")

	// Access control errors
	ErrAccessDenied    = errors.New("access denied")
	ErrUnauthenticated = errors.New("unauthenticated")

	// Other errors
	ErrCompletionUnavailable = errors.New("completion service is not configured")
)

// Context keys for error values
const (
	SessionIDKey = "session_id"
	UserIDKey    = "user_id"
	StepKey      = "step"
)

// translate maps store and model errors onto the use case taxonomy. The original
// error stays in the chain.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, interfaces.ErrNotFound) && !errors.Is(err, ErrSessionNotFound):
		return errors.Join(ErrSessionNotFound, err)
	case errors.Is(err, model.ErrSessionNotActive), errors.Is(err, model.ErrSessionCompleted):
		return errors.Join(ErrSessionNotActive, err)
	case errors.Is(err, model.ErrUnknownStep),
		errors.Is(err, model.ErrInvalidProgress),
		errors.Is(err, model.ErrInvalidStepIndex):
		return errors.Join(ErrValidation, err)
	default:
		return err
	}
}

func validationError(msg string, values ...goerr.Option) error {
	return goerr.Wrap(ErrValidation, msg, values...)
}
