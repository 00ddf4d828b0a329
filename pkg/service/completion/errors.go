package completion

import "github.com/m-mizutani/goerr/v2"

// ErrGeneration is returned when the provider timed out, failed or produced no content
var ErrGeneration = goerr.New("generation failed")

// Context keys for error values
const (
	StepKey      = "step"
	SessionIDKey = "session_id"
	ProviderKey  = "provider"
)
