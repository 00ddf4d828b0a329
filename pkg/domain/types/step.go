package types

import "fmt"

// StepID identifies one of the five fixed pipeline phases
type StepID string

const (
	StepInformation StepID = "information"
	StepPlanning    StepID = "planning"
	StepGeneration  StepID = "generation"
	StepDebugging   StepID = "debugging"
	StepFinishing   StepID = "finishing"
)

// TotalSteps is the fixed pipeline length
const TotalSteps = 5

// AllStepIDs returns the pipeline phases in execution order
func AllStepIDs() []StepID {
	return []StepID{
		StepInformation,
		StepPlanning,
		StepGeneration,
		StepDebugging,
		StepFinishing,
	}
}

// IsValid checks if the step ID is one of the fixed phases
func (s StepID) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the 0-based position of the step in the pipeline, or -1
func (s StepID) Index() int {
	for i, id := range AllStepIDs() {
		if id == s {
			return i
		}
	}
	return -1
}

// DisplayName returns the human readable phase name
func (s StepID) DisplayName() string {
	switch s {
	case StepInformation:
		return "Information"
	case StepPlanning:
		return "Planning"
	case StepGeneration:
		return "Code Generation"
	case StepDebugging:
		return "Bug Finding"
	case StepFinishing:
		return "Finishing"
	default:
		return string(s)
	}
}

// IsCodeProducing reports whether the model is expected to emit plugin code in this step
func (s StepID) IsCodeProducing() bool {
	return s == StepGeneration || s == StepDebugging
}

// String returns the string representation of the step ID
func (s StepID) String() string {
	return string(s)
}

// ParseStepID parses a string into a StepID
func ParseStepID(s string) (StepID, error) {
	id := StepID(s)
	if !id.IsValid() {
		return "", fmt.Errorf("invalid step id: %s", s)
	}
	return id, nil
}

// StepStatus represents the status of a single pipeline step
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in-progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusError      StepStatus = "error"
)

// AllStepStatuses returns all valid step statuses
func AllStepStatuses() []StepStatus {
	return []StepStatus{
		StepStatusPending,
		StepStatusInProgress,
		StepStatusCompleted,
		StepStatusError,
	}
}

// IsValid checks if the step status is valid
func (s StepStatus) IsValid() bool {
	switch s {
	case StepStatusPending,
		StepStatusInProgress,
		StepStatusCompleted,
		StepStatusError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the step has finished, successfully or not
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusError
}

// CanTransitionTo reports whether moving from s to next follows the step state machine:
// pending -> in-progress -> {completed | error}, with progress updates while in-progress
// and re-runs of finished steps going back through in-progress.
//
// The machine is advisory. Stores record whatever transition the caller submits.
func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	switch s {
	case StepStatusPending:
		return next == StepStatusInProgress
	case StepStatusInProgress:
		return next == StepStatusInProgress || next == StepStatusCompleted || next == StepStatusError
	case StepStatusCompleted, StepStatusError:
		return next == StepStatusInProgress
	default:
		return false
	}
}

// String returns the string representation of the step status
func (s StepStatus) String() string {
	return string(s)
}

// ParseStepStatus parses a string into a StepStatus
func ParseStepStatus(s string) (StepStatus, error) {
	status := StepStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid step status: %s", s)
	}
	return status, nil
}
