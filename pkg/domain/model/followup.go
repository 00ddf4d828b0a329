package model

import (
	"fmt"
	"math"
	"time"

	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// Urgency bucket upper bounds. An elapsed time equal to a bound stays in the lower bucket.
const (
	LowUrgencyLimit    = time.Hour
	MediumUrgencyLimit = 6 * time.Hour
	HighUrgencyLimit   = 24 * time.Hour
)

// ClassifyUrgency maps time since last update to an urgency bucket
func ClassifyUrgency(elapsed time.Duration) types.Urgency {
	switch {
	case elapsed <= LowUrgencyLimit:
		return types.UrgencyLow
	case elapsed <= MediumUrgencyLimit:
		return types.UrgencyMedium
	case elapsed <= HighUrgencyLimit:
		return types.UrgencyHigh
	default:
		return types.UrgencyCritical
	}
}

// CompletionPercentage returns round(currentStep / totalSteps * 100)
func CompletionPercentage(currentStep, totalSteps int) int {
	if totalSteps <= 0 {
		return 0
	}
	return int(math.Round(float64(currentStep) / float64(totalSteps) * 100))
}

// Reminder is a nudge to continue an unfinished session
type Reminder struct {
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Urgency types.Urgency          `json:"urgency"`
	Actions []types.ReminderAction `json:"actions"`
}

// BuildReminder selects reminder text by elapsed hours. It has no side effects.
func BuildReminder(sessionName string, completionPct int, hoursSinceUpdate float64) Reminder {
	urgency := ClassifyUrgency(time.Duration(hoursSinceUpdate * float64(time.Hour)))

	r := Reminder{
		Urgency: urgency,
		Actions: []types.ReminderAction{types.ReminderActionResume, types.ReminderActionView},
	}

	switch urgency {
	case types.UrgencyLow:
		r.Title = "Continue your plugin"
		r.Message = fmt.Sprintf("You were just working on %q (%d%% complete). Pick up where you left off.", sessionName, completionPct)
	case types.UrgencyMedium:
		r.Title = "Your plugin is waiting"
		r.Message = fmt.Sprintf("%q is %d%% complete and has been idle for %.0f hours.", sessionName, completionPct, hoursSinceUpdate)
	case types.UrgencyHigh:
		r.Title = "Don't lose your progress"
		r.Message = fmt.Sprintf("%q has been idle for %.0f hours at %d%% complete. Resume it or abandon it before starting another.", sessionName, hoursSinceUpdate, completionPct)
	default:
		r.Title = "Unfinished plugin needs attention"
		r.Message = fmt.Sprintf("%q has been idle for %.0f hours at %d%% complete. Resume it or restart from scratch.", sessionName, hoursSinceUpdate, completionPct)
		r.Actions = append(r.Actions, types.ReminderActionRestart)
	}

	return r
}
