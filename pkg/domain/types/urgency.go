package types

// Urgency is how pressing a stale session's follow-up is
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// String returns the string representation of the urgency
func (u Urgency) String() string {
	return string(u)
}

// ReminderAction is an action offered alongside a follow-up reminder
type ReminderAction string

const (
	ReminderActionResume  ReminderAction = "resume"
	ReminderActionView    ReminderAction = "view"
	ReminderActionRestart ReminderAction = "restart"
)

// String returns the string representation of the reminder action
func (a ReminderAction) String() string {
	return string(a)
}
