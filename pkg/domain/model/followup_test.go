package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

func TestClassifyUrgency(t *testing.T) {
	testCases := []struct {
		name     string
		elapsed  time.Duration
		expected types.Urgency
	}{
		{"half hour", 30 * time.Minute, types.UrgencyLow},
		{"exactly one hour", time.Hour, types.UrgencyLow},
		{"three hours", 3 * time.Hour, types.UrgencyMedium},
		{"exactly six hours", 6 * time.Hour, types.UrgencyMedium},
		{"ten hours", 10 * time.Hour, types.UrgencyHigh},
		{"exactly one day", 24 * time.Hour, types.UrgencyHigh},
		{"thirty hours", 30 * time.Hour, types.UrgencyCritical},
		{"two days", 48 * time.Hour, types.UrgencyCritical},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, model.ClassifyUrgency(tc.elapsed)).Equal(tc.expected)
		})
	}
}

func TestCompletionPercentage(t *testing.T) {
	gt.Value(t, model.CompletionPercentage(0, 5)).Equal(0)
	gt.Value(t, model.CompletionPercentage(1, 5)).Equal(20)
	gt.Value(t, model.CompletionPercentage(5, 5)).Equal(100)
	gt.Value(t, model.CompletionPercentage(1, 3)).Equal(33)
	gt.Value(t, model.CompletionPercentage(2, 3)).Equal(67)
	gt.Value(t, model.CompletionPercentage(1, 0)).Equal(0)
}

func TestBuildReminder(t *testing.T) {
	t.Run("low urgency offers resume and view", func(t *testing.T) {
		r := model.BuildReminder("ban-bot", 40, 0.5)
		gt.Value(t, r.Urgency).Equal(types.UrgencyLow)
		gt.Value(t, r.Actions).Equal([]types.ReminderAction{types.ReminderActionResume, types.ReminderActionView})
		gt.String(t, r.Message).Contains("ban-bot")
		gt.String(t, r.Message).Contains("40%")
	})

	t.Run("critical urgency adds restart", func(t *testing.T) {
		r := model.BuildReminder("ban-bot", 60, 30)
		gt.Value(t, r.Urgency).Equal(types.UrgencyCritical)
		gt.Value(t, r.Actions).Equal([]types.ReminderAction{
			types.ReminderActionResume, types.ReminderActionView, types.ReminderActionRestart,
		})
		gt.String(t, r.Message).Contains("30 hours")
	})

	t.Run("pure", func(t *testing.T) {
		gt.Value(t, model.BuildReminder("x", 20, 10)).Equal(model.BuildReminder("x", 20, 10))
	})
}
