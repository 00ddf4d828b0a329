package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := model.NewSession("user@example.com", "ban-bot", "bans bad words", now)

	gt.Value(t, s.ID).NotEqual(model.SessionID(""))
	gt.Value(t, s.Status).Equal(types.SessionStatusActive)
	gt.Value(t, s.CurrentStep).Equal(0)
	gt.Value(t, s.TotalSteps).Equal(5)
	gt.Bool(t, s.FollowUpEnforced).True()
	gt.Array(t, s.Messages).Length(0)
	gt.Array(t, s.Pipeline).Length(5).Required()

	expected := []types.StepID{
		types.StepInformation,
		types.StepPlanning,
		types.StepGeneration,
		types.StepDebugging,
		types.StepFinishing,
	}
	for i, step := range s.Pipeline {
		gt.Value(t, step.ID).Equal(expected[i])
		gt.Value(t, step.Status).Equal(types.StepStatusPending)
		gt.Value(t, step.Progress).Equal(0)
		gt.Value(t, step.StartTime).Nil()
	}
	gt.NoError(t, s.Validate())
}

func TestSessionValidate(t *testing.T) {
	now := time.Now()

	t.Run("completed without code", func(t *testing.T) {
		s := model.NewSession("u", "n", "d", now)
		s.Status = types.SessionStatusCompleted
		gt.Error(t, s.Validate())
	})

	t.Run("current step out of range", func(t *testing.T) {
		s := model.NewSession("u", "n", "d", now)
		s.CurrentStep = 6
		gt.Error(t, s.Validate())
	})

	t.Run("truncated pipeline", func(t *testing.T) {
		s := model.NewSession("u", "n", "d", now)
		s.Pipeline = s.Pipeline[:4]
		gt.Error(t, s.Validate())
	})
}

func TestSessionApplyStepUpdate(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := model.NewSession("u", "n", "d", created)

	start := created.Add(time.Minute)
	now := created.Add(2 * time.Minute)
	err := s.ApplyStepUpdate(model.StepUpdate{
		StepID:      types.StepPlanning,
		Status:      types.StepStatusInProgress,
		Progress:    40,
		StartTime:   &start,
		CurrentStep: 1,
	}, now)
	gt.NoError(t, err).Required()

	gt.Value(t, s.Pipeline[1].Status).Equal(types.StepStatusInProgress)
	gt.Value(t, s.Pipeline[1].Progress).Equal(40)
	gt.Value(t, *s.Pipeline[1].StartTime).Equal(start)
	gt.Value(t, s.Pipeline[0].Status).Equal(types.StepStatusPending)
	gt.Value(t, s.CurrentStep).Equal(1)
	gt.Value(t, s.LastUpdated).Equal(now)

	t.Run("out of order update is recorded", func(t *testing.T) {
		err := s.ApplyStepUpdate(model.StepUpdate{
			StepID:      types.StepFinishing,
			Status:      types.StepStatusCompleted,
			Progress:    100,
			CurrentStep: 5,
		}, now)
		gt.NoError(t, err)
		gt.Value(t, s.Pipeline[4].Status).Equal(types.StepStatusCompleted)
		gt.Value(t, s.Pipeline[2].Status).Equal(types.StepStatusPending)
	})

	t.Run("start time is kept when omitted", func(t *testing.T) {
		end := now.Add(time.Minute)
		gt.NoError(t, s.ApplyStepUpdate(model.StepUpdate{
			StepID:      types.StepPlanning,
			Status:      types.StepStatusCompleted,
			Progress:    100,
			EndTime:     &end,
			CurrentStep: 2,
		}, end))
		gt.Value(t, *s.Pipeline[1].StartTime).Equal(start)
		gt.Value(t, *s.Pipeline[1].EndTime).Equal(end)
	})

	t.Run("invalid progress", func(t *testing.T) {
		err := s.ApplyStepUpdate(model.StepUpdate{
			StepID: types.StepPlanning, Status: types.StepStatusInProgress, Progress: 101,
		}, now)
		gt.Bool(t, errors.Is(err, model.ErrInvalidProgress)).True()
	})

	t.Run("unknown step", func(t *testing.T) {
		err := s.ApplyStepUpdate(model.StepUpdate{
			StepID: "deploy", Status: types.StepStatusInProgress,
		}, now)
		gt.Bool(t, errors.Is(err, model.ErrUnknownStep)).True()
	})
}

func TestSessionLifecycle(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := model.NewSession("u", "n", "d", t0)

	t1 := t0.Add(time.Hour)
	gt.NoError(t, s.Abandon("changed my mind", t1)).Required()
	gt.Value(t, s.Status).Equal(types.SessionStatusAbandoned)
	gt.Value(t, s.AbandonReason).Equal("changed my mind")
	gt.Value(t, *s.AbandonedAt).Equal(t1)
	gt.Bool(t, s.NeedsFollowUp()).True()

	t2 := t1.Add(time.Hour)
	gt.NoError(t, s.Resume(t2)).Required()
	gt.Value(t, s.Status).Equal(types.SessionStatusActive)
	gt.Value(t, s.AbandonReason).Equal("")
	gt.Value(t, s.AbandonedAt).Nil()
	gt.Value(t, *s.ResumedAt).Equal(t2)

	s.DisableFollowUp(t2)
	gt.Bool(t, s.NeedsFollowUp()).False()
	s.EnforceFollowUp("stale", t2)
	gt.Bool(t, s.NeedsFollowUp()).True()
	gt.Value(t, s.FollowUpReason).Equal("stale")

	meta := &model.PluginMetadata{Name: "ban-bot", Version: "1.0.0", Permissions: []string{"ban_members"}}
	gt.NoError(t, s.Complete("code", meta, t2)).Required()
	meta.Permissions[0] = "changed"
	gt.Value(t, s.Status).Equal(types.SessionStatusCompleted)
	gt.Value(t, s.PluginMetadata.Permissions[0]).Equal("ban_members")
	gt.Bool(t, s.NeedsFollowUp()).False()
	gt.NoError(t, s.Validate())

	t.Run("completed session rejects further changes", func(t *testing.T) {
		gt.Bool(t, errors.Is(s.Abandon("x", t2), model.ErrSessionCompleted)).True()
		gt.Bool(t, errors.Is(s.Resume(t2), model.ErrSessionCompleted)).True()
		gt.Bool(t, errors.Is(s.Complete("again", meta, t2), model.ErrSessionNotActive)).True()
	})
}

func TestSessionAbandonedRejectsStepUpdates(t *testing.T) {
	now := time.Now()
	s := model.NewSession("u", "n", "d", now)
	gt.NoError(t, s.Abandon("later", now)).Required()

	err := s.ApplyStepUpdate(model.StepUpdate{
		StepID: types.StepInformation, Status: types.StepStatusInProgress, Progress: 10,
	}, now)
	gt.Bool(t, errors.Is(err, model.ErrSessionNotActive)).True()
	gt.Value(t, s.Pipeline[0].Status).Equal(types.StepStatusPending)

	gt.NoError(t, s.Resume(now)).Required()
	gt.NoError(t, s.ApplyStepUpdate(model.StepUpdate{
		StepID: types.StepInformation, Status: types.StepStatusInProgress, Progress: 10,
	}, now))
}

func TestSessionAppendMessage(t *testing.T) {
	t0 := time.Now()
	s := model.NewSession("u", "n", "d", t0)

	m1 := model.NewMessage(types.MessageRoleUser, "hello", types.StepInformation, t0)
	m2 := model.NewMessage(types.MessageRoleAI, "[1] what should it do?", types.StepInformation, t0)
	s.AppendMessage(m1, t0)
	s.AppendMessage(m2, t0)

	gt.Array(t, s.Messages).Length(2).Required()
	gt.Value(t, s.Messages[0].ID).Equal(m1.ID)
	gt.Value(t, s.Messages[0].Content).Equal("hello")
	gt.Value(t, s.Messages[1].ID).Equal(m2.ID)
	gt.Value(t, s.Messages[0].ID).NotEqual(s.Messages[1].ID)
}

func TestSessionCopy(t *testing.T) {
	s := model.NewSession("u", "n", "d", time.Now())
	msg := model.NewMessage(types.MessageRoleAI, "x", "", time.Now())
	msg.Marks = []model.Mark{{Type: types.MarkTypeQuestion, Code: 1}}
	s.AppendMessage(msg, time.Now())

	c := s.Copy()
	c.Pipeline[0].Status = types.StepStatusCompleted
	c.Messages[0].Marks[0].Resolved = true

	gt.Value(t, s.Pipeline[0].Status).Equal(types.StepStatusPending)
	gt.Bool(t, s.Messages[0].Marks[0].Resolved).False()
}
