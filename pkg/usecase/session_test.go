package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"github.com/secmon-lab/cogsmith/pkg/repository/memory"
	"github.com/secmon-lab/cogsmith/pkg/service/artifact"
	"github.com/secmon-lab/cogsmith/pkg/usecase"
)

const testUserID = "user@example.com"

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type mockExporter struct {
	mu       sync.Mutex
	exported []*artifact.Artifact
	done     chan struct{}
}

func (m *mockExporter) Export(ctx context.Context, a *artifact.Artifact) error {
	m.mu.Lock()
	m.exported = append(m.exported, a)
	m.mu.Unlock()
	close(m.done)
	return nil
}

func TestSessionUseCase_CreateSession(t *testing.T) {
	t.Run("creates active session with pending pipeline", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
		ctx := context.Background()

		s, err := uc.Session.CreateSession(ctx, testUserID, "greeter", "says hello")
		gt.NoError(t, err).Required()

		gt.Value(t, s.Status).Equal(types.SessionStatusActive)
		gt.Number(t, s.CurrentStep).Equal(0)
		gt.Array(t, s.Pipeline).Length(5)
		gt.Value(t, s.CreatedAt).Equal(testNow)
		gt.Bool(t, s.FollowUpEnforced).True()

		got, err := uc.Session.GetSession(ctx, testUserID, s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Name).Equal("greeter")
	})

	t.Run("requires name", func(t *testing.T) {
		uc := usecase.New(memory.New())
		_, err := uc.Session.CreateSession(context.Background(), testUserID, "  ", "a discord cog")
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})

	t.Run("requires description", func(t *testing.T) {
		uc := usecase.New(memory.New())
		_, err := uc.Session.CreateSession(context.Background(), testUserID, "greeter", " ")
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()

		list, err := uc.Session.ListSessions(context.Background(), testUserID)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(0)
	})

	t.Run("gate opens after the incomplete session is abandoned", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
		ctx := context.Background()

		first, err := uc.Session.CreateSession(ctx, testUserID, "first", "a discord cog")
		gt.NoError(t, err).Required()
		_, err = uc.Session.AbandonSession(ctx, testUserID, first.ID, "changed my mind")
		gt.NoError(t, err).Required()

		s, err := uc.Session.CreateSession(ctx, testUserID, "second", "a discord cog")
		gt.NoError(t, err).Required()
		gt.Value(t, s.GateBypassReason).Equal("")
	})

	t.Run("gate refuses while a session is incomplete", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
		ctx := context.Background()

		_, err := uc.Session.CreateSession(ctx, testUserID, "first", "a discord cog")
		gt.NoError(t, err).Required()

		_, err = uc.Session.CreateSession(ctx, testUserID, "second", "a discord cog")
		gt.Bool(t, errors.Is(err, usecase.ErrFollowUpRequired)).True()

		// other users are not affected
		_, err = uc.Session.CreateSession(ctx, "other@example.com", "mine", "a discord cog")
		gt.NoError(t, err)
	})

	t.Run("bypass stores reason", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
		ctx := context.Background()

		_, err := uc.Session.CreateSession(ctx, testUserID, "first", "a discord cog")
		gt.NoError(t, err).Required()

		s, err := uc.Session.CreateSession(ctx, testUserID, "second", "a discord cog", usecase.WithGateBypass("urgent fix"))
		gt.NoError(t, err).Required()
		gt.Value(t, s.GateBypassReason).Equal("urgent fix")
	})

	t.Run("gate opens when follow-up is disabled", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
		ctx := context.Background()

		first, err := uc.Session.CreateSession(ctx, testUserID, "first", "a discord cog")
		gt.NoError(t, err).Required()
		_, err = uc.Session.DisableFollowUp(ctx, testUserID, first.ID)
		gt.NoError(t, err).Required()

		s, err := uc.Session.CreateSession(ctx, testUserID, "second", "a discord cog")
		gt.NoError(t, err).Required()
		gt.Value(t, s.GateBypassReason).Equal("")
	})

	t.Run("gate can be disabled", func(t *testing.T) {
		uc := usecase.New(memory.New(), usecase.WithFollowUpGate(false))
		ctx := context.Background()

		_, err := uc.Session.CreateSession(ctx, testUserID, "first", "a discord cog")
		gt.NoError(t, err).Required()
		_, err = uc.Session.CreateSession(ctx, testUserID, "second", "a discord cog")
		gt.NoError(t, err)
	})
}

func TestSessionUseCase_AppendMessage(t *testing.T) {
	uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
	ctx := context.Background()

	s, err := uc.Session.CreateSession(ctx, testUserID, "greeter", "a discord cog")
	gt.NoError(t, err).Required()

	t.Run("scans marks of AI messages", func(t *testing.T) {
		msg, err := uc.Session.AppendMessage(ctx, testUserID, s.ID, usecase.MessageInput{
			Role:    types.MessageRoleAI,
			Content: "[1] Which channel should it greet in?",
			StepID:  types.StepInformation,
		})
		gt.NoError(t, err).Required()
		gt.Array(t, msg.Marks).Length(1).Required()
		gt.Value(t, msg.Marks[0].Type).Equal(types.MarkTypeQuestion)
		gt.Value(t, msg.Timestamp).Equal(testNow)
	})

	t.Run("keeps caller timestamp", func(t *testing.T) {
		ts := testNow.Add(-time.Minute)
		msg, err := uc.Session.AppendMessage(ctx, testUserID, s.ID, usecase.MessageInput{
			Role:      types.MessageRoleUser,
			Content:   "#general",
			Timestamp: &ts,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, msg.Timestamp).Equal(ts)
		gt.Array(t, msg.Marks).Length(0)
	})

	t.Run("appends in order", func(t *testing.T) {
		got, err := uc.Session.GetSession(ctx, testUserID, s.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Messages).Length(2).Required()
		gt.Value(t, got.Messages[0].Role).Equal(types.MessageRoleAI)
		gt.Value(t, got.Messages[1].Content).Equal("#general")
	})

	t.Run("rejects empty content", func(t *testing.T) {
		_, err := uc.Session.AppendMessage(ctx, testUserID, s.ID, usecase.MessageInput{Role: types.MessageRoleUser})
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})

	t.Run("rejects invalid role", func(t *testing.T) {
		_, err := uc.Session.AppendMessage(ctx, testUserID, s.ID, usecase.MessageInput{Role: "system", Content: "x"})
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})

	t.Run("other user gets not found", func(t *testing.T) {
		_, err := uc.Session.AppendMessage(ctx, "intruder@example.com", s.ID, usecase.MessageInput{
			Role:    types.MessageRoleUser,
			Content: "hi",
		})
		gt.Bool(t, errors.Is(err, usecase.ErrSessionNotFound)).True()

		got, err := uc.Session.GetSession(ctx, testUserID, s.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Messages).Length(2)
	})
}

func TestSessionUseCase_ReplaceMessages(t *testing.T) {
	uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
	ctx := context.Background()

	s, err := uc.Session.CreateSession(ctx, testUserID, "greeter", "a discord cog")
	gt.NoError(t, err).Required()
	_, err = uc.Session.AppendMessage(ctx, testUserID, s.ID, usecase.MessageInput{Role: types.MessageRoleUser, Content: "old"})
	gt.NoError(t, err).Required()

	replaced, err := uc.Session.ReplaceMessages(ctx, testUserID, s.ID, []model.Message{
		{ID: "kept", Role: types.MessageRoleUser, Content: "edited", Timestamp: testNow.Add(-time.Hour)},
		{Role: types.MessageRoleAI, Content: "[2]code[2]"},
	})
	gt.NoError(t, err).Required()
	gt.Array(t, replaced).Length(2).Required()
	gt.Value(t, replaced[0].ID).Equal(model.MessageID("kept"))
	gt.Value(t, replaced[1].ID).NotEqual(model.MessageID(""))

	got, err := uc.Session.GetSession(ctx, testUserID, s.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, got.Messages).Length(2).Required()
	gt.Value(t, got.Messages[0].Content).Equal("edited")

	t.Run("rejects invalid entries", func(t *testing.T) {
		_, err := uc.Session.ReplaceMessages(ctx, testUserID, s.ID, []model.Message{{Role: types.MessageRoleUser}})
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})
}

func TestSessionUseCase_UpdatePipelineStep(t *testing.T) {
	uc := usecase.New(memory.New(), usecase.WithClock(fixedClock))
	ctx := context.Background()

	s, err := uc.Session.CreateSession(ctx, testUserID, "greeter", "a discord cog")
	gt.NoError(t, err).Required()

	t.Run("out of order update is accepted", func(t *testing.T) {
		start := testNow
		updated, err := uc.Session.UpdatePipelineStep(ctx, testUserID, s.ID, model.StepUpdate{
			StepID:      types.StepFinishing,
			Status:      types.StepStatusInProgress,
			Progress:    30,
			StartTime:   &start,
			CurrentStep: 4,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Step(types.StepFinishing).Status).Equal(types.StepStatusInProgress)
		gt.Value(t, updated.Step(types.StepGeneration).Status).Equal(types.StepStatusPending)
		gt.Number(t, updated.CurrentStep).Equal(4)
	})

	t.Run("invalid progress", func(t *testing.T) {
		_, err := uc.Session.UpdatePipelineStep(ctx, testUserID, s.ID, model.StepUpdate{
			StepID:   types.StepPlanning,
			Status:   types.StepStatusInProgress,
			Progress: 150,
		})
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})

	t.Run("unknown step", func(t *testing.T) {
		_, err := uc.Session.UpdatePipelineStep(ctx, testUserID, s.ID, model.StepUpdate{
			StepID: "deploy",
			Status: types.StepStatusInProgress,
		})
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})

	t.Run("abandoned session rejects updates", func(t *testing.T) {
		_, err := uc.Session.AbandonSession(ctx, testUserID, s.ID, "later")
		gt.NoError(t, err).Required()

		_, err = uc.Session.UpdatePipelineStep(ctx, testUserID, s.ID, model.StepUpdate{
			StepID: types.StepPlanning,
			Status: types.StepStatusInProgress,
		})
		gt.Bool(t, errors.Is(err, usecase.ErrSessionNotActive)).True()
	})
}

func TestSessionUseCase_Lifecycle(t *testing.T) {
	exporter := &mockExporter{done: make(chan struct{})}
	uc := usecase.New(memory.New(), usecase.WithClock(fixedClock), usecase.WithExporter(exporter))
	ctx := context.Background()

	s, err := uc.Session.CreateSession(ctx, testUserID, "greeter", "a discord cog")
	gt.NoError(t, err).Required()

	abandoned, err := uc.Session.AbandonSession(ctx, testUserID, s.ID, "taking a break")
	gt.NoError(t, err).Required()
	gt.Value(t, abandoned.Status).Equal(types.SessionStatusAbandoned)
	gt.Value(t, abandoned.AbandonReason).Equal("taking a break")

	resumed, err := uc.Session.ResumeSession(ctx, testUserID, s.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, resumed.Status).Equal(types.SessionStatusActive)
	gt.Value(t, resumed.AbandonReason).Equal("")
	gt.Value(t, resumed.AbandonedAt).Nil()
	gt.Value(t, resumed.ResumedAt).NotNil()

	enforced, err := uc.Session.EnforceFollowUp(ctx, testUserID, s.ID, "reviewer asked")
	gt.NoError(t, err).Required()
	gt.Value(t, enforced.FollowUpReason).Equal("reviewer asked")

	t.Run("complete requires code and metadata", func(t *testing.T) {
		_, err := uc.Session.CompleteSession(ctx, testUserID, s.ID, "", &model.PluginMetadata{Name: "greeter"})
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()

		_, err = uc.Session.CompleteSession(ctx, testUserID, s.ID, "print(1)", nil)
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})

	completed, err := uc.Session.CompleteSession(ctx, testUserID, s.ID, "print(1)", &model.PluginMetadata{Name: "greeter", Version: "1.0.0"})
	gt.NoError(t, err).Required()
	gt.Value(t, completed.Status).Equal(types.SessionStatusCompleted)
	gt.Value(t, completed.GeneratedCode).Equal("print(1)")

	select {
	case <-exporter.done:
	case <-time.After(5 * time.Second):
		t.Fatal("artifact was not exported")
	}
	exporter.mu.Lock()
	gt.Array(t, exporter.exported).Length(1).Required()
	gt.Value(t, exporter.exported[0].Name).Equal("greeter")
	exporter.mu.Unlock()

	t.Run("completed session cannot be resumed or abandoned", func(t *testing.T) {
		_, err := uc.Session.ResumeSession(ctx, testUserID, s.ID)
		gt.Bool(t, errors.Is(err, usecase.ErrSessionNotActive)).True()

		_, err = uc.Session.AbandonSession(ctx, testUserID, s.ID, "")
		gt.Bool(t, errors.Is(err, usecase.ErrSessionNotActive)).True()
	})

	t.Run("completed session is no longer incomplete", func(t *testing.T) {
		report, err := uc.FollowUp.ListIncomplete(ctx, testUserID)
		gt.NoError(t, err).Required()
		gt.Number(t, report.TotalIncomplete).Equal(0)
		gt.Bool(t, report.ShouldEnforceFollowUp).False()
	})
}

func TestSessionUseCase_ListSessions(t *testing.T) {
	uc := usecase.New(memory.New(), usecase.WithFollowUpGate(false))
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		_, err := uc.Session.CreateSession(ctx, testUserID, name, "a discord cog")
		gt.NoError(t, err).Required()
	}
	_, err := uc.Session.CreateSession(ctx, "other@example.com", "c", "a discord cog")
	gt.NoError(t, err).Required()

	sessions, err := uc.Session.ListSessions(ctx, testUserID)
	gt.NoError(t, err).Required()
	gt.Array(t, sessions).Length(2)
}
