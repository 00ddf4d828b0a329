package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"github.com/secmon-lab/cogsmith/pkg/repository/firestore"
	"github.com/secmon-lab/cogsmith/pkg/repository/memory"
	"github.com/secmon-lab/cogsmith/pkg/repository/rdb"
)

func newTestSession(userID, name string) *model.Session {
	return model.NewSession(userID, name, "test plugin "+name, time.Now().UTC())
}

func runSessionRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create and Get round trip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := "user-" + time.Now().Format("150405.000000000")

		s := newTestSession(userID, "ban-bot")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		got, err := repo.Session().Get(ctx, userID, s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(s.ID)
		gt.Value(t, got.Name).Equal("ban-bot")
		gt.Value(t, got.Status).Equal(types.SessionStatusActive)
		gt.Value(t, got.CurrentStep).Equal(0)
		gt.Value(t, got.TotalSteps).Equal(5)
		gt.Bool(t, got.FollowUpEnforced).True()
		gt.Array(t, got.Pipeline).Length(5).Required()
		for i, id := range types.AllStepIDs() {
			gt.Value(t, got.Pipeline[i].ID).Equal(id)
			gt.Value(t, got.Pipeline[i].Status).Equal(types.StepStatusPending)
			gt.Value(t, got.Pipeline[i].Progress).Equal(0)
		}
	})

	t.Run("Get hides sessions of other users", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("owner-a", "a")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		_, err = repo.Session().Get(ctx, "owner-b", s.ID)
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()

		_, err = repo.Session().Get(ctx, "owner-a", model.NewSessionID())
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})

	t.Run("AppendMessage is append only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("appender", "append")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		m1 := model.NewMessage(types.MessageRoleUser, "make a ban bot", types.StepInformation, time.Now().UTC())
		m2 := model.NewMessage(types.MessageRoleAI, "[1] which words?", types.StepInformation, time.Now().UTC())
		m2.Marks = []model.Mark{{Type: types.MarkTypeQuestion, Code: 1, Context: "[1] which words?"}}

		gt.NoError(t, repo.Session().AppendMessage(ctx, "appender", s.ID, m1, time.Now().UTC())).Required()
		first, err := repo.Session().Get(ctx, "appender", s.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, first.Messages).Length(1)

		gt.NoError(t, repo.Session().AppendMessage(ctx, "appender", s.ID, m2, time.Now().UTC())).Required()
		got, err := repo.Session().Get(ctx, "appender", s.ID)
		gt.NoError(t, err).Required()

		gt.Array(t, got.Messages).Length(2).Required()
		gt.Value(t, got.Messages[0].ID).Equal(m1.ID)
		gt.Value(t, got.Messages[0].Content).Equal("make a ban bot")
		gt.Value(t, got.Messages[1].ID).Equal(m2.ID)
		gt.Array(t, got.Messages[1].Marks).Length(1)
		gt.Value(t, got.Messages[1].Marks[0].Type).Equal(types.MarkTypeQuestion)
		gt.Bool(t, got.LastUpdated.Before(s.LastUpdated)).False()
	})

	t.Run("mutations stamp lastUpdated with the given time", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("stamper", "stamp")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		stamp := time.Now().UTC().Add(-7 * time.Hour).Truncate(time.Second)
		gt.NoError(t, repo.Session().Abandon(ctx, "stamper", s.ID, "later", stamp)).Required()

		got, err := repo.Session().Get(ctx, "stamper", s.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.LastUpdated.Equal(stamp)).True()
	})

	t.Run("AppendMessage of other user is not found and not applied", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("owner-a", "isolated")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		msg := model.NewMessage(types.MessageRoleUser, "intrusion", "", time.Now().UTC())
		err = repo.Session().AppendMessage(ctx, "owner-b", s.ID, msg, time.Now().UTC())
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()

		got, err := repo.Session().Get(ctx, "owner-a", s.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Messages).Length(0)
	})

	t.Run("ReplaceMessages swaps history", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("editor", "edit")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		for _, c := range []string{"one", "two", "three"} {
			msg := model.NewMessage(types.MessageRoleUser, c, "", time.Now().UTC())
			gt.NoError(t, repo.Session().AppendMessage(ctx, "editor", s.ID, msg, time.Now().UTC())).Required()
		}

		kept := model.NewMessage(types.MessageRoleUser, "only", "", time.Now().UTC())
		gt.NoError(t, repo.Session().ReplaceMessages(ctx, "editor", s.ID, []model.Message{kept}, time.Now().UTC())).Required()

		got, err := repo.Session().Get(ctx, "editor", s.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Messages).Length(1).Required()
		gt.Value(t, got.Messages[0].ID).Equal(kept.ID)
	})

	t.Run("UpdateStep changes only the target step", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("stepper", "steps")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		start := time.Now().UTC().Truncate(time.Millisecond)
		gt.NoError(t, repo.Session().UpdateStep(ctx, "stepper", s.ID, model.StepUpdate{
			StepID:      types.StepPlanning,
			Status:      types.StepStatusInProgress,
			Progress:    30,
			StartTime:   &start,
			CurrentStep: 1,
		}, time.Now().UTC())).Required()

		got, err := repo.Session().Get(ctx, "stepper", s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.CurrentStep).Equal(1)
		gt.Value(t, got.Pipeline[1].Status).Equal(types.StepStatusInProgress)
		gt.Value(t, got.Pipeline[1].Progress).Equal(30)
		gt.Bool(t, got.Pipeline[1].StartTime.Equal(start)).True()
		gt.Value(t, got.Pipeline[0].Status).Equal(types.StepStatusPending)
		gt.Value(t, got.Pipeline[2].Status).Equal(types.StepStatusPending)
	})

	t.Run("UpdateStep accepts out of order steps", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("stepper", "unordered")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		// Finishing is recorded while generation is still pending
		gt.NoError(t, repo.Session().UpdateStep(ctx, "stepper", s.ID, model.StepUpdate{
			StepID:      types.StepFinishing,
			Status:      types.StepStatusInProgress,
			Progress:    10,
			CurrentStep: 4,
		}, time.Now().UTC())).Required()

		got, err := repo.Session().Get(ctx, "stepper", s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Pipeline[4].Status).Equal(types.StepStatusInProgress)
		gt.Value(t, got.Pipeline[2].Status).Equal(types.StepStatusPending)
	})

	t.Run("UpdateStep of other user is not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("owner-a", "cross")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		err = repo.Session().UpdateStep(ctx, "owner-b", s.ID, model.StepUpdate{
			StepID: types.StepInformation, Status: types.StepStatusCompleted, Progress: 100, CurrentStep: 1,
		}, time.Now().UTC())
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()

		got, err := repo.Session().Get(ctx, "owner-a", s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Pipeline[0].Status).Equal(types.StepStatusPending)
		gt.Value(t, got.CurrentStep).Equal(0)
	})

	t.Run("Complete removes session from incomplete list", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := "completer-" + time.Now().Format("150405.000000000")

		s := newTestSession(userID, "done")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		for i, id := range types.AllStepIDs() {
			gt.NoError(t, repo.Session().UpdateStep(ctx, userID, s.ID, model.StepUpdate{
				StepID: id, Status: types.StepStatusCompleted, Progress: 100, CurrentStep: i + 1,
			}, time.Now().UTC())).Required()
		}

		incomplete, err := repo.Session().ListIncomplete(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, incomplete).Length(1)

		meta := &model.PluginMetadata{Name: "done", Version: "1.0.0", Author: userID, Permissions: []string{}, Dependencies: []string{}}
		gt.NoError(t, repo.Session().Complete(ctx, userID, s.ID, "class Done(commands.Cog): pass", meta, time.Now().UTC())).Required()

		got, err := repo.Session().Get(ctx, userID, s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.SessionStatusCompleted)
		gt.Value(t, got.CurrentStep).Equal(5)
		gt.Value(t, got.GeneratedCode).Equal("class Done(commands.Cog): pass")
		gt.Value(t, got.PluginMetadata.Name).Equal("done")

		incomplete, err = repo.Session().ListIncomplete(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, incomplete).Length(0)
	})

	t.Run("Abandon and Resume toggle status", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("toggler", "toggle")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Session().Abandon(ctx, "toggler", s.ID, "not now", time.Now().UTC())).Required()
		got, err := repo.Session().Get(ctx, "toggler", s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.SessionStatusAbandoned)
		gt.Value(t, got.AbandonReason).Equal("not now")
		gt.Value(t, got.AbandonedAt).NotNil()

		gt.NoError(t, repo.Session().Resume(ctx, "toggler", s.ID, time.Now().UTC())).Required()
		got, err = repo.Session().Get(ctx, "toggler", s.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.SessionStatusActive)
		gt.Value(t, got.AbandonReason).Equal("")
		gt.Value(t, got.AbandonedAt).Nil()
		gt.Value(t, got.ResumedAt).NotNil()
	})

	t.Run("Abandoned session rejects step updates", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newTestSession("toggler", "frozen")
		_, err := repo.Session().Create(ctx, s)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Session().Abandon(ctx, "toggler", s.ID, "", time.Now().UTC())).Required()

		err = repo.Session().UpdateStep(ctx, "toggler", s.ID, model.StepUpdate{
			StepID: types.StepInformation, Status: types.StepStatusInProgress, Progress: 5,
		}, time.Now().UTC())
		gt.Bool(t, errors.Is(err, model.ErrSessionNotActive)).True()
	})

	t.Run("ListIncomplete filters and orders sessions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := "lister-" + time.Now().Format("150405.000000000")

		older := newTestSession(userID, "older")
		older.LastUpdated = time.Now().UTC().Add(-30 * time.Hour)
		newer := newTestSession(userID, "newer")
		newer.LastUpdated = time.Now().UTC().Add(-1 * time.Hour)
		disabled := newTestSession(userID, "disabled")
		abandoned := newTestSession(userID, "abandoned")
		other := newTestSession("someone-else", "other")

		for _, s := range []*model.Session{older, newer, disabled, abandoned, other} {
			_, err := repo.Session().Create(ctx, s)
			gt.NoError(t, err).Required()
		}
		gt.NoError(t, repo.Session().DisableFollowUp(ctx, userID, disabled.ID, time.Now().UTC())).Required()
		gt.NoError(t, repo.Session().Abandon(ctx, userID, abandoned.ID, "later", time.Now().UTC())).Required()

		got, err := repo.Session().ListIncomplete(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(3).Required()
		gt.Value(t, got[0].ID).Equal(abandoned.ID)
		gt.Value(t, got[1].ID).Equal(newer.ID)
		gt.Value(t, got[2].ID).Equal(older.ID)

		gt.NoError(t, repo.Session().EnforceFollowUp(ctx, userID, disabled.ID, "manual", time.Now().UTC())).Required()
		got, err = repo.Session().ListIncomplete(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(4).Required()
		gt.Value(t, got[0].ID).Equal(disabled.ID)
		gt.Value(t, got[0].FollowUpReason).Equal("manual")

		all, err := repo.Session().ListByUser(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(4)
	})
}

func newSQLiteRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	repo, err := rdb.NewSQLite(filepath.Join(t.TempDir(), "cogsmith.db"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newMySQLRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	repo, err := rdb.NewMySQL(dsn)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	prefix := "test_" + time.Now().Format("20060102150405.000000000")
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func TestMemorySessionRepository(t *testing.T) {
	runSessionRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestSQLiteSessionRepository(t *testing.T) {
	runSessionRepositoryTest(t, newSQLiteRepository)
}

func TestMySQLSessionRepository(t *testing.T) {
	runSessionRepositoryTest(t, newMySQLRepository)
}

func TestFirestoreSessionRepository(t *testing.T) {
	runSessionRepositoryTest(t, newFirestoreRepository)
}
