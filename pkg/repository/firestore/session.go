package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type sessionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newSessionRepository(client *firestore.Client) *sessionRepository {
	return &sessionRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *sessionRepository) sessionsCollection() *firestore.CollectionRef {
	if r.collectionPrefix != "" {
		return r.client.Collection(r.collectionPrefix + "_" + SessionsCollection)
	}
	return r.client.Collection(SessionsCollection)
}

func (r *sessionRepository) Create(ctx context.Context, s *model.Session) (*model.Session, error) {
	docRef := r.sessionsCollection().Doc(string(s.ID))
	if _, err := docRef.Create(ctx, toSessionDoc(s)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(err, "session already exists", goerr.V(model.SessionIDKey, s.ID))
		}
		return nil, goerr.Wrap(err, "failed to create session", goerr.V(model.SessionIDKey, s.ID))
	}
	return s.Copy(), nil
}

// readOwned loads the session document and hides sessions of other users as not found
func readOwned(snap *firestore.DocumentSnapshot, err error, userID string, id model.SessionID) (*sessionDoc, error) {
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "session not found",
				goerr.V(model.SessionIDKey, id), goerr.V(model.UserIDKey, userID))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V(model.SessionIDKey, id))
	}

	var d sessionDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session", goerr.V(model.SessionIDKey, id))
	}
	if d.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "session not found",
			goerr.V(model.SessionIDKey, id), goerr.V(model.UserIDKey, userID))
	}
	return &d, nil
}

func (r *sessionRepository) Get(ctx context.Context, userID string, id model.SessionID) (*model.Session, error) {
	snap, err := r.sessionsCollection().Doc(string(id)).Get(ctx)
	d, err := readOwned(snap, err, userID, id)
	if err != nil {
		return nil, err
	}
	return fromSessionDoc(d), nil
}

func (r *sessionRepository) query(ctx context.Context, q firestore.Query) ([]*model.Session, error) {
	iter := q.OrderBy("last_updated", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	sessions := []*model.Session{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate sessions")
		}

		var d sessionDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode session", goerr.V("doc_id", snap.Ref.ID))
		}
		sessions = append(sessions, fromSessionDoc(&d))
	}

	return sessions, nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]*model.Session, error) {
	return r.query(ctx, r.sessionsCollection().Where("userId", "==", userID))
}

func (r *sessionRepository) ListIncomplete(ctx context.Context, userID string) ([]*model.Session, error) {
	q := r.sessionsCollection().
		Where("userId", "==", userID).
		Where("status", "in", []string{
			types.SessionStatusActive.String(),
			types.SessionStatusAbandoned.String(),
		}).
		Where("followUpEnforced", "==", true)
	return r.query(ctx, q)
}

// update runs mutate on the stored session inside a transaction
func (r *sessionRepository) update(ctx context.Context, userID string, id model.SessionID, now time.Time, mutate func(s *model.Session, now time.Time) error) error {
	docRef := r.sessionsCollection().Doc(string(id))

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		d, err := readOwned(snap, err, userID, id)
		if err != nil {
			return err
		}

		s := fromSessionDoc(d)
		if err := mutate(s, now.UTC()); err != nil {
			return err
		}

		updated := toSessionDoc(s)
		updated.CodeVersionCount = d.CodeVersionCount
		if err := tx.Set(docRef, updated); err != nil {
			return goerr.Wrap(err, "failed to update session", goerr.V(model.SessionIDKey, id))
		}
		return nil
	})
}

func (r *sessionRepository) AppendMessage(ctx context.Context, userID string, id model.SessionID, msg model.Message, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		s.AppendMessage(msg, now)
		return nil
	})
}

func (r *sessionRepository) ReplaceMessages(ctx context.Context, userID string, id model.SessionID, msgs []model.Message, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		s.ReplaceMessages(msgs, now)
		return nil
	})
}

func (r *sessionRepository) UpdateStep(ctx context.Context, userID string, id model.SessionID, update model.StepUpdate, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		return s.ApplyStepUpdate(update, now)
	})
}

func (r *sessionRepository) Complete(ctx context.Context, userID string, id model.SessionID, code string, metadata *model.PluginMetadata, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		return s.Complete(code, metadata, now)
	})
}

func (r *sessionRepository) Abandon(ctx context.Context, userID string, id model.SessionID, reason string, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		return s.Abandon(reason, now)
	})
}

func (r *sessionRepository) Resume(ctx context.Context, userID string, id model.SessionID, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		return s.Resume(now)
	})
}

func (r *sessionRepository) EnforceFollowUp(ctx context.Context, userID string, id model.SessionID, reason string, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		s.EnforceFollowUp(reason, now)
		return nil
	})
}

func (r *sessionRepository) DisableFollowUp(ctx context.Context, userID string, id model.SessionID, now time.Time) error {
	return r.update(ctx, userID, id, now, func(s *model.Session, now time.Time) error {
		s.DisableFollowUp(now)
		return nil
	})
}
