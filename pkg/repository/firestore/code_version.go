package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"google.golang.org/api/iterator"
)

type codeVersionRepository struct {
	client   *firestore.Client
	sessions *sessionRepository
}

func newCodeVersionRepository(client *firestore.Client, sessions *sessionRepository) *codeVersionRepository {
	return &codeVersionRepository{client: client, sessions: sessions}
}

// versionsCollection returns the subcollection path:
// plugin_sessions/{sessionID}/code_versions
func (r *codeVersionRepository) versionsCollection(sessionID model.SessionID) *firestore.CollectionRef {
	return r.sessions.sessionsCollection().Doc(string(sessionID)).Collection(CodeVersionsCollection)
}

func (r *codeVersionRepository) Create(ctx context.Context, userID string, v *model.CodeVersion) (*model.CodeVersion, error) {
	sessionRef := r.sessions.sessionsCollection().Doc(string(v.SessionID))

	created := *v
	if created.ID == "" {
		created.ID = model.NewCodeVersionID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(sessionRef)
		d, err := readOwned(snap, err, userID, v.SessionID)
		if err != nil {
			return err
		}

		next := d.CodeVersionCount + 1
		created.Version = int(next)

		versionRef := r.versionsCollection(v.SessionID).Doc(fmt.Sprintf("%08d", next))
		if err := tx.Create(versionRef, toCodeVersionDoc(&created)); err != nil {
			return goerr.Wrap(err, "failed to create code version")
		}
		return tx.Update(sessionRef, []firestore.Update{
			{Path: "codeVersionCount", Value: next},
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to save code version", goerr.V(model.SessionIDKey, v.SessionID))
	}

	return &created, nil
}

func (r *codeVersionRepository) List(ctx context.Context, userID string, sessionID model.SessionID) ([]*model.CodeVersion, error) {
	if _, err := r.sessions.Get(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	iter := r.versionsCollection(sessionID).OrderBy("version", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	versions := []*model.CodeVersion{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate code versions")
		}

		var d codeVersionDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode code version", goerr.V("doc_id", snap.Ref.ID))
		}
		versions = append(versions, fromCodeVersionDoc(&d))
	}

	return versions, nil
}
