package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
)

// ErrNotFound is returned when a session or code version does not resolve for the caller
var ErrNotFound = interfaces.ErrNotFound

// Collection names
const (
	SessionsCollection     = "plugin_sessions"
	CodeVersionsCollection = "code_versions"
)

type Firestore struct {
	client      *firestore.Client
	session     *sessionRepository
	codeVersion *codeVersionRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes the top level sessions collection, used to isolate test runs
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.session.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var (
		client *firestore.Client
		err    error
	)
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	sessionRepo := newSessionRepository(client)
	f := &Firestore{
		client:      client,
		session:     sessionRepo,
		codeVersion: newCodeVersionRepository(client, sessionRepo),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Session() interfaces.SessionRepository {
	return f.session
}

func (f *Firestore) CodeVersion() interfaces.CodeVersionRepository {
	return f.codeVersion
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
