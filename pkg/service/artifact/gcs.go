package artifact

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
	"google.golang.org/api/option"
)

// GCS exports artifacts to a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Exporter = &GCS{}

// GCSOption configures GCS
type GCSOption func(*GCS)

// WithPrefix sets the object name prefix
func WithPrefix(prefix string) GCSOption {
	return func(g *GCS) {
		g.prefix = prefix
	}
}

// NewGCS creates a GCS exporter for bucket
func NewGCS(ctx context.Context, bucket string, opts []GCSOption, clientOpts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	g := &GCS{client: client, bucket: bucket, prefix: "plugins"}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) Export(ctx context.Context, a *Artifact) error {
	objects, err := a.Objects(g.prefix)
	if err != nil {
		return err
	}

	bkt := g.client.Bucket(g.bucket)
	for _, obj := range objects {
		w := bkt.Object(obj.Name).NewWriter(ctx)
		w.ContentType = obj.ContentType

		if _, err := w.Write(obj.Data); err != nil {
			_ = w.Close()
			return goerr.Wrap(err, "failed to write artifact object",
				goerr.V("bucket", g.bucket), goerr.V("object", obj.Name))
		}
		// the upload is committed on Close
		if err := w.Close(); err != nil {
			return goerr.Wrap(err, "failed to upload artifact object",
				goerr.V("bucket", g.bucket), goerr.V("object", obj.Name))
		}
	}

	logging.From(ctx).Info("plugin artifact exported",
		"bucket", g.bucket,
		"session_id", a.SessionID,
		"objects", len(objects),
	)
	return nil
}
