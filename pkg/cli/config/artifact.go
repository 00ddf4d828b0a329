package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/service/artifact"
	"github.com/urfave/cli/v3"
)

// Artifact configures export of completed plugins to Cloud Storage
type Artifact struct {
	bucket string
	prefix string
}

func (a *Artifact) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "artifact-bucket",
			Usage:       "Cloud Storage bucket receiving completed plugins. Empty disables export.",
			Category:    "Artifact",
			Sources:     cli.EnvVars("COGSMITH_ARTIFACT_BUCKET"),
			Destination: &a.bucket,
		},
		&cli.StringFlag{
			Name:        "artifact-prefix",
			Usage:       "Object name prefix in the artifact bucket",
			Value:       "plugins",
			Category:    "Artifact",
			Sources:     cli.EnvVars("COGSMITH_ARTIFACT_PREFIX"),
			Destination: &a.prefix,
		},
	}
}

func (a Artifact) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", a.bucket),
		slog.String("prefix", a.prefix),
	)
}

// Configure creates the exporter. Returns nil when no bucket is set.
func (a *Artifact) Configure(ctx context.Context) (*artifact.GCS, error) {
	if a.bucket == "" {
		return nil, nil
	}

	gcs, err := artifact.NewGCS(ctx, a.bucket, []artifact.GCSOption{artifact.WithPrefix(a.prefix)})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure artifact export", goerr.V("bucket", a.bucket))
	}
	return gcs, nil
}
