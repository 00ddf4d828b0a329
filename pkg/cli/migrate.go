package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/repository/firestore"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var (
		projectID        string
		databaseID       string
		collectionPrefix string
		dryRun           bool
	)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Declare Firestore indexes of the session store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("COGSMITH_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("COGSMITH_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "collection-prefix",
				Usage:       "Prefix of the sessions collection (as used by isolated deployments)",
				Sources:     cli.EnvVars("COGSMITH_COLLECTION_PREFIX"),
				Destination: &collectionPrefix,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Show the migration plan without applying it",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default().With(
				slog.String("project_id", projectID),
				slog.String("database_id", databaseID),
			)

			client, err := fireconf.NewClient(ctx, projectID, databaseID)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			cfg := indexConfig(collectionPrefix)
			if err := showPlan(ctx, logger, client, cfg); err != nil {
				return err
			}
			if dryRun {
				return nil
			}

			if err := client.Migrate(ctx, cfg); err != nil {
				return goerr.Wrap(err, "failed to apply index migration")
			}
			logger.Info("Index migration applied")
			return nil
		},
	}
}

func showPlan(ctx context.Context, logger *slog.Logger, client *fireconf.Client, cfg *fireconf.Config) error {
	plan, err := client.GetMigrationPlan(ctx, cfg)
	if err != nil {
		return goerr.Wrap(err, "failed to create migration plan")
	}
	if len(plan.Steps) == 0 {
		logger.Info("Indexes are up to date")
		return nil
	}
	for _, step := range plan.Steps {
		logger.Info("Planned index change",
			"collection", step.Collection,
			"operation", step.Operation,
			"description", step.Description,
			"destructive", step.Destructive)
	}
	return nil
}

// indexConfig declares the composite indexes needed by the Firestore session queries
func indexConfig(prefix string) *fireconf.Config {
	collection := firestore.SessionsCollection
	if prefix != "" {
		collection = prefix + "_" + collection
	}

	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: collection,
				Indexes: []fireconf.Index{
					// list by owner, newest first
					{
						Fields: []fireconf.IndexField{
							{Path: "userId", Order: fireconf.OrderAscending},
							{Path: "last_updated", Order: fireconf.OrderDescending},
						},
					},
					// incomplete sessions needing follow-up
					{
						Fields: []fireconf.IndexField{
							{Path: "userId", Order: fireconf.OrderAscending},
							{Path: "status", Order: fireconf.OrderAscending},
							{Path: "followUpEnforced", Order: fireconf.OrderAscending},
							{Path: "last_updated", Order: fireconf.OrderDescending},
						},
					},
				},
			},
		},
	}
}
