package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/repository/firestore"
	"github.com/secmon-lab/cogsmith/pkg/repository/memory"
	"github.com/secmon-lab/cogsmith/pkg/repository/rdb"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for session store backend configuration
type Repository struct {
	backend    string
	projectID  string
	databaseID string
	sqlitePath string
	mysqlDSN   string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Session store backend (firestore, sqlite, mysql or memory)",
			Value:       "firestore",
			Category:    "Repository",
			Sources:     cli.EnvVars("COGSMITH_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("COGSMITH_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("COGSMITH_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file (sqlite backend)",
			Value:       "cogsmith.db",
			Category:    "Repository",
			Sources:     cli.EnvVars("COGSMITH_SQLITE_PATH"),
			Destination: &r.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "mysql-dsn",
			Usage:       "MySQL DSN (mysql backend), e.g. user:pass@tcp(host:3306)/cogsmith?parseTime=True",
			Category:    "Repository",
			Sources:     cli.EnvVars("COGSMITH_MYSQL_DSN"),
			Destination: &r.mysqlDSN,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.String("sqlite_path", r.sqlitePath),
		slog.Bool("mysql_dsn_set", r.mysqlDSN != ""),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case "firestore":
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingParameter, "firestore-project-id is required when using firestore backend",
				goerr.V(ParameterKey, "firestore-project-id"))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case "sqlite":
		if r.sqlitePath == "" {
			return nil, goerr.Wrap(ErrMissingParameter, "sqlite-path is required when using sqlite backend",
				goerr.V(ParameterKey, "sqlite-path"))
		}
		repo, err := rdb.NewSQLite(r.sqlitePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite repository")
		}
		logging.Default().Info("Using SQLite repository", "path", r.sqlitePath)
		return repo, nil

	case "mysql":
		if r.mysqlDSN == "" {
			return nil, goerr.Wrap(ErrMissingParameter, "mysql-dsn is required when using mysql backend",
				goerr.V(ParameterKey, "mysql-dsn"))
		}
		repo, err := rdb.NewMySQL(r.mysqlDSN)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize mysql repository")
		}
		logging.Default().Info("Using MySQL repository")
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unknown repository backend", goerr.V(BackendKey, r.backend))
	}
}
