// Package rdb stores sessions in a relational database through gorm. Each session is one row
// holding the JSON session document plus the columns needed for owner scoping and ordering.
package rdb

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a session or code version does not resolve for the caller
var ErrNotFound = interfaces.ErrNotFound

// ErrConflict is returned when an update lost the revision race maxRetries times in a row
var ErrConflict = goerr.New("session was modified concurrently")

const defaultMaxRetries = 5

type RDB struct {
	db          *gorm.DB
	maxRetries  int
	session     *sessionRepository
	codeVersion *codeVersionRepository
}

var _ interfaces.Repository = &RDB{}

type Option func(*RDB)

// WithMaxRetries sets how many times an optimistic update is retried on revision conflict
func WithMaxRetries(n int) Option {
	return func(r *RDB) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

// MySQLConfig holds connection parameters used when no DSN is given
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Params   string
}

// DSN builds a go-sql-driver style DSN
func (c MySQLConfig) DSN() string {
	params := c.Params
	if params == "" {
		params = "charset=utf8mb4&parseTime=True&loc=UTC"
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.User, c.Password, c.Host, port, c.Database, params)
}

// NewSQLite opens (or creates) a SQLite database file. Use ":memory:" for a private in-process database.
func NewSQLite(path string, opts ...Option) (*RDB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared
	r, err := open(sqlite.Open(dsn), 1, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", path))
	}
	return r, nil
}

// NewMySQL connects to MySQL with dsn
func NewMySQL(dsn string, opts ...Option) (*RDB, error) {
	r, err := open(mysql.Open(dsn), 0, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open mysql")
	}
	return r, nil
}

func open(dialector gorm.Dialector, maxConns int, opts ...Option) (*RDB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database")
	}

	if maxConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get sql db")
		}
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(maxConns)
	}

	if err := db.AutoMigrate(&sessionRow{}, &codeVersionRow{}); err != nil {
		return nil, goerr.Wrap(err, "failed to migrate tables")
	}

	r := &RDB{
		db:         db,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.session = &sessionRepository{db: db, maxRetries: r.maxRetries}
	r.codeVersion = &codeVersionRepository{db: db, maxRetries: r.maxRetries}
	return r, nil
}

func (r *RDB) Session() interfaces.SessionRepository {
	return r.session
}

func (r *RDB) CodeVersion() interfaces.CodeVersionRepository {
	return r.codeVersion
}

func (r *RDB) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return goerr.Wrap(err, "failed to get sql db")
	}
	if err := sqlDB.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}

// slogWriter routes gorm log lines to the process logger at debug level
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...any) {
	logging.Default().Debug(fmt.Sprintf(format, args...), slog.String("component", "gorm"))
}

func newGormLogger() logger.Interface {
	return logger.New(slogWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
