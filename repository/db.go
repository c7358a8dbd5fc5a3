package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database backing the repositories.
type Config struct {
	Driver string
	DSN    string
}

// OpenSQL opens the configured database/sql handle and picks the matching
// Bun dialect. Nothing is sent to the server yet.
func OpenSQL(cfg Config) (*sql.DB, schema.Dialect, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	dsn := strings.TrimSpace(cfg.DSN)

	switch driver {
	case "", DriverSQLite, "sqlite3":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		if strings.Contains(dsn, ":memory:") {
			sqldb.SetMaxOpenConns(1)
		}
		return sqldb, sqlitedialect.New(), nil
	case DriverPostgres, "pgx", "postgresql":
		if dsn == "" {
			return nil, nil, goerrors.New("postgres requires a dsn", goerrors.CategoryValidation).
				WithTextCode("DATABASE_DSN_REQUIRED")
		}
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres database")
		}
		return sqldb, pgdialect.New(), nil
	default:
		return nil, nil, goerrors.New(fmt.Sprintf("unsupported database driver %q", cfg.Driver), goerrors.CategoryValidation).
			WithTextCode("DATABASE_DRIVER_UNSUPPORTED").
			WithMetadata(map[string]any{"driver": cfg.Driver})
	}
}

// Open connects to the configured database and returns a Bun handle.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	sqldb, dialect, err := OpenSQL(cfg)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, dialect)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reach database").
			WithMetadata(map[string]any{"driver": cfg.Driver})
	}

	return db, nil
}

// Migrate creates the tables used by the repositories.
func Migrate(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
		}
	}

	return nil
}

// Models lists the Bun models backing the repositories.
func Models() []any {
	return []any{
		(*DocumentRecord)(nil),
		(*Account)(nil),
	}
}
