package repository

import (
	"database/sql"
	"embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
)

//go:embed schema/schema.sql
var schemaFiles embed.FS

var hooksRegistered bool

// SQLiteRepository implements Repository over SQLite, following the
// teacher's sqlx+squirrel+stmtCache shape (internal/repository/job.go).
type SQLiteRepository struct {
	db        *sqlx.DB
	stmtCache *sq.StmtCache
}

// Connect opens (and, if necessary, creates) the SQLite database at
// path, applies the embedded schema, and returns a ready repository.
// sqlite3 does not multithread usefully, so the pool is capped at one
// connection.
func Connect(path string) (*SQLiteRepository, error) {
	if !hooksRegistered {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &Hooks{}))
		hooksRegistered = true
	}

	db, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("repository: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	ddl, err := schemaFiles.ReadFile("schema/schema.sql")
	if err != nil {
		return nil, fmt.Errorf("repository: read schema: %w", err)
	}
	if _, err := db.Exec(string(ddl)); err != nil {
		return nil, fmt.Errorf("repository: apply schema: %w", err)
	}

	log.Infof("repository: connected to sqlite database at %s", path)

	return &SQLiteRepository{
		db:        db,
		stmtCache: sq.NewStmtCache(db.DB),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
