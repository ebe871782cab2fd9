package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// AcquireAdvisoryLock takes a named, non-blocking lock that the event
// detector and statistics aggregator use to serialize their runs
// across process instances. SQLite has no native
// advisory lock primitive, so this is modeled as a row insert guarded
// by the table's primary key: the first caller to insert the row holds
// the lock, everyone else gets a constraint violation.
func (r *SQLiteRepository) AcquireAdvisoryLock(name string) (bool, error) {
	_, err := r.db.Exec(`INSERT INTO advisory_lock (name) VALUES (?)`, name)
	if err == nil {
		return true, nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return false, nil
	}
	if errors.Is(err, sql.ErrTxDone) {
		return false, nil
	}
	return false, fmt.Errorf("repository: acquire advisory lock %q: %w", name, err)
}

// ReleaseAdvisoryLock releases a lock previously acquired with
// AcquireAdvisoryLock. Releasing a lock that isn't held is a no-op.
func (r *SQLiteRepository) ReleaseAdvisoryLock(name string) error {
	if _, err := r.db.Exec(`DELETE FROM advisory_lock WHERE name = ?`, name); err != nil {
		return fmt.Errorf("repository: release advisory lock %q: %w", name, err)
	}
	return nil
}
