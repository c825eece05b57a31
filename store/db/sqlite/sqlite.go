package sqlite

import (
	"context"
	"database/sql"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"
	"github.com/pkg/errors"

	"github.com/jshargo/google-calendar-agent/internal/profile"
	"github.com/jshargo/google-calendar-agent/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at profile.DSN and bootstraps the schema.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("sqlite", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// SQLite allows a single writer; keeping one connection avoids
	// SQLITE_BUSY churn for this single-user workload.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	d := &DB{
		db:      db,
		profile: profile,
	}
	if err := d.migrate(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return d, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS event (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	summary TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	start_ts BIGINT NOT NULL,
	end_ts BIGINT NOT NULL,
	all_day INTEGER NOT NULL DEFAULT 0,
	timezone TEXT NOT NULL DEFAULT '',
	recurrence_rule TEXT
);

CREATE INDEX IF NOT EXISTS idx_event_start_ts ON event (start_ts);
CREATE INDEX IF NOT EXISTS idx_event_uid ON event (uid);
`

func (d *DB) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schema)
	return err
}
