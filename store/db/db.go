package db

import (
	"github.com/pkg/errors"

	"github.com/jshargo/google-calendar-agent/internal/profile"
	"github.com/jshargo/google-calendar-agent/store"
	"github.com/jshargo/google-calendar-agent/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' is supported", profile.Driver)
	}
}
