package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration of the calendar agent.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where the agent stores its local calendar data
	DSN string
	// Driver is the database driver (sqlite)
	Driver string
	// Timezone is the IANA zone used to resolve natural-language times
	Timezone string
	// InstanceURL is the base URL used to build event links
	InstanceURL string
	// DefaultEventMinutes is the event duration applied when the caller
	// supplies neither an end time nor a duration
	DefaultEventMinutes int
	// Version is the current version of the agent
	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Location loads the configured timezone, falling back to the system zone.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		slog.Warn("invalid timezone, falling back to local",
			"timezone", p.Timezone,
			"error", err)
		return time.Local
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from CALAGENT_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("CALAGENT_MODE", p.Mode)
	p.Data = getEnvOrDefault("CALAGENT_DATA", p.Data)
	p.DSN = getEnvOrDefault("CALAGENT_DSN", p.DSN)
	p.Driver = getEnvOrDefault("CALAGENT_DRIVER", p.Driver)
	p.Timezone = getEnvOrDefault("CALAGENT_TIMEZONE", p.Timezone)
	p.InstanceURL = getEnvOrDefault("CALAGENT_INSTANCE_URL", p.InstanceURL)

	if v := os.Getenv("CALAGENT_DEFAULT_EVENT_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			slog.Warn("invalid CALAGENT_DEFAULT_EVENT_MINUTES, keeping default",
				"value", v)
		} else {
			p.DefaultEventMinutes = minutes
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes and checks the profile, filling derived defaults.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" {
		return errors.Errorf("unknown db driver %q: only 'sqlite' is supported", p.Driver)
	}

	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
		}
	}

	if p.DefaultEventMinutes <= 0 {
		p.DefaultEventMinutes = 60
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("calagent_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
