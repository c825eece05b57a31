package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	p := &Profile{Data: t.TempDir()}
	require.NoError(t, p.Validate())

	assert.Equal(t, "demo", p.Mode)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, 60, p.DefaultEventMinutes)
	assert.Contains(t, p.DSN, "calagent_demo.db")
}

func TestValidate_UnknownDriver(t *testing.T) {
	p := &Profile{Mode: "dev", Data: t.TempDir(), Driver: "postgres"}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown db driver")
}

func TestValidate_InvalidTimezone(t *testing.T) {
	p := &Profile{Mode: "dev", Data: t.TempDir(), Timezone: "Mars/Olympus_Mons"}
	require.Error(t, p.Validate())
}

func TestValidate_MissingDataDir(t *testing.T) {
	p := &Profile{Mode: "dev", Data: "/nonexistent/calagent-data"}
	require.Error(t, p.Validate())
}

func TestLocation(t *testing.T) {
	p := &Profile{Timezone: "Asia/Tokyo"}
	loc := p.Location()
	assert.Equal(t, "Asia/Tokyo", loc.String())

	// An invalid zone falls back instead of failing.
	p = &Profile{Timezone: "bogus"}
	assert.Equal(t, time.Local, p.Location())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CALAGENT_MODE", "prod")
	t.Setenv("CALAGENT_TIMEZONE", "Europe/Berlin")
	t.Setenv("CALAGENT_INSTANCE_URL", "https://cal.example.com")
	t.Setenv("CALAGENT_DEFAULT_EVENT_MINUTES", "45")

	p := &Profile{}
	p.FromEnv()
	assert.Equal(t, "prod", p.Mode)
	assert.Equal(t, "Europe/Berlin", p.Timezone)
	assert.Equal(t, "https://cal.example.com", p.InstanceURL)
	assert.Equal(t, 45, p.DefaultEventMinutes)
	assert.False(t, p.IsDev())
}

func TestFromEnv_BadMinutes(t *testing.T) {
	t.Setenv("CALAGENT_DEFAULT_EVENT_MINUTES", "-5")

	p := &Profile{DefaultEventMinutes: 30}
	p.FromEnv()
	assert.Equal(t, 30, p.DefaultEventMinutes)
}
