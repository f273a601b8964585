package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", "app:\n  name: vigil\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, time.Second, cfg.Scheduler.BaseTick)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.MaxJitter)
	assert.Equal(t, 0.8, cfg.Scheduler.TimeoutRatio)
	assert.Equal(t, 30*time.Second, cfg.OAuth.ExpirySkew)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
database:
  driver: postgres
  dbname: uptime_kuma
scheduler:
  max_jitter: 2s
`)
	t.Setenv("VIGIL_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "uptime_kuma", cfg.Database.DBName)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.MaxJitter)
	assert.Contains(t, cfg.Database.GetDSN(), "dbname=uptime_kuma")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"port":   "server:\n  port: 70000\n",
		"mode":   "server:\n  mode: loud\n",
		"driver": "database:\n  driver: sqlite\n",
		"ratio":  "scheduler:\n  timeout_ratio: 1.5\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestParseDefinitionsExample(t *testing.T) {
	defs, err := LoadDefinitions(filepath.Join("..", "..", "configs", "monitors.yaml"))
	require.NoError(t, err)

	require.Len(t, defs.Monitors, 5)
	require.Len(t, defs.Maintenance, 2)
	require.Len(t, defs.Notifications, 2)

	api := defs.Monitors[0]
	assert.True(t, api.Active)
	assert.Equal(t, "GET", api.HTTP.Method)
	assert.Equal(t, []string{"ops-webhook", "events"}, api.NotificationIDs)

	job := defs.Monitors[4]
	assert.False(t, job.Active)
	require.NotNil(t, job.Schedule)
	assert.Equal(t, "Europe/Berlin", job.Schedule.Timezone)

	assert.Equal(t, "POST", defs.Notifications[0].Webhook.Method)
	assert.True(t, defs.Maintenance[1].Active)

	monitors := defs.MonitorModels()
	require.Len(t, monitors, 5)
	assert.Equal(t, "api", monitors[0].ID)
	assert.Len(t, defs.MaintenanceModels(), 2)
	assert.Len(t, defs.NotificationModels(), 2)
}

func TestParseDefinitionsRejectsUnknownFields(t *testing.T) {
	_, err := ParseDefinitions(strings.NewReader(`
monitors:
  - id: a
    name: A
    type: port
    intervall: 60
    port: {hostname: localhost, port: 80}
`))
	assert.ErrorIs(t, err, ErrInvalidDefinitions)
}

func TestParseDefinitionsChecksReferences(t *testing.T) {
	_, err := ParseDefinitions(strings.NewReader(`
monitors:
  - id: a
    name: A
    type: port
    notifications: [missing]
    port: {hostname: localhost, port: 80}
  - id: a
    name: B
    type: ping
    ping: {hostname: localhost}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown notification "missing"`)
	assert.Contains(t, err.Error(), `duplicate monitor id "a"`)
}

func TestParseDefinitionsRejectsBadCron(t *testing.T) {
	_, err := ParseDefinitions(strings.NewReader(`
maintenance:
  - id: w
    title: broken
    strategy: cron
    cron: "61 * * * *"
    duration: 60
`))
	assert.Error(t, err)
}

func TestParseEmptyDefinitions(t *testing.T) {
	defs, err := ParseDefinitions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, defs.Monitors)
}
