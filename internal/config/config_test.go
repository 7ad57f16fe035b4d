package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
universe:
  listing_path: data_j.csv
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "Asia/Tokyo", cfg.App.Timezone)
	assert.Equal(t, "18:30", cfg.App.RunAt)
	assert.Equal(t, "finance.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Fetch.LookbackDays)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Fetch.RetryDelay)
	assert.Equal(t, ":8080", cfg.Dashboard.Listen)
	assert.Equal(t, 14, cfg.Backtest.RSIPeriod)
	assert.NotNil(t, cfg.Location())
}

func TestLoadParsesDurationsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
  run_at: "07:00"
universe:
  listing_path: data_j.csv
fetch:
  http_timeout: 45s
  retry_delay: 2s
  lookback_days: 30
dashboard:
  listen: ":9000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.Fetch.HTTPTimeout)
	assert.Equal(t, 2*time.Second, cfg.Fetch.RetryDelay)
	assert.Equal(t, 30, cfg.Fetch.LookbackDays)
	assert.Equal(t, ":9000", cfg.Dashboard.Listen)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad level": `
app:
  log_level: verbose
universe:
  listing_path: data_j.csv
`,
		"bad run_at": `
app:
  run_at: "25:99"
universe:
  listing_path: data_j.csv
`,
		"missing listing": `
app:
  log_level: info
`,
		"inverted windows": `
universe:
  listing_path: data_j.csv
backtest:
  short_window: 30
  long_window: 10
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestResolvePathPrecedence(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/ca/config.yaml")
	assert.Equal(t, "explicit.yaml", ResolvePath("explicit.yaml"))
	assert.Equal(t, "/etc/ca/config.yaml", ResolvePath(""))

	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))
}
