package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "data/flashstack.db", cfg.DSN())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.SweepEnabled)
	assert.True(t, cfg.SweepOnStart)
	assert.Equal(t, 10, cfg.DailyGoal)
	assert.Equal(t, 3, cfg.MasteryThreshold)
	assert.InDelta(t, 0.8, cfg.TestPassRatio, 1e-9)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestLoadFromEnvAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DAILY_GOAL=15\nCRON_SECRET=from-file\n"), 0o600))
	t.Setenv("CRON_SECRET", "from-env")
	t.Setenv("DEFAULT_TIMEZONE", "Europe/Madrid")
	t.Setenv("SWEEP_ENABLED", "false")
	// godotenv sets DAILY_GOAL in the process env
	t.Cleanup(func() { os.Unsetenv("DAILY_GOAL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.DailyGoal)
	assert.Equal(t, "from-env", cfg.CronSecret)
	assert.False(t, cfg.SweepEnabled)
	assert.Equal(t, "Europe/Madrid", cfg.Location().String())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{DBType: "sqlite", DailyGoal: 10, MasteryThreshold: 3, TestPassRatio: 0.8, DefaultTimezone: "UTC"}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown db", func(c *Config) { c.DBType = "mysql" }},
		{"postgres without url", func(c *Config) { c.DBType = "postgres" }},
		{"zero goal", func(c *Config) { c.DailyGoal = 0 }},
		{"threshold above max", func(c *Config) { c.MasteryThreshold = 6 }},
		{"ratio zero", func(c *Config) { c.TestPassRatio = 0 }},
		{"ratio above one", func(c *Config) { c.TestPassRatio = 1.2 }},
		{"bad zone", func(c *Config) { c.DefaultTimezone = "Mars/Olympus" }},
	}

	base := valid()
	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
