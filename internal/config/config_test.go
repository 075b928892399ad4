package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("SALES_WINDOW_DAYS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "none", cfg.LLMProvider)
	assert.Equal(t, 30, cfg.SalesWindowDays)
	assert.Equal(t, 3, cfg.TxMaxRetries)
	assert.True(t, cfg.RecipeDeleteGuard)
	assert.Equal(t, 10*time.Second, cfg.ReadinessTimeout)
	assert.False(t, cfg.BackupEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLITE3")
	t.Setenv("SQLITE_PATH", "/tmp/bakery.db")
	t.Setenv("RECIPE_DELETE_GUARD", "false")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("LLM_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.False(t, cfg.RecipeDeleteGuard)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Contains(t, cfg.DSN(), "file:/tmp/bakery.db?")
	assert.Contains(t, cfg.DSN(), "_txlock=immediate")
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{DBDriver: "mysql", LLMProvider: "none", SalesWindowDays: 30}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}
