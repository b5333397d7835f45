package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CONFIG_FILE", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("CLICK_MODE", "batch")
	t.Setenv("CLICK_WORKERS", "8")
	t.Setenv("CLICK_FLUSH_INTERVAL", "250ms")
	t.Setenv("CLEANUP_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "batch", cfg.ClickMode)
	assert.Equal(t, 8, cfg.ClickWorkers)
	assert.Equal(t, 250*time.Millisecond, cfg.ClickFlushInterval)
	assert.Equal(t, "s3cret", cfg.CleanupSecret)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urst.yaml")
	yml := "port: \"9090\"\ndatabase_driver: sqlite\ndatabase_url: from-file.db\nrate_limit_max: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "from-env.db")
	t.Setenv("DATABASE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "from-env.db", cfg.DatabaseURL)
	assert.Equal(t, 7, cfg.RateLimitMax)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "x")
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadInt(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "x")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("CLICK_WORKERS", "many")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownRateLimitStrategy(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_URL", "x")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("RATE_LIMIT_STRATEGY", "random")

	_, err := Load()
	assert.ErrorContains(t, err, "RATE_LIMIT_STRATEGY")
}
