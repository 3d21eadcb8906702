package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "app_web.py", cfg.App.EntryPoint)
	assert.Equal(t, "venv", cfg.Env.Dir)
	assert.Equal(t, "pyvenv.cfg", cfg.Env.Marker)
	assert.Equal(t, "requirements.txt", cfg.Installer.Manifest)
	assert.True(t, cfg.Installer.Quiet)
	assert.Equal(t, 15*time.Minute, cfg.Installer.Timeout)
	assert.Equal(t, config.SourceEnv, cfg.OAuth.Source)
	assert.Equal(t, "google_oauth", cfg.OAuth.Section)
	assert.Equal(t, 90, cfg.History.RetentionDays)
	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Addr)
	assert.Equal(t, config.HoldAuto, cfg.HoldOnExit)
	assert.NotEmpty(t, cfg.App.Root)
}

func TestLoadEnvOverride(t *testing.T) {
	os.Clearenv()
	t.Setenv("CLIPSMITH_APP_ENTRY_POINT", "main.py")
	t.Setenv("CLIPSMITH_ENV_DIR", ".venv")
	t.Setenv("CLIPSMITH_HOLD_ON_EXIT", "never")
	t.Setenv("CLIPSMITH_OAUTH_SOURCE", "toml")
	t.Setenv("CLIPSMITH_HISTORY_RETENTION_DAYS", "7")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "main.py", cfg.App.EntryPoint)
	assert.Equal(t, ".venv", cfg.Env.Dir)
	assert.Equal(t, config.HoldNever, cfg.HoldOnExit)
	assert.Equal(t, config.SourceTOML, cfg.OAuth.Source)
	assert.Equal(t, 7, cfg.History.RetentionDays)
}

func TestLoadConfigFile(t *testing.T) {
	os.Clearenv()
	dir := t.TempDir()
	file := filepath.Join(dir, "clipsmith.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
hold_on_exit = "always"

[app]
root = "`+dir+`"
entry_point = "studio.py"

[installer]
quiet = false
`), 0o644))
	t.Setenv("CLIPSMITH_CONFIG", file)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "studio.py", cfg.App.EntryPoint)
	assert.Equal(t, config.HoldAlways, cfg.HoldOnExit)
	assert.False(t, cfg.Installer.Quiet)
	assert.Equal(t, filepath.Join(dir, "studio.py"), cfg.EntryPointPath())
	assert.Equal(t, filepath.Join(dir, "venv"), cfg.EnvDir())
}

func TestHistoryPathInMemoryPassesThrough(t *testing.T) {
	os.Clearenv()
	t.Setenv("CLIPSMITH_HISTORY_PATH", ":memory:")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.HistoryPath(),
		"the sqlite DSN must not be joined with the app root")
}

func TestValidateRejectsBadEnums(t *testing.T) {
	os.Clearenv()
	t.Setenv("CLIPSMITH_HOLD_ON_EXIT", "sometimes")
	_, err := config.Load()
	assert.Error(t, err)

	os.Clearenv()
	t.Setenv("CLIPSMITH_OAUTH_SOURCE", "vault")
	_, err = config.Load()
	assert.Error(t, err)
}
