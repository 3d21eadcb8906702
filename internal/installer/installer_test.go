package installer_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/clipsmithlabs/clipsmith/internal/environment"
	"github.com/clipsmithlabs/clipsmith/internal/installer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setup builds a config rooted in a temp dir with a fake environment whose
// pip stub records its invocations to pip-args.txt.
func setup(t *testing.T) (config.Config, *environment.Manager, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script pip stub is not portable to windows")
	}
	root := t.TempDir()

	os.Clearenv()
	t.Setenv("CLIPSMITH_APP_ROOT", root)
	cfg, err := config.Load()
	require.NoError(t, err)

	env := environment.New(cfg, zap.NewNop())
	require.NoError(t, os.MkdirAll(env.BinDir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.Dir(), "pyvenv.cfg"), nil, 0o644))

	argsFile := filepath.Join(root, "pip-args.txt")
	stub := "#!/bin/sh\necho \"$@\" >> " + argsFile + "\n"
	require.NoError(t, os.WriteFile(env.Pip(), []byte(stub), 0o755))

	return cfg, env, argsFile
}

func TestInstallEmptyManifestIsVacuous(t *testing.T) {
	cfg, env, argsFile := setup(t)
	require.NoError(t, os.WriteFile(cfg.ManifestPath(), []byte("# none\n"), 0o644))

	inst := installer.New(cfg, env, zap.NewNop())
	require.NoError(t, inst.Install(context.Background()))

	_, err := os.Stat(argsFile)
	assert.True(t, os.IsNotExist(err), "pip must not run for an empty manifest")
}

func TestInstallInvokesPip(t *testing.T) {
	cfg, env, argsFile := setup(t)
	require.NoError(t, os.WriteFile(cfg.ManifestPath(), []byte("streamlit==1.28.0\n"), 0o644))

	inst := installer.New(cfg, env, zap.NewNop())
	require.NoError(t, inst.Install(context.Background()))

	out, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(out), "install -r "+cfg.ManifestPath())
	assert.Contains(t, string(out), "-q --disable-pip-version-check")
}

func TestInstallMissingManifestStillInvokesPip(t *testing.T) {
	cfg, env, argsFile := setup(t)

	inst := installer.New(cfg, env, zap.NewNop())
	// The stub pip exits 0 even for a missing file; the point is that the
	// decision to fail belongs to the installer, not to us.
	require.NoError(t, inst.Install(context.Background()))

	out, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(out), "install -r "+cfg.ManifestPath())
}

func TestInstallRunsPipWithActivationEnv(t *testing.T) {
	cfg, env, _ := setup(t)
	require.NoError(t, os.WriteFile(cfg.ManifestPath(), []byte("streamlit\n"), 0o644))

	envFile := filepath.Join(cfg.App.Root, "pip-env.txt")
	stub := "#!/bin/sh\necho \"$VIRTUAL_ENV\" > " + envFile + "\n"
	require.NoError(t, os.WriteFile(env.Pip(), []byte(stub), 0o755))

	inst := installer.New(cfg, env, zap.NewNop())
	require.NoError(t, inst.Install(context.Background()))

	out, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, env.Dir(), strings.TrimSpace(string(out)),
		"pip must run inside the activated environment")
}

func TestInstallFailurePropagates(t *testing.T) {
	cfg, env, _ := setup(t)
	require.NoError(t, os.WriteFile(cfg.ManifestPath(), []byte("streamlit\n"), 0o644))
	require.NoError(t, os.WriteFile(env.Pip(), []byte("#!/bin/sh\nexit 2\n"), 0o755))

	inst := installer.New(cfg, env, zap.NewNop())
	err := inst.Install(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pip")
}
