package doctor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/clipsmithlabs/clipsmith/internal/doctor"
	"github.com/clipsmithlabs/clipsmith/internal/driveauth"
	"github.com/clipsmithlabs/clipsmith/internal/environment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSecrets struct {
	rec driveauth.Record
	err error
}

func (stubSecrets) Name() string { return "stub" }

func (s stubSecrets) Load(ctx context.Context) (driveauth.Record, error) {
	return s.rec, s.err
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
}

func newService(t *testing.T, sec stubSecrets) (*doctor.Service, config.Config) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script stubs are not portable to windows")
	}
	root := t.TempDir()

	interp := filepath.Join(root, "fake-python")
	writeScript(t, interp, "exit 0\n")
	ffmpeg := filepath.Join(root, "fake-ffmpeg")
	writeScript(t, ffmpeg, "exit 0\n")

	os.Clearenv()
	t.Setenv("CLIPSMITH_APP_ROOT", root)
	t.Setenv("CLIPSMITH_APP_INTERPRETER", interp)
	cfg, err := config.Load()
	require.NoError(t, err)

	svc := doctor.New(doctor.Params{
		Cfg:     cfg,
		Log:     zap.NewNop(),
		Env:     environment.New(cfg, zap.NewNop()),
		Secrets: sec,
	})
	svc.FFmpegBin = ffmpeg
	return svc, cfg
}

func validSecrets() stubSecrets {
	return stubSecrets{rec: driveauth.Record{
		ClientID:     "id.apps.googleusercontent.com",
		ClientSecret: "s3cret",
		RedirectURI:  "https://studio.example.com/cb",
	}}
}

func byID(t *testing.T, r doctor.Report, id string) doctor.Check {
	t.Helper()
	for _, c := range r.Checks {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("check %q not in report", id)
	return doctor.Check{}
}

func TestRunAllGreen(t *testing.T) {
	svc, cfg := newService(t, validSecrets())
	require.NoError(t, os.WriteFile(cfg.EntryPointPath(), []byte("print('hi')\n"), 0o644))
	require.NoError(t, os.WriteFile(cfg.ManifestPath(), []byte("streamlit\n"), 0o644))
	require.NoError(t, os.MkdirAll(cfg.EnvDir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.EnvDir(), "pyvenv.cfg"), nil, 0o644))

	report := svc.Run(context.Background())
	assert.True(t, report.Ready)
	for _, c := range report.Checks {
		assert.Equal(t, doctor.StatusOK, c.Status, c.ID)
	}
}

func TestRunWarningsDoNotBlockReadiness(t *testing.T) {
	svc, cfg := newService(t, validSecrets())
	require.NoError(t, os.WriteFile(cfg.EntryPointPath(), []byte("print('hi')\n"), 0o644))
	// no manifest, no environment

	report := svc.Run(context.Background())
	assert.True(t, report.Ready)
	assert.Equal(t, doctor.StatusWarn, byID(t, report, "manifest").Status)
	assert.Equal(t, doctor.StatusWarn, byID(t, report, "environment").Status)
}

func TestRunFailures(t *testing.T) {
	svc, cfg := newService(t, stubSecrets{err: errors.New("secret store unreachable")})
	svc.FFmpegBin = filepath.Join(cfg.App.Root, "missing-ffmpeg")
	// entry point absent as well

	report := svc.Run(context.Background())
	assert.False(t, report.Ready)
	assert.Equal(t, doctor.StatusFail, byID(t, report, "ffmpeg").Status)
	assert.Equal(t, doctor.StatusFail, byID(t, report, "entry_point").Status)
	assert.Equal(t, doctor.StatusFail, byID(t, report, "oauth").Status)
}

func TestRunIncompleteOAuthRecordFails(t *testing.T) {
	sec := validSecrets()
	sec.rec.ClientSecret = ""
	svc, cfg := newService(t, sec)
	require.NoError(t, os.WriteFile(cfg.EntryPointPath(), []byte("print('hi')\n"), 0o644))

	report := svc.Run(context.Background())
	check := byID(t, report, "oauth")
	assert.Equal(t, doctor.StatusFail, check.Status)
	assert.Contains(t, check.Detail, "client_secret")
}
