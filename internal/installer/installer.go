// Package installer drives the platform package installer inside the
// isolated environment. It does not resolve or classify anything itself:
// failures surface as the installer's own output (exit status included).
package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/clipsmithlabs/clipsmith/internal/environment"
	"github.com/clipsmithlabs/clipsmith/internal/manifest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

type Installer struct {
	cfg config.Config
	env *environment.Manager
	log *zap.Logger
}

func New(cfg config.Config, env *environment.Manager, log *zap.Logger) *Installer {
	return &Installer{
		cfg: cfg,
		env: env,
		log: log.Named("installer"),
	}
}

// Install runs `pip install -r <manifest>` with the environment's pip. An
// empty manifest succeeds vacuously without invoking pip. A missing
// manifest is still handed to pip so the failure text is the installer's
// native one.
func (i *Installer) Install(ctx context.Context) error {
	path := i.cfg.ManifestPath()

	f, err := manifest.Load(path)
	switch {
	case err == nil && f.IsEmpty():
		i.log.Info("manifest declares no requirements, skipping install",
			zap.String("manifest", path))
		return nil
	case err != nil && !os.IsNotExist(err):
		return err
	}

	if i.cfg.Installer.UpgradePip {
		if err := i.runPip(ctx, "install", "--upgrade", "pip"); err != nil {
			return err
		}
	}

	i.log.Info("installing dependencies",
		zap.String("manifest", path),
		zap.Int("requirements", len(f.Requirements)),
	)
	return i.runPip(ctx, "install", "-r", path)
}

func (i *Installer) runPip(ctx context.Context, args ...string) error {
	if i.cfg.Installer.Quiet {
		args = append(args, "-q", "--disable-pip-version-check")
	}
	if timeout := i.cfg.Installer.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out := &zapio.Writer{Log: i.log, Level: zapcore.InfoLevel}
	defer out.Close()

	started := time.Now()
	cmd := exec.CommandContext(ctx, i.env.Pip(), args...)
	cmd.Env = i.env.ActivationEnv(os.Environ())
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pip %v: %w", args, err)
	}
	i.log.Info("install step finished", zap.Duration("took", time.Since(started)))
	return nil
}
