// Package doctor runs the preflight checks behind `clipsmith doctor` and
// the /readyz endpoint.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/clipsmithlabs/clipsmith/internal/environment"
	"github.com/clipsmithlabs/clipsmith/internal/manifest"
	"github.com/clipsmithlabs/clipsmith/internal/secrets"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

type Check struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
	Hint   string `json:"hint,omitempty"`
}

type Report struct {
	Checks []Check `json:"checks"`
	// Ready is false when any check failed. Warnings (missing environment,
	// empty manifest) don't block: the launcher handles those itself.
	Ready bool `json:"ready"`
}

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Env     *environment.Manager
	Secrets secrets.Source
}

type Service struct {
	cfg     config.Config
	log     *zap.Logger
	env     *environment.Manager
	secrets secrets.Source

	// FFmpegBin is the probe target; overridable for tests.
	FFmpegBin string
	// ProbeTimeout bounds the ffmpeg version probe.
	ProbeTimeout time.Duration
}

func New(p Params) *Service {
	return &Service{
		cfg:          p.Cfg,
		log:          p.Log.Named("doctor"),
		env:          p.Env,
		secrets:      p.Secrets,
		FFmpegBin:    "ffmpeg",
		ProbeTimeout: 10 * time.Second,
	}
}

func (s *Service) Run(ctx context.Context) Report {
	checks := []Check{
		s.checkInterpreter(),
		s.checkFFmpeg(ctx),
		s.checkEntryPoint(),
		s.checkManifest(),
		s.checkEnvironment(),
		s.checkOAuth(ctx),
	}

	ready := true
	for _, c := range checks {
		if c.Status == StatusFail {
			ready = false
		}
	}
	return Report{Checks: checks, Ready: ready}
}

func (s *Service) checkInterpreter() Check {
	c := Check{ID: "interpreter"}
	path, err := exec.LookPath(s.cfg.App.Interpreter)
	if err != nil {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("%s not found on PATH", s.cfg.App.Interpreter)
		c.Hint = "install the interpreter or set CLIPSMITH_APP_INTERPRETER"
		return c
	}
	c.Status = StatusOK
	c.Detail = path
	return c
}

// checkFFmpeg actually runs the binary rather than only resolving it; a
// broken install resolves fine and then fails at encode time.
func (s *Service) checkFFmpeg(ctx context.Context) Check {
	c := Check{ID: "ffmpeg"}

	ctx, cancel := context.WithTimeout(ctx, s.ProbeTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, s.FFmpegBin, "-version").Run(); err != nil {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("%s -version failed: %v", s.FFmpegBin, err)
		c.Hint = "the studio app cannot encode video without ffmpeg"
		return c
	}
	c.Status = StatusOK
	return c
}

func (s *Service) checkEntryPoint() Check {
	c := Check{ID: "entry_point"}
	path := s.cfg.EntryPointPath()
	if !fileExists(path) {
		c.Status = StatusFail
		c.Detail = path + " does not exist"
		return c
	}
	c.Status = StatusOK
	c.Detail = path
	return c
}

func (s *Service) checkManifest() Check {
	c := Check{ID: "manifest"}
	f, err := manifest.Load(s.cfg.ManifestPath())
	switch {
	case err != nil:
		c.Status = StatusWarn
		c.Detail = fmt.Sprintf("cannot read %s: %v", s.cfg.ManifestPath(), err)
		c.Hint = "the install step will fail with the installer's own error"
	case f.IsEmpty():
		c.Status = StatusWarn
		c.Detail = "manifest declares no requirements"
	default:
		c.Status = StatusOK
		c.Detail = fmt.Sprintf("%d requirements", len(f.Requirements))
	}
	return c
}

func (s *Service) checkEnvironment() Check {
	c := Check{ID: "environment"}
	if !s.env.Exists() {
		c.Status = StatusWarn
		c.Detail = s.env.Dir() + " not created yet"
		c.Hint = "run `clipsmith env ensure` or just `clipsmith launch`"
		return c
	}
	c.Status = StatusOK
	c.Detail = s.env.Dir()
	return c
}

func (s *Service) checkOAuth(ctx context.Context) Check {
	c := Check{ID: "oauth"}
	rec, err := s.secrets.Load(ctx)
	if err != nil {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("load from %s source: %v", s.secrets.Name(), err)
		return c
	}
	if err := rec.Validate(); err != nil {
		c.Status = StatusFail
		c.Detail = err.Error()
		c.Hint = fmt.Sprintf("fill in the [%s] record; Drive login cannot start without it", s.cfg.OAuth.Section)
		return c
	}
	c.Status = StatusOK
	c.Detail = rec.String()
	return c
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
