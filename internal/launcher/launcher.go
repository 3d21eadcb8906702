// Package launcher runs the fixed bootstrap sequence: resolve the app
// root, ensure the isolated environment, install the manifest, execute the
// entry point, then hold the terminal so the operator can read the output.
package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/bwmarrin/snowflake"
	"github.com/clipsmithlabs/clipsmith/internal/clock"
	"github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/clipsmithlabs/clipsmith/internal/environment"
	historydomain "github.com/clipsmithlabs/clipsmith/internal/history/domain"
	"github.com/clipsmithlabs/clipsmith/internal/installer"
	"github.com/mattn/go-isatty"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExitCodeNotStarted marks launches where the entry point never ran (for
// example the interpreter itself was missing). The process then exits 1.
const ExitCodeNotStarted = -1

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Env       *environment.Manager
	Installer *installer.Installer
	Clock     clock.Clock
	GenID     *snowflake.Node
	DB        *gorm.DB                 `optional:"true"`
	Repo      historydomain.Repository `optional:"true"`
}

type Service struct {
	cfg       config.Config
	log       *zap.Logger
	env       *environment.Manager
	installer *installer.Installer
	clock     clock.Clock
	genID     *snowflake.Node
	db        *gorm.DB
	repo      historydomain.Repository

	// Overridable for tests.
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	IsTerminal func(fd uintptr) bool
}

func New(p Params) *Service {
	return &Service{
		cfg:       p.Cfg,
		log:       p.Log.Named("launcher"),
		env:       p.Env,
		installer: p.Installer,
		clock:     p.Clock,
		genID:     p.GenID,
		db:        p.DB,
		repo:      p.Repo,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		IsTerminal: func(fd uintptr) bool {
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
	}
}

// Result is the outcome of one launch. ExitCode mirrors the entry point's
// exit status; Err carries the first step failure, if any.
type Result struct {
	Launch   historydomain.Launch
	ExitCode int
	Err      error
}

// Run executes the sequence. There are no retry or recovery branches: the
// first failing step ends the run, the record keeps the step it died on,
// and the terminal hold still happens so the operator can read why.
func (s *Service) Run(ctx context.Context) Result {
	l := historydomain.Launch{
		ID:         s.genID.Generate(),
		EntryPoint: s.cfg.App.EntryPoint,
		Step:       historydomain.StepResolve,
		StartedAt:  s.clock.Now(ctx),
	}
	exitCode := 0
	var runErr error

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{historydomain.StepResolve, s.resolve},
		{historydomain.StepEnsureEnv, func(ctx context.Context) error {
			created, err := s.env.Ensure(ctx)
			l.EnvCreated = created
			return err
		}},
		{historydomain.StepInstall, s.installer.Install},
		{historydomain.StepRun, func(ctx context.Context) error {
			code, err := s.runEntryPoint(ctx)
			exitCode = code
			return err
		}},
	}

	for _, step := range steps {
		l.Step = step.name
		s.log.Info("launch step", zap.String("step", step.name), zap.String("id", l.ID.String()))
		if err := step.fn(ctx); err != nil {
			runErr = fmt.Errorf("%s: %w", step.name, err)
			break
		}
	}
	// The process should exit with whatever the last invoked subprocess
	// returned, even when that was pip or venv creation rather than the
	// entry point.
	if runErr != nil && exitCode == 0 {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}
	if runErr == nil {
		l.Step = historydomain.StepDone
	} else {
		l.Error = runErr.Error()
		s.log.Error("launch failed",
			zap.String("step", l.Step),
			zap.Int("exit_code", exitCode),
			zap.Error(runErr),
		)
	}
	l.ExitCode = exitCode
	l.FinishedAt = s.clock.Now(ctx)

	s.persist(ctx, &l)
	s.holdOpen()

	return Result{Launch: l, ExitCode: exitCode, Err: runErr}
}

// resolve makes relative paths work regardless of where clipsmith was
// invoked from, the way the original launcher cd'd to its own directory.
func (s *Service) resolve(ctx context.Context) error {
	if err := os.Chdir(s.cfg.App.Root); err != nil {
		return fmt.Errorf("change to app root: %w", err)
	}
	return nil
}

func (s *Service) runEntryPoint(ctx context.Context) (int, error) {
	entry := s.cfg.EntryPointPath()
	cmd := exec.CommandContext(ctx, s.env.Python(), entry)
	cmd.Dir = s.cfg.App.Root
	cmd.Env = s.env.ActivationEnv(os.Environ())
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr

	s.log.Info("starting entry point",
		zap.String("python", s.env.Python()),
		zap.String("entry_point", entry),
	)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), fmt.Errorf("entry point exited: %w", err)
	}
	return ExitCodeNotStarted, fmt.Errorf("start entry point: %w", err)
}

// persist is best effort: history failures must never change the launch
// outcome.
func (s *Service) persist(ctx context.Context, l *historydomain.Launch) {
	if s.cfg.History.Disabled || s.repo == nil || s.db == nil {
		return
	}
	if err := s.repo.Insert(ctx, s.db, l); err != nil {
		s.log.Warn("failed to record launch", zap.Error(err))
	}
}

// holdOpen keeps the terminal up after exit, success or failure, so the
// final output stays readable before the window closes.
func (s *Service) holdOpen() {
	switch s.cfg.HoldOnExit {
	case config.HoldNever:
		return
	case config.HoldAuto:
		stdout, ok := s.Stdout.(*os.File)
		if !ok || !s.IsTerminal(stdout.Fd()) {
			return
		}
	}

	fmt.Fprint(s.Stdout, "\nPress Enter to close...")
	reader := bufio.NewReader(s.Stdin)
	_, _ = reader.ReadString('\n')
}
