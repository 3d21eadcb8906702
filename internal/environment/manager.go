// Package environment manages the isolated interpreter environment the
// studio app runs in.
package environment

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/clipsmithlabs/clipsmith/internal/config"
	"go.uber.org/zap"
)

// Manager creates and inspects the isolated environment. Creation shells
// out to `<interpreter> -m venv <dir>`; the environment exists when the
// marker file is present inside the directory.
type Manager struct {
	dir         string
	marker      string
	interpreter string
	log         *zap.Logger
}

type Info struct {
	Dir    string `json:"dir"`
	Marker string `json:"marker"`
	Exists bool   `json:"exists"`
	Python string `json:"python"`
	Pip    string `json:"pip"`
}

func New(cfg config.Config, log *zap.Logger) *Manager {
	return &Manager{
		dir:         cfg.EnvDir(),
		marker:      cfg.Env.Marker,
		interpreter: cfg.App.Interpreter,
		log:         log.Named("environment"),
	}
}

func (m *Manager) Dir() string { return m.dir }

// Exists reports whether the environment marker is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(filepath.Join(m.dir, m.marker))
	return err == nil
}

// Ensure creates the environment when its marker is absent. The second call
// is a no-op; it returns whether this call created the environment.
func (m *Manager) Ensure(ctx context.Context) (bool, error) {
	if m.Exists() {
		m.log.Debug("environment already present", zap.String("dir", m.dir))
		return false, nil
	}

	m.log.Info("creating isolated environment",
		zap.String("dir", m.dir),
		zap.String("interpreter", m.interpreter),
	)
	if err := m.create(ctx); err != nil {
		return false, err
	}
	if !m.Exists() {
		return false, fmt.Errorf("environment created but marker %s is missing in %s", m.marker, m.dir)
	}
	return true, nil
}

// Recreate removes the environment directory and builds it fresh.
func (m *Manager) Recreate(ctx context.Context) error {
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("remove environment %s: %w", m.dir, err)
	}
	if _, err := m.Ensure(ctx); err != nil {
		return err
	}
	return nil
}

func (m *Manager) create(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, m.interpreter, "-m", "venv", m.dir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("create environment: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// BinDir is Scripts on Windows, bin elsewhere.
func (m *Manager) BinDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(m.dir, "Scripts")
	}
	return filepath.Join(m.dir, "bin")
}

func (m *Manager) Python() string { return filepath.Join(m.BinDir(), exe("python")) }
func (m *Manager) Pip() string    { return filepath.Join(m.BinDir(), exe("pip")) }

// ActivationEnv returns base with the environment activated for a child
// process: VIRTUAL_ENV set, the bin dir prepended to PATH, PYTHONHOME
// dropped. This mirrors what the activate script does.
func (m *Manager) ActivationEnv(base []string) []string {
	env := make([]string, 0, len(base)+2)
	pathSet := false
	for _, kv := range base {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			env = append(env, kv)
			continue
		}
		switch {
		case strings.EqualFold(key, "PATH"):
			env = append(env, key+"="+m.BinDir()+string(os.PathListSeparator)+val)
			pathSet = true
		case strings.EqualFold(key, "PYTHONHOME"):
			// dropped: it would override the isolated interpreter
		case strings.EqualFold(key, "VIRTUAL_ENV"):
			// replaced below
		default:
			env = append(env, kv)
		}
	}
	if !pathSet {
		env = append(env, "PATH="+m.BinDir())
	}
	env = append(env, "VIRTUAL_ENV="+m.dir)
	return env
}

func (m *Manager) Info() Info {
	return Info{
		Dir:    m.dir,
		Marker: m.marker,
		Exists: m.Exists(),
		Python: m.Python(),
		Pip:    m.Pip(),
	}
}

func exe(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
