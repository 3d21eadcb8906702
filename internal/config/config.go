package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Hold policies for keeping the terminal open after the entry point exits.
const (
	HoldAuto   = "auto"
	HoldAlways = "always"
	HoldNever  = "never"
)

// Secret source kinds for the OAuth client record.
const (
	SourceEnv    = "env"
	SourceDotenv = "dotenv"
	SourceTOML   = "toml"
	SourceAWS    = "awssm"
)

type AppConfig struct {
	// Name is the display name of the managed application.
	Name string `mapstructure:"name"`
	// Root is the application directory. All relative paths below resolve
	// against it. Defaults to the directory of the clipsmith executable.
	Root        string `mapstructure:"root"`
	EntryPoint  string `mapstructure:"entry_point"`
	Interpreter string `mapstructure:"interpreter"`
}

type EnvConfig struct {
	// Dir is the isolated environment directory, relative to App.Root.
	Dir string `mapstructure:"dir"`
	// Marker is the file whose presence inside Dir means the environment
	// already exists.
	Marker string `mapstructure:"marker"`
}

type InstallerConfig struct {
	Manifest   string        `mapstructure:"manifest"`
	Quiet      bool          `mapstructure:"quiet"`
	UpgradePip bool          `mapstructure:"upgrade_pip"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type OAuthConfig struct {
	Source    string `mapstructure:"source"`
	Path      string `mapstructure:"path"`
	Section   string `mapstructure:"section"`
	SecretID  string `mapstructure:"secret_id"`
	AWSRegion string `mapstructure:"aws_region"`
}

type HistoryConfig struct {
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
	Disabled      bool   `mapstructure:"disabled"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	App        AppConfig       `mapstructure:"app"`
	Env        EnvConfig       `mapstructure:"env"`
	Installer  InstallerConfig `mapstructure:"installer"`
	OAuth      OAuthConfig     `mapstructure:"oauth"`
	History    HistoryConfig   `mapstructure:"history"`
	Server     ServerConfig    `mapstructure:"server"`
	HoldOnExit string          `mapstructure:"hold_on_exit"`

	v *viper.Viper
}

// Load reads configuration from a local .env file, CLIPSMITH_* environment
// variables, and an optional clipsmith.toml in the app root (or the file
// named by CLIPSMITH_CONFIG). Precedence: env over file over defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLIPSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	root := defaultRoot()
	v.SetDefault("app.name", "ClipSmith Studio")
	v.SetDefault("app.root", root)
	v.SetDefault("app.entry_point", "app_web.py")
	v.SetDefault("app.interpreter", defaultInterpreter())
	v.SetDefault("env.dir", "venv")
	v.SetDefault("env.marker", "pyvenv.cfg")
	v.SetDefault("installer.manifest", "requirements.txt")
	v.SetDefault("installer.quiet", true)
	v.SetDefault("installer.upgrade_pip", false)
	v.SetDefault("installer.timeout", 15*time.Minute)
	v.SetDefault("oauth.source", SourceEnv)
	v.SetDefault("oauth.section", "google_oauth")
	v.SetDefault("oauth.path", "secrets.toml")
	v.SetDefault("history.path", "clipsmith.db")
	v.SetDefault("history.retention_days", 90)
	v.SetDefault("history.disabled", false)
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("hold_on_exit", HoldAuto)

	file := os.Getenv("CLIPSMITH_CONFIG")
	if file == "" {
		file = filepath.Join(v.GetString("app.root"), "clipsmith.toml")
	}
	if _, err := os.Stat(file); err == nil {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.HoldOnExit {
	case HoldAuto, HoldAlways, HoldNever:
	default:
		return fmt.Errorf("hold_on_exit must be one of auto, always, never; got %q", c.HoldOnExit)
	}
	switch c.OAuth.Source {
	case SourceEnv, SourceDotenv, SourceTOML, SourceAWS:
	default:
		return fmt.Errorf("oauth.source must be one of env, dotenv, toml, awssm; got %q", c.OAuth.Source)
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must not be negative; got %d", c.History.RetentionDays)
	}
	if strings.TrimSpace(c.App.EntryPoint) == "" {
		return fmt.Errorf("app.entry_point is required")
	}
	return nil
}

// Watch registers fn to run when the config file changes. No-op when no
// config file was loaded.
func (c Config) Watch(log *zap.Logger, fn func(fsnotify.Event)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("config file changed",
			zap.String("file", e.Name),
			zap.String("op", e.Op.String()),
		)
		if fn != nil {
			fn(e)
		}
	})
	c.v.WatchConfig()
}

// resolve joins p with the app root unless p is already absolute.
// ":memory:" is a sqlite DSN, not a path, and passes through untouched.
func (c Config) resolve(p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.App.Root, p)
}

func (c Config) EntryPointPath() string { return c.resolve(c.App.EntryPoint) }
func (c Config) ManifestPath() string   { return c.resolve(c.Installer.Manifest) }
func (c Config) EnvDir() string         { return c.resolve(c.Env.Dir) }
func (c Config) HistoryPath() string    { return c.resolve(c.History.Path) }
func (c Config) OAuthPath() string      { return c.resolve(c.OAuth.Path) }

func defaultRoot() string {
	exe, err := os.Executable()
	if err == nil {
		if dir := filepath.Dir(exe); dir != "" && dir != "." {
			return dir
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func defaultInterpreter() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}
