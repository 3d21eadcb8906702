package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clipsmithlabs/clipsmith/internal/clock"
	"github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/clipsmithlabs/clipsmith/internal/doctor"
	"github.com/clipsmithlabs/clipsmith/internal/driveauth"
	"github.com/clipsmithlabs/clipsmith/internal/environment"
	"github.com/clipsmithlabs/clipsmith/internal/history"
	historydomain "github.com/clipsmithlabs/clipsmith/internal/history/domain"
	"github.com/clipsmithlabs/clipsmith/internal/installer"
	"github.com/clipsmithlabs/clipsmith/internal/launcher"
	"github.com/clipsmithlabs/clipsmith/internal/migration"
	"github.com/clipsmithlabs/clipsmith/internal/observability"
	"github.com/clipsmithlabs/clipsmith/internal/scheduler"
	"github.com/clipsmithlabs/clipsmith/internal/secrets"
	"github.com/clipsmithlabs/clipsmith/internal/server"
	"github.com/clipsmithlabs/clipsmith/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "clipsmith",
		Short:   "Bootstrap and operate the ClipSmith image-to-video studio",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(
		newLaunchCmd(),
		newDoctorCmd(),
		newEnvCmd(),
		newOAuthCmd(),
		newHistoryCmd(),
		newMigrateCmd(),
		newServeCmd(),
	)
	return root
}

// baseModules is the dependency set every command shares: config, logging,
// id generation, the wall clock and the environment/installer pair.
func baseModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		clock.Module,
		fx.Provide(environment.New, installer.New, newSecretsSource),
	)
}

// runOneShot starts an fx app, runs fn, then stops the app. Used by every
// command except launch and serve, which own their lifecycles.
func runOneShot(opts []fx.Option, fn func(ctx context.Context) error) error {
	app := fx.New(opts...)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer app.Stop(context.Background()) //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx)
}

func newLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Ensure the environment, install the manifest, run the app",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch()
		},
	}
}

func runLaunch() error {
	var svc *launcher.Service
	app := fx.New(
		baseModules(),
		db.Module,
		migration.Module,
		history.Module,
		launcher.Module,
		fx.Populate(&svc),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := svc.Run(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStop()
	_ = app.Stop(stopCtx)

	// The process exits with the entry point's own code so wrapping
	// scripts can react to it.
	if res.ExitCode > 0 {
		os.Exit(res.ExitCode)
	}
	return res.Err
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run preflight checks: interpreter, ffmpeg, entry point, OAuth config",
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc *doctor.Service
			opts := []fx.Option{
				baseModules(),
				doctor.Module,
				fx.Populate(&doc),
			}
			return runOneShot(opts, func(ctx context.Context) error {
				report := doc.Run(ctx)
				printReport(report)
				if !report.Ready {
					return fmt.Errorf("preflight found problems")
				}
				return nil
			})
		},
	}
}

func printReport(r doctor.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, c := range r.Checks {
		line := fmt.Sprintf("[%s]\t%s\t%s", c.Status, c.ID, c.Detail)
		if c.Hint != "" {
			line += "\t(" + c.Hint + ")"
		}
		fmt.Fprintln(w, line)
	}
	w.Flush()
}

func newEnvCmd() *cobra.Command {
	env := &cobra.Command{
		Use:   "env",
		Short: "Manage the app's isolated Python environment",
	}
	env.AddCommand(
		&cobra.Command{
			Use:   "ensure",
			Short: "Create the environment if it does not exist yet",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEnvManager(func(ctx context.Context, m *environment.Manager) error {
					created, err := m.Ensure(ctx)
					if err != nil {
						return err
					}
					if created {
						fmt.Println("environment created:", m.Dir())
					} else {
						fmt.Println("environment already present:", m.Dir())
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "recreate",
			Short: "Delete and rebuild the environment from scratch",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEnvManager(func(ctx context.Context, m *environment.Manager) error {
					if err := m.Recreate(ctx); err != nil {
						return err
					}
					fmt.Println("environment recreated:", m.Dir())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "info",
			Short: "Print environment paths and state as JSON",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEnvManager(func(ctx context.Context, m *environment.Manager) error {
					return printJSON(m.Info())
				})
			},
		},
	)
	return env
}

func withEnvManager(fn func(ctx context.Context, m *environment.Manager) error) error {
	var mgr *environment.Manager
	opts := []fx.Option{
		baseModules(),
		fx.Populate(&mgr),
	}
	return runOneShot(opts, func(ctx context.Context) error {
		return fn(ctx, mgr)
	})
}

func newOAuthCmd() *cobra.Command {
	oauth := &cobra.Command{
		Use:   "oauth",
		Short: "Inspect the Google Drive OAuth client configuration",
	}

	var expectRedirect string
	check := &cobra.Command{
		Use:   "check",
		Short: "Load the OAuth record and validate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			src, err := secrets.New(ctx, cfg)
			if err != nil {
				return err
			}
			rec, err := src.Load(ctx)
			if err != nil {
				return fmt.Errorf("load oauth record from %s: %w", src.Name(), err)
			}
			if err := rec.Validate(); err != nil {
				return err
			}
			if expectRedirect != "" && !rec.RedirectMatches(expectRedirect) {
				return fmt.Errorf("redirect_uri %q does not exactly match the registered value %q",
					rec.RedirectURI, expectRedirect)
			}
			fmt.Printf("oauth record ok (source %s): client_id=%s redirect_uri=%s\n",
				src.Name(), rec.ClientID, rec.RedirectURI)
			return nil
		},
	}
	check.Flags().StringVar(&expectRedirect, "expect-redirect", "",
		"fail unless redirect_uri exactly matches this value")

	url := &cobra.Command{
		Use:   "url",
		Short: "Print the Google consent URL for the configured client",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			src, err := secrets.New(ctx, cfg)
			if err != nil {
				return err
			}
			rec, err := src.Load(ctx)
			if err != nil {
				return err
			}
			consent, state, err := rec.ConsentURL()
			if err != nil {
				return err
			}
			fmt.Println(consent)
			fmt.Println("state:", state)
			return nil
		},
	}

	var reveal bool
	render := &cobra.Command{
		Use:   "render",
		Short: "Print the google_oauth config section (placeholders when unset)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rec := driveauth.Placeholder("http://localhost:8501/")
			if src, err := secrets.New(ctx, cfg); err == nil {
				if loaded, err := src.Load(ctx); err == nil && loaded.Validate() == nil {
					rec = loaded
					if !reveal {
						rec = rec.Redacted()
					}
				}
			}
			out, err := driveauth.RenderSection(cfg.OAuth.Section, rec)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	render.Flags().BoolVar(&reveal, "reveal", false, "print the client secret in clear text")

	oauth.AddCommand(check, url, render)
	return oauth
}

func newHistoryCmd() *cobra.Command {
	hist := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune recorded launches",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show recent launches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var deps struct {
				fx.In

				DB   *gorm.DB
				Repo historydomain.Repository
			}
			opts := []fx.Option{
				baseModules(),
				db.Module,
				migration.Module,
				history.Module,
				fx.Populate(&deps),
			}
			return runOneShot(opts, func(ctx context.Context) error {
				items, err := deps.Repo.List(ctx, deps.DB, limit)
				if err != nil {
					return err
				}
				printLaunches(items)
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of launches to show")

	var days int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete launches older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			var deps struct {
				fx.In

				Cfg   config.Config
				DB    *gorm.DB
				Repo  historydomain.Repository
				Clock clock.Clock
			}
			opts := []fx.Option{
				baseModules(),
				db.Module,
				migration.Module,
				history.Module,
				fx.Populate(&deps),
			}
			return runOneShot(opts, func(ctx context.Context) error {
				window := days
				if window <= 0 {
					window = deps.Cfg.History.RetentionDays
				}
				if window <= 0 {
					fmt.Println("retention disabled; nothing to prune")
					return nil
				}
				cutoff := deps.Clock.Now(ctx).AddDate(0, 0, -window)
				n, err := deps.Repo.DeleteOlderThan(ctx, deps.DB, cutoff)
				if err != nil {
					return err
				}
				fmt.Printf("pruned %d launches older than %d days\n", n, window)
				return nil
			})
		},
	}
	prune.Flags().IntVar(&days, "days", 0, "override the configured retention window")

	hist.AddCommand(list, prune)
	return hist
}

func printLaunches(items []*historydomain.Launch) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTEP\tEXIT\tENV_CREATED\tERROR")
	for _, l := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n",
			l.ID.String(),
			l.StartedAt.Format(time.RFC3339),
			l.Step,
			l.ExitCode,
			l.EnvCreated,
			l.Error,
		)
	}
	w.Flush()
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply launch history schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local status API and retention scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func runServe() {
	app := fx.New(
		baseModules(),
		db.Module,
		migration.Module,
		history.Module,
		doctor.Module,
		scheduler.Module,
		server.Module,
		fx.Invoke(startScheduler),
		fx.Invoke(watchConfig),
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func newSecretsSource(cfg config.Config) (secrets.Source, error) {
	return secrets.New(context.Background(), cfg)
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(context.Background())
			return nil
		},
	})
}

func watchConfig(cfg config.Config, log *zap.Logger) {
	cfg.Watch(log, nil)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
