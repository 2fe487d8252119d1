package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skaufmann/cvsyncd/internal/config"
	"github.com/skaufmann/cvsyncd/internal/deploy"
	"github.com/skaufmann/cvsyncd/internal/git"
	"github.com/skaufmann/cvsyncd/internal/logging"
	"github.com/skaufmann/cvsyncd/internal/notify"
	"github.com/skaufmann/cvsyncd/internal/sync"
	"github.com/skaufmann/cvsyncd/internal/watch"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	dryRun    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cvsyncd",
	Short: "Publish your resume to a web project on change",
	Long: `cvsyncd keeps the resume served by a web project in sync with the copy you
actually edit. When the source PDF changes it is copied into the project's
public assets, committed and pushed, and a production deployment is
triggered.

It can run as a oneshot sync (via an external file-watch trigger or cron)
or as a long-running watcher on the source file.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Perform a one-time sync of the resume into the project",
	Long: `Sync compares the source resume with the copy inside the project by content
digest. When they differ, the file is copied into the project, committed and
pushed (if git publishing is enabled), and the deployment CLI is invoked
(if deployment is enabled). Identical files make the run a no-op.`,
	RunE: runSync,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the resume file and sync on every change",
	Long: `Watch runs an initial sync and then keeps watching the source file. Change
events are debounced, and at most one sync runs at a time with one pending
re-run queued behind it. Stops on SIGINT/SIGTERM.`,
	RunE: runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cvsyncd %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cvsyncd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Sync command flags
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")

	// Add commands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	cfg, logger, closer, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()

	engine := newEngine(cfg, logger, dryRun)

	logger.Info("starting sync operation")
	if _, err := engine.Run(ctx); err != nil {
		return err
	}

	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	cfg, logger, closer, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()

	engine := newEngine(cfg, logger, false)
	watcher := watch.New(cfg.Source, cfg.Watch.Debounce.Std(), func(ctx context.Context) error {
		_, err := engine.Run(ctx)
		return err
	}, logger)

	if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("watch failed", "error", err)
		return err
	}

	return nil
}

// newEngine wires the engine with its shell-backed dependencies
func newEngine(cfg *config.Config, logger *slog.Logger, dryRun bool) *sync.Engine {
	publisher := git.NewShellPublisher()
	trigger := deploy.NewShellTrigger(cfg.Deploy.Command, cfg.Deploy.Args, cfg.Project.Dir)

	var notifier notify.Notifier = notify.NewNop()
	if cfg.Notify.Enabled {
		notifier = notify.NewDesktop(logger)
	}

	return sync.NewEngine(cfg, publisher, trigger, notifier, logger, dryRun)
}

// setup loads configuration and builds the logger described by it
func setup() (*config.Config, *slog.Logger, io.Closer, error) {
	// Bootstrap logger for config loading, before the log file is known.
	bootstrap, _ := logging.Setup(logLevel, logFormat, "")

	cfg, err := loadConfig(bootstrap)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer := logging.Setup(logLevel, logFormat, cfg.Log.File)
	return cfg, logger, closer, nil
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	// Determine config file path
	configPath := cfgFile
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configPath = fmt.Sprintf("%s/.config/cvsyncd/config.yaml", home)
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"source", cfg.Source,
		"project_dir", cfg.Project.Dir,
		"dest", cfg.Project.Dest,
		"git", cfg.Git.Enabled,
		"deploy", cfg.Deploy.Enabled)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
