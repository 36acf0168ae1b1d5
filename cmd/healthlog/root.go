// ABOUTME: Root Cobra command for the healthlog CLI.
// ABOUTME: Loads config and opens the store and aggregation service via PersistentPre/PostRunE.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/config"
	"github.com/harperreed/healthlog/internal/storage"
)

// skipStore marks commands that run without opening the record store.
const skipStore = "skip-store"

var (
	cfg    *config.Config
	logger *log.Logger
	repo   storage.Repository
	svc    *aggregate.Service

	// now is the CLI clock. Tests pin it.
	now = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "healthlog",
	Short: "Personal health log with daily summaries",
	Long: `healthlog records personal health data and turns it into daily views.

WHAT IT TRACKS:

  Body        weight (with body composition), vital (blood pressure, pulse), lab
  Daily       steps, sleep, water
  Intake      food (calories and macros), medication
  Wellbeing   activity, mood

QUICK START:

  $ healthlog add weight 82.5                      # Log a weigh-in
  $ healthlog add vital 120 80 64                  # Blood pressure and pulse
  $ healthlog add food "Oatmeal" --set calories=350 --set protein=12
  $ healthlog add water 250                        # Water adds up per day
  $ healthlog add steps 8000                       # Steps replace the day's count
  $ healthlog day                                  # Today's summary
  $ healthlog recent                               # Last 3 days at a glance
  $ healthlog timeline --from 2024-05-01           # Everything, grouped by day

REPORTS:

  $ healthlog report                               # Text report
  $ healthlog report --format markdown -o report.md
  $ healthlog report --pdf report.pdf

SERVERS:

  $ healthlog serve        # JSON API and Prometheus metrics
  $ healthlog mcp          # Model Context Protocol server on stdio

DATA STORAGE:

  SQLite at ~/.local/share/healthlog/healthlog.db by default. Set "backend"
  in ~/.config/healthlog/config.json to "badger" or "charm" (synced), or
  export HEALTHLOG_BACKEND.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || skipsStore(cmd) {
			return nil
		}
		return openStore(cmd, "warn")
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeStore()
	},
}

// Execute runs the root command. The store is closed even when a command
// fails, since cobra skips PostRun hooks on error.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := closeStore(); err == nil {
		err = cerr
	}
	return err
}

// skipsStore reports whether cmd or one of its parents opts out of the store.
func skipsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipStore] == "true" {
			return true
		}
	}
	return false
}

// loadConfig reads the config file and environment and builds the logger.
func loadConfig(level string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err = cfg.NewLogger(os.Stderr, level)
	if err != nil {
		return err
	}
	return nil
}

func openStore(cmd *cobra.Command, level string) error {
	if err := closeStore(); err != nil {
		return err
	}
	if err := loadConfig(level); err != nil {
		return err
	}
	opts, err := cfg.RollupOptions()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repo, err = cfg.OpenStorage(logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.GetBackend(), err)
	}
	logger.Debug("store opened", "backend", cfg.GetBackend(), "command", cmd.Name())

	svc = aggregate.NewService(repo, serviceOptions(opts)...)
	return nil
}

func serviceOptions(opts aggregate.RollupOptions) []aggregate.Option {
	return []aggregate.Option{
		aggregate.WithClock(now),
		aggregate.WithRollupOptions(opts),
		aggregate.WithWindowDays(cfg.GetWindowDays()),
		aggregate.WithLogger(logger),
	}
}

func closeStore() error {
	if repo == nil {
		return nil
	}
	err := repo.Close()
	repo = nil
	svc = nil
	return err
}

// explain turns engine failures into the message the CLI shows.
func explain(err error) error {
	if errors.Is(err, aggregate.ErrUnavailable) {
		logger.Debug("aggregation failed", "err", err)
		return errors.New("aggregation unavailable: the record store could not be read")
	}
	return err
}
