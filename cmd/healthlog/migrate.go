// ABOUTME: CLI command for migrating data between storage backends.
// ABOUTME: Copies definitions and records from one backend into an empty one.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/charm"
	"github.com/harperreed/healthlog/internal/config"
	"github.com/harperreed/healthlog/internal/models"
	"github.com/harperreed/healthlog/internal/storage"
)

var (
	migrateFrom   string
	migrateTo     string
	migrateDryRun bool
	migrateForce  bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy all data from one storage backend to another",
	Long: `Copy all health data from one storage backend to another.

BACKENDS:

  sqlite   ~/.local/share/healthlog/healthlog.db
  badger   ~/.local/share/healthlog/badger/
  charm    Charm KV, synced through Charm Cloud

The destination must be empty unless --force is given. The source is
left untouched. Afterwards set "backend" in the config file to the
destination to start using it.

USAGE:

  healthlog migrate --from badger --to sqlite --dry-run   # Preview
  healthlog migrate --from badger --to sqlite             # Copy`,
	Annotations: map[string]string{skipStore: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to := strings.ToLower(migrateFrom), strings.ToLower(migrateTo)
		if from == to {
			return fmt.Errorf("--from and --to are both %q", from)
		}
		if err := loadConfig("warn"); err != nil {
			return err
		}

		src, err := cfg.OpenBackend(from, logger)
		if err != nil {
			return fmt.Errorf("open %s: %w", from, err)
		}
		defer src.Close()

		out := cmd.OutOrStdout()
		if migrateDryRun {
			color.New(color.FgYellow).Fprintln(out, "Dry run mode - no changes will be made")
			snap, err := src.Snapshot(storage.RecordFilter{})
			if err != nil {
				return fmt.Errorf("read %s: %w", from, err)
			}
			fmt.Fprintf(out, "Would copy from %s to %s:\n", from, to)
			fmt.Fprintf(out, "  %-12s %d\n", "medications", len(snap.Medications))
			fmt.Fprintf(out, "  %-12s %d\n", "markers", len(snap.Markers))
			for _, cat := range models.AllCategories {
				fmt.Fprintf(out, "  %-12s %d\n", cat, len(snap.Records(cat)))
			}
			return nil
		}

		dst, err := openDestination(to)
		if err != nil {
			return err
		}
		defer dst.Close()

		// Charm syncs after every write; batch the copy into one sync.
		cloud := charmClient(dst)
		if cloud != nil {
			cloud.SetAutoSync(false)
		}

		summary, err := storage.MigrateData(src, dst)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if cloud != nil {
			if err := cloud.Sync(); err != nil {
				logger.Warn("sync after migration failed", "err", err)
			}
		}

		color.New(color.FgGreen).Fprintf(out, "✓ Migrated %s to %s\n", from, to)
		fmt.Fprintf(out, "  Medications: %d\n", summary.Medications)
		fmt.Fprintf(out, "  Markers: %d\n", summary.Markers)
		fmt.Fprintf(out, "  Records: %d\n", summary.Total())
		if summary.Profile {
			fmt.Fprintln(out, "  Profile: copied")
		}
		if cfg.GetBackend() != to {
			fmt.Fprintf(out, "\nSet \"backend\": %q in %s to use it.\n", to, config.GetConfigPath())
		}
		return nil
	},
}

func charmClient(repo storage.Repository) *charm.Client {
	kvs, ok := repo.(*storage.KVStore)
	if !ok {
		return nil
	}
	c, _ := kvs.Backend().(*charm.Client)
	return c
}

func openDestination(name string) (storage.Repository, error) {
	dst, err := cfg.OpenBackend(name, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if migrateForce {
		return dst, nil
	}
	existing, err := dst.GetAllData()
	if err != nil {
		dst.Close()
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if existing.Count() > 0 {
		dst.Close()
		return nil, fmt.Errorf("%s already holds %d items (use --force to merge)", name, existing.Count())
	}
	return dst, nil
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "", "source backend (sqlite, badger, charm)")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "destination backend (sqlite, badger, charm)")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "show what would be copied")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "copy into a non-empty destination")
	_ = migrateCmd.MarkFlagRequired("from")
	_ = migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(migrateCmd)
}
