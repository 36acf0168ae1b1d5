// ABOUTME: CLI commands for Charm-based sync of the charm backend.
// ABOUTME: Supports link, unlink, status, now, repair, reset, and wipe operations.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/charm/kv"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/charm"
	"github.com/harperreed/healthlog/internal/config"
	"github.com/harperreed/healthlog/internal/storage"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"s"},
	Short:   "Sync health data across devices",
	Long: `Sync health data across devices using Charm Cloud.

Sync applies to the charm backend. Set "backend": "charm" in the config
file (or HEALTHLOG_BACKEND=charm), or copy existing data over with
'healthlog migrate --from sqlite --to charm'.

Your data is E2E encrypted with your SSH key before upload.

COMMANDS:

  link        Link this device to your Charm account
  unlink      Disconnect this device from Charm
  status      Show sync status and account info
  now         Pull and push changes immediately
  repair      Repair database corruption
  reset       Reset local data and restore from cloud (destructive)
  wipe        Delete cloud and local data (destructive)

Data syncs automatically after each write.`,
	Annotations: map[string]string{skipStore: "true"},
}

var syncLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link this device to Charm",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runCharm("link"); err != nil {
			return fmt.Errorf("failed to link: %w\n\nMake sure 'charm' CLI is installed: go install github.com/charmbracelet/charm@latest", err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintln(out, "\n✓ Device linked to Charm")

		client, err := charm.InitClient()
		if err != nil {
			color.New(color.FgYellow).Fprintf(out, "⚠ Initial sync skipped: %v\n", err)
			return nil
		}
		defer client.Close()
		if err := client.Sync(); err != nil {
			color.New(color.FgYellow).Fprintf(out, "⚠ Initial sync failed: %v\n", err)
		} else {
			color.New(color.FgGreen).Fprintln(out, "✓ Initial sync complete")
		}
		return nil
	},
}

var syncUnlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Disconnect from Charm",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runCharm("unlink"); err != nil {
			return fmt.Errorf("failed to unlink: %w", err)
		}
		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintln(out, "✓ Device unlinked from Charm")
		fmt.Fprintln(out, "Your local health data is preserved.")
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if err := loadConfig("warn"); err != nil {
			return err
		}
		fmt.Fprintf(out, "Backend: %s\n", cfg.GetBackend())
		if cfg.GetBackend() != config.BackendCharm {
			color.New(color.FgYellow).Fprintln(out, "Sync is only used by the charm backend.")
			return nil
		}

		client, err := charm.InitClient()
		if err != nil {
			color.New(color.FgYellow).Fprintf(out, "Charm client not available: %v\n", err)
			return nil
		}
		defer client.Close()

		id, err := client.ID()
		if err != nil {
			color.New(color.FgYellow).Fprintln(out, "Not linked to Charm")
			fmt.Fprintln(out, "\nRun 'healthlog sync link' to connect to Charm.")
			return nil
		}
		fmt.Fprintln(out, "Charm ID:", id)
		if client.IsReadOnly() {
			color.New(color.FgYellow).Fprintln(out, "⚠ Read-only: another healthlog process holds the lock")
		}

		snap, err := storage.NewKVStore(client).Snapshot(storage.RecordFilter{})
		if err != nil {
			return fmt.Errorf("read local data: %w", err)
		}
		color.New(color.FgGreen).Fprintln(out, "✓ Connected to Charm")
		fmt.Fprintf(out, "  Records: %d\n", snap.Len())
		fmt.Fprintf(out, "  Medications: %d\n", len(snap.Medications))
		return nil
	},
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Sync immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := charm.InitClient()
		if err != nil {
			return fmt.Errorf("failed to initialize charm client: %w", err)
		}
		defer client.Close()
		if err := client.Sync(); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ Synced")
		return nil
	},
}

var syncWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all cloud and local data",
	Long: `Delete all cloud backups and local data of the charm backend.

This is a DESTRUCTIVE operation. ALL synced data will be permanently deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "This will PERMANENTLY DELETE all cloud backups and local health data.")
		if !confirm(cmd, "Type 'wipe' to confirm: ", "wipe") {
			fmt.Fprintln(out, "Canceled.")
			return nil
		}

		result, err := kv.Wipe(charm.DBName)
		if err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}

		color.New(color.FgGreen).Fprintln(out, "✓ Data wiped successfully")
		fmt.Fprintf(out, "  Cloud backups deleted: %d\n", result.CloudBackupsDeleted)
		fmt.Fprintf(out, "  Local files deleted: %d\n", result.LocalFilesDeleted)
		return nil
	},
}

var syncRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair database corruption",
	Long: `Repair database corruption by checkpointing WAL, removing SHM files, checking integrity, and vacuuming.

Run with --force to attempt recovery even if integrity checks fail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		out := cmd.OutOrStdout()
		green := color.New(color.FgGreen)

		fmt.Fprintln(out, "Repairing healthlog database...")
		result, err := kv.Repair(charm.DBName, force)

		if result.WalCheckpointed {
			green.Fprintln(out, "  ✓ WAL checkpointed")
		}
		if result.ShmRemoved {
			green.Fprintln(out, "  ✓ SHM file removed")
		}
		if result.IntegrityOK {
			green.Fprintln(out, "  ✓ Integrity check passed")
		} else {
			color.New(color.FgRed).Fprintln(out, "  ✗ Integrity check failed")
		}
		if result.Vacuumed {
			green.Fprintln(out, "  ✓ Database vacuumed")
		}

		if err != nil {
			if !force {
				color.New(color.FgYellow).Fprintln(out, "\nRun with --force to attempt recovery.")
			}
			return fmt.Errorf("repair failed: %w", err)
		}

		green.Fprintln(out, "\n✓ Repair complete")
		return nil
	},
}

var syncResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset local data and restore from cloud",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "This will DELETE all local health data and restore from cloud.")
		if !confirm(cmd, "Continue? [y/N]: ", "y") {
			fmt.Fprintln(out, "Canceled.")
			return nil
		}

		if err := kv.Reset(charm.DBName); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		color.New(color.FgGreen).Fprintln(out, "✓ Local data reset and restored from cloud")
		return nil
	},
}

func runCharm(arg string) error {
	c := exec.Command("charm", arg)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

// confirm reads one line from the command's input and compares it to want,
// ignoring case.
func confirm(cmd *cobra.Command, prompt, want string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), want)
}

func init() {
	syncCmd.AddCommand(syncLinkCmd)
	syncCmd.AddCommand(syncUnlinkCmd)
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncRepairCmd)
	syncCmd.AddCommand(syncResetCmd)
	syncCmd.AddCommand(syncWipeCmd)

	syncRepairCmd.Flags().Bool("force", false, "Attempt recovery even if integrity checks fail")

	rootCmd.AddCommand(syncCmd)
}
