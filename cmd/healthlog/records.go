// ABOUTME: CLI commands for listing, showing, editing and deleting records.
// ABOUTME: Records are addressed by category plus full ID or ID prefix.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/models"
	"github.com/harperreed/healthlog/internal/storage"
)

var (
	listFrom  string
	listTo    string
	listLimit int
	listAsc   bool

	editAt  string
	editSet []string
)

var listCmd = &cobra.Command{
	Use:     "list [category]",
	Aliases: []string{"ls", "l"},
	Short:   "List health records",
	Long: `List records, newest first.

OUTPUT FORMAT:

  Each line shows: ID  WHEN  CATEGORY  ENTRY

  The ID is an 8-character prefix you can use with show, edit and delete.
  Steps, sleep and water are kept per day and show only the date.

EXAMPLES:

  healthlog list                          # Last 20 records, all categories
  healthlog list weight                   # Only weigh-ins
  healthlog list food --from 2024-05-01   # Meals since May 1st
  healthlog list vital -n 50 --asc        # Oldest 50 readings first`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := storage.ParseRange(listFrom, listTo)
		if err != nil {
			return err
		}

		snap, err := svc.Snapshot(cmd.Context(), filter)
		if err != nil {
			return explain(err)
		}

		var records []models.Record
		if len(args) == 1 {
			cat, err := parseCategoryArg(args[0])
			if err != nil {
				return err
			}
			records = snap.Records(cat)
		} else {
			records = snap.All()
			models.SortRecords(records)
		}

		if !listAsc {
			for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
				records[i], records[j] = records[j], records[i]
			}
		}
		if listLimit > 0 && len(records) > listLimit {
			records = records[:listLimit]
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No records found.")
			return nil
		}
		for _, r := range records {
			printRecordLine(out, r, snap)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <category> <id>",
	Short: "Show one record with all fields",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := parseCategoryArg(args[0])
		if err != nil {
			return err
		}
		rec, err := repo.GetRecord(cat, args[1])
		if err != nil {
			return fmt.Errorf("%s %s: %w", cat, args[1], err)
		}

		out := cmd.OutOrStdout()
		color.New(color.Bold).Fprintln(out, aggregate.FormatRecord(rec, definitions()))
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <category> <id>",
	Short: "Change fields of a record",
	Long: `Change fields of an existing record with --set field=value.
An empty value clears an optional field.

EXAMPLES:

  healthlog edit weight abc12345 --set weight=81.9
  healthlog edit food abc12345 --set calories=420 --set fat=
  healthlog edit sleep abc12345 --at 2024-05-01`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := parseCategoryArg(args[0])
		if err != nil {
			return err
		}
		if len(editSet) == 0 && editAt == "" {
			return fmt.Errorf("nothing to change: use --set or --at")
		}

		rec, err := repo.GetRecord(cat, args[1])
		if err != nil {
			return fmt.Errorf("%s %s: %w", cat, args[1], err)
		}

		data, err := recordData(rec)
		if err != nil {
			return err
		}
		if err := applySets(data, editSet); err != nil {
			return err
		}
		if editAt != "" {
			if err := setWhen(cat, data, editAt); err != nil {
				return err
			}
		}
		if err := resolveMedication(data); err != nil {
			return err
		}

		updated, err := decodeData(cat, data, false)
		if err != nil {
			return err
		}
		if err := repo.UpdateRecord(updated); err != nil {
			return fmt.Errorf("failed to update %s: %w", cat, err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Updated %s\n", cat)
		fmt.Fprintf(out, "  %s %s\n", faint(shortID(updated)), aggregate.FormatRecord(updated, definitions()))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <category> <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a health record",
	Long: `Delete a record by its ID or ID prefix.

EXAMPLES:

  healthlog delete weight abc12345        # Delete by 8-char prefix
  healthlog rm mood abc1                  # Short prefix (if unique)

CAUTION:

  This permanently deletes the record. There is no undo.
  If the prefix matches multiple records, an error is returned.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := parseCategoryArg(args[0])
		if err != nil {
			return err
		}
		rec, err := repo.GetRecord(cat, args[1])
		if err != nil {
			return fmt.Errorf("%s %s: %w", cat, args[1], err)
		}
		if err := repo.DeleteRecord(cat, rec.Meta().ID.String()); err != nil {
			return fmt.Errorf("failed to delete %s: %w", cat, err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgYellow).Fprintf(out, "✗ Deleted %s\n", cat)
		fmt.Fprintf(out, "  %s %s\n", faint(shortID(rec)), aggregate.FormatRecord(rec, definitions()))
		return nil
	},
}

func printRecordLine(w io.Writer, r models.Record, snap *models.Snapshot) {
	when := r.Timestamp().Format("2006-01-02 15:04")
	if r.Category().DateOnly() {
		when = r.DayKey().String()
	}
	fmt.Fprintf(w, "%s %s %s %s\n",
		faint(shortID(r)),
		faint(padRight(when, 16)),
		padRight(string(r.Category()), 10),
		truncate(aggregate.FormatRecord(r, snap), 80))
}

// definitions returns a snapshot holding only the medication definitions,
// enough to render medication entries by name.
func definitions() *models.Snapshot {
	meds, err := repo.ListMedications()
	if err != nil {
		logger.Debug("list medications", "err", err)
		return nil
	}
	return &models.Snapshot{Medications: meds}
}

// recordData flattens a record into its JSON fields.
func recordData(r models.Record) (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Category(), err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.Category(), err)
	}
	return data, nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func padRight(s string, length int) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}

func init() {
	listCmd.Flags().StringVar(&listFrom, "from", "", "first day (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listTo, "to", "", "last day (YYYY-MM-DD)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max number of results (0 for all)")
	listCmd.Flags().BoolVar(&listAsc, "asc", false, "oldest first")

	editCmd.Flags().StringVar(&editAt, "at", "", "new timestamp (YYYY-MM-DD HH:MM) or day")
	editCmd.Flags().StringArrayVar(&editSet, "set", nil, "field=value to change (repeatable)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
}
