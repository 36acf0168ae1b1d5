// ABOUTME: CLI commands for medication definitions, the lab marker catalog and water reset.
// ABOUTME: Definitions are referenced by name or ID prefix from records.
package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/models"
)

var (
	medUnit  string
	medDoses string

	markerUnit string
	markerMin  string
	markerMax  string

	waterDate string
)

var medCmd = &cobra.Command{
	Use:     "med",
	Aliases: []string{"meds"},
	Short:   "Manage medication definitions",
	Long: `Define the medications you take, then log intakes with
'healthlog add medication <name> <amount>'.

EXAMPLES:

  healthlog med define Ibuprofen --unit mg --doses "200, 400"
  healthlog med list
  healthlog med delete ibuprofen`,
}

var medDefineCmd = &cobra.Command{
	Use:   "define <name>",
	Short: "Define a medication",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		med := models.NewMedication(args[0], medUnit, medDoses)
		if err := repo.CreateMedication(med); err != nil {
			return fmt.Errorf("failed to define medication: %w", err)
		}
		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Defined %s\n", med.Name)
		fmt.Fprintf(out, "  %s %s\n", faint(med.ID.String()[:8]), med.Unit)
		return nil
	},
}

var medListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List medication definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		meds, err := repo.ListMedications()
		if err != nil {
			return fmt.Errorf("failed to list medications: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(meds) == 0 {
			fmt.Fprintln(out, "No medications defined.")
			return nil
		}
		for _, m := range meds {
			doses := ""
			if m.CommonDoses != "" {
				doses = faint(" (" + m.CommonDoses + ")")
			}
			fmt.Fprintf(out, "%s %s %s%s\n", faint(m.ID.String()[:8]), padRight(m.Name, 20), m.Unit, doses)
		}
		return nil
	},
}

var medDeleteCmd = &cobra.Command{
	Use:     "delete <name-or-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a medication definition without logged intakes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		med, err := repo.GetMedication(args[0])
		if err != nil {
			return fmt.Errorf("medication %q: %w", args[0], err)
		}
		if err := repo.DeleteMedication(med.ID.String()); err != nil {
			return fmt.Errorf("failed to delete medication: %w", err)
		}
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted %s\n", med.Name)
		return nil
	},
}

var markerCmd = &cobra.Command{
	Use:   "marker",
	Short: "Manage the lab marker catalog",
	Long: `Keep reference ranges for the lab markers you track.

EXAMPLES:

  healthlog marker add HbA1c --unit % --min 4 --max 5.6
  healthlog marker list
  healthlog chart lab --name HbA1c`,
}

var markerAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a lab marker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minNorm, err := optionalFloat("min", markerMin)
		if err != nil {
			return err
		}
		maxNorm, err := optionalFloat("max", markerMax)
		if err != nil {
			return err
		}
		if minNorm != nil && maxNorm != nil && *minNorm > *maxNorm {
			return fmt.Errorf("--min %s is above --max %s", markerMin, markerMax)
		}

		m := models.NewMarker(args[0], markerUnit, minNorm, maxNorm)
		if err := repo.CreateMarker(m); err != nil {
			return fmt.Errorf("failed to add marker: %w", err)
		}
		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Added marker %s\n", m.Name)
		fmt.Fprintf(out, "  %s %s\n", faint(m.ID.String()[:8]), normRange(m))
		return nil
	},
}

var markerListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List lab markers",
	RunE: func(cmd *cobra.Command, args []string) error {
		markers, err := repo.ListMarkers()
		if err != nil {
			return fmt.Errorf("failed to list markers: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(markers) == 0 {
			fmt.Fprintln(out, "No markers defined.")
			return nil
		}
		for _, m := range markers {
			fmt.Fprintf(out, "%s %s %s\n", faint(m.ID.String()[:8]), padRight(m.Name, 20), normRange(m))
		}
		return nil
	},
}

var markerDeleteCmd = &cobra.Command{
	Use:     "delete <name-or-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a lab marker",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := repo.GetMarker(args[0])
		if err != nil {
			return fmt.Errorf("marker %q: %w", args[0], err)
		}
		if err := repo.DeleteMarker(m.ID.String()); err != nil {
			return fmt.Errorf("failed to delete marker: %w", err)
		}
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted marker %s\n", m.Name)
		return nil
	},
}

var waterCmd = &cobra.Command{
	Use:   "water",
	Short: "Water helpers",
}

var waterResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every water entry of a day",
	Long: `Delete every water entry of a day, today unless --date is given.

EXAMPLES:

  healthlog water reset
  healthlog water reset --date 2024-05-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day := svc.Today()
		if waterDate != "" {
			var err error
			day, err = models.ParseDay(waterDate)
			if err != nil {
				return err
			}
		}
		n, err := repo.DeleteRecordsOnDay(models.CategoryWater, day)
		if err != nil {
			return fmt.Errorf("failed to reset water: %w", err)
		}
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Removed %d water entries for %s\n", n, day)
		return nil
	},
}

func optionalFloat(name, raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %s", name, raw)
	}
	return &f, nil
}

func normRange(m *models.Marker) string {
	lo, hi := "", ""
	if m.MinNorm != nil {
		lo = strconv.FormatFloat(*m.MinNorm, 'f', -1, 64)
	}
	if m.MaxNorm != nil {
		hi = strconv.FormatFloat(*m.MaxNorm, 'f', -1, 64)
	}
	if lo == "" && hi == "" {
		return m.Unit
	}
	return fmt.Sprintf("%s-%s %s", lo, hi, m.Unit)
}

func init() {
	medDefineCmd.Flags().StringVar(&medUnit, "unit", "", "dose unit (mg, ml, ...)")
	medDefineCmd.Flags().StringVar(&medDoses, "doses", "", "common doses, free text")
	medCmd.AddCommand(medDefineCmd, medListCmd, medDeleteCmd)

	markerAddCmd.Flags().StringVar(&markerUnit, "unit", "", "measurement unit")
	markerAddCmd.Flags().StringVar(&markerMin, "min", "", "lower bound of the normal range")
	markerAddCmd.Flags().StringVar(&markerMax, "max", "", "upper bound of the normal range")
	markerCmd.AddCommand(markerAddCmd, markerListCmd, markerDeleteCmd)

	waterResetCmd.Flags().StringVar(&waterDate, "date", "", "day to reset (YYYY-MM-DD)")
	waterCmd.AddCommand(waterResetCmd)

	rootCmd.AddCommand(medCmd, markerCmd, waterCmd)
}
