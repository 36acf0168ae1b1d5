// ABOUTME: CLI views over the aggregation engine: timeline, day, recent, dashboard and chart.
// ABOUTME: Each view prints colored text, or JSON with --json.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/models"
	"github.com/harperreed/healthlog/internal/storage"
)

var (
	viewJSON bool

	timelineFrom string
	timelineTo   string
	timelineSort string

	recentDays int

	chartName string
)

var timelineCmd = &cobra.Command{
	Use:     "timeline",
	Aliases: []string{"tl"},
	Short:   "Show every record grouped by day",
	Long: `Show every record grouped by day, newest day first.
Days without records are left out.

EXAMPLES:

  healthlog timeline
  healthlog timeline --from 2024-05-01 --to 2024-05-07 --sort asc
  healthlog timeline --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := storage.ParseRange(timelineFrom, timelineTo)
		if err != nil {
			return err
		}
		dir, err := aggregate.ParseSortDirection(timelineSort)
		if err != nil {
			return err
		}
		buckets, err := svc.Timeline(cmd.Context(), filter, dir)
		if err != nil {
			return explain(err)
		}

		out := cmd.OutOrStdout()
		if viewJSON {
			return writeJSON(out, buckets)
		}
		if len(buckets) == 0 {
			fmt.Fprintln(out, "No records found.")
			return nil
		}
		printTimeline(out, buckets, definitions())
		return nil
	},
}

var dayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "Summarize one day",
	Long: `Summarize one day: nutrition totals, steps, weight, sleep, water and
every entry. Defaults to today.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day := svc.Today()
		if len(args) == 1 && args[0] != "today" {
			var err error
			day, err = models.ParseDay(args[0])
			if err != nil {
				return err
			}
		}
		r, err := svc.Day(cmd.Context(), day)
		if err != nil {
			return explain(err)
		}

		out := cmd.OutOrStdout()
		if viewJSON {
			return writeJSON(out, r)
		}
		printRollup(out, r)
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show steps, weight, sleep and macros for the last days",
	Long: `Show the last N days ending today, newest first. Every day is listed,
with "-" where nothing was logged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := svc.Recent(cmd.Context(), recentDays)
		if err != nil {
			return explain(err)
		}
		out := cmd.OutOrStdout()
		if viewJSON {
			return writeJSON(out, window)
		}
		printWindow(out, window)
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash"},
	Short:   "Today's water, the recent window and the latest timeline",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		today := svc.Today()

		r, err := svc.Day(ctx, today)
		if err != nil {
			return explain(err)
		}
		window, err := svc.Recent(ctx, 0)
		if err != nil {
			return explain(err)
		}
		from, to := aggregate.WindowRange(today, svc.WindowDays())
		buckets, err := svc.Timeline(ctx, storage.Between(from, to), aggregate.Descending)
		if err != nil {
			return explain(err)
		}

		out := cmd.OutOrStdout()
		if viewJSON {
			return writeJSON(out, map[string]any{
				"today":    today,
				"water":    r.Water,
				"recent":   window,
				"timeline": buckets,
			})
		}

		bold := color.New(color.Bold)
		bold.Fprintf(out, "Today %s\n", today)
		fmt.Fprintf(out, "  Water  %s\n", color.CyanString("%d ml", r.Water))
		fmt.Fprintln(out)
		bold.Fprintln(out, "Recent")
		printWindow(out, window)
		fmt.Fprintln(out)
		bold.Fprintln(out, "Timeline")
		if len(buckets) == 0 {
			fmt.Fprintln(out, "  No records in the last days.")
			return nil
		}
		printTimeline(out, buckets, definitions())
		return nil
	},
}

var chartCmd = &cobra.Command{
	Use:   "chart <category>",
	Short: "Plot one category over time",
	Long: `Print one point per record of a category, oldest first, with a bar for
the first field. Use --name to pick one lab marker.

EXAMPLES:

  healthlog chart weight
  healthlog chart vital --json
  healthlog chart lab --name HbA1c`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := parseCategoryArg(args[0])
		if err != nil {
			return err
		}
		series, err := svc.Series(cmd.Context(), cat, chartName)
		if err != nil {
			return explain(err)
		}
		out := cmd.OutOrStdout()
		if viewJSON {
			return writeJSON(out, series)
		}
		printSeries(out, series)
		return nil
	},
}

func printTimeline(w io.Writer, buckets []aggregate.Bucket, defs *models.Snapshot) {
	bold := color.New(color.Bold)
	for i, b := range buckets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		bold.Fprintln(w, b.Date.String())
		for _, e := range b.Entries {
			when := "     "
			if !e.Category.DateOnly() {
				when = e.Time.Format("15:04")
			}
			fmt.Fprintf(w, "  %s %s %s\n", faint(when), padRight(string(e.Category), 10), aggregate.FormatRecord(e.Record, defs))
		}
	}
}

func printRollup(w io.Writer, r aggregate.DayRollup) {
	color.New(color.Bold).Fprintln(w, r.Date.String())

	n := r.Nutrition
	fmt.Fprintf(w, "  %s %d kcal  P %sg  C %sg  F %sg\n", padRight("Nutrition", 10), n.Calories, num(n.Protein), num(n.Carbs), num(n.Fat))
	fmt.Fprintf(w, "  %s %s\n", padRight("Steps", 10), optInt(r.Steps))
	weight := "-"
	if r.Weight != nil {
		weight = num(*r.Weight) + " kg"
	}
	fmt.Fprintf(w, "  %s %s\n", padRight("Weight", 10), weight)
	sleep := "-"
	if r.Sleep != nil {
		sleep = num(r.Sleep.DurationHours) + " h"
		if r.Sleep.Quality != nil {
			sleep += fmt.Sprintf(" (quality %d/10)", *r.Sleep.Quality)
		}
	}
	fmt.Fprintf(w, "  %s %s\n", padRight("Sleep", 10), sleep)
	fmt.Fprintf(w, "  %s %d ml\n", padRight("Water", 10), r.Water)

	var lines []string
	add := func(rec models.Record, defs *models.Snapshot) {
		lines = append(lines, fmt.Sprintf("%s %s", faint(rec.Timestamp().Format("15:04")), aggregate.FormatRecord(rec, defs)))
	}
	for _, v := range r.Weights {
		add(v, nil)
	}
	for _, v := range r.Vitals {
		add(v, nil)
	}
	for _, v := range r.LabValues {
		add(v, nil)
	}
	for _, v := range r.Foods {
		add(v, nil)
	}
	for _, v := range r.Activities {
		add(v, nil)
	}
	for _, d := range r.Meds {
		med := &models.Medication{ID: d.MedicationID, Name: d.Name, Unit: d.Unit}
		add(d.MedicationEntry, &models.Snapshot{Medications: []*models.Medication{med}})
	}
	for _, v := range r.Moods {
		add(v, nil)
	}
	if len(lines) > 0 {
		fmt.Fprintln(w)
		for _, l := range lines {
			fmt.Fprintln(w, "  "+l)
		}
	}
}

func printWindow(w io.Writer, window []aggregate.TrendDay) {
	fmt.Fprintln(w, faint(fmt.Sprintf("  %-10s %8s %8s %6s %6s %6s %6s %6s", "DATE", "STEPS", "WEIGHT", "SLEEP", "KCAL", "P", "C", "F")))
	for _, d := range window {
		n := d.Nutrition
		fmt.Fprintf(w, "  %-10s %8s %8s %6s %6d %6s %6s %6s\n",
			d.Date, optInt(d.Steps), optFloat(d.Weight), optFloat(d.SleepHours),
			n.Calories, num(n.Protein), num(n.Carbs), num(n.Fat))
	}
}

const barWidth = 40

func printSeries(w io.Writer, s aggregate.Series) {
	if len(s.Points) == 0 {
		fmt.Fprintf(w, "No %s data to chart.\n", s.Category)
		return
	}
	fmt.Fprintln(w, faint(fmt.Sprintf("%-16s %s", "DATE", strings.ToUpper(strings.Join(s.Fields, "  ")))))

	top := 0.0
	for _, p := range s.Points {
		if len(p.Values) > 0 && p.Values[0] != nil {
			top = math.Max(top, *p.Values[0])
		}
	}
	for _, p := range s.Points {
		vals := make([]string, len(p.Values))
		for i, v := range p.Values {
			vals[i] = optFloat(v)
		}
		bar := ""
		if top > 0 && len(p.Values) > 0 && p.Values[0] != nil {
			bar = strings.Repeat("█", int(math.Round(*p.Values[0]/top*barWidth)))
		}
		fmt.Fprintf(w, "%-16s %s  %s\n", p.Date, strings.Join(vals, "  "), color.GreenString(bar))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return num(*v)
}

func init() {
	for _, c := range []*cobra.Command{timelineCmd, dayCmd, recentCmd, dashboardCmd, chartCmd} {
		c.Flags().BoolVar(&viewJSON, "json", false, "print JSON")
		rootCmd.AddCommand(c)
	}

	timelineCmd.Flags().StringVar(&timelineFrom, "from", "", "first day (YYYY-MM-DD)")
	timelineCmd.Flags().StringVar(&timelineTo, "to", "", "last day (YYYY-MM-DD)")
	timelineCmd.Flags().StringVar(&timelineSort, "sort", "desc", "day order: asc or desc")

	recentCmd.Flags().IntVarP(&recentDays, "days", "d", 0, "window size (default from config, 3)")

	chartCmd.Flags().StringVar(&chartName, "name", "", "lab marker name (lab only)")
}
