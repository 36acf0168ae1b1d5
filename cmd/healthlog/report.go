// ABOUTME: CLI command rendering the date-grouped health report.
// ABOUTME: Writes text or Markdown to stdout or a file, and PDF to a file.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/report"
	"github.com/harperreed/healthlog/internal/storage"
)

var (
	reportFormat string
	reportOutput string
	reportPDF    string
	reportFrom   string
	reportTo     string
	reportTitle  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the health report",
	Long: `Render every record as a report grouped by day, newest day first.
Within a day, entries run by time; steps, sleep and water show 00:00.

Characters outside Latin-1 are replaced by "?" so the report can be
printed to PDF; the number of replacements is reported.

EXAMPLES:

  healthlog report                               # Text to stdout
  healthlog report --format markdown -o report.md
  healthlog report --pdf report.pdf
  healthlog report --from 2024-05-01 --to 2024-05-31 --pdf may.pdf`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(reportFormat)
		if err != nil {
			return err
		}
		output := reportOutput
		if reportPDF != "" {
			format, output = report.FormatPDF, reportPDF
		}
		if format == report.FormatPDF && output == "" {
			return fmt.Errorf("pdf output needs a file: use --pdf <file>")
		}

		filter, err := storage.ParseRange(reportFrom, reportTo)
		if err != nil {
			return err
		}
		rep, err := svc.Report(cmd.Context(), filter)
		if err != nil {
			return explain(err)
		}

		var buf bytes.Buffer
		opts := report.Options{Title: reportTitle, GeneratedAt: now()}
		if err := report.Render(&buf, format, rep, opts); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "" {
			_, err := buf.WriteTo(out)
			return err
		}
		if err := os.WriteFile(output, buf.Bytes(), 0600); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		color.New(color.FgGreen).Fprintf(out, "✓ Wrote %s report to %s\n", format, output)
		fmt.Fprintf(out, "  %d days, %d entries\n", len(rep.Days), rep.LineCount())
		warnLossy(cmd, rep)
		return nil
	},
}

func warnLossy(cmd *cobra.Command, rep aggregate.Report) {
	if rep.Lossy() {
		color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "⚠ %d characters could not be encoded and were replaced\n", rep.Substitutions)
	}
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "text or markdown")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "output file (default: stdout)")
	reportCmd.Flags().StringVar(&reportPDF, "pdf", "", "write a PDF report to this file")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "first day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "last day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTitle, "title", report.DefaultTitle, "report title")
	rootCmd.AddCommand(reportCmd)
}
