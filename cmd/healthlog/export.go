// ABOUTME: CLI commands for exporting and importing health data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/report"
	"github.com/harperreed/healthlog/internal/storage"
)

var (
	exportOutput string
	exportSince  string
	importFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export health data",
	Long: `Export health data in various formats.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export (human-readable, also importable)
  markdown   The report as Markdown tables (for sharing)

OPTIONS:

  --output, -o   Write to file instead of stdout
  --since        Only include data since this date (markdown only)

EXAMPLES:

  healthlog export json                        # Export all data as JSON
  healthlog export json -o backup.json         # Save to file
  healthlog export yaml                        # Export as YAML
  healthlog export markdown --since 2024-01-01 # Report from 2024 onward`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := args[0]

		var data []byte
		var err error

		switch format {
		case "json":
			data, err = storage.ExportJSON(repo)
		case "yaml":
			data, err = storage.ExportYAML(repo)
		case "markdown", "md":
			data, err = exportMarkdown(cmd)
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", format)
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.New(color.FgGreen).Fprintf(out, "✓ Exported to %s\n", exportOutput)
			return nil
		}
		_, err = out.Write(data)
		return err
	},
}

func exportMarkdown(cmd *cobra.Command) ([]byte, error) {
	filter, err := storage.ParseRange(exportSince, "")
	if err != nil {
		return nil, err
	}
	rep, err := svc.Report(cmd.Context(), filter)
	if err != nil {
		return nil, explain(err)
	}
	var buf bytes.Buffer
	if err := report.WriteMarkdown(&buf, rep, report.Options{GeneratedAt: now()}); err != nil {
		return nil, err
	}
	warnLossy(cmd, rep)
	return buf.Bytes(), nil
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import health data from a JSON or YAML export",
	Long: `Import health data from a previously exported file.

Definitions are imported before records so medication entries resolve.
Records with IDs that already exist cause an error. Files ending in .yaml
or .yml are read as YAML, everything else as JSON.

EXAMPLES:

  healthlog import backup.json
  healthlog import backup.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		format := importFormat
		if format == "" {
			format = "json"
			switch strings.ToLower(filepath.Ext(filename)) {
			case ".yaml", ".yml":
				format = "yaml"
			}
		}

		var n int
		switch format {
		case "json":
			n, err = storage.ImportJSON(repo, data)
		case "yaml":
			n, err = storage.ImportYAML(repo, data)
		default:
			return fmt.Errorf("unknown format: %s (use json or yaml)", format)
		}
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Imported %d items from %s\n", n, filename)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only include data since date (YYYY-MM-DD)")
	importCmd.Flags().StringVar(&importFormat, "format", "", "json or yaml (default: from file extension)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
