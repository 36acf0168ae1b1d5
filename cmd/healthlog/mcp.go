// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio-based MCP server exposing records and aggregations.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "healthlog": {
        "command": "healthlog",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  add_record          Record an entry in any category
  list_records        List records of one category
  delete_record       Delete a record by ID prefix
  define_medication   Define a medication
  list_medications    List medication definitions
  get_timeline        Records grouped by day
  get_day_summary     Nutrition, steps, weight, sleep and water for a day
  get_recent          The last N days, newest first
  get_chart_series    Plottable points for one category
  get_report          The report as text or Markdown

AVAILABLE RESOURCES:

  health://today      Today's summary
  health://recent     The recent window
  health://report     The full report as Markdown`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(repo, svc)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			select {
			case <-sigChan:
				cancel()
			case <-ctx.Done():
			}
		}()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
