// ABOUTME: CLI command for starting the HTTP JSON API.
// ABOUTME: Serves timeline, day, recent, chart, report and record endpoints plus Prometheus metrics.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/api"
	"github.com/harperreed/healthlog/internal/metrics"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP JSON API for dashboards and charts.

ENDPOINTS:

  GET    /health                          Liveness
  GET    /api/timeline?sort=&from=&to=    Records grouped by day
  GET    /api/days/{date|today}           Day summary
  GET    /api/recent?days=                Recent window, newest first
  GET    /api/charts                      Weight, steps and vitals series
  GET    /api/charts/{category}?name=     One series
  GET    /api/report?format=              Report as json, text or markdown
  GET    /api/report.pdf                  Report as PDF
  GET    /api/export?format=              Full export, json or yaml
  GET    /api/records/{category}          List records
  POST   /api/records/{category}          Create a record
  DELETE /api/records/{category}/{id}     Delete a record
  GET    /metrics                         Prometheus metrics

Errors are application/problem+json. Listens on 127.0.0.1:8080 unless
--addr, listen_addr in the config or HEALTHLOG_LISTEN_ADDR say otherwise.`,
	Annotations: map[string]string{skipStore: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore(cmd, "info"); err != nil {
			return err
		}
		opts, err := cfg.RollupOptions()
		if err != nil {
			return err
		}

		collector := metrics.NewCollector("healthlog")
		svc = aggregate.NewService(repo, append(serviceOptions(opts), aggregate.WithRecorder(collector))...)
		server := api.NewServer(repo, svc,
			api.WithLogger(logger),
			api.WithMetrics(collector),
			api.WithClock(now),
		)

		addr := serveAddr
		if addr == "" {
			addr = cfg.GetListenAddr()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (host:port)")
	rootCmd.AddCommand(serveCmd)
}
