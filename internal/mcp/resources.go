// ABOUTME: MCP resource implementations for health dashboards.
// ABOUTME: Provides health://today, health://recent, and health://report resources.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/healthlog/internal/report"
	"github.com/harperreed/healthlog/internal/storage"
)

func (s *Server) registerResources() {
	// health://today - Rollup for the current day
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://today",
		Name:        "Today's Health Summary",
		Description: "Nutrition totals, steps, weight, sleep, water and entries logged today",
		MIMEType:    "application/json",
	}, s.handleTodayResource)

	// health://recent - Trailing trend window
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://recent",
		Name:        "Recent Health Trend",
		Description: "Steps, weight, sleep and macros for the configured number of recent days",
		MIMEType:    "application/json",
	}, s.handleRecentResource)

	// health://report - Full report grouped by day
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://report",
		Name:        "Health Report",
		Description: "Every record rendered as text, grouped by day, newest first",
		MIMEType:    "text/markdown",
	}, s.handleReportResource)
}

// Resource handlers

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	rollup, err := s.svc.Day(ctx, s.svc.Today())
	if err != nil {
		return nil, fmt.Errorf("failed to summarize today: %w", err)
	}
	return jsonResource("health://today", rollup)
}

func (s *Server) handleRecentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	window, err := s.svc.Recent(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build recent window: %w", err)
	}
	result := map[string]any{
		"today": s.svc.Today(),
		"days":  window,
	}
	return jsonResource("health://recent", result)
}

func (s *Server) handleReportResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	rep, err := s.svc.Report(ctx, storage.RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}
	var buf bytes.Buffer
	if err := report.WriteMarkdown(&buf, rep, report.Options{GeneratedAt: time.Now()}); err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      "health://report",
			MIMEType: "text/markdown",
			Text:     buf.String(),
		}},
	}, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
