// ABOUTME: MCP tool implementations for health records and aggregations.
// ABOUTME: Provides record CRUD plus timeline, day summary, recent window, charts and report.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/models"
	"github.com/harperreed/healthlog/internal/report"
	"github.com/harperreed/healthlog/internal/storage"
)

func (s *Server) registerTools() {
	// add_record
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_record",
		Description: "Record a health entry (lab, vital, weight, steps, food, activity, medication, mood, sleep, water)",
	}, s.handleAddRecord)

	// list_records
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_records",
		Description: "List records of one category, newest first, optionally bounded by date",
	}, s.handleListRecords)

	// delete_record
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_record",
		Description: "Delete a record by category and ID or ID prefix",
	}, s.handleDeleteRecord)

	// define_medication
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "define_medication",
		Description: "Define a medication so intakes can be logged against it",
	}, s.handleDefineMedication)

	// list_medications
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_medications",
		Description: "List medication definitions",
	}, s.handleListMedications)

	// get_timeline
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_timeline",
		Description: "Get all records grouped by day across every category",
	}, s.handleGetTimeline)

	// get_day_summary
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_day_summary",
		Description: "Get nutrition totals, steps, weight, sleep, water and entries for one day",
	}, s.handleGetDaySummary)

	// get_recent
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_recent",
		Description: "Get steps, weight, sleep and macros for the last N days, newest first",
	}, s.handleGetRecent)

	// get_chart_series
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_chart_series",
		Description: "Get plottable points for one category in ascending date order",
	}, s.handleGetChartSeries)

	// get_report
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_report",
		Description: "Get the date-grouped health report as text or Markdown",
	}, s.handleGetReport)
}

// Tool input/output types

type addRecordInput struct {
	Category   string         `json:"category" jsonschema:"Record category: lab, vital, weight, steps, food, activity, medication, mood, sleep or water"`
	Data       map[string]any `json:"data" jsonschema:"Record fields, e.g. {\"weight\": 81.5} or {\"count\": 9000} or {\"description\": \"Oatmeal\", \"calories\": 350}"`
	RecordedAt string         `json:"recorded_at,omitempty" jsonschema:"Timestamp (ISO 8601 or YYYY-MM-DD HH:MM); defaults to now. Steps, sleep and water use its date"`
	Medication string         `json:"medication,omitempty" jsonschema:"Medication name or ID prefix, for medication records"`
}

type recordOutput struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Message  string `json:"message"`
}

type listRecordsInput struct {
	Category string `json:"category" jsonschema:"Record category"`
	From     string `json:"from,omitempty" jsonschema:"First day to include (YYYY-MM-DD)"`
	To       string `json:"to,omitempty" jsonschema:"Last day to include (YYYY-MM-DD)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type deleteRecordInput struct {
	Category string `json:"category" jsonschema:"Record category"`
	ID       string `json:"id" jsonschema:"Record ID or prefix"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

type defineMedicationInput struct {
	Name        string `json:"name" jsonschema:"Medication name"`
	Unit        string `json:"unit,omitempty" jsonschema:"Dose unit, e.g. mg"`
	CommonDoses string `json:"common_dose,omitempty" jsonschema:"Usual dose, e.g. 400"`
}

type timelineInput struct {
	From string `json:"from,omitempty" jsonschema:"First day to include (YYYY-MM-DD)"`
	To   string `json:"to,omitempty" jsonschema:"Last day to include (YYYY-MM-DD)"`
	Sort string `json:"sort,omitempty" jsonschema:"asc or desc (default desc)"`
}

type daySummaryInput struct {
	Date string `json:"date,omitempty" jsonschema:"Day to summarize (YYYY-MM-DD), defaults to today"`
}

type recentInput struct {
	Days int `json:"days,omitempty" jsonschema:"Window size in days (default 3)"`
}

type chartSeriesInput struct {
	Category string `json:"category" jsonschema:"Record category to chart"`
	Name     string `json:"name,omitempty" jsonschema:"Lab marker name, restricts a lab series to one marker"`
}

type reportInput struct {
	From   string `json:"from,omitempty" jsonschema:"First day to include (YYYY-MM-DD)"`
	To     string `json:"to,omitempty" jsonschema:"Last day to include (YYYY-MM-DD)"`
	Format string `json:"format,omitempty" jsonschema:"text or markdown (default markdown)"`
}

type reportOutput struct {
	Report        string `json:"report"`
	Days          int    `json:"days"`
	Lines         int    `json:"lines"`
	Substitutions int    `json:"substitutions"`
}

// Tool handlers

func (s *Server) handleAddRecord(ctx context.Context, req *mcp.CallToolRequest, input addRecordInput) (*mcp.CallToolResult, recordOutput, error) {
	cat, err := models.ParseCategory(input.Category)
	if err != nil {
		return nil, recordOutput{}, err
	}

	data := make(map[string]any, len(input.Data)+2)
	for k, v := range input.Data {
		data[k] = v
	}
	if input.RecordedAt != "" {
		t, err := parseTimestamp(input.RecordedAt)
		if err != nil {
			return nil, recordOutput{}, err
		}
		if cat.DateOnly() {
			data["date"] = models.DayOf(t).String()
		} else {
			data["recorded_at"] = t
		}
	}
	if input.Medication != "" {
		med, err := s.repo.GetMedication(input.Medication)
		if err != nil {
			return nil, recordOutput{}, fmt.Errorf("medication %q: %w", input.Medication, err)
		}
		data["medication_id"] = med.ID.String()
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, recordOutput{}, fmt.Errorf("encode record: %w", err)
	}
	rec, err := models.DecodeNewRecord(cat, raw)
	if err != nil {
		return nil, recordOutput{}, err
	}
	models.FillTime(rec, time.Now())

	if err := s.repo.CreateRecord(rec); err != nil {
		return nil, recordOutput{}, fmt.Errorf("failed to create %s: %w", cat, err)
	}

	id := rec.Meta().ID.String()[:8]
	return nil, recordOutput{
		ID:       id,
		Category: string(cat),
		Date:     rec.DayKey().String(),
		Message:  fmt.Sprintf("Added %s (ID: %s): %s", cat, id, aggregate.FormatRecord(rec, nil)),
	}, nil
}

func (s *Server) handleListRecords(ctx context.Context, req *mcp.CallToolRequest, input listRecordsInput) (*mcp.CallToolResult, any, error) {
	cat, err := models.ParseCategory(input.Category)
	if err != nil {
		return nil, nil, err
	}
	filter, err := storage.ParseRange(input.From, input.To)
	if err != nil {
		return nil, nil, err
	}
	if input.Limit <= 0 {
		input.Limit = 20
	}
	filter.Limit = input.Limit
	filter.Descending = true

	records, err := s.repo.ListRecords(cat, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list %s: %w", cat, err)
	}

	if len(records) == 0 {
		return nil, map[string]any{"message": fmt.Sprintf("No %s records found.", cat)}, nil
	}

	return nil, map[string]any{"category": cat, "records": records}, nil
}

func (s *Server) handleDeleteRecord(ctx context.Context, req *mcp.CallToolRequest, input deleteRecordInput) (*mcp.CallToolResult, simpleOutput, error) {
	cat, err := models.ParseCategory(input.Category)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	if err := s.repo.DeleteRecord(cat, input.ID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete %s: %w", cat, err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Deleted %s: %s", cat, input.ID),
	}, nil
}

func (s *Server) handleDefineMedication(ctx context.Context, req *mcp.CallToolRequest, input defineMedicationInput) (*mcp.CallToolResult, simpleOutput, error) {
	m := models.NewMedication(input.Name, input.Unit, input.CommonDoses)
	if err := s.repo.CreateMedication(m); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to define medication: %w", err)
	}
	return nil, simpleOutput{
		Message: fmt.Sprintf("Defined medication %s (ID: %s)", m.Name, m.ID.String()[:8]),
	}, nil
}

func (s *Server) handleListMedications(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	meds, err := s.repo.ListMedications()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list medications: %w", err)
	}
	if len(meds) == 0 {
		return nil, map[string]any{"message": "No medications defined."}, nil
	}
	return nil, map[string]any{"medications": meds}, nil
}

func (s *Server) handleGetTimeline(ctx context.Context, req *mcp.CallToolRequest, input timelineInput) (*mcp.CallToolResult, any, error) {
	dir, err := aggregate.ParseSortDirection(input.Sort)
	if err != nil {
		return nil, nil, err
	}
	filter, err := storage.ParseRange(input.From, input.To)
	if err != nil {
		return nil, nil, err
	}

	buckets, err := s.svc.Timeline(ctx, filter, dir)
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"days": buckets}, nil
}

func (s *Server) handleGetDaySummary(ctx context.Context, req *mcp.CallToolRequest, input daySummaryInput) (*mcp.CallToolResult, any, error) {
	day := s.svc.Today()
	if input.Date != "" {
		d, err := models.ParseDay(input.Date)
		if err != nil {
			return nil, nil, err
		}
		day = d
	}

	rollup, err := s.svc.Day(ctx, day)
	if err != nil {
		return nil, nil, err
	}
	return nil, rollup, nil
}

func (s *Server) handleGetRecent(ctx context.Context, req *mcp.CallToolRequest, input recentInput) (*mcp.CallToolResult, any, error) {
	window, err := s.svc.Recent(ctx, input.Days)
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"days": window}, nil
}

func (s *Server) handleGetChartSeries(ctx context.Context, req *mcp.CallToolRequest, input chartSeriesInput) (*mcp.CallToolResult, any, error) {
	cat, err := models.ParseCategory(input.Category)
	if err != nil {
		return nil, nil, err
	}
	series, err := s.svc.Series(ctx, cat, input.Name)
	if err != nil {
		return nil, nil, err
	}
	return nil, series, nil
}

func (s *Server) handleGetReport(ctx context.Context, req *mcp.CallToolRequest, input reportInput) (*mcp.CallToolResult, reportOutput, error) {
	format := report.FormatMarkdown
	if input.Format != "" {
		f, err := report.ParseFormat(input.Format)
		if err != nil {
			return nil, reportOutput{}, err
		}
		if f == report.FormatPDF {
			return nil, reportOutput{}, fmt.Errorf("pdf reports are only available from the CLI and HTTP API")
		}
		format = f
	}
	filter, err := storage.ParseRange(input.From, input.To)
	if err != nil {
		return nil, reportOutput{}, err
	}

	rep, err := s.svc.Report(ctx, filter)
	if err != nil {
		return nil, reportOutput{}, err
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, format, rep, report.Options{GeneratedAt: time.Now()}); err != nil {
		return nil, reportOutput{}, err
	}

	return nil, reportOutput{
		Report:        buf.String(),
		Days:          len(rep.Days),
		Lines:         rep.LineCount(),
		Substitutions: rep.Substitutions,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q (use ISO 8601 or YYYY-MM-DD HH:MM)", s)
}
