// ABOUTME: HTTP handlers for timeline, rollup, window, chart, report, export, profile and record routes.
// ABOUTME: Query parsing failures are 400/422; store failures map to 503 problem responses.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/models"
	"github.com/harperreed/healthlog/internal/problem"
	"github.com/harperreed/healthlog/internal/report"
	"github.com/harperreed/healthlog/internal/storage"
)

const maxBodyBytes = 1 << 20

// timeline handles GET /api/timeline?sort=asc|desc&from=&to=
func (s *Server) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dir, err := aggregate.ParseSortDirection(q.Get("sort"))
	if err != nil {
		problem.ValidationError("Invalid query parameters", []problem.FieldError{{Field: "sort", Message: err.Error()}}).Write(w)
		return
	}
	filter, ok := parseRange(w, r)
	if !ok {
		return
	}

	buckets, err := s.svc.Timeline(r.Context(), filter, dir)
	if err != nil {
		s.fail(w, err, "build timeline")
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// day handles GET /api/days/{date}; "today" uses the service clock.
func (s *Server) day(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	day := s.svc.Today()
	if raw != "today" {
		d, err := models.ParseDay(raw)
		if err != nil {
			problem.BadRequest(err.Error()).Write(w)
			return
		}
		day = d
	}

	rollup, err := s.svc.Day(r.Context(), day)
	if err != nil {
		s.fail(w, err, "summarize day")
		return
	}
	writeJSON(w, http.StatusOK, rollup)
}

// recent handles GET /api/recent?days=N
func (s *Server) recent(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 366 {
			problem.ValidationError("Invalid query parameters", []problem.FieldError{{Field: "days", Message: "must be an integer between 1 and 366"}}).Write(w)
			return
		}
		n = v
	}

	window, err := s.svc.Recent(r.Context(), n)
	if err != nil {
		s.fail(w, err, "build recent window")
		return
	}
	writeJSON(w, http.StatusOK, window)
}

// charts handles GET /api/charts
func (s *Server) charts(w http.ResponseWriter, r *http.Request) {
	charts, err := s.svc.Charts(r.Context())
	if err != nil {
		s.fail(w, err, "build charts")
		return
	}
	writeJSON(w, http.StatusOK, charts)
}

// chart handles GET /api/charts/{category}?name= (name filters lab markers)
func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	cat, ok := parseCategory(w, r)
	if !ok {
		return
	}
	series, err := s.svc.Series(r.Context(), cat, r.URL.Query().Get("name"))
	if err != nil {
		s.fail(w, err, "build chart series")
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// report handles GET /api/report?format=json|text|markdown&from=&to=
func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseRange(w, r)
	if !ok {
		return
	}
	rep, err := s.svc.Report(r.Context(), filter)
	if err != nil {
		s.fail(w, err, "build report")
		return
	}
	if rep.Lossy() {
		w.Header().Set("X-Report-Substitutions", strconv.Itoa(rep.Substitutions))
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	f, err := report.ParseFormat(format)
	if err != nil || f == report.FormatPDF {
		problem.ValidationError("Invalid query parameters", []problem.FieldError{{Field: "format", Message: "must be one of: json text markdown"}}).Write(w)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, f, rep, report.Options{GeneratedAt: s.now()}); err != nil {
		s.fail(w, err, "render report")
		return
	}
	contentType := "text/plain; charset=utf-8"
	if f == report.FormatMarkdown {
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(buf.Bytes())
}

// reportPDF handles GET /api/report.pdf
func (s *Server) reportPDF(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseRange(w, r)
	if !ok {
		return
	}
	rep, err := s.svc.Report(r.Context(), filter)
	if err != nil {
		s.fail(w, err, "build report")
		return
	}

	var buf bytes.Buffer
	if err := report.WritePDF(&buf, rep, report.Options{GeneratedAt: s.now()}); err != nil {
		s.fail(w, err, "render pdf")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
	_, _ = w.Write(buf.Bytes())
}

// export handles GET /api/export?format=json|yaml
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var (
		data        []byte
		err         error
		contentType string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		data, err = storage.ExportJSON(s.repo)
		contentType = "application/json"
	case "yaml":
		data, err = storage.ExportYAML(s.repo)
		contentType = "application/yaml"
	default:
		problem.ValidationError("Invalid query parameters", []problem.FieldError{{Field: "format", Message: "must be one of: json yaml"}}).Write(w)
		return
	}
	if err != nil {
		s.fail(w, fmt.Errorf("%w: %w", aggregate.ErrUnavailable, err), "export")
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

// listRecords handles GET /api/records/{category}?from=&to=&limit=&sort=
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	cat, ok := parseCategory(w, r)
	if !ok {
		return
	}
	filter, ok := parseRange(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			problem.ValidationError("Invalid query parameters", []problem.FieldError{{Field: "limit", Message: "must be a non-negative integer"}}).Write(w)
			return
		}
		filter.Limit = n
	}
	dir, err := aggregate.ParseSortDirection(q.Get("sort"))
	if err != nil {
		problem.ValidationError("Invalid query parameters", []problem.FieldError{{Field: "sort", Message: err.Error()}}).Write(w)
		return
	}
	filter.Descending = dir == aggregate.Descending

	records, err := s.repo.ListRecords(cat, filter)
	if err != nil {
		s.fail(w, fmt.Errorf("%w: %w", aggregate.ErrUnavailable, err), "list records")
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// createRecord handles POST /api/records/{category}. The body is the
// record's JSON form; id and created_at are assigned by the store, and a
// missing time defaults to now.
func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	cat, ok := parseCategory(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		problem.BadRequest("Request body too large or unreadable").Write(w)
		return
	}
	rec, err := models.DecodeNewRecord(cat, body)
	if err != nil {
		problem.BadRequest("Invalid JSON body").Write(w)
		return
	}
	models.FillTime(rec, s.now())

	if err := s.repo.CreateRecord(rec); err != nil {
		s.fail(w, err, "create record")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// getProfile handles GET /api/profile.
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.repo.GetProfile()
	if err != nil {
		s.fail(w, err, "read profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// putProfile handles PUT /api/profile, replacing the whole profile.
func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		problem.BadRequest("Invalid JSON body").Write(w)
		return
	}
	p.UpdatedAt = s.now()
	if err := s.repo.SaveProfile(&p); err != nil {
		s.fail(w, err, "save profile")
		return
	}
	writeJSON(w, http.StatusOK, &p)
}

// deleteRecord handles DELETE /api/records/{category}/{id}; id may be a prefix.
func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	cat, ok := parseCategory(w, r)
	if !ok {
		return
	}
	if err := s.repo.DeleteRecord(cat, chi.URLParam(r, "id")); err != nil {
		s.fail(w, err, "delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseCategory(w http.ResponseWriter, r *http.Request) (models.Category, bool) {
	cat, err := models.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		problem.NotFound(err.Error()).Write(w)
		return "", false
	}
	return cat, true
}

func parseRange(w http.ResponseWriter, r *http.Request) (storage.RecordFilter, bool) {
	q := r.URL.Query()
	filter, err := storage.ParseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		problem.ValidationError("Invalid query parameters", []problem.FieldError{{Field: "range", Message: err.Error()}}).Write(w)
		return filter, false
	}
	return filter, true
}

// fail maps domain errors onto problem responses.
func (s *Server) fail(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, context.Canceled):
		s.logger.Debug("request cancelled", "action", action)
		problem.New(499, "client-closed", "Client Closed Request", "").Write(w)
	case errors.Is(err, aggregate.ErrUnavailable), errors.Is(err, storage.ErrReadOnly):
		s.logger.Error("store unavailable", "action", action, "err", err)
		problem.Unavailable("The record store could not be read").Write(w)
	case errors.Is(err, aggregate.ErrNoSeries):
		problem.NotFound(err.Error()).Write(w)
	case errors.Is(err, storage.ErrNotFound):
		problem.NotFound("Record not found").Write(w)
	case errors.Is(err, storage.ErrAmbiguousID),
		errors.Is(err, storage.ErrDayTaken),
		errors.Is(err, storage.ErrDuplicateName),
		errors.Is(err, storage.ErrDuplicateID),
		errors.Is(err, storage.ErrMedicationInUse):
		problem.Conflict(err.Error()).Write(w)
	case errors.Is(err, models.ErrInvalidRecord), errors.Is(err, storage.ErrUnknownMedication):
		problem.ValidationError(err.Error(), nil).Write(w)
	default:
		s.logger.Error("request failed", "action", action, "err", err)
		problem.InternalError("Failed to " + action).Write(w)
	}
}
