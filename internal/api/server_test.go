// ABOUTME: Tests for the HTTP API against a real SQLite store.
// ABOUTME: Uses httptest with a fixed clock; a failing source covers the 503 path.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/models"
	"github.com/harperreed/healthlog/internal/problem"
	"github.com/harperreed/healthlog/internal/storage"
)

var fixedNow = time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func setupServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "healthlog.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := aggregate.NewService(db, aggregate.WithClock(clock))
	return NewServer(db, svc, WithClock(clock)), db
}

func seed(t *testing.T, db *storage.DB) {
	t.Helper()

	w := models.NewWeightEntry(81.2)
	w.RecordedAt = time.Date(2024, 5, 2, 7, 30, 0, 0, time.UTC)
	f := models.NewFoodEntry("Oatmeal")
	f.RecordedAt = time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	cal := 350
	f.Calories = &cal
	records := []models.Record{
		w, f,
		models.NewSteps(models.NewDay(2024, 5, 1), 8000),
		models.NewWaterEntry(models.NewDay(2024, 5, 2), 500),
		models.NewWaterEntry(models.NewDay(2024, 5, 2), 250),
	}
	for _, r := range records {
		if err := db.CreateRecord(r); err != nil {
			t.Fatalf("CreateRecord failed: %v", err)
		}
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)
	rec := do(t, srv.Routes(), "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestTimeline(t *testing.T) {
	srv, db := setupServer(t)
	seed(t, db)
	h := srv.Routes()

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantDates []string
	}{
		{"default desc", "/api/timeline", http.StatusOK, []string{"2024-05-02", "2024-05-01"}},
		{"asc", "/api/timeline?sort=asc", http.StatusOK, []string{"2024-05-01", "2024-05-02"}},
		{"bounded", "/api/timeline?from=2024-05-02&to=2024-05-02", http.StatusOK, []string{"2024-05-02"}},
		{"bad sort", "/api/timeline?sort=sideways", http.StatusUnprocessableEntity, nil},
		{"inverted range", "/api/timeline?from=2024-05-03&to=2024-05-01", http.StatusUnprocessableEntity, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "GET", tt.path, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantDates == nil {
				if ct := rec.Header().Get("Content-Type"); ct != problem.ContentType {
					t.Errorf("Content-Type = %q, want problem+json", ct)
				}
				return
			}
			var buckets []struct {
				Date    string            `json:"date"`
				Entries []json.RawMessage `json:"entries"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&buckets); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(buckets) != len(tt.wantDates) {
				t.Fatalf("got %d buckets, want %d", len(buckets), len(tt.wantDates))
			}
			for i, want := range tt.wantDates {
				if buckets[i].Date != want {
					t.Errorf("bucket %d date = %s, want %s", i, buckets[i].Date, want)
				}
			}
		})
	}
}

func TestDaySummary(t *testing.T) {
	srv, db := setupServer(t)
	seed(t, db)
	h := srv.Routes()

	rec := do(t, h, "GET", "/api/days/today", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Date      string `json:"date"`
		Nutrition struct {
			Calories int `json:"calories"`
		} `json:"nutrition_summary"`
		Steps  *int     `json:"steps"`
		Weight *float64 `json:"weight"`
		Water  int      `json:"water"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Date != "2024-05-02" {
		t.Errorf("date = %s", got.Date)
	}
	if got.Nutrition.Calories != 350 || got.Water != 750 {
		t.Errorf("unexpected totals: %+v", got)
	}
	if got.Steps != nil {
		t.Errorf("steps should be null on a day without a steps record, got %d", *got.Steps)
	}
	if got.Weight == nil || *got.Weight != 81.2 {
		t.Errorf("weight = %v", got.Weight)
	}

	if rec := do(t, h, "GET", "/api/days/yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", rec.Code)
	}
}

func TestRecent(t *testing.T) {
	srv, db := setupServer(t)
	seed(t, db)
	h := srv.Routes()

	rec := do(t, h, "GET", "/api/recent", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var days []struct {
		Date  string `json:"date"`
		Steps *int   `json:"steps"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&days); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("got %d days, want 3", len(days))
	}
	if days[0].Date != "2024-05-02" || days[2].Date != "2024-04-30" {
		t.Errorf("unexpected window: %+v", days)
	}
	if days[1].Steps == nil || *days[1].Steps != 8000 {
		t.Errorf("expected 8000 steps on 2024-05-01")
	}

	for _, bad := range []string{"0", "abc", "400"} {
		if rec := do(t, h, "GET", "/api/recent?days="+bad, ""); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("days=%s status = %d", bad, rec.Code)
		}
	}
}

func TestCharts(t *testing.T) {
	srv, db := setupServer(t)
	seed(t, db)
	h := srv.Routes()

	rec := do(t, h, "GET", "/api/charts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var charts map[string]aggregate.Series
	if err := json.NewDecoder(rec.Body).Decode(&charts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, cat := range []string{"weight", "steps", "vital"} {
		if _, ok := charts[cat]; !ok {
			t.Errorf("missing %s chart", cat)
		}
	}
	if len(charts["weight"].Points) != 1 {
		t.Errorf("weight points = %d", len(charts["weight"].Points))
	}

	if rec := do(t, h, "GET", "/api/charts/water", ""); rec.Code != http.StatusOK {
		t.Errorf("water chart status = %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/charts/medication", ""); rec.Code != http.StatusNotFound {
		t.Errorf("medication chart status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/charts/bogus", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown category status = %d, want 404", rec.Code)
	}
}

func TestReport(t *testing.T) {
	srv, db := setupServer(t)
	seed(t, db)
	h := srv.Routes()

	rec := do(t, h, "GET", "/api/report", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rep aggregate.Report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rep.Days) != 2 || rep.Days[0].Date.String() != "2024-05-02" {
		t.Errorf("unexpected report days: %+v", rep.Days)
	}

	rec = do(t, h, "GET", "/api/report?format=markdown", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "## 2024-05-02") {
		t.Errorf("markdown report: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, "GET", "/api/report.pdf", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}

	if rec := do(t, h, "GET", "/api/report?format=pdf", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("format=pdf status = %d", rec.Code)
	}
}

func TestRecordLifecycle(t *testing.T) {
	srv, db := setupServer(t)
	h := srv.Routes()

	rec := do(t, h, "POST", "/api/records/steps", `{"date":"2024-05-02","count":1200}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Steps
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Second post for the same day replaces the count and keeps the ID.
	rec = do(t, h, "POST", "/api/records/steps", `{"date":"2024-05-02","count":5400}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upsert status = %d", rec.Code)
	}
	var replaced models.Steps
	if err := json.NewDecoder(rec.Body).Decode(&replaced); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if replaced.ID != created.ID || replaced.Count != 5400 {
		t.Errorf("expected replace in place, got %+v", replaced)
	}

	rec = do(t, h, "POST", "/api/records/mood", `{"mood":7}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("mood status = %d: %s", rec.Code, rec.Body.String())
	}
	var mood models.MoodEntry
	if err := json.NewDecoder(rec.Body).Decode(&mood); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !mood.RecordedAt.Equal(fixedNow) {
		t.Errorf("missing time should default to now, got %v", mood.RecordedAt)
	}

	rec = do(t, h, "GET", "/api/records/steps", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "5400") {
		t.Errorf("list: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, "DELETE", "/api/records/steps/"+created.ID.String()[:8], "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, err := db.GetRecord(models.CategorySteps, created.ID.String()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected record to be gone, got %v", err)
	}
	if rec := do(t, h, "DELETE", "/api/records/steps/"+created.ID.String(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestCreateRecordErrors(t *testing.T) {
	srv, _ := setupServer(t)
	h := srv.Routes()

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown category", "/api/records/profile", `{}`, http.StatusNotFound},
		{"bad json", "/api/records/weight", `{"weight":`, http.StatusBadRequest},
		{"invalid value", "/api/records/mood", `{"mood":11}`, http.StatusUnprocessableEntity},
		{"unknown medication", "/api/records/medication", `{"medication_id":"` + "8f14e45f-ceea-467f-a0e6-2a1b2c3d4e5f" + `","amount":"1"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "POST", tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateRecordIgnoresSuppliedID(t *testing.T) {
	srv, db := setupServer(t)
	h := srv.Routes()

	w := models.NewWeightEntry(80)
	w.RecordedAt = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	if err := db.CreateRecord(w); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	body := `{"id":"` + w.ID.String() + `","recorded_at":"2024-05-02T09:00:00Z","weight":55}`
	rec := do(t, h, "POST", "/api/records/weight", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created models.WeightEntry
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == w.ID {
		t.Error("Expected the store to assign a new ID")
	}

	got, err := db.GetRecord(models.CategoryWeight, w.ID.String())
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if gw := got.(*models.WeightEntry); gw.Weight != 80 {
		t.Errorf("Original weight changed to %v", gw.Weight)
	}
}

func TestDuplicateIDIsConflict(t *testing.T) {
	srv, _ := setupServer(t)

	rec := httptest.NewRecorder()
	srv.fail(rec, fmt.Errorf("create weight: %w", storage.ErrDuplicateID), "create record")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestProfile(t *testing.T) {
	srv, db := setupServer(t)
	h := srv.Routes()

	if rec := do(t, h, "GET", "/api/profile", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET before save status = %d", rec.Code)
	}

	rec := do(t, h, "PUT", "/api/profile", `{"height_cm":182,"birthdate":"1985-04-12"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, "GET", "/api/profile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var p models.Profile
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.HeightCm == nil || *p.HeightCm != 182 {
		t.Errorf("height_cm = %v, want 182", p.HeightCm)
	}
	if p.Birthdate == nil || *p.Birthdate != models.NewDay(1985, 4, 12) {
		t.Errorf("birthdate = %v", p.Birthdate)
	}
	if !p.UpdatedAt.Equal(fixedNow) {
		t.Errorf("updated_at = %v, want %v", p.UpdatedAt, fixedNow)
	}

	if rec := do(t, h, "PUT", "/api/profile", `{"height_cm":-5}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid PUT status = %d, want 422", rec.Code)
	}
	if rec := do(t, h, "PUT", "/api/profile", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed PUT status = %d, want 400", rec.Code)
	}
	if _, err := db.GetProfile(); err != nil {
		t.Errorf("Expected saved profile to survive rejected PUTs: %v", err)
	}
}

func TestExport(t *testing.T) {
	srv, db := setupServer(t)
	seed(t, db)
	h := srv.Routes()

	rec := do(t, h, "GET", "/api/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var data storage.ExportData
	if err := json.NewDecoder(rec.Body).Decode(&data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Count() != 5 {
		t.Errorf("exported %d items, want 5", data.Count())
	}

	rec = do(t, h, "GET", "/api/export?format=yaml", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "version:") {
		t.Errorf("yaml export: %d", rec.Code)
	}
}

type failingSource struct{}

func (failingSource) Snapshot(storage.RecordFilter) (*models.Snapshot, error) {
	return nil, errors.New("disk on fire")
}

func TestStoreUnavailable(t *testing.T) {
	_, db := setupServer(t)
	srv := NewServer(db, aggregate.NewService(failingSource{}))
	h := srv.Routes()

	for _, path := range []string{"/api/timeline", "/api/days/2024-05-02", "/api/recent", "/api/charts", "/api/report", "/api/report.pdf"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, h, "GET", path, "")
			if rec.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", rec.Code)
			}
			if strings.Contains(rec.Body.String(), "disk on fire") {
				t.Error("store error details should not leak to clients")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupServer(t)
	h := srv.Routes()

	do(t, h, "GET", "/health", "")
	rec := do(t, h, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `healthlog_api_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("request counter missing:\n%s", rec.Body.String())
	}
}
