// ABOUTME: Tests for report rendering in text, Markdown and PDF.
// ABOUTME: Builds reports through the aggregate grouper so layouts match real data.
package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/healthlog/internal/aggregate"
	"github.com/harperreed/healthlog/internal/models"
)

func sampleReport(t *testing.T) aggregate.Report {
	t.Helper()
	snap := &models.Snapshot{}

	w := models.NewWeightEntry(80.5)
	w.RecordedAt = time.Date(2024, 5, 2, 8, 15, 0, 0, time.UTC)
	snap.Add(w)

	f := models.NewFoodEntry("Käsebrot | lunch")
	f.RecordedAt = time.Date(2024, 5, 2, 12, 30, 0, 0, time.UTC)
	snap.Add(f)

	snap.Add(models.NewSteps(models.NewDay(2024, 5, 1), 9000))

	return aggregate.GroupReport(snap)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"md", FormatMarkdown, false},
		{"Markdown", FormatMarkdown, false},
		{"pdf", FormatPDF, false},
		{"docx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport(t), Options{}); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, DefaultTitle) {
		t.Errorf("Expected title first, got %q", out)
	}
	newer := strings.Index(out, "2024-05-02")
	older := strings.Index(out, "2024-05-01")
	if newer < 0 || older < 0 || newer > older {
		t.Errorf("Expected newest day first:\n%s", out)
	}
	if !strings.Contains(out, "  [08:15] Weight: 80.5kg") {
		t.Errorf("Missing weight line:\n%s", out)
	}
	if !strings.Contains(out, "  [00:00] Steps: 9000") {
		t.Errorf("Missing steps line with placeholder time:\n%s", out)
	}
}

func TestWriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, aggregate.GroupReport(nil), Options{Title: "Empty"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Empty\n\nNo records.\n" {
		t.Errorf("Unexpected empty report: %q", buf.String())
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{GeneratedAt: time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)}
	if err := WriteMarkdown(&buf, sampleReport(t), opts); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Health Report",
		"Generated: 2024-05-03T09:00:00Z",
		"## 2024-05-02",
		"| 08:15 | weight | Weight: 80.5kg |",
		`Food: Käsebrot \| lunch`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown missing %q:\n%s", want, out)
		}
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{GeneratedAt: time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)}
	if err := WritePDF(&buf, sampleReport(t), opts); err != nil {
		t.Fatalf("WritePDF failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("Output is not a PDF")
	}
	if buf.Len() < 500 {
		t.Errorf("PDF suspiciously small: %d bytes", buf.Len())
	}
}

func TestRenderDispatch(t *testing.T) {
	rep := sampleReport(t)
	for _, f := range []Format{FormatText, FormatMarkdown, FormatPDF} {
		var buf bytes.Buffer
		if err := Render(&buf, f, rep, Options{}); err != nil {
			t.Errorf("Render(%s) failed: %v", f, err)
		}
		if buf.Len() == 0 {
			t.Errorf("Render(%s) wrote nothing", f)
		}
	}
	if err := Render(&bytes.Buffer{}, Format("html"), rep, Options{}); err == nil {
		t.Error("Expected error for unknown format")
	}
}
