// ABOUTME: PDF rendering of the grouped report using fpdf core fonts.
// ABOUTME: Text is expected to be Latin-1 safe; the report grouper sanitizes it.
package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/harperreed/healthlog/internal/aggregate"
)

const (
	pageWidth  = 190.0
	margin     = 10.0
	pageBreak  = 15.0
	lineHeight = 6.0
)

// WritePDF renders the report as an A4 PDF: a centred title, then a grey
// header per day followed by one "[HH:MM] text" line per entry.
func WritePDF(w io.Writer, rep aggregate.Report, opts Options) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, pageBreak)
	pdf.SetTitle(opts.title(), true)
	pdf.SetCreator("healthlog", true)
	if !opts.GeneratedAt.IsZero() {
		pdf.SetCreationDate(opts.GeneratedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(pageWidth, 15, tr(opts.title()), "", 1, "C", false, 0, "")

	if len(rep.Days) == 0 {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(pageWidth, 10, "No records.", "", 1, "L", false, 0, "")
	}

	for _, day := range rep.Days {
		pdf.SetFillColor(230, 230, 230)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(pageWidth, 10, day.Date.String(), "", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, line := range day.Lines {
			pdf.MultiCell(pageWidth, lineHeight, tr(fmt.Sprintf("[%s] %s", line.Time, line.Text)), "", "L", false)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
