// ABOUTME: Renders the grouped health report as plain text, Markdown or PDF.
// ABOUTME: Input is the aggregate.Report document model; layout is one section per day.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harperreed/healthlog/internal/aggregate"
)

// DefaultTitle heads every rendered report.
const DefaultTitle = "Health Report"

// Format selects an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// ParseFormat parses a format name. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown report format: %s (use text, markdown, or pdf)", s)
	}
}

// Options control rendering.
type Options struct {
	Title       string
	GeneratedAt time.Time
}

func (o Options) title() string {
	if o.Title == "" {
		return DefaultTitle
	}
	return o.Title
}

// Render writes rep to w in the given format.
func Render(w io.Writer, format Format, rep aggregate.Report, opts Options) error {
	switch format {
	case FormatText:
		return WriteText(w, rep, opts)
	case FormatMarkdown:
		return WriteMarkdown(w, rep, opts)
	case FormatPDF:
		return WritePDF(w, rep, opts)
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}

// WriteText renders the report for a terminal.
func WriteText(w io.Writer, rep aggregate.Report, opts Options) error {
	var sb strings.Builder
	sb.WriteString(opts.title() + "\n")
	if len(rep.Days) == 0 {
		sb.WriteString("\nNo records.\n")
	}
	for _, day := range rep.Days {
		sb.WriteString("\n" + day.Date.String() + "\n")
		for _, line := range day.Lines {
			fmt.Fprintf(&sb, "  [%s] %s\n", line.Time, line.Text)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteMarkdown renders the report as a Markdown document.
func WriteMarkdown(w io.Writer, rep aggregate.Report, opts Options) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", opts.title())
	if !opts.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "Generated: %s\n\n", opts.GeneratedAt.Format(time.RFC3339))
	}
	if len(rep.Days) == 0 {
		sb.WriteString("No records.\n")
	}
	for _, day := range rep.Days {
		fmt.Fprintf(&sb, "## %s\n\n", day.Date)
		sb.WriteString("| Time | Category | Entry |\n")
		sb.WriteString("|------|----------|-------|\n")
		for _, line := range day.Lines {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", line.Time, line.Category, escapeCell(line.Text))
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
