package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"freight-curve/decision/alert"
	"freight-curve/decision/curve"
)

// Format selects a renderer.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatMarkdown, FormatXLSX:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q (table, json, markdown, xlsx)", s)
	}
}

// TableHeader names the data table columns using the snapshot labels.
func (r *Report) TableHeader() []string {
	b, c := r.Base.Label, r.Compare.Label
	return []string{
		"Period", "Route",
		b + " WS", c + " WS", "WS Change",
		b + " $/MT", c + " $/MT", "$/MT Change",
	}
}

// Cells returns the row values in TableHeader order.
func (row Row) Cells() []string {
	return []string{
		row.Period, row.Route,
		row.BaseRate, row.CompareRate, row.RateChange,
		row.BasePrice, row.ComparePrice, row.PriceChange,
	}
}

// Title is the report heading.
func (r *Report) Title() string {
	return fmt.Sprintf("Oil Market Forward Curve Report: %s vs. %s", r.Base.Label, r.Compare.Label)
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteTable writes a plain-text report for terminals.
func WriteTable(w io.Writer, r *Report) error {
	var sb strings.Builder

	sb.WriteString("\n" + r.Title() + "\n")
	sb.WriteString(strings.Repeat("=", len(r.Title())) + "\n\n")

	sb.WriteString("MARKET HEADLINES\n")
	for _, h := range r.Headlines {
		sb.WriteString("  - " + h + "\n")
	}
	sb.WriteString("\nINTERESTING FACT\n  " + r.Fact + "\n\n")

	header := r.TableHeader()
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range r.Rows {
		for i, c := range row.Cells() {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}
	writeAligned(&sb, header, widths)
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	writeAligned(&sb, sep, widths)
	for _, row := range r.Rows {
		writeAligned(&sb, row.Cells(), widths)
	}

	if len(r.Unmatched) > 0 {
		sb.WriteString("\nUNMATCHED PERIODS (excluded)\n")
		for _, u := range r.Unmatched {
			fmt.Fprintf(&sb, "  - %s (only in %s)\n", u.Period, u.PresentIn)
		}
	}
	writeAlertsText(&sb, r.Alerts)

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeAligned(sb *strings.Builder, cells []string, widths []int) {
	for i, c := range cells {
		if i > 0 {
			sb.WriteString("  ")
		}
		// first two columns are labels, the rest are numbers
		if i < 2 {
			fmt.Fprintf(sb, "%-*s", widths[i], c)
		} else {
			fmt.Fprintf(sb, "%*s", widths[i], c)
		}
	}
	sb.WriteString("\n")
}

func writeAlertsText(sb *strings.Builder, res *alert.EvaluationResult) {
	if res == nil {
		return
	}
	fmt.Fprintf(sb, "\nALERTS: %s\n", strings.ToUpper(string(res.Decision)))
	for _, v := range res.Violations {
		fmt.Fprintf(sb, "  x %s\n", v.Message)
	}
	for _, wn := range res.Warnings {
		fmt.Fprintf(sb, "  ! %s\n", wn.Message)
	}
}

// WriteMarkdown writes the report as a markdown document.
func WriteMarkdown(w io.Writer, r *Report) error {
	var sb strings.Builder

	sb.WriteString("# " + r.Title() + "\n\n")
	fmt.Fprintf(&sb, "Comparison of forward curves captured %s and %s for routes %s.\n\n",
		capturedOn(r.Base), capturedOn(r.Compare),
		strings.Join(r.Routes, ", "))

	sb.WriteString("## Market Headlines\n\n")
	for _, h := range r.Headlines {
		sb.WriteString("- " + h + "\n")
	}
	sb.WriteString("\n## Interesting Fact\n\n" + r.Fact + "\n\n")

	sb.WriteString("## Data Table\n\n")
	sb.WriteString("| " + strings.Join(r.TableHeader(), " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat("---|", len(r.TableHeader())) + "\n")
	for _, row := range r.Rows {
		sb.WriteString("| " + strings.Join(row.Cells(), " | ") + " |\n")
	}

	if len(r.Unmatched) > 0 {
		sb.WriteString("\n## Unmatched Periods\n\n")
		for _, u := range r.Unmatched {
			fmt.Fprintf(&sb, "- %s (only in %s snapshot)\n", u.Period, u.PresentIn)
		}
	}

	if r.Alerts != nil && (len(r.Alerts.Violations) > 0 || len(r.Alerts.Warnings) > 0) {
		sb.WriteString("\n## Alerts\n\n")
		for _, v := range r.Alerts.Violations {
			fmt.Fprintf(&sb, "- **%s**: %s\n", v.RuleName, v.Message)
		}
		for _, wn := range r.Alerts.Warnings {
			fmt.Fprintf(&sb, "- %s\n", wn.Message)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func capturedOn(m curve.SnapshotMeta) string {
	if m.CapturedAt.IsZero() {
		return m.Label
	}
	return m.CapturedAt.Format("January 2, 2006")
}
