// Package reporter renders reconciliation run summaries for operators, as
// readable console output or as JSON for downstream tooling.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"payment-advice-reconciler/internal/models"
	"payment-advice-reconciler/internal/reconciler"
)

// Format selects the report output format
type Format string

const (
	// FormatText renders a human-readable console report
	FormatText Format = "text"
	// FormatJSON renders the summary as indented JSON
	FormatJSON Format = "json"
)

// ParseFormat converts a string to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format: %s", s)
	}
}

// Reporter writes run summaries to an output stream
type Reporter struct {
	out    io.Writer
	format Format
}

// New creates a reporter writing to out in the given format
func New(out io.Writer, format Format) *Reporter {
	return &Reporter{out: out, format: format}
}

// Report renders a run summary
func (r *Reporter) Report(summary *reconciler.RunSummary) error {
	switch r.format {
	case FormatJSON:
		return r.reportJSON(summary)
	default:
		return r.reportText(summary)
	}
}

func (r *Reporter) reportJSON(summary *reconciler.RunSummary) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return errors.Wrap(err, "encoding run summary")
	}
	return nil
}

func (r *Reporter) reportText(summary *reconciler.RunSummary) error {
	var b strings.Builder

	b.WriteString("Reconciliation Run Summary\n")
	b.WriteString("==========================\n")
	fmt.Fprintf(&b, "Run ID:          %s\n", summary.RunID)
	fmt.Fprintf(&b, "Started:         %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Duration:        %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Cached invoices: %d\n", summary.CachedInvoices)
	fmt.Fprintf(&b, "Records:         %d\n", summary.TotalRecords)
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Matched:         %d\n", summary.Matched)
	fmt.Fprintf(&b, "  Partial match:   %d\n", summary.PartialMatch)
	fmt.Fprintf(&b, "  Not found:       %d\n", summary.NotFound)
	fmt.Fprintf(&b, "  Unmatched:       %d\n", summary.Unmatched)
	fmt.Fprintf(&b, "  Failed:          %d\n", summary.Failed)

	if summary.AmountMismatches > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "Amount mismatches: %d (total difference %s)\n",
			summary.AmountMismatches, summary.TotalAmountDifference.StringFixed(2))
	}

	if len(summary.Results) > 0 {
		b.WriteString("\nRecord outcomes\n")
		b.WriteString("---------------\n")
		for _, result := range summary.Results {
			writeResultLine(&b, result)
		}
	}

	if _, err := io.WriteString(r.out, b.String()); err != nil {
		return errors.Wrap(err, "writing run summary")
	}
	return nil
}

func writeResultLine(b *strings.Builder, result *models.ReconciliationResult) {
	identifier := result.Identifier
	if identifier == "" {
		identifier = "<no invoice number>"
	}
	fmt.Fprintf(b, "  %-24s %-14s confidence %.0f  %s\n",
		identifier, result.Verdict, result.ConfidenceScore, result.NotesJoined())
}
