// Package models defines the data types shared across the payment advice
// reconciliation pipeline: extracted payment rows and records, ledger invoice
// snapshots, and per-record reconciliation results.
//
// Amount fields use shopspring decimal throughout; optional amounts and dates
// are pointers so that "extracted" and "absent" stay distinct through the
// extraction fallback chain. Dates cross the package boundary as calendar
// dates in ISO form (YYYY-MM-DD) regardless of source formatting.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordStatus is the lifecycle status of a payment record
type RecordStatus string

const (
	// StatusPending marks a freshly ingested record awaiting reconciliation
	StatusPending RecordStatus = "PENDING"
	// StatusReconciled marks a record whose invoice matched fully
	StatusReconciled RecordStatus = "RECONCILED"
	// StatusReviewRequired marks a partial match needing manual review
	StatusReviewRequired RecordStatus = "REVIEW_REQUIRED"
	// StatusNotFound marks a record whose identifier was missing or unknown
	StatusNotFound RecordStatus = "NOT_FOUND"
	// StatusUnmatched marks a record with too many discrepancies to match
	StatusUnmatched RecordStatus = "UNMATCHED"
)

// String returns the string representation of RecordStatus
func (s RecordStatus) String() string {
	return string(s)
}

// IsValid checks if the record status is valid
func (s RecordStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusReconciled, StatusReviewRequired, StatusNotFound, StatusUnmatched:
		return true
	}
	return false
}

// Verdict is the categorical outcome of matching one payment record
type Verdict string

const (
	VerdictMatched      Verdict = "MATCHED"
	VerdictPartialMatch Verdict = "PARTIAL_MATCH"
	VerdictUnmatched    Verdict = "UNMATCHED"
	VerdictNotFound     Verdict = "NOT_FOUND"
)

// String returns the string representation of Verdict
func (v Verdict) String() string {
	return string(v)
}

// RecordStatus maps a verdict to the payment record status it implies
func (v Verdict) RecordStatus() RecordStatus {
	switch v {
	case VerdictMatched:
		return StatusReconciled
	case VerdictPartialMatch:
		return StatusReviewRequired
	case VerdictNotFound:
		return StatusNotFound
	case VerdictUnmatched:
		return StatusUnmatched
	default:
		return StatusPending
	}
}

// PaymentRow holds one invoice's extracted amount triad. Gross is the invoice
// amount before deduction, Withheld the tax deducted at source, Net the amount
// actually remitted. Any of the three may be absent after extraction; when all
// are present, Gross − Withheld ≈ Net (a tested property, not a parse-time
// constraint).
type PaymentRow struct {
	Identifier string           `json:"identifier"`
	Gross      *decimal.Decimal `json:"gross_amount,omitempty"`
	Withheld   *decimal.Decimal `json:"withheld_amount,omitempty"`
	Net        *decimal.Decimal `json:"net_amount,omitempty"`
	RowDate    *time.Time       `json:"row_date,omitempty"`
}

// Complete reports whether all three amounts were extracted
func (r *PaymentRow) Complete() bool {
	return r.Gross != nil && r.Withheld != nil && r.Net != nil
}

// PaymentRecord is one reconciliation unit assembled from a payment row and
// the source document's common fields. Identifier may be empty when no
// invoice number could be extracted.
type PaymentRecord struct {
	ID              int64            `json:"id"`
	SourceID        string           `json:"source_id"`
	Identifier      string           `json:"identifier,omitempty"`
	Gross           *decimal.Decimal `json:"gross_amount,omitempty"`
	Withheld        *decimal.Decimal `json:"withheld_amount,omitempty"`
	Net             *decimal.Decimal `json:"net_amount,omitempty"`
	InvoiceDate     *time.Time       `json:"invoice_date,omitempty"`
	PaymentDate     *time.Time       `json:"payment_date,omitempty"`
	TransactionDate *time.Time       `json:"transaction_date,omitempty"`
	BankName        string           `json:"bank_name,omitempty"`
	BankReference   string           `json:"bank_reference,omitempty"`
	PayerName       string           `json:"payer_name,omitempty"`
	SourceDocument  string           `json:"source_document,omitempty"`
	Status          RecordStatus     `json:"status"`
}

// Validate performs basic validation on the PaymentRecord
func (p *PaymentRecord) Validate() error {
	if strings.TrimSpace(p.SourceID) == "" {
		return fmt.Errorf("payment record source ID cannot be empty")
	}

	if !p.Status.IsValid() {
		return fmt.Errorf("invalid record status: %s", p.Status)
	}

	return nil
}

// EffectiveAmount returns the amount used for matching against the ledger
// total: gross when extracted, net otherwise, zero when neither is known.
func (p *PaymentRecord) EffectiveAmount() decimal.Decimal {
	if p.Gross != nil {
		return *p.Gross
	}
	if p.Net != nil {
		return *p.Net
	}
	return decimal.Zero
}

// String returns a string representation of the PaymentRecord
func (p *PaymentRecord) String() string {
	return fmt.Sprintf("PaymentRecord{ID: %d, Invoice: %s, Gross: %s, Net: %s, Status: %s}",
		p.ID, p.Identifier, decimalString(p.Gross), decimalString(p.Net), p.Status)
}

// LedgerInvoice is a read-only snapshot of the external ledger's invoice
// record, cached per reconciliation run. The external ledger stays
// authoritative; the snapshot is discarded and rebuilt on the next run.
type LedgerInvoice struct {
	Identifier    string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	InvoiceDate   *time.Time      `json:"invoice_date,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
	Status        string          `json:"status"`
}

// Validate performs basic validation on the LedgerInvoice
func (inv *LedgerInvoice) Validate() error {
	if strings.TrimSpace(inv.Identifier) == "" {
		return fmt.Errorf("ledger invoice identifier cannot be empty")
	}

	if inv.TotalAmount.IsNegative() {
		return fmt.Errorf("ledger invoice total cannot be negative")
	}

	return nil
}

// String returns a string representation of the LedgerInvoice
func (inv *LedgerInvoice) String() string {
	return fmt.Sprintf("LedgerInvoice{Number: %s, Total: %s, Status: %s}",
		inv.Identifier, inv.TotalAmount.String(), inv.Status)
}

// MarshalJSON implements custom JSON marshaling for LedgerInvoice
func (inv *LedgerInvoice) MarshalJSON() ([]byte, error) {
	type Alias LedgerInvoice
	var invoiceDate string
	if inv.InvoiceDate != nil {
		invoiceDate = inv.InvoiceDate.Format(DateLayout)
	}
	return json.Marshal(&struct {
		TotalAmount   string `json:"total_amount"`
		BalanceAmount string `json:"balance_amount"`
		InvoiceDate   string `json:"invoice_date,omitempty"`
		*Alias
	}{
		TotalAmount:   inv.TotalAmount.String(),
		BalanceAmount: inv.BalanceAmount.String(),
		InvoiceDate:   invoiceDate,
		Alias:         (*Alias)(inv),
	})
}

// ReconciliationResult is the immutable outcome of resolving one payment
// record against the ledger cache. Created exactly once per record per run.
type ReconciliationResult struct {
	ID               string           `json:"id"`
	RecordID         int64            `json:"record_id"`
	Identifier       string           `json:"invoice_number,omitempty"`
	LedgerInvoice    *LedgerInvoice   `json:"ledger_invoice,omitempty"`
	Verdict          Verdict          `json:"verdict"`
	AmountMatch      bool             `json:"amount_match"`
	AmountDifference decimal.Decimal  `json:"amount_difference"`
	ConfidenceScore  float64          `json:"confidence_score"`
	DiscrepancyNotes []string         `json:"discrepancy_notes"`
	ReconciledAt     time.Time        `json:"reconciled_at"`
}

// NewReconciliationResult creates a result with a fresh identifier and timestamp
func NewReconciliationResult(record *PaymentRecord, verdict Verdict, confidence float64) *ReconciliationResult {
	return &ReconciliationResult{
		ID:              uuid.NewString(),
		RecordID:        record.ID,
		Identifier:      record.Identifier,
		Verdict:         verdict,
		ConfidenceScore: confidence,
		ReconciledAt:    time.Now().UTC(),
	}
}

// NotesJoined returns the discrepancy notes joined for display
func (r *ReconciliationResult) NotesJoined() string {
	if len(r.DiscrepancyNotes) == 0 {
		return "No discrepancies found"
	}
	return strings.Join(r.DiscrepancyNotes, "; ")
}

// DateLayout is the ISO calendar date format used at the core boundary
const DateLayout = "2006-01-02"

// dateFormats lists source formats seen in payment advice documents, tried
// in order when parsing extracted dates
var dateFormats = []string{
	DateLayout,
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseDate attempts to parse a calendar date using the known source formats
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			// Normalize to a bare calendar date
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// ParseAmountString parses a decimal amount, tolerating currency symbols and
// thousands separators
func ParseAmountString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	for _, symbol := range []string{"₹", "Rs.", "Rs", "INR", ","} {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// CompareAmountsWithTolerance compares two decimal amounts with an absolute tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// SameDate reports whether two times fall on the same calendar date
func SameDate(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}

// DecimalPtr returns a pointer to d, for filling optional amount fields
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// TimePtr returns a pointer to t, for filling optional date fields
func TimePtr(t time.Time) *time.Time {
	return &t
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return "<nil>"
	}
	return d.String()
}
