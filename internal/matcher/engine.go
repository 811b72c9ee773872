package matcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payment-advice-reconciler/internal/models"
	"payment-advice-reconciler/pkg/logger"
)

// Resolution is the payment payload written back to the ledger when a record
// fully matches an open invoice.
type Resolution struct {
	ClientName      string          `json:"client_name"`
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceDate     string          `json:"invoice_date"`
	Amount          decimal.Decimal `json:"amount"`
	TDS             decimal.Decimal `json:"tds"`
	FileName        string          `json:"file_name"`
	FileLocation    string          `json:"file_location"`
	BankReference   string          `json:"bank_reference"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TransactionDate string          `json:"transaction_date"`
}

// Validate checks the payload before it is sent to the ledger. FileLocation
// may be empty; everything else is required, and a failed validation aborts
// only the write-back, never the verdict.
func (r *Resolution) Validate() error {
	if strings.TrimSpace(r.ClientName) == "" {
		return fmt.Errorf("resolution client name cannot be empty")
	}
	if strings.TrimSpace(r.InvoiceNumber) == "" {
		return fmt.Errorf("resolution invoice number cannot be empty")
	}
	if strings.TrimSpace(r.InvoiceDate) == "" {
		return fmt.Errorf("resolution invoice date cannot be empty")
	}
	if strings.TrimSpace(r.TransactionDate) == "" {
		return fmt.Errorf("resolution transaction date cannot be empty")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("resolution amount must be positive: %s", r.Amount)
	}
	if !r.TotalAmount.IsPositive() {
		return fmt.Errorf("resolution total amount must be positive: %s", r.TotalAmount)
	}
	if r.TDS.IsNegative() {
		return fmt.Errorf("resolution TDS cannot be negative: %s", r.TDS)
	}
	return nil
}

// ResolutionWriter records a payment against an invoice in the external
// ledger.
type ResolutionWriter interface {
	WriteResolution(ctx context.Context, resolution *Resolution) error
}

// MatchEngine resolves one payment record at a time against the invoice
// cache. The engine never returns an error from Resolve: every failure mode
// folds into the verdict, confidence score and discrepancy notes, so one bad
// record cannot abort a run.
type MatchEngine struct {
	config *Config
	cache  *InvoiceCache
	writer ResolutionWriter
	logger logger.Logger
	now    func() time.Time
}

// NewMatchEngine creates a match engine. A nil config selects the defaults;
// a nil writer disables write-back regardless of the AutoResolve setting.
func NewMatchEngine(config *Config, cache *InvoiceCache, writer ResolutionWriter, log logger.Logger) *MatchEngine {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &MatchEngine{
		config: config,
		cache:  cache,
		writer: writer,
		logger: log.WithComponent("match-engine"),
		now:    time.Now,
	}
}

// Resolve scores one payment record against the cached ledger snapshot.
//
// A record without an identifier, or whose identifier misses the cache,
// resolves to NOT_FOUND with zero confidence. Otherwise scoring starts at
// full confidence and subtracts configured penalties for an amount outside
// the tolerance, for an invoice already marked paid, and for any unexpected
// ledger status. The thresholds then map the remaining score to MATCHED,
// PARTIAL_MATCH or UNMATCHED.
//
// Write-back runs only for a MATCHED verdict with the amount inside the
// tolerance and the invoice not already paid; its outcome lands in the
// discrepancy notes and never changes the verdict.
func (e *MatchEngine) Resolve(ctx context.Context, record *models.PaymentRecord) *models.ReconciliationResult {
	if strings.TrimSpace(record.Identifier) == "" {
		result := models.NewReconciliationResult(record, models.VerdictNotFound, 0)
		result.DiscrepancyNotes = append(result.DiscrepancyNotes,
			"No invoice number could be extracted from the payment record")
		return result
	}

	invoice, found := e.cache.Lookup(record.Identifier)
	if !found {
		result := models.NewReconciliationResult(record, models.VerdictNotFound, 0)
		result.DiscrepancyNotes = append(result.DiscrepancyNotes,
			fmt.Sprintf("Invoice %s not found in ledger", record.Identifier))
		return result
	}

	confidence := 100.0
	var notes []string

	effective := record.EffectiveAmount()
	difference := effective.Sub(invoice.TotalAmount).Abs()
	amountMatch := difference.LessThanOrEqual(e.config.AmountTolerance)
	if !amountMatch {
		confidence -= e.config.AmountMismatchPenalty
		notes = append(notes, fmt.Sprintf("Amount mismatch: payment %s vs invoice total %s (difference %s)",
			effective.StringFixed(2), invoice.TotalAmount.StringFixed(2), difference.StringFixed(2)))
	}

	alreadyPaid := strings.EqualFold(invoice.Status, "paid")
	switch {
	case e.config.IsOpenStatus(invoice.Status):
		// expected state, no penalty
	case alreadyPaid:
		confidence -= e.config.PaidStatusPenalty
		notes = append(notes, "Invoice already marked as PAID")
	default:
		confidence -= e.config.UnexpectedStatusPenalty
		notes = append(notes, fmt.Sprintf("Unexpected invoice status: %s", invoice.Status))
	}

	if confidence < 0 {
		confidence = 0
	}

	verdict := e.verdictFor(confidence)
	result := models.NewReconciliationResult(record, verdict, confidence)
	result.LedgerInvoice = invoice
	result.AmountMatch = amountMatch
	result.AmountDifference = difference
	result.DiscrepancyNotes = notes

	if e.shouldAutoResolve(verdict, amountMatch, alreadyPaid) {
		e.autoResolve(ctx, record, invoice, result)
	}

	e.logger.WithFields(logger.Fields{
		"identifier": record.Identifier,
		"verdict":    string(verdict),
		"confidence": confidence,
	}).Debug("Record resolved")

	return result
}

func (e *MatchEngine) verdictFor(confidence float64) models.Verdict {
	switch {
	case confidence >= e.config.MatchThreshold:
		return models.VerdictMatched
	case confidence >= e.config.PartialThreshold:
		return models.VerdictPartialMatch
	default:
		return models.VerdictUnmatched
	}
}

func (e *MatchEngine) shouldAutoResolve(verdict models.Verdict, amountMatch, alreadyPaid bool) bool {
	return e.config.AutoResolve &&
		e.writer != nil &&
		verdict == models.VerdictMatched &&
		amountMatch &&
		!alreadyPaid
}

// autoResolve builds and writes the payment payload. Validation failures and
// write failures are recorded as notes; the verdict stays as scored.
func (e *MatchEngine) autoResolve(ctx context.Context, record *models.PaymentRecord, invoice *models.LedgerInvoice, result *models.ReconciliationResult) {
	resolution := e.buildResolution(record, invoice)

	if err := resolution.Validate(); err != nil {
		result.DiscrepancyNotes = append(result.DiscrepancyNotes,
			fmt.Sprintf("Payment not recorded in ledger: %v", err))
		return
	}

	if err := e.writer.WriteResolution(ctx, resolution); err != nil {
		e.logger.WithError(err).WithField("identifier", record.Identifier).
			Warn("Ledger write-back failed")
		result.DiscrepancyNotes = append(result.DiscrepancyNotes,
			fmt.Sprintf("Failed to record payment in ledger: %v", err))
		return
	}

	result.DiscrepancyNotes = append(result.DiscrepancyNotes, "Payment recorded in ledger")
}

// buildResolution assembles the write-back payload. Ledger-side values win
// for the customer name and invoice date since the ledger is authoritative;
// payment-side values fill the transaction details, and the advice's bill
// amount, when extracted, replaces the ledger total.
func (e *MatchEngine) buildResolution(record *models.PaymentRecord, invoice *models.LedgerInvoice) *Resolution {
	clientName := invoice.CustomerName
	if clientName == "" {
		clientName = record.PayerName
	}

	amount := decimal.Zero
	if record.Net != nil {
		amount = *record.Net
	} else {
		amount = record.EffectiveAmount()
	}

	tds := decimal.Zero
	if record.Withheld != nil {
		tds = *record.Withheld
	}

	total := invoice.TotalAmount
	if record.Gross != nil {
		total = *record.Gross
	}

	dates := InferResolutionDates(record, invoice.InvoiceDate, e.now())

	return &Resolution{
		ClientName:      clientName,
		InvoiceNumber:   invoice.Identifier,
		InvoiceDate:     dates.InvoiceDate.Format(models.DateLayout),
		Amount:          amount,
		TDS:             tds,
		FileName:        record.SourceDocument,
		FileLocation:    "",
		BankReference:   record.BankReference,
		TotalAmount:     total,
		TransactionDate: dates.TransactionDate.Format(models.DateLayout),
	}
}
