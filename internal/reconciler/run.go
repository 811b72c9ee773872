// Package reconciler orchestrates a reconciliation run: sync the ledger
// snapshot, resolve every pending record through the match engine, persist
// the outcomes and report a summary.
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-advice-reconciler/internal/matcher"
	"payment-advice-reconciler/internal/models"
	recerrors "payment-advice-reconciler/pkg/errors"
	"payment-advice-reconciler/pkg/logger"
)

// Store is the persistence surface a run needs.
type Store interface {
	GetPendingRecords(ctx context.Context) ([]*models.PaymentRecord, error)
	SaveResult(ctx context.Context, result *models.ReconciliationResult) error
	UpdateRecordStatus(ctx context.Context, id int64, status models.RecordStatus) error
}

// LedgerSource supplies the open-invoice snapshot for the run's cache.
type LedgerSource interface {
	FetchOpenInvoices(ctx context.Context) ([]*models.LedgerInvoice, error)
}

// RunSummary aggregates the outcomes of one reconciliation run.
type RunSummary struct {
	RunID          string                         `json:"run_id"`
	StartedAt      time.Time                      `json:"started_at"`
	Duration       time.Duration                  `json:"duration"`
	CachedInvoices int                            `json:"cached_invoices"`
	TotalRecords   int                            `json:"total_records"`
	Matched        int                            `json:"matched"`
	PartialMatch   int                            `json:"partial_match"`
	NotFound       int                            `json:"not_found"`
	Unmatched      int                            `json:"unmatched"`
	Failed         int                            `json:"failed"`

	// AmountMismatches counts results whose invoice was found but whose
	// payment amount fell outside the tolerance; TotalAmountDifference sums
	// their absolute differences.
	AmountMismatches      int             `json:"amount_mismatches"`
	TotalAmountDifference decimal.Decimal `json:"total_amount_difference"`

	Results []*models.ReconciliationResult `json:"results,omitempty"`
}

// Runner executes reconciliation runs. Records are processed sequentially;
// a failure while persisting one record's outcome is counted and logged but
// never aborts the rest of the run. Only context cancellation stops the
// loop early.
type Runner struct {
	store  Store
	source LedgerSource
	cache  *matcher.InvoiceCache
	engine *matcher.MatchEngine
	logger logger.Logger
}

// NewRunner wires a runner from its collaborators. The cache and engine are
// shared so a caller can inspect the cache after a run.
func NewRunner(store Store, source LedgerSource, cache *matcher.InvoiceCache, engine *matcher.MatchEngine, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Runner{
		store:  store,
		source: source,
		cache:  cache,
		engine: engine,
		logger: log.WithComponent("reconciler"),
	}
}

// Run executes one full reconciliation pass.
//
// The ledger snapshot is fetched and the cache rebuilt before any record is
// touched; a failed sync aborts the run with the previous cache contents
// intact. Each pending record then resolves to a result, the result is
// saved, and the record's status moves to the verdict's terminal status.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	started := time.Now()

	invoices, err := r.source.FetchOpenInvoices(ctx)
	if err != nil {
		return nil, recerrors.WrapIfNeeded(err, recerrors.CategoryLedger,
			recerrors.CodeConnectionFailed, "ledger snapshot sync failed")
	}
	r.cache.Rebuild(invoices)

	records, err := r.store.GetPendingRecords(ctx)
	if err != nil {
		return nil, recerrors.WrapIfNeeded(err, recerrors.CategoryStorage,
			recerrors.CodeQueryFailed, "loading pending records failed")
	}

	summary := &RunSummary{
		RunID:          newRunID(),
		StartedAt:      started.UTC(),
		CachedInvoices: r.cache.Size(),
		TotalRecords:   len(records),
	}

	r.logger.WithFields(logger.Fields{
		"run_id":   summary.RunID,
		"records":  len(records),
		"invoices": summary.CachedInvoices,
	}).Info("Reconciliation run started")

	for _, record := range records {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(started)
			return summary, ctx.Err()
		default:
		}

		r.processRecord(ctx, record, summary)
	}

	summary.Duration = time.Since(started)
	r.logger.WithFields(logger.Fields{
		"run_id":    summary.RunID,
		"matched":   summary.Matched,
		"partial":   summary.PartialMatch,
		"not_found": summary.NotFound,
		"unmatched": summary.Unmatched,
		"failed":    summary.Failed,
		"duration":  summary.Duration.String(),
	}).Info("Reconciliation run finished")

	return summary, nil
}

// processRecord resolves and persists one record. Persistence failures mark
// the record failed in the summary but leave its stored status untouched, so
// the next run picks it up again.
func (r *Runner) processRecord(ctx context.Context, record *models.PaymentRecord, summary *RunSummary) {
	result := r.engine.Resolve(ctx, record)

	if err := r.store.SaveResult(ctx, result); err != nil {
		r.logger.WithError(err).WithField("record_id", record.ID).
			Error("Failed to save reconciliation result")
		summary.Failed++
		return
	}

	status := result.Verdict.RecordStatus()
	if err := r.store.UpdateRecordStatus(ctx, record.ID, status); err != nil {
		r.logger.WithError(err).WithField("record_id", record.ID).
			Error("Failed to update record status")
		summary.Failed++
		return
	}

	summary.Results = append(summary.Results, result)
	switch result.Verdict {
	case models.VerdictMatched:
		summary.Matched++
	case models.VerdictPartialMatch:
		summary.PartialMatch++
	case models.VerdictNotFound:
		summary.NotFound++
	default:
		summary.Unmatched++
	}

	if result.Verdict != models.VerdictNotFound && !result.AmountMatch {
		summary.AmountMismatches++
		summary.TotalAmountDifference = summary.TotalAmountDifference.Add(result.AmountDifference.Abs())
	}
}

func newRunID() string {
	return uuid.NewString()
}
