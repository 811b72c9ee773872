// Package store persists payment records and reconciliation results in a
// local SQLite database. The external ledger stays authoritative for invoice
// state; the store only tracks what was extracted and how each run resolved
// it, so ledger invoices themselves are never persisted here.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"payment-advice-reconciler/internal/models"
	recerrors "payment-advice-reconciler/pkg/errors"
	"payment-advice-reconciler/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS payment_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id TEXT NOT NULL,
	identifier TEXT,
	gross_amount TEXT,
	withheld_amount TEXT,
	net_amount TEXT,
	invoice_date TEXT,
	payment_date TEXT,
	transaction_date TEXT,
	bank_name TEXT,
	bank_reference TEXT,
	payer_name TEXT,
	source_document TEXT,
	status TEXT NOT NULL DEFAULT 'PENDING',
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_payment_records_status ON payment_records(status);
CREATE INDEX IF NOT EXISTS idx_payment_records_source ON payment_records(source_id);

CREATE TABLE IF NOT EXISTS reconciliation_results (
	id TEXT PRIMARY KEY,
	record_id INTEGER NOT NULL,
	identifier TEXT,
	verdict TEXT NOT NULL,
	amount_match INTEGER NOT NULL,
	amount_difference TEXT NOT NULL,
	confidence_score REAL NOT NULL,
	discrepancy_notes TEXT,
	reconciled_at TEXT NOT NULL,
	FOREIGN KEY (record_id) REFERENCES payment_records(id)
);

CREATE INDEX IF NOT EXISTS idx_results_record ON reconciliation_results(record_id);
CREATE INDEX IF NOT EXISTS idx_results_verdict ON reconciliation_results(verdict);
`

// SQLiteStore is the database-backed store
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens (creating if necessary) the SQLite database at path and applies
// the schema. Use ":memory:" for an ephemeral store.
func Open(path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, recerrors.StorageError(recerrors.CodeConnectionFailed, "open", err)
	}

	// modernc sqlite is single-writer; serializing access avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, recerrors.StorageError(recerrors.CodeQueryFailed, "migrate", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: log.WithComponent("store"),
	}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertRecords persists a batch of freshly extracted records inside one
// transaction and fills in their assigned IDs. A record whose source,
// identifier and net amount already exist is skipped, so re-ingesting the
// same document is harmless.
func (s *SQLiteStore) InsertRecords(ctx context.Context, records []*models.PaymentRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, recerrors.StorageError(recerrors.CodeInsertFailed, "begin insert", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, record := range records {
		exists, err := recordExists(ctx, tx, record)
		if err != nil {
			return inserted, err
		}
		if exists {
			s.logger.WithFields(logger.Fields{
				"source_id":  record.SourceID,
				"identifier": record.Identifier,
			}).Debug("Skipping duplicate payment record")
			continue
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO payment_records (
				source_id, identifier, gross_amount, withheld_amount, net_amount,
				invoice_date, payment_date, transaction_date,
				bank_name, bank_reference, payer_name, source_document, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.SourceID, nullString(record.Identifier),
			decimalValue(record.Gross), decimalValue(record.Withheld), decimalValue(record.Net),
			dateValue(record.InvoiceDate), dateValue(record.PaymentDate), dateValue(record.TransactionDate),
			nullString(record.BankName), nullString(record.BankReference),
			nullString(record.PayerName), nullString(record.SourceDocument),
			string(record.Status))
		if err != nil {
			return inserted, recerrors.StorageError(recerrors.CodeInsertFailed, "insert payment record", err)
		}

		if id, err := res.LastInsertId(); err == nil {
			record.ID = id
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, recerrors.StorageError(recerrors.CodeInsertFailed, "commit insert", err)
	}
	return inserted, nil
}

func recordExists(ctx context.Context, tx *sql.Tx, record *models.PaymentRecord) (bool, error) {
	net := ""
	if record.Net != nil {
		net = record.Net.String()
	}

	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM payment_records
		WHERE source_id = ? AND COALESCE(identifier, '') = ? AND COALESCE(net_amount, '') = ?`,
		record.SourceID, record.Identifier, net).Scan(&count)
	if err != nil {
		return false, recerrors.StorageError(recerrors.CodeQueryFailed, "duplicate check", err)
	}
	return count > 0, nil
}

// GetPendingRecords returns every record still awaiting reconciliation, in
// insertion order.
func (s *SQLiteStore) GetPendingRecords(ctx context.Context) ([]*models.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRecordColumns+`
		WHERE status = ? ORDER BY id`, string(models.StatusPending))
	if err != nil {
		return nil, recerrors.StorageError(recerrors.CodeQueryFailed, "select pending records", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetRecordsByStatus returns every record with the given status
func (s *SQLiteStore) GetRecordsByStatus(ctx context.Context, status models.RecordStatus) ([]*models.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRecordColumns+`
		WHERE status = ? ORDER BY id`, string(status))
	if err != nil {
		return nil, recerrors.StorageError(recerrors.CodeQueryFailed, "select records by status", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// UpdateRecordStatus moves one record to a new status
func (s *SQLiteStore) UpdateRecordStatus(ctx context.Context, id int64, status models.RecordStatus) error {
	if !status.IsValid() {
		return recerrors.ValidationError(recerrors.CodeMissingField, "status", string(status))
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE payment_records SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return recerrors.StorageError(recerrors.CodeQueryFailed, "update record status", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return recerrors.StorageError(recerrors.CodeQueryFailed, "update record status",
			sql.ErrNoRows)
	}
	return nil
}

// SaveResult persists one reconciliation result
func (s *SQLiteStore) SaveResult(ctx context.Context, result *models.ReconciliationResult) error {
	notes, err := json.Marshal(result.DiscrepancyNotes)
	if err != nil {
		return recerrors.InternalError("encoding discrepancy notes", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_results (
			id, record_id, identifier, verdict, amount_match,
			amount_difference, confidence_score, discrepancy_notes, reconciled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.RecordID, nullString(result.Identifier),
		string(result.Verdict), boolValue(result.AmountMatch),
		result.AmountDifference.String(), result.ConfidenceScore,
		string(notes), result.ReconciledAt.UTC().Format(time.RFC3339))
	if err != nil {
		return recerrors.StorageError(recerrors.CodeInsertFailed, "insert result", err)
	}
	return nil
}

// GetResultsForRecord returns the result history of one payment record,
// newest first.
func (s *SQLiteStore) GetResultsForRecord(ctx context.Context, recordID int64) ([]*models.ReconciliationResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, identifier, verdict, amount_match,
		       amount_difference, confidence_score, discrepancy_notes, reconciled_at
		FROM reconciliation_results
		WHERE record_id = ? ORDER BY reconciled_at DESC`, recordID)
	if err != nil {
		return nil, recerrors.StorageError(recerrors.CodeQueryFailed, "select results", err)
	}
	defer rows.Close()

	var results []*models.ReconciliationResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// CountRecordsByStatus returns record counts grouped by status
func (s *SQLiteStore) CountRecordsByStatus(ctx context.Context) (map[models.RecordStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM payment_records GROUP BY status`)
	if err != nil {
		return nil, recerrors.StorageError(recerrors.CodeQueryFailed, "count by status", err)
	}
	defer rows.Close()

	counts := make(map[models.RecordStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, recerrors.StorageError(recerrors.CodeQueryFailed, "scan status count", err)
		}
		counts[models.RecordStatus(status)] = count
	}
	return counts, rows.Err()
}

// ClearAll removes every record and result. Intended for operator resets.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return recerrors.StorageError(recerrors.CodeQueryFailed, "begin clear", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"reconciliation_results", "payment_records"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return recerrors.StorageError(recerrors.CodeQueryFailed, "clear "+table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return recerrors.StorageError(recerrors.CodeQueryFailed, "commit clear", err)
	}

	s.logger.Info("Cleared all payment records and results")
	return nil
}

const selectRecordColumns = `
	SELECT id, source_id, identifier, gross_amount, withheld_amount, net_amount,
	       invoice_date, payment_date, transaction_date,
	       bank_name, bank_reference, payer_name, source_document, status
	FROM payment_records`

func scanRecords(rows *sql.Rows) ([]*models.PaymentRecord, error) {
	var records []*models.PaymentRecord
	for rows.Next() {
		var (
			record                            models.PaymentRecord
			identifier, gross, withheld, net  sql.NullString
			invDate, payDate, txnDate         sql.NullString
			bankName, bankRef, payer, srcDoc  sql.NullString
			status                            string
		)
		err := rows.Scan(&record.ID, &record.SourceID, &identifier,
			&gross, &withheld, &net,
			&invDate, &payDate, &txnDate,
			&bankName, &bankRef, &payer, &srcDoc, &status)
		if err != nil {
			return nil, recerrors.StorageError(recerrors.CodeQueryFailed, "scan payment record", err)
		}

		record.Identifier = identifier.String
		record.Gross = scanDecimal(gross)
		record.Withheld = scanDecimal(withheld)
		record.Net = scanDecimal(net)
		record.InvoiceDate = scanDate(invDate)
		record.PaymentDate = scanDate(payDate)
		record.TransactionDate = scanDate(txnDate)
		record.BankName = bankName.String
		record.BankReference = bankRef.String
		record.PayerName = payer.String
		record.SourceDocument = srcDoc.String
		record.Status = models.RecordStatus(status)

		records = append(records, &record)
	}
	return records, rows.Err()
}

func scanResult(rows *sql.Rows) (*models.ReconciliationResult, error) {
	var (
		result           models.ReconciliationResult
		identifier       sql.NullString
		verdict          string
		amountMatch      int
		amountDifference string
		notes            sql.NullString
		reconciledAt     string
	)
	err := rows.Scan(&result.ID, &result.RecordID, &identifier, &verdict,
		&amountMatch, &amountDifference, &result.ConfidenceScore,
		&notes, &reconciledAt)
	if err != nil {
		return nil, recerrors.StorageError(recerrors.CodeQueryFailed, "scan result", err)
	}

	result.Identifier = identifier.String
	result.Verdict = models.Verdict(verdict)
	result.AmountMatch = amountMatch != 0
	if parsed, err := decimal.NewFromString(amountDifference); err == nil {
		result.AmountDifference = parsed
	}
	if notes.Valid && notes.String != "" {
		if err := json.Unmarshal([]byte(notes.String), &result.DiscrepancyNotes); err != nil {
			return nil, recerrors.InternalError("decoding discrepancy notes", err)
		}
	}
	if parsed, err := time.Parse(time.RFC3339, reconciledAt); err == nil {
		result.ReconciledAt = parsed
	}

	return &result, nil
}

func nullString(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func decimalValue(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func dateValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(models.DateLayout)
}

func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid || s.String == "" {
		return nil
	}
	value, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &value
}

func scanDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	parsed, err := models.ParseDate(s.String)
	if err != nil {
		return nil
	}
	return &parsed
}
