package advice

import (
	"time"

	"payment-advice-reconciler/internal/models"
)

// CommonFields are the document-level values shared by every row of a
// payment advice: the remitting bank, the payer, the bank's transaction
// reference and the document-level dates.
type CommonFields struct {
	BankName        string
	PayerName       string
	BankReference   string
	UTR             string
	PaymentDate     *time.Time
	TransactionDate *time.Time
	InvoiceDate     *time.Time
}

// Reference returns the best available bank-side transaction reference,
// preferring the explicit bank reference over the UTR.
func (c CommonFields) Reference() string {
	if c.BankReference != "" {
		return c.BankReference
	}
	return c.UTR
}

// SourceMeta identifies the document a batch of records came from.
type SourceMeta struct {
	SourceID string
	Document string
}

// BuildRecords assembles pending payment records from extracted rows and the
// document's common fields. One record is produced per row; a row-level date
// overrides the document-level invoice date for its record.
//
// When extraction produced no rows at all, a single record with an empty
// identifier is built, its net amount recovered from the whole document
// text. That record still enters the run so the miss is visible downstream
// rather than silently dropped.
func BuildRecords(rows []models.PaymentRow, common CommonFields, meta SourceMeta, text string) []*models.PaymentRecord {
	if len(rows) == 0 {
		record := newRecord(common, meta)
		if value, ok := ParseAmount(text); ok {
			record.Net = models.DecimalPtr(value)
		}
		return []*models.PaymentRecord{record}
	}

	records := make([]*models.PaymentRecord, 0, len(rows))
	for _, row := range rows {
		record := newRecord(common, meta)
		record.Identifier = row.Identifier
		record.Gross = row.Gross
		record.Withheld = row.Withheld
		record.Net = row.Net
		if row.RowDate != nil {
			record.InvoiceDate = row.RowDate
		}
		records = append(records, record)
	}
	return records
}

func newRecord(common CommonFields, meta SourceMeta) *models.PaymentRecord {
	return &models.PaymentRecord{
		SourceID:        meta.SourceID,
		InvoiceDate:     common.InvoiceDate,
		PaymentDate:     common.PaymentDate,
		TransactionDate: common.TransactionDate,
		BankName:        common.BankName,
		BankReference:   common.Reference(),
		PayerName:       common.PayerName,
		SourceDocument:  meta.Document,
		Status:          models.StatusPending,
	}
}
