package matcher

import (
	"testing"
	"time"

	"payment-advice-reconciler/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func TestInferResolutionDates(t *testing.T) {
	now := day(2025, 6, 1)

	tests := []struct {
		name        string
		record      *models.PaymentRecord
		ledgerDate  *time.Time
		wantInvoice time.Time
		wantTxn     time.Time
	}{
		{
			name: "ledger date matches a payment-side date",
			record: &models.PaymentRecord{
				InvoiceDate: dayPtr(2025, 4, 1),
				PaymentDate: dayPtr(2025, 5, 12),
			},
			ledgerDate:  dayPtr(2025, 4, 1),
			wantInvoice: day(2025, 4, 1),
			wantTxn:     day(2025, 5, 12),
		},
		{
			name: "two dates without ledger date, earliest becomes invoice",
			record: &models.PaymentRecord{
				PaymentDate:     dayPtr(2025, 5, 12),
				TransactionDate: dayPtr(2025, 4, 20),
			},
			wantInvoice: day(2025, 4, 20),
			wantTxn:     day(2025, 5, 12),
		},
		{
			name: "two dates with unrelated ledger date",
			record: &models.PaymentRecord{
				InvoiceDate: dayPtr(2025, 4, 20),
				PaymentDate: dayPtr(2025, 5, 12),
			},
			ledgerDate:  dayPtr(2025, 3, 1),
			wantInvoice: day(2025, 3, 1),
			wantTxn:     day(2025, 4, 20),
		},
		{
			name: "single date pairs with today",
			record: &models.PaymentRecord{
				PaymentDate: dayPtr(2025, 5, 12),
			},
			wantInvoice: day(2025, 5, 12),
			wantTxn:     day(2025, 6, 1),
		},
		{
			name:        "no dates at all",
			record:      &models.PaymentRecord{},
			wantInvoice: day(2025, 6, 1),
			wantTxn:     day(2025, 6, 2), // same-day pair advances the transaction
		},
		{
			name: "reversed pair is swapped",
			record: &models.PaymentRecord{
				PaymentDate: dayPtr(2025, 7, 10),
			},
			wantInvoice: day(2025, 6, 1),
			wantTxn:     day(2025, 7, 10),
		},
		{
			name: "duplicate dates collapse to one",
			record: &models.PaymentRecord{
				InvoiceDate:     dayPtr(2025, 5, 12),
				PaymentDate:     dayPtr(2025, 5, 12),
				TransactionDate: dayPtr(2025, 5, 12),
			},
			wantInvoice: day(2025, 5, 12),
			wantTxn:     day(2025, 6, 1),
		},
		{
			name:        "ledger date only",
			record:      &models.PaymentRecord{},
			ledgerDate:  dayPtr(2025, 4, 1),
			wantInvoice: day(2025, 4, 1),
			wantTxn:     day(2025, 6, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferResolutionDates(tt.record, tt.ledgerDate, now)
			if !got.InvoiceDate.Equal(tt.wantInvoice) {
				t.Errorf("InvoiceDate = %s, want %s",
					got.InvoiceDate.Format("2006-01-02"), tt.wantInvoice.Format("2006-01-02"))
			}
			if !got.TransactionDate.Equal(tt.wantTxn) {
				t.Errorf("TransactionDate = %s, want %s",
					got.TransactionDate.Format("2006-01-02"), tt.wantTxn.Format("2006-01-02"))
			}
		})
	}
}

func TestInferResolutionDatesInvariant(t *testing.T) {
	// Whatever the inputs, the transaction date must fall strictly after the
	// invoice date.
	now := day(2025, 6, 1)
	records := []*models.PaymentRecord{
		{},
		{InvoiceDate: dayPtr(2025, 5, 12)},
		{PaymentDate: dayPtr(2025, 7, 1), TransactionDate: dayPtr(2025, 7, 1)},
		{InvoiceDate: dayPtr(2025, 1, 1), PaymentDate: dayPtr(2024, 12, 1)},
	}

	for i, record := range records {
		got := InferResolutionDates(record, nil, now)
		if !got.TransactionDate.After(got.InvoiceDate) {
			t.Errorf("record %d: transaction %s not after invoice %s",
				i, got.TransactionDate.Format("2006-01-02"), got.InvoiceDate.Format("2006-01-02"))
		}
	}
}
