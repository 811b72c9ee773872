package advice

import (
	"testing"
	"time"

	"payment-advice-reconciler/internal/models"
)

func TestBuildRecordsFromRows(t *testing.T) {
	rowDate := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	paymentDate := time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)

	net := mustDecimal(t, "8644.00")
	rows := []models.PaymentRow{
		{Identifier: "23EXT2526/2834", Net: &net, RowDate: &rowDate},
		{Identifier: "24EXT2526/2901", Net: &net},
	}
	common := CommonFields{
		BankName:    "HDFC Bank",
		PayerName:   "Acme Ltd",
		UTR:         "N123456789012345",
		PaymentDate: &paymentDate,
	}
	meta := SourceMeta{SourceID: "advice-42", Document: "advice.pdf"}

	records := BuildRecords(rows, common, meta, "")
	if len(records) != 2 {
		t.Fatalf("BuildRecords returned %d records, want 2", len(records))
	}

	first := records[0]
	if first.Identifier != "23EXT2526/2834" {
		t.Errorf("Identifier = %s, want 23EXT2526/2834", first.Identifier)
	}
	if first.Status != models.StatusPending {
		t.Errorf("Status = %s, want %s", first.Status, models.StatusPending)
	}
	if first.BankName != "HDFC Bank" || first.PayerName != "Acme Ltd" {
		t.Errorf("common fields not propagated: %+v", first)
	}
	if first.BankReference != "N123456789012345" {
		t.Errorf("BankReference = %s, want the UTR", first.BankReference)
	}
	if first.InvoiceDate == nil || !first.InvoiceDate.Equal(rowDate) {
		t.Errorf("InvoiceDate = %v, want row date %v", first.InvoiceDate, rowDate)
	}
	if first.PaymentDate == nil || !first.PaymentDate.Equal(paymentDate) {
		t.Errorf("PaymentDate = %v, want %v", first.PaymentDate, paymentDate)
	}

	// The second row carried no date of its own.
	if records[1].InvoiceDate != nil {
		t.Errorf("second InvoiceDate = %v, want nil", records[1].InvoiceDate)
	}
}

func TestBuildRecordsNoRows(t *testing.T) {
	meta := SourceMeta{SourceID: "advice-7", Document: "advice.pdf"}
	text := "payment advice without table rows, Total Amount: ₹8,644.00"

	records := BuildRecords(nil, CommonFields{}, meta, text)
	if len(records) != 1 {
		t.Fatalf("BuildRecords returned %d records, want 1", len(records))
	}

	record := records[0]
	if record.Identifier != "" {
		t.Errorf("Identifier = %q, want empty", record.Identifier)
	}
	if record.Status != models.StatusPending {
		t.Errorf("Status = %s, want %s", record.Status, models.StatusPending)
	}
	assertAmount(t, "Net", record.Net, "8644.00")
}

func TestCommonFieldsReference(t *testing.T) {
	c := CommonFields{BankReference: "REF-1", UTR: "UTR-1"}
	if got := c.Reference(); got != "REF-1" {
		t.Errorf("Reference = %s, want REF-1", got)
	}

	c = CommonFields{UTR: "UTR-1"}
	if got := c.Reference(); got != "UTR-1" {
		t.Errorf("Reference = %s, want UTR-1", got)
	}
}
