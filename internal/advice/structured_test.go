package advice

import (
	"testing"
)

const structuredPayload = "```json\n" + `{
  "invoices": [
    {
      "invoice_number": "23EXT2526/2834",
      "bill_amount": "8,801.00",
      "tds_amount": "157.00",
      "net_payment_amount": "8644.00",
      "invoice_date": "12-05-2025"
    },
    {
      "invoice_number": "null",
      "net_payment_amount": "100.00"
    }
  ],
  "common_details": {
    "bank_name": "HDFC Bank",
    "payer_name": "Acme Ltd",
    "utr": "N123456789012345",
    "payment_date": "2025-05-15"
  }
}` + "\n```"

func TestDecodeStructured(t *testing.T) {
	result, err := DecodeStructured([]byte(structuredPayload))
	if err != nil {
		t.Fatalf("DecodeStructured failed: %v", err)
	}

	rows := result.Rows()
	if len(rows) != 1 {
		t.Fatalf("Rows returned %d rows, want 1 (invalid identifier dropped)", len(rows))
	}

	row := rows[0]
	if row.Identifier != "23EXT2526/2834" {
		t.Errorf("Identifier = %s, want 23EXT2526/2834", row.Identifier)
	}
	assertAmount(t, "Gross", row.Gross, "8801.00")
	assertAmount(t, "Withheld", row.Withheld, "157.00")
	assertAmount(t, "Net", row.Net, "8644.00")
	if row.RowDate == nil || row.RowDate.Format("2006-01-02") != "2025-05-12" {
		t.Errorf("RowDate = %v, want 2025-05-12", row.RowDate)
	}

	common := result.CommonFields()
	if common.BankName != "HDFC Bank" || common.PayerName != "Acme Ltd" {
		t.Errorf("common fields = %+v", common)
	}
	if common.Reference() != "N123456789012345" {
		t.Errorf("Reference = %s, want the UTR", common.Reference())
	}
	if common.PaymentDate == nil || common.PaymentDate.Format("2006-01-02") != "2025-05-15" {
		t.Errorf("PaymentDate = %v, want 2025-05-15", common.PaymentDate)
	}
}

func TestDecodeStructuredWithoutFence(t *testing.T) {
	result, err := DecodeStructured([]byte(`{"invoices": [], "common_details": {}}`))
	if err != nil {
		t.Fatalf("DecodeStructured failed: %v", err)
	}
	if len(result.Invoices) != 0 {
		t.Errorf("Invoices = %d, want 0", len(result.Invoices))
	}
}

func TestDecodeStructuredErrors(t *testing.T) {
	if _, err := DecodeStructured([]byte("   ")); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, err := DecodeStructured([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
