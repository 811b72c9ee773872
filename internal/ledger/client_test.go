package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"payment-advice-reconciler/internal/matcher"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.Token = "test-token"
	return NewClient(config, nil), server
}

func TestFetchOpenInvoicesPaged(t *testing.T) {
	var pages []int
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != unpaidInvoicesPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		var req struct {
			PageNo int `json:"pageNo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding page request: %v", err)
		}
		pages = append(pages, req.PageNo)

		switch req.PageNo {
		case 1:
			fmt.Fprint(w, `{"unpaidInvoices": [
				{"invoiceNumber": "23EXT2526/2834", "customerName": "Acme Ltd",
				 "invoiceDate": "2025-04-01", "totalAmount": 8801.00,
				 "balanceAmount": "8801.00", "status": "unpaid"},
				{"invoiceNumber": "24EXT2526/2901", "totalAmount": "1200.50", "status": "overdue"}
			]}`)
		case 2:
			fmt.Fprint(w, `{"unpaidInvoices": [
				{"invoiceNumber": "25EXT2526/3001", "totalAmount": 500, "status": "pending"}
			]}`)
		default:
			fmt.Fprint(w, `{"unpaidInvoices": []}`)
		}
	}))

	invoices, err := client.FetchOpenInvoices(context.Background())
	if err != nil {
		t.Fatalf("FetchOpenInvoices failed: %v", err)
	}

	if len(invoices) != 3 {
		t.Fatalf("got %d invoices, want 3", len(invoices))
	}
	if len(pages) != 3 || pages[0] != 1 || pages[2] != 3 {
		t.Errorf("pages requested = %v, want [1 2 3]", pages)
	}

	first := invoices[0]
	if first.Identifier != "23EXT2526/2834" || first.CustomerName != "Acme Ltd" {
		t.Errorf("first invoice = %+v", first)
	}
	if !first.TotalAmount.Equal(decimal.NewFromFloat(8801.00)) {
		t.Errorf("TotalAmount = %s, want 8801", first.TotalAmount)
	}
	if first.InvoiceDate == nil || first.InvoiceDate.Format("2006-01-02") != "2025-04-01" {
		t.Errorf("InvoiceDate = %v, want 2025-04-01", first.InvoiceDate)
	}

	// String-typed amount on the second invoice decodes the same way.
	if !invoices[1].TotalAmount.Equal(decimal.NewFromFloat(1200.50)) {
		t.Errorf("second TotalAmount = %s, want 1200.5", invoices[1].TotalAmount)
	}
}

func TestFetchOpenInvoicesEnvelopeShapes(t *testing.T) {
	bodies := []string{
		`{"data": [{"invoiceNumber": "23EXT2526/2834", "totalAmount": 100, "status": "unpaid"}]}`,
		`{"invoices": [{"invoiceNumber": "23EXT2526/2834", "totalAmount": 100, "status": "unpaid"}]}`,
		`[{"invoiceNumber": "23EXT2526/2834", "totalAmount": 100, "status": "unpaid"}]`,
		`{"invoiceNumber": "23EXT2526/2834", "totalAmount": 100, "status": "unpaid"}`,
	}

	for _, body := range bodies {
		calls := 0
		client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				fmt.Fprint(w, body)
				return
			}
			fmt.Fprint(w, `[]`)
		}))

		invoices, err := client.FetchOpenInvoices(context.Background())
		if err != nil {
			t.Errorf("body %s: %v", body, err)
			continue
		}
		if len(invoices) != 1 || invoices[0].Identifier != "23EXT2526/2834" {
			t.Errorf("body %s: invoices = %v", body, invoices)
		}
	}
}

func TestFetchOpenInvoicesServerError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if _, err := client.FetchOpenInvoices(context.Background()); err == nil {
		t.Error("expected error on server failure")
	}
}

func TestFetchOpenInvoicesUnauthorized(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	if _, err := client.FetchOpenInvoices(context.Background()); err == nil {
		t.Error("expected error on unauthorized response")
	}
}

func TestWriteResolution(t *testing.T) {
	var received matcher.Resolution
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != recordPaymentPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		fmt.Fprint(w, `{"status": "ok"}`)
	}))

	resolution := &matcher.Resolution{
		ClientName:      "Acme Ltd",
		InvoiceNumber:   "23EXT2526/2834",
		InvoiceDate:     "2025-04-01",
		Amount:          decimal.NewFromFloat(8644.00),
		TDS:             decimal.NewFromFloat(157.00),
		FileName:        "advice.pdf",
		BankReference:   "N123456789012345",
		TotalAmount:     decimal.NewFromFloat(8801.00),
		TransactionDate: "2025-05-12",
	}

	if err := client.WriteResolution(context.Background(), resolution); err != nil {
		t.Fatalf("WriteResolution failed: %v", err)
	}
	if received.InvoiceNumber != "23EXT2526/2834" || received.ClientName != "Acme Ltd" {
		t.Errorf("server received %+v", received)
	}
}

func TestWriteResolutionRejected(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid payload", http.StatusBadRequest)
	}))

	err := client.WriteResolution(context.Background(), &matcher.Resolution{
		InvoiceNumber: "23EXT2526/2834",
	})
	if err == nil {
		t.Error("expected error on rejected write")
	}
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err == nil {
		t.Error("expected error without a base URL")
	}

	config.BaseURL = "https://ledger.example.com"
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	config.StartPage = 0
	if err := config.Validate(); err == nil {
		t.Error("expected error for zero start page")
	}
}

func TestFetchOpenInvoicesHonorsStartPage(t *testing.T) {
	var pages []int
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PageNo int `json:"pageNo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding page request: %v", err)
		}
		pages = append(pages, req.PageNo)
		fmt.Fprint(w, `[]`)
	}))
	client.config.StartPage = 5

	if _, err := client.FetchOpenInvoices(context.Background()); err != nil {
		t.Fatalf("FetchOpenInvoices failed: %v", err)
	}
	if len(pages) != 1 || pages[0] != 5 {
		t.Errorf("requested pages = %v, want [5]", pages)
	}
}
