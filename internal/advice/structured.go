package advice

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"payment-advice-reconciler/internal/models"
)

// StructuredInvoice is one invoice line as reported by a structured
// extractor. Amount fields arrive as strings since extractors frequently
// emit them with currency symbols or thousands separators.
type StructuredInvoice struct {
	InvoiceNumber    string `json:"invoice_number"`
	BillAmount       string `json:"bill_amount"`
	TDSAmount        string `json:"tds_amount"`
	NetPaymentAmount string `json:"net_payment_amount"`
	InvoiceDate      string `json:"invoice_date"`
}

// StructuredCommon carries the document-level fields of a structured
// extraction result.
type StructuredCommon struct {
	BankName        string `json:"bank_name"`
	PayerName       string `json:"payer_name"`
	BankReference   string `json:"bank_reference"`
	UTR             string `json:"utr"`
	PaymentDate     string `json:"payment_date"`
	TransactionDate string `json:"transaction_date"`
}

// StructuredResult is the full payload of a structured extraction pass.
type StructuredResult struct {
	Invoices      []StructuredInvoice `json:"invoices"`
	CommonDetails StructuredCommon    `json:"common_details"`
}

// DecodeStructured parses a structured extraction payload. Markdown code
// fences around the JSON body are tolerated, since extractors wrap their
// output that way more often than not.
func DecodeStructured(data []byte) (*StructuredResult, error) {
	body := stripCodeFence(strings.TrimSpace(string(data)))
	if body == "" {
		return nil, errors.New("structured payload is empty")
	}

	var result StructuredResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, errors.Wrap(err, "decoding structured payload")
	}
	return &result, nil
}

// Rows converts the structured invoices to payment rows. Unparseable amount
// fields are left nil rather than failing the whole document; the identifier
// is normalized the same way the text tiers normalize theirs, and candidates
// failing validation are dropped.
func (r *StructuredResult) Rows() []models.PaymentRow {
	var rows []models.PaymentRow
	for _, inv := range r.Invoices {
		identifier := NormalizeIdentifier(inv.InvoiceNumber)
		if identifier == "" || !ValidIdentifier(identifier) {
			continue
		}

		row := models.PaymentRow{
			Identifier: identifier,
			Gross:      parseStructuredAmount(inv.BillAmount),
			Withheld:   parseStructuredAmount(inv.TDSAmount),
			Net:        parseStructuredAmount(inv.NetPaymentAmount),
			RowDate:    parseStructuredDate(inv.InvoiceDate),
		}
		rows = append(rows, row)
	}
	return rows
}

// CommonFields converts the structured common details to builder input.
func (r *StructuredResult) CommonFields() CommonFields {
	c := r.CommonDetails
	return CommonFields{
		BankName:        c.BankName,
		PayerName:       c.PayerName,
		BankReference:   c.BankReference,
		UTR:             c.UTR,
		PaymentDate:     parseStructuredDate(c.PaymentDate),
		TransactionDate: parseStructuredDate(c.TransactionDate),
	}
}

func parseStructuredAmount(raw string) *decimal.Decimal {
	if strings.TrimSpace(raw) == "" || strings.EqualFold(strings.TrimSpace(raw), "null") {
		return nil
	}
	value, err := models.ParseAmountString(raw)
	if err != nil {
		return nil
	}
	return &value
}

func parseStructuredDate(raw string) *time.Time {
	if strings.TrimSpace(raw) == "" || strings.EqualFold(strings.TrimSpace(raw), "null") {
		return nil
	}
	parsed, err := models.ParseDate(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
