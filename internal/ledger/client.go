// Package ledger talks to the external accounting system: it pages through
// the open-invoice listing to feed the run-scoped cache, and records
// payments against invoices when reconciliation fully matches them.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"payment-advice-reconciler/internal/matcher"
	"payment-advice-reconciler/internal/models"
	recerrors "payment-advice-reconciler/pkg/errors"
	"payment-advice-reconciler/pkg/logger"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultStartPage = 1
	defaultMaxPages  = 200

	unpaidInvoicesPath = "/api/invoices/unpaid"
	recordPaymentPath  = "/api/payments/record"
)

// Config holds the ledger endpoint settings.
type Config struct {
	// BaseURL is the ledger API root, without a trailing slash.
	BaseURL string `json:"base_url"`

	// Token is the bearer token sent with every request.
	Token string `json:"token"`

	// Timeout bounds each individual HTTP request.
	Timeout time.Duration `json:"timeout"`

	// StartPage is the first page requested from the unpaid-invoice listing.
	StartPage int `json:"start_page"`

	// MaxPages caps the unpaid-invoice pagination loop so a misbehaving
	// endpoint that never returns an empty page cannot spin forever.
	MaxPages int `json:"max_pages"`
}

// DefaultConfig returns the standard ledger client configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:   defaultTimeout,
		StartPage: defaultStartPage,
		MaxPages:  defaultMaxPages,
	}
}

// Validate checks the configuration for completeness
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("ledger base URL cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("ledger timeout must be positive: %s", c.Timeout)
	}
	if c.StartPage <= 0 {
		return fmt.Errorf("ledger start page must be positive: %d", c.StartPage)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("ledger max pages must be positive: %d", c.MaxPages)
	}
	return nil
}

// Client is the HTTP client for the external ledger. Requests are not
// retried; a failed page fetch fails the whole sync so the cache is never
// built from a partial listing.
type Client struct {
	config *Config
	http   *http.Client
	logger logger.Logger
}

// NewClient creates a ledger client. A nil config selects the defaults,
// which still require a base URL before use.
func NewClient(config *Config, log logger.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.StartPage <= 0 {
		config.StartPage = defaultStartPage
	}
	if config.MaxPages <= 0 {
		config.MaxPages = defaultMaxPages
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: log.WithComponent("ledger-client"),
	}
}

// wireInvoice is the ledger's invoice shape. Amounts decode from either JSON
// numbers or quoted strings; dates arrive as strings in assorted formats.
type wireInvoice struct {
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerName  string          `json:"customerName"`
	InvoiceDate   string          `json:"invoiceDate"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	BalanceAmount decimal.Decimal `json:"balanceAmount"`
	Status        string          `json:"status"`
}

func (w *wireInvoice) toModel() *models.LedgerInvoice {
	invoice := &models.LedgerInvoice{
		Identifier:    w.InvoiceNumber,
		CustomerName:  w.CustomerName,
		TotalAmount:   w.TotalAmount,
		BalanceAmount: w.BalanceAmount,
		Status:        w.Status,
	}
	if w.InvoiceDate != "" {
		if parsed, err := models.ParseDate(w.InvoiceDate); err == nil {
			invoice.InvoiceDate = &parsed
		}
	}
	return invoice
}

// FetchOpenInvoices pages through the ledger's unpaid-invoice listing and
// returns the full snapshot. Pagination starts at the configured start page
// and stops at the first empty page or the page cap; any page failure aborts
// the sync with no partial result.
func (c *Client) FetchOpenInvoices(ctx context.Context) ([]*models.LedgerInvoice, error) {
	if err := c.config.Validate(); err != nil {
		return nil, recerrors.ConfigurationError(recerrors.CodeInvalidConfig, "ledger", err.Error())
	}

	var all []*models.LedgerInvoice
	for page := c.config.StartPage; page < c.config.StartPage+c.config.MaxPages; page++ {
		invoices, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(invoices) == 0 {
			break
		}
		all = append(all, invoices...)
	}

	c.logger.WithField("invoices", len(all)).Info("Ledger invoice sync complete")
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, page int) ([]*models.LedgerInvoice, error) {
	endpoint := c.config.BaseURL + unpaidInvoicesPath

	body, err := json.Marshal(map[string]int{"pageNo": page})
	if err != nil {
		return nil, recerrors.InternalError("encoding page request", err)
	}

	data, err := c.post(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	wire, err := unwrapInvoices(data)
	if err != nil {
		return nil, recerrors.LedgerError(recerrors.CodeBadResponse, endpoint, err)
	}

	invoices := make([]*models.LedgerInvoice, 0, len(wire))
	for i := range wire {
		invoices = append(invoices, wire[i].toModel())
	}
	return invoices, nil
}

// WriteResolution records a payment against an invoice. Implements
// matcher.ResolutionWriter.
func (c *Client) WriteResolution(ctx context.Context, resolution *matcher.Resolution) error {
	endpoint := c.config.BaseURL + recordPaymentPath

	body, err := json.Marshal(resolution)
	if err != nil {
		return recerrors.InternalError("encoding payment payload", err)
	}

	if _, err := c.post(ctx, endpoint, body); err != nil {
		return err
	}

	c.logger.WithField("invoice", resolution.InvoiceNumber).Info("Payment recorded in ledger")
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, recerrors.InternalError("building ledger request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, recerrors.LedgerError(recerrors.CodeConnectionFailed, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, recerrors.LedgerError(recerrors.CodeBadResponse, endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, recerrors.LedgerError(recerrors.CodeUnauthorized, endpoint,
			fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, recerrors.LedgerError(recerrors.CodeBadResponse, endpoint,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 256)))
	}

	return data, nil
}

// unwrapInvoices tolerates the envelope shapes the ledger has been seen to
// use: an object keyed by "unpaidInvoices", "data" or "invoices", a bare
// array, or a single invoice object.
func unwrapInvoices(data []byte) ([]wireInvoice, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err == nil {
		for _, key := range []string{"unpaidInvoices", "data", "invoices"} {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			return decodeInvoiceList(raw)
		}
		// an object with none of the known keys may itself be one invoice
		var single wireInvoice
		if err := json.Unmarshal(data, &single); err == nil && single.InvoiceNumber != "" {
			return []wireInvoice{single}, nil
		}
		return nil, nil
	}

	return decodeInvoiceList(data)
}

// decodeInvoiceList decodes either an array of invoices or a single invoice
// object.
func decodeInvoiceList(raw []byte) ([]wireInvoice, error) {
	var list []wireInvoice
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var single wireInvoice
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("unrecognized invoice payload shape: %w", err)
	}
	if single.InvoiceNumber == "" {
		return nil, nil
	}
	return []wireInvoice{single}, nil
}

func truncate(data []byte, limit int) string {
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}
