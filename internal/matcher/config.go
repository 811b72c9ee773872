// Package matcher resolves extracted payment records against a cached
// snapshot of the external ledger.
//
// The package provides:
//   - InvoiceCache: an identifier-keyed snapshot of open ledger invoices,
//     rebuilt wholesale at the start of each reconciliation run
//   - MatchEngine: the scoring state machine that turns one payment record
//     plus the cache into a verdict, confidence score and discrepancy notes
//   - date inference for the write-back payload when source documents carry
//     incomplete dates
//
// Matching is deliberately conservative: an amount inside the tolerance and
// an open invoice status yield a full match; everything else degrades the
// confidence score rather than failing outright, so borderline cases surface
// as REVIEW_REQUIRED instead of disappearing.
package matcher

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Config controls scoring, tolerances and write-back behavior of the
// MatchEngine.
type Config struct {
	// AmountTolerance is the maximum absolute difference between the
	// record's effective amount and the ledger total that still counts as
	// an amount match. The default of 10 currency units absorbs rounding
	// and small bank charges.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// MatchThreshold is the minimum confidence score for a MATCHED verdict.
	MatchThreshold float64 `json:"match_threshold"`

	// PartialThreshold is the minimum confidence score for a PARTIAL_MATCH
	// verdict. Scores below it resolve to UNMATCHED.
	PartialThreshold float64 `json:"partial_threshold"`

	// AmountMismatchPenalty is subtracted from the confidence score when
	// the amount difference exceeds the tolerance.
	AmountMismatchPenalty float64 `json:"amount_mismatch_penalty"`

	// PaidStatusPenalty is subtracted when the ledger invoice is already
	// marked paid.
	PaidStatusPenalty float64 `json:"paid_status_penalty"`

	// UnexpectedStatusPenalty is subtracted for any ledger status that is
	// neither open nor paid.
	UnexpectedStatusPenalty float64 `json:"unexpected_status_penalty"`

	// OpenStatuses are the ledger statuses that carry no penalty; the
	// invoice is expected to be awaiting payment. Comparison is
	// case-insensitive.
	OpenStatuses []string `json:"open_statuses"`

	// AutoResolve enables writing payments back to the ledger for full
	// matches. Off by default so a misconfigured run cannot mutate the
	// ledger.
	AutoResolve bool `json:"auto_resolve"`
}

// DefaultConfig returns the standard matching configuration
func DefaultConfig() *Config {
	return &Config{
		AmountTolerance:         decimal.NewFromInt(10),
		MatchThreshold:          80,
		PartialThreshold:        50,
		AmountMismatchPenalty:   30,
		PaidStatusPenalty:       10,
		UnexpectedStatusPenalty: 15,
		OpenStatuses:            []string{"unpaid", "pending", "overdue"},
		AutoResolve:             false,
	}
}

// StrictConfig returns a configuration with a tight amount tolerance and a
// higher bar for full matches, for runs feeding unattended write-back.
func StrictConfig() *Config {
	config := DefaultConfig()
	config.AmountTolerance = decimal.NewFromInt(1)
	config.MatchThreshold = 90
	return config
}

// ReviewConfig returns a configuration that funnels more records to manual
// review by raising the partial threshold floor.
func ReviewConfig() *Config {
	config := DefaultConfig()
	config.PartialThreshold = 70
	return config
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", c.AmountTolerance)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("match threshold must be between 0 and 100: %f", c.MatchThreshold)
	}
	if c.PartialThreshold < 0 || c.PartialThreshold > 100 {
		return fmt.Errorf("partial threshold must be between 0 and 100: %f", c.PartialThreshold)
	}
	if c.PartialThreshold > c.MatchThreshold {
		return fmt.Errorf("partial threshold (%f) cannot exceed match threshold (%f)",
			c.PartialThreshold, c.MatchThreshold)
	}
	for _, penalty := range []float64{c.AmountMismatchPenalty, c.PaidStatusPenalty, c.UnexpectedStatusPenalty} {
		if penalty < 0 {
			return fmt.Errorf("penalties cannot be negative: %f", penalty)
		}
	}
	return nil
}

// IsOpenStatus reports whether a ledger status counts as awaiting payment
func (c *Config) IsOpenStatus(status string) bool {
	for _, open := range c.OpenStatuses {
		if strings.EqualFold(open, status) {
			return true
		}
	}
	return false
}
