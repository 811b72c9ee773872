// Package advice implements the text extraction pipeline for payment advice
// documents: locating monetary amounts, extracting invoice identifiers under
// competing pattern tiers, reconstructing per-invoice amount rows, and
// assembling normalized payment records.
//
// The pipeline works over plain text produced by an upstream PDF extractor.
// Real advice texts are noisy: table cells wrap across lines, invoice numbers
// split at line breaks, and reference numbers masquerade as amounts. The
// extraction stages therefore apply prioritized pattern families with
// explicit validation rather than single regular expressions.
//
// Stages, in data-flow order:
//  1. FindAllIdentifiers: tiered invoice-number extraction
//  2. ExtractRows: per-identifier amount triads (gross, withheld, net)
//  3. BuildRecords: rows merged with document-level common fields
//
// ParseAmount is the shared monetary-figure locator used by stages 2 and 3.
package advice

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount plausibility bounds for this domain. Values outside the range are
// treated as reference numbers or noise, never as currency.
var (
	minPlausibleAmount = decimal.NewFromInt(100)
	maxPlausibleAmount = decimal.NewFromInt(10_000_000)
)

// amountPattern is one prioritized pattern family for locating amounts.
// Families are tried top to bottom; the first family producing a match that
// survives validation wins.
type amountPattern struct {
	name string
	re   *regexp.Regexp
}

// currencyMarker matches the currency notations seen in advice documents
const currencyMarker = `(?:₹|Rs\.?|INR)`

// numberForm matches a number with optional thousands separators and an
// optional fractional part
const numberForm = `([0-9][0-9,]*(?:\.[0-9]+)?)`

var defaultAmountLabels = []string{
	"amount", "amt", "net paid", "current net paid", "net amount",
	"bill amt", "bill amount", "invoice amount", "total",
}

var amountPatterns = []amountPattern{
	{
		name: "labeled_with_currency",
		// Filled in per call so hint labels can extend the label set
		re: nil,
	},
	{
		name: "currency_then_number",
		re:   regexp.MustCompile(currencyMarker + `\s*` + numberForm),
	},
	{
		name: "number_then_currency",
		re:   regexp.MustCompile(numberForm + `\s*` + currencyMarker),
	},
	{
		name: "bare_decimal",
		re:   regexp.MustCompile(`\b([0-9][0-9,]*\.[0-9]+)\b`),
	},
	{
		name: "bare_integer",
		re:   regexp.MustCompile(`\b([0-9][0-9,]*)\b`),
	},
}

// labeledAmountPattern builds the highest-priority pattern: a known label
// followed by an optionally currency-tagged number.
func labeledAmountPattern(hints []string) *regexp.Regexp {
	labels := make([]string, 0, len(defaultAmountLabels)+len(hints))
	for _, label := range hints {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, regexp.QuoteMeta(label))
		}
	}
	for _, label := range defaultAmountLabels {
		labels = append(labels, regexp.QuoteMeta(label))
	}

	return regexp.MustCompile(`(?i)(?:` + strings.Join(labels, "|") + `)\s*[:\-]?\s*` +
		currencyMarker + `?\s*` + numberForm)
}

// ParseAmount locates the most plausible monetary figure in text, or returns
// ok=false when nothing survives validation. Optional hints extend the label
// vocabulary of the highest-priority pattern family (e.g. a caller that knows
// the document uses "Settled Amt").
//
// Validation applies regardless of which family matched:
//   - values below 100 or above 10,000,000 are rejected as implausible
//   - string forms with 3+ leading zeros look like document numbers
//   - 8+ digit runs without a decimal point look like reference identifiers
func ParseAmount(text string, hints ...string) (decimal.Decimal, bool) {
	if strings.TrimSpace(text) == "" {
		return decimal.Zero, false
	}

	for _, pattern := range amountPatterns {
		re := pattern.re
		if pattern.name == "labeled_with_currency" {
			re = labeledAmountPattern(hints)
		}

		for _, match := range re.FindAllStringSubmatch(text, -1) {
			raw := match[1]
			if value, ok := validateAmountString(raw); ok {
				return value, true
			}
		}
	}

	return decimal.Zero, false
}

// validateAmountString applies the rejection rules to a raw numeric substring
// and returns the parsed value when it survives.
func validateAmountString(raw string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")

	// 3+ leading zeros mark a zero-padded document or reference number
	if strings.HasPrefix(cleaned, "000") {
		return decimal.Zero, false
	}

	// Long digit runs without a fractional part are identifiers, not money
	if !strings.Contains(cleaned, ".") && len(cleaned) >= 8 {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}

	if value.LessThan(minPlausibleAmount) || value.GreaterThan(maxPlausibleAmount) {
		return decimal.Zero, false
	}

	return value, true
}

// inPlausibleRange reports whether a value lies inside the domain's monetary bounds
func inPlausibleRange(value decimal.Decimal) bool {
	return value.GreaterThanOrEqual(minPlausibleAmount) && value.LessThanOrEqual(maxPlausibleAmount)
}
