package advice

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"payment-advice-reconciler/internal/models"
)

// suffixWindow is how many lines below an identifier's owning line the
// slash suffix may appear and still confirm ownership.
const suffixWindow = 2

var (
	// decimalValueRe matches table-style figures with exactly two decimal
	// places, the form used for positional amount recovery. Thousands
	// separators are optional: "8,801.00" and "8801.00" both match.
	decimalValueRe = regexp.MustCompile(`\b(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\b`)

	// boundedRunRe matches thousands-grouped or ungrouped numbers for the
	// right-to-left generic scan.
	boundedRunRe = regexp.MustCompile(`\b(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?\b`)

	// currencyTaggedRe matches figures carrying an explicit currency marker.
	currencyTaggedRe = regexp.MustCompile(currencyMarker + `\s*` + numberForm)

	// rowDateRe matches the date forms that appear inline in advice tables.
	rowDateRe = regexp.MustCompile(`\b(?:\d{2}[-/]\d{2}[-/]\d{4}|\d{4}-\d{2}-\d{2})\b`)
)

// Labeled amount anchors, grouped by the triad slot they fill. Matching is
// case-insensitive and scoped to the owning line plus the suffix window.
var (
	grossLabels    = []string{"bill amt", "bill amount", "invoice amount", "gross amount", "gross amt"}
	withheldLabels = []string{"tds amt", "tds amount", "tds", "tax deducted"}
	netLabels      = []string{"current net paid", "net paid", "net amount", "net amt", "amount paid", "amount"}
)

// ExtractRows attributes each identifier to a line of the document and pulls
// the amount triad and row date from that line's neighborhood.
//
// Attribution walks the document top to bottom looking for the first unused
// line containing the identifier's prefix; when the identifier carries a
// slash suffix, the suffix must also appear within the owning line or the
// two lines below it. A line claimed by one identifier is never reused for
// another, so repeated identifiers attach to successive occurrences.
//
// Identifiers with no owning line produce no row.
func ExtractRows(text string, identifiers []string) []models.PaymentRow {
	lines := strings.Split(text, "\n")
	used := make(map[int]bool)

	var rows []models.PaymentRow
	for _, identifier := range identifiers {
		lineIdx, ok := findOwningLine(lines, used, identifier)
		if !ok {
			continue
		}
		used[lineIdx] = true
		rows = append(rows, extractRowAt(lines, lineIdx, identifier))
	}
	return rows
}

// findOwningLine locates the first unclaimed line containing the
// identifier's prefix, with the suffix confirmed inside the window.
func findOwningLine(lines []string, used map[int]bool, identifier string) (int, bool) {
	prefix := identifier
	suffix := ""
	if slash := strings.Index(identifier, "/"); slash >= 0 {
		prefix = identifier[:slash]
		suffix = identifier[slash+1:]
	}

	for i := range lines {
		if used[i] {
			continue
		}
		if !lineContainsToken(lines[i], prefix) {
			continue
		}
		if suffix == "" {
			return i, true
		}
		limit := i + suffixWindow
		if limit >= len(lines) {
			limit = len(lines) - 1
		}
		for j := i; j <= limit; j++ {
			if lineContainsToken(lines[j], suffix) {
				return i, true
			}
		}
	}
	return 0, false
}

// lineContainsToken compares whitespace-stripped uppercase forms, so tokens
// that the source document spaces out ("23EXT2526 / 2834") still match their
// normalized identifier parts.
func lineContainsToken(line, token string) bool {
	stripped := strings.Join(strings.Fields(strings.ToUpper(line)), "")
	return strings.Contains(stripped, token)
}

// extractRowAt fills the amount triad for one row. Sources apply in order,
// each filling only slots still empty:
//
//  1. label-anchored figures in the owning line plus the suffix window
//  2. the last currency-tagged plausible figure on the owning line (net)
//  3. the rightmost plausible bounded digit run on the owning line (net)
//  4. positional recovery over the owning line's two-decimal figures
func extractRowAt(lines []string, lineIdx int, identifier string) models.PaymentRow {
	row := models.PaymentRow{Identifier: identifier}

	line := lines[lineIdx]
	window := windowText(lines, lineIdx)

	row.Gross = labeledAmount(window, grossLabels)
	row.Withheld = labeledAmount(window, withheldLabels)
	row.Net = labeledAmount(window, netLabels)

	if row.Net == nil {
		row.Net = lastCurrencyTagged(line)
	}
	if row.Net == nil {
		row.Net = rightmostBoundedRun(line)
	}
	if !row.Complete() {
		fillPositional(&row, line)
	}

	if match := rowDateRe.FindString(line); match != "" {
		if parsed, err := models.ParseDate(match); err == nil {
			row.RowDate = &parsed
		}
	}

	return row
}

func windowText(lines []string, lineIdx int) string {
	limit := lineIdx + suffixWindow
	if limit >= len(lines) {
		limit = len(lines) - 1
	}
	return strings.Join(lines[lineIdx:limit+1], "\n")
}

// labeledAmount finds the first figure anchored to one of the given labels.
func labeledAmount(window string, labels []string) *decimal.Decimal {
	for _, label := range labels {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*[:\-]?\s*` + currencyMarker + `?\s*` + numberForm)
		m := re.FindStringSubmatch(window)
		if m == nil {
			continue
		}
		if value, ok := parseFigure(m[1]); ok {
			return &value
		}
	}
	return nil
}

// lastCurrencyTagged returns the last currency-marked plausible figure on a
// line, the strongest signal for the net amount in free-form rows.
func lastCurrencyTagged(line string) *decimal.Decimal {
	matches := currencyTaggedRe.FindAllStringSubmatch(line, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if value, ok := parseFigure(matches[i][1]); ok {
			return &value
		}
	}
	return nil
}

// rightmostBoundedRun scans a line's bounded digit runs right to left and
// returns the first plausible one.
func rightmostBoundedRun(line string) *decimal.Decimal {
	matches := boundedRunRe.FindAllString(line, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if value, ok := parseFigure(matches[i]); ok {
			return &value
		}
	}
	return nil
}

// fillPositional recovers still-missing triad slots from the positions of
// the two-decimal figures on the row's line. Columnar statements put the
// bill amount, TDS and net paid at stable offsets; narrower rows carry
// fewer figures and get the reduced rules.
func fillPositional(row *models.PaymentRow, line string) {
	var values []decimal.Decimal
	for _, raw := range decimalValueRe.FindAllString(line, -1) {
		value, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			continue
		}
		if value.LessThan(minPlausibleAmount) {
			continue
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return
	}

	setIfNil := func(slot **decimal.Decimal, value decimal.Decimal) {
		if *slot == nil {
			v := value
			*slot = &v
		}
	}

	switch {
	case len(values) >= 7:
		setIfNil(&row.Gross, values[2])
		setIfNil(&row.Withheld, values[6])
		setIfNil(&row.Net, values[len(values)-1])
	case len(values) == 1:
		setIfNil(&row.Net, values[0])
	case len(values) == 2:
		gross, net := values[0], values[1]
		if net.GreaterThan(gross) {
			gross, net = net, gross
		}
		setIfNil(&row.Gross, gross)
		setIfNil(&row.Net, net)
		if row.Gross != nil && row.Net != nil && row.Withheld == nil {
			diff := row.Gross.Sub(*row.Net)
			if diff.IsPositive() {
				row.Withheld = &diff
			}
		}
	default: // 3 to 6 figures
		setIfNil(&row.Gross, values[0])
		setIfNil(&row.Net, values[len(values)-1])
		if row.Gross != nil && row.Net != nil && row.Withheld == nil {
			diff := row.Gross.Sub(*row.Net)
			if diff.IsPositive() && diff.LessThan(*row.Gross) {
				row.Withheld = &diff
			}
		}
	}
}

// parseFigure parses a matched figure and applies the plausibility window.
func parseFigure(raw string) (decimal.Decimal, bool) {
	value, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	if !inPlausibleRange(value) {
		return decimal.Decimal{}, false
	}
	return value, true
}
