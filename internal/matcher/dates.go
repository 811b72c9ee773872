package matcher

import (
	"sort"
	"time"

	"payment-advice-reconciler/internal/models"
)

// ResolutionDates are the invoice and transaction dates chosen for a ledger
// write-back payload.
type ResolutionDates struct {
	InvoiceDate     time.Time
	TransactionDate time.Time
}

// InferResolutionDates picks the invoice and transaction dates for a
// write-back from whatever dates survived extraction. Payment advices
// routinely carry one date, two dates in either order, or none at all, so
// the rules lean on the ledger's own invoice date where it exists:
//
//   - the distinct payment-side dates are collected first (record invoice
//     date, payment date, transaction date; duplicates collapse)
//   - when the ledger invoice date equals one of them, that date is the
//     invoice date and the other surviving date (or today) becomes the
//     transaction date
//   - otherwise, with two or more distinct dates, the earliest is taken as
//     the invoice date (unless the ledger supplied one) and the next as the
//     transaction date
//   - a single date pairs with today; no dates at all means today for both
//
// The invariant that the transaction date falls strictly after the invoice
// date is enforced last: the pair is swapped if reversed, and the
// transaction date advances one day if the two are still equal.
func InferResolutionDates(record *models.PaymentRecord, ledgerDate *time.Time, now time.Time) ResolutionDates {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dates := distinctDates(record.InvoiceDate, record.PaymentDate, record.TransactionDate)

	var invoiceDate, transactionDate time.Time

	switch {
	case ledgerDate != nil && containsDate(dates, *ledgerDate):
		invoiceDate = *ledgerDate
		transactionDate = firstOtherDate(dates, invoiceDate, today)

	case len(dates) >= 2:
		if ledgerDate != nil {
			invoiceDate = *ledgerDate
			transactionDate = firstOtherDate(dates, invoiceDate, today)
		} else {
			invoiceDate = dates[0]
			transactionDate = dates[1]
		}

	case len(dates) == 1:
		if ledgerDate != nil {
			invoiceDate = *ledgerDate
			transactionDate = dates[0]
		} else {
			invoiceDate = dates[0]
			transactionDate = today
		}

	default:
		if ledgerDate != nil {
			invoiceDate = *ledgerDate
		} else {
			invoiceDate = today
		}
		transactionDate = today
	}

	if transactionDate.Before(invoiceDate) {
		invoiceDate, transactionDate = transactionDate, invoiceDate
	}
	if models.SameDate(invoiceDate, transactionDate) {
		transactionDate = transactionDate.AddDate(0, 0, 1)
	}

	return ResolutionDates{InvoiceDate: invoiceDate, TransactionDate: transactionDate}
}

// distinctDates collapses the payment-side dates to unique calendar dates in
// ascending order.
func distinctDates(dates ...*time.Time) []time.Time {
	var out []time.Time
	for _, d := range dates {
		if d == nil {
			continue
		}
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if !containsDate(out, day) {
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func containsDate(dates []time.Time, target time.Time) bool {
	for _, d := range dates {
		if models.SameDate(d, target) {
			return true
		}
	}
	return false
}

// firstOtherDate returns the earliest date differing from the invoice date,
// or the fallback when none survives.
func firstOtherDate(dates []time.Time, invoiceDate, fallback time.Time) time.Time {
	for _, d := range dates {
		if !models.SameDate(d, invoiceDate) {
			return d
		}
	}
	return fallback
}
