// Package errors defines the categorized error type used across the
// reconciliation service.
//
// Per-record failures during a run are represented by these errors but are
// never allowed to abort the run loop; they surface as discrepancy notes on
// the affected record's result. The category determines the process exit code
// when an error does reach the CLI boundary (configuration, storage, ledger
// connectivity).
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryExtraction ErrorCategory = "extraction"
	CategoryLookup     ErrorCategory = "lookup"
	CategoryWriteBack  ErrorCategory = "writeback"
	CategoryValidation ErrorCategory = "validation"
	CategoryStorage    ErrorCategory = "storage"
	CategoryLedger     ErrorCategory = "ledger"
	CategoryConfig     ErrorCategory = "configuration"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Extraction errors
	CodeNoIdentifier ErrorCode = "no_identifier"
	CodeNoAmount     ErrorCode = "no_amount"
	CodeEmptyText    ErrorCode = "empty_text"

	// Lookup errors
	CodeInvoiceNotFound ErrorCode = "invoice_not_found"
	CodeCacheNotBuilt   ErrorCode = "cache_not_built"

	// Write-back errors
	CodeWriteRejected ErrorCode = "write_rejected"
	CodeWriteTimeout  ErrorCode = "write_timeout"

	// Validation errors
	CodeMissingField  ErrorCode = "missing_field"
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"

	// Storage errors
	CodeQueryFailed  ErrorCode = "query_failed"
	CodeInsertFailed ErrorCode = "insert_failed"

	// Ledger errors
	CodeConnectionFailed ErrorCode = "connection_failed"
	CodeBadResponse      ErrorCode = "bad_response"
	CodeUnauthorized     ErrorCode = "unauthorized"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryStorage:
		return 2
	case CategoryExtraction, CategoryValidation:
		return 3
	case CategoryConfig:
		return 4
	case CategoryInternal:
		return 5
	case CategoryLedger, CategoryWriteBack:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// ExtractionError creates an extraction-related error. These are non-fatal:
// the record proceeds with empty fields and resolves to NOT_FOUND.
func ExtractionError(code ErrorCode, source string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeNoIdentifier:
		message = fmt.Sprintf("no invoice identifier extracted from %s", source)
		suggestion = "check the document text quality or extend the identifier patterns"
	case CodeNoAmount:
		message = fmt.Sprintf("no usable amount found in %s", source)
		suggestion = "verify the document contains labeled or currency-tagged amounts"
	case CodeEmptyText:
		message = fmt.Sprintf("empty text extracted from %s", source)
		suggestion = "the upstream extractor returned nothing; the document may be image-only"
	default:
		message = fmt.Sprintf("extraction failed for %s", source)
		suggestion = "check the source document"
	}

	result := newOrWrap(err, CategoryExtraction, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// LookupError creates a cache-lookup error
func LookupError(code ErrorCode, identifier string) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvoiceNotFound:
		message = fmt.Sprintf("invoice %s not found in ledger cache", identifier)
		suggestion = "the invoice may already be settled or outside the synced page range"
	case CodeCacheNotBuilt:
		message = "invoice cache has not been rebuilt for this run"
		suggestion = "call Rebuild with a fresh ledger snapshot before resolving records"
	default:
		message = fmt.Sprintf("lookup failed for %s", identifier)
		suggestion = "rebuild the invoice cache and retry"
	}

	return New(CategoryLookup, code, message).
		WithSuggestion(suggestion).
		WithContext("identifier", identifier)
}

// WriteBackError creates a ledger write-back error. Write-back failures are
// recorded as discrepancy notes and never change the match verdict.
func WriteBackError(code ErrorCode, identifier string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeWriteRejected:
		message = fmt.Sprintf("ledger rejected payment write for invoice %s", identifier)
		suggestion = "check the ledger response body for field-level errors"
	case CodeWriteTimeout:
		message = fmt.Sprintf("timed out writing payment for invoice %s", identifier)
		suggestion = "the ledger endpoint may be slow; the verdict is unaffected"
	default:
		message = fmt.Sprintf("write-back failed for invoice %s", identifier)
		suggestion = "check ledger connectivity"
	}

	result := newOrWrap(err, CategoryWriteBack, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("identifier", identifier)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "ensure amounts are decimal numbers with two fractional digits"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use ISO dates (YYYY-MM-DD)"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return New(CategoryValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// StorageError creates a store-related error
func StorageError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeQueryFailed:
		message = fmt.Sprintf("store query failed during %s", operation)
		suggestion = "check the database file and its permissions"
	case CodeInsertFailed:
		message = fmt.Sprintf("store insert failed during %s", operation)
		suggestion = "check disk space and schema version"
	default:
		message = fmt.Sprintf("storage error during %s", operation)
		suggestion = "check the database and try again"
	}

	result := newOrWrap(err, CategoryStorage, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// LedgerError creates a ledger-connectivity error
func LedgerError(code ErrorCode, endpoint string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeConnectionFailed:
		message = fmt.Sprintf("connection failed to %s", endpoint)
		suggestion = "check network connectivity and the ledger endpoint"
	case CodeBadResponse:
		message = fmt.Sprintf("unexpected response from %s", endpoint)
		suggestion = "the ledger API shape may have changed; inspect the raw body"
	case CodeUnauthorized:
		message = fmt.Sprintf("unauthorized request to %s", endpoint)
		suggestion = "check the access token configuration"
	default:
		message = fmt.Sprintf("ledger error: %s", endpoint)
		suggestion = "check the ledger service and try again"
	}

	result := newOrWrap(err, CategoryLedger, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("endpoint", endpoint)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting via flag, config file or environment"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return New(CategoryConfig, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	result := newOrWrap(err, CategoryInternal, CodeUnexpectedError, message)
	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

func newOrWrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*ReconcilerError    `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
