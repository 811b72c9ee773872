package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	err := New(CategoryExtraction, CodeNoIdentifier, "test message")

	if err.Category != CategoryExtraction {
		t.Errorf("Category = %s, want %s", err.Category, CategoryExtraction)
	}
	if err.Code != CodeNoIdentifier {
		t.Errorf("Code = %s, want %s", err.Code, CodeNoIdentifier)
	}
	if err.Error() != "test message" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorWithSuggestion(t *testing.T) {
	err := New(CategoryLedger, CodeConnectionFailed, "connection refused").
		WithSuggestion("check the endpoint")

	want := "connection refused (suggestion: check the endpoint)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorWithContext(t *testing.T) {
	err := New(CategoryStorage, CodeQueryFailed, "query failed").
		WithContext("operation", "select pending").
		WithContext("attempt", 2)

	if err.Context["operation"] != "select pending" {
		t.Errorf("Context[operation] = %v", err.Context["operation"])
	}
	if err.Context["attempt"] != 2 {
		t.Errorf("Context[attempt] = %v", err.Context["attempt"])
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("underlying failure")
	err := Wrap(cause, CategoryLedger, CodeBadResponse, "decode failed")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error does not match its cause via errors.Is")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want cause", err.Unwrap())
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, CategoryLedger, CodeBadResponse, "message"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
	if err := WrapIfNeeded(nil, CategoryLedger, CodeBadResponse, "message"); err != nil {
		t.Errorf("WrapIfNeeded(nil) = %v, want nil", err)
	}
}

func TestWrapIfNeededKeepsExisting(t *testing.T) {
	original := LedgerError(CodeUnauthorized, "/api/invoices/unpaid", nil)
	wrapped := WrapIfNeeded(original, CategoryStorage, CodeQueryFailed, "should be ignored")

	if wrapped != original {
		t.Error("WrapIfNeeded replaced an existing ReconcilerError")
	}
	if wrapped.Category != CategoryLedger {
		t.Errorf("Category = %s, want %s", wrapped.Category, CategoryLedger)
	}

	plain := stderrors.New("plain failure")
	wrapped = WrapIfNeeded(plain, CategoryStorage, CodeQueryFailed, "store failed")
	if wrapped.Category != CategoryStorage {
		t.Errorf("Category = %s, want %s", wrapped.Category, CategoryStorage)
	}
	if !stderrors.Is(wrapped, plain) {
		t.Error("wrapped error lost its cause")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     int
	}{
		{CategoryStorage, 2},
		{CategoryExtraction, 3},
		{CategoryValidation, 3},
		{CategoryConfig, 4},
		{CategoryInternal, 5},
		{CategoryLedger, 6},
		{CategoryWriteBack, 6},
		{CategoryLookup, 1},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "test")
		if got := err.GetExitCode(); got != tt.want {
			t.Errorf("GetExitCode for %s = %d, want %d", tt.category, got, tt.want)
		}
	}
}

func TestConstructorCategories(t *testing.T) {
	cause := stderrors.New("boom")
	tests := []struct {
		name     string
		err      *ReconcilerError
		category ErrorCategory
		code     ErrorCode
	}{
		{"extraction", ExtractionError(CodeEmptyText, "advice.txt", cause), CategoryExtraction, CodeEmptyText},
		{"lookup", LookupError(CodeInvoiceNotFound, "23EXT2526/2834"), CategoryLookup, CodeInvoiceNotFound},
		{"writeback", WriteBackError(CodeWriteRejected, "23EXT2526/2834", cause), CategoryWriteBack, CodeWriteRejected},
		{"validation", ValidationError(CodeMissingField, "source_id", ""), CategoryValidation, CodeMissingField},
		{"storage", StorageError(CodeInsertFailed, "insert record", cause), CategoryStorage, CodeInsertFailed},
		{"ledger", LedgerError(CodeBadResponse, "/api/invoices/unpaid", cause), CategoryLedger, CodeBadResponse},
		{"config", ConfigurationError(CodeMissingConfig, "ledger-url", nil), CategoryConfig, CodeMissingConfig},
		{"internal", InternalError("encoding notes", cause), CategoryInternal, CodeUnexpectedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Suggestion == "" {
				t.Error("constructor left Suggestion empty")
			}
		})
	}
}

func TestAsReconcilerError(t *testing.T) {
	inner := StorageError(CodeQueryFailed, "select", nil)
	wrapped := fmt.Errorf("outer: %w", inner)

	got, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("AsReconcilerError failed to find the error in the chain")
	}
	if got.Code != CodeQueryFailed {
		t.Errorf("Code = %s, want %s", got.Code, CodeQueryFailed)
	}

	if _, ok := AsReconcilerError(stderrors.New("plain")); ok {
		t.Error("AsReconcilerError matched a plain error")
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		StorageError(CodeQueryFailed, "select", nil),
		StorageError(CodeInsertFailed, "insert", nil),
		LedgerError(CodeConnectionFailed, "/api/invoices/unpaid", nil),
	}

	summary := NewErrorSummary(errs)
	if summary.Total != 3 {
		t.Errorf("Total = %d, want 3", summary.Total)
	}
	if summary.ByCategory[CategoryStorage] != 2 {
		t.Errorf("storage count = %d, want 2", summary.ByCategory[CategoryStorage])
	}
	if !summary.HasCategory(CategoryLedger) {
		t.Error("HasCategory(ledger) = false")
	}
	if summary.HasCategory(CategoryExtraction) {
		t.Error("HasCategory(extraction) = true")
	}
	if !strings.Contains(summary.Error(), "3 errors occurred") {
		t.Errorf("summary Error() = %q", summary.Error())
	}

	empty := NewErrorSummary(nil)
	if empty.Error() != "no errors" {
		t.Errorf("empty summary Error() = %q", empty.Error())
	}

	single := NewErrorSummary(errs[:1])
	if single.Error() != errs[0].Error() {
		t.Errorf("single summary Error() = %q", single.Error())
	}
}
