package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeDuplicateBid, status: http.StatusConflict, publicMsg: "writer already bid on this order", detailsOK: true},
		{code: CodeInsufficientFunds, status: http.StatusPaymentRequired, publicMsg: "insufficient funds", detailsOK: true},
		{code: CodeConfiguration, status: http.StatusInternalServerError, publicMsg: "service misconfigured"},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.ExposeMessage == (tt.code == CodeInternal || tt.code == CodeDependency || tt.code == CodeConfiguration) {
			t.Fatalf("code %s exposes caller message = %v", tt.code, meta.ExposeMessage)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeInsufficientFunds, "balance 100 below debit 250")
	outer := fmt.Errorf("settle order: %w", inner)
	if !IsCode(outer, CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds code through wrap")
	}
	if IsCode(outer, CodeValidation) {
		t.Fatalf("unexpected validation match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(CodeStateConflict, "cannot move order from %s to %s", "AVAILABLE", "COMPLETED")
	if err.Message() != "cannot move order from AVAILABLE to COMPLETED" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}

func TestLogFieldsCarriesStepAndPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ledger_entries_reference_uniq", TableName: "ledger_entries"}
	err := Wrap(CodeDependency, fmt.Errorf("post entry: %w", pgErr), "credit wallet").
		WithDetails(map[string]any{"step": "credit_writer"})

	fields := LogFields(err)
	if fields["error_code"] != CodeDependency {
		t.Fatalf("unexpected code %v", fields["error_code"])
	}
	if fields["step"] != "credit_writer" {
		t.Fatalf("expected step to be lifted, got %v", fields["step"])
	}
	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "ledger_entries_reference_uniq" {
		t.Fatalf("missing postgres fields: %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty postgres values should be omitted")
	}
	if chain, ok := fields["error_chain"].([]string); !ok || len(chain) != 3 {
		t.Fatalf("expected three-layer chain, got %v", fields["error_chain"])
	}
}

func TestLogFieldsPlainError(t *testing.T) {
	fields := LogFields(stdErrors.New("boom"))
	if len(fields) != 1 || fields["error"] != "boom" {
		t.Fatalf("plain error should only carry its message, got %v", fields)
	}
	if LogFields(nil) != nil {
		t.Fatalf("nil error yields no fields")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection refused"), "load wallet")
	if got := err.Error(); got != "DEPENDENCY_ERROR: load wallet: connection refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Wrap(CodeNotFound, nil, "order not found").Error(); got != "NOT_FOUND: order not found" {
		t.Fatalf("unexpected error string %q", got)
	}
}
