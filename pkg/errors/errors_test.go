package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code        Code
		publicMsg   string
		retryable   bool
		recoverable bool
		detailsOK   bool
	}{
		{code: CodeValidation, publicMsg: "validation failed", detailsOK: true},
		{code: CodeParse, publicMsg: "manifest could not be parsed", detailsOK: true},
		{code: CodeNotFound, publicMsg: "resource not found"},
		{code: CodeCatalogDegraded, publicMsg: "catalog unreadable, recovered empty", recoverable: true, detailsOK: true},
		{code: CodeDependency, publicMsg: "collaborator unavailable", retryable: true, detailsOK: true},
		{code: CodeInternal, publicMsg: "internal error", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.Recoverable != tt.recoverable {
			t.Fatalf("code %s expected recoverable %v got %v", tt.code, tt.recoverable, meta.Recoverable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.PublicMessage != "internal error" {
		t.Fatalf("expected internal metadata, got %q", meta.PublicMessage)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing lot number")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing lot number" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "lot_number"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "uploading report")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeParse, "no rows")
	if got := As(err); got == nil || got.Code() != CodeParse {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestRetryableFollowsWrapping(t *testing.T) {
	inner := New(CodeDependency, "storage put failed")
	outer := fmt.Errorf("finalizing batch: %w", inner)
	if !Retryable(outer) {
		t.Fatalf("dependency failures should be retryable through wrapping")
	}
	if Retryable(New(CodeParse, "bad sheet")) {
		t.Fatalf("parse failures are not retryable")
	}
	if Retryable(stdErrors.New("plain")) {
		t.Fatalf("untyped errors are not retryable")
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("load: %w", New(CodeCatalogDegraded, "corrupt csv"))
	if !Is(err, CodeCatalogDegraded) {
		t.Fatalf("expected degraded code match")
	}
	if Is(err, CodeParse) {
		t.Fatalf("unexpected code match")
	}
}
