package errs

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	base := NewNotFoundError("symbol")
	wrapped := NewStorageError("upsert", base)

	if !errors.Is(wrapped, NewStorageError("anything", nil)) {
		t.Fatalf("expected errors.Is to match by code regardless of message/cause")
	}
	if errors.Is(wrapped, NewParseError("x.go", nil)) {
		t.Fatalf("expected errors.Is to not match a different code")
	}
}

func TestWithDetailChains(t *testing.T) {
	e := NewOutOfRootError("/etc/passwd").WithDetail("root", "/proj")
	if e.Details["root"] != "/proj" || e.Details["path"] != "/etc/passwd" {
		t.Fatalf("expected both details present, got %#v", e.Details)
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	e := NewEmbeddingError(cause)
	if errors.Unwrap(e) != cause {
		t.Fatalf("expected Unwrap to return the original cause")
	}
	if !e.Retryable {
		t.Fatalf("expected embedding errors to be retryable")
	}
}
