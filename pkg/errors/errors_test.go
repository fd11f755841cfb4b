package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := Wrap(CodeStorage, cause, "writing cache entry")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
	if err.Code() != CodeStorage {
		t.Fatalf("expected code %s, got %s", CodeStorage, err.Code())
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeRemote, "server unavailable")
	outer := fmt.Errorf("draining queue: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error in chain")
	}
	if typed.Code() != CodeRemote {
		t.Fatalf("expected code %s, got %s", CodeRemote, typed.Code())
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to internal metadata, got %d", meta.HTTPStatus)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(New(CodeValidation, "bad input")) {
		t.Fatal("validation errors must not be retryable")
	}
	if !Retryable(New(CodeRemote, "timeout")) {
		t.Fatal("remote errors must be retryable")
	}
	if !Retryable(stdErrors.New("plain")) {
		t.Fatal("untyped errors default to retryable")
	}
}

func TestDumpChain(t *testing.T) {
	err := Wrap(CodeRemote, stdErrors.New("connection refused"), "replaying create")
	d := Dump(err)

	if d.Code != CodeRemote {
		t.Fatalf("expected code in dump, got %q", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(d.Chain))
	}
}
