package keyerr

import (
	"errors"
	"strings"
	"testing"
)

func TestNew_IsMatchesItsOwnKind(t *testing.T) {
	err := New(KindInvalidMnemonic, "bad checksum")
	if !Is(err, KindInvalidMnemonic) {
		t.Fatalf("expected Is to match the kind the error was created with")
	}
	if Is(err, KindUnknownNetwork) {
		t.Fatalf("expected Is to not match an unrelated kind")
	}
}

func TestWrap_PreservesCauseAndKind(t *testing.T) {
	cause := errors.New("underlying failure")
	err := Wrap(KindPersistenceFailed, "write vault file", cause)
	if !Is(err, KindPersistenceFailed) {
		t.Fatalf("expected Is to match the wrapping error's kind")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
}

func TestIs_ReturnsFalseForPlainErrors(t *testing.T) {
	if Is(errors.New("plain"), KindInvalidMnemonic) {
		t.Fatalf("expected Is to return false for a non-keyerr error")
	}
	if Is(nil, KindInvalidMnemonic) {
		t.Fatalf("expected Is to return false for a nil error")
	}
}

func TestError_MessageIncludesKindAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindPersistenceFailed, "write vault file", cause)
	msg := err.Error()
	if msg == "" {
		t.Fatalf("expected a non-empty error message")
	}
	if !strings.Contains(msg, string(KindPersistenceFailed)) || !strings.Contains(msg, "disk full") {
		t.Fatalf("message %q should include the kind %q and the cause %q", msg, KindPersistenceFailed, "disk full")
	}
}
