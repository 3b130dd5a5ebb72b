// Package keyerr defines the stable error taxonomy shared by every package
// in this module. Callers compare against Kind values rather than sentinel
// errors so that wrapped causes survive the trip back to the call site.
package keyerr

import (
	"errors"
	"fmt"
)

// Kind groups related failures so callers can branch on category without
// depending on a specific message string.
type Kind string

const (
	// Input validation.
	KindInvalidMnemonic     Kind = "InvalidMnemonic"
	KindWrongPrefix         Kind = "WrongPrefix"
	KindUnknownCipherSuite  Kind = "UnknownCipherSuite"
	KindInvalidLength       Kind = "InvalidLength"
	KindUnknownNetwork      Kind = "UnknownNetwork"
	KindNonCanonicalNumber  Kind = "NonCanonicalNumber"
	KindInvalidDerivationPath Kind = "InvalidDerivationPath"

	// State violations.
	KindVaultLocked     Kind = "VaultLocked"
	KindDuplicatePlugin Kind = "DuplicatePlugin"
	KindUnknownPlugin   Kind = "UnknownPlugin"
	KindKeyNotDerived   Kind = "KeyNotDerived"
	KindPublicKeyUnknown Kind = "PublicKeyUnknown"

	// Crypto.
	KindSignatureInvalid Kind = "SignatureInvalid"
	KindDerivationFailed Kind = "DerivationFailed"
	KindDecryptionFailed Kind = "DecryptionFailed"

	// Serialization.
	KindMalformedTransaction Kind = "MalformedTransaction"
	KindVendorFieldTooLong   Kind = "VendorFieldTooLong"
	KindAmountOverflow       Kind = "AmountOverflow"

	// IO.
	KindPersistenceFailed Kind = "PersistenceFailed"
)

// Error is the single structured error type returned by this module. It
// never carries key material — callers must not stuff secrets into Message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error with no wrapped cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error that preserves a lower-level cause.
func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a *Error of the given Kind, anywhere in its
// wrap chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
