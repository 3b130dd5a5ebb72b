// Package suite implements the ciphersuite primitives of §4.A: master key
// generation, signing, verification, key-id fingerprinting, and fixed-size
// byte codecs for Ed25519 and secp256k1. Polymorphism over ciphersuites is
// expressed as a capability value (CipherSuite) dispatched by a type switch
// at the multicipher boundary, not by an interface hierarchy — the two
// suites don't share enough shape (Ed25519 has no normal derivation, its
// key-id and signature sizes differ) to make a common interface pull its
// weight here.
package suite

// CipherSuite tags which elliptic-curve ciphersuite a key, signature, or
// key-id belongs to.
type CipherSuite byte

const (
	Ed25519   CipherSuite = 'e'
	Secp256k1 CipherSuite = 's'
)

// Char returns the single-character suite tag used by the multicipher
// textual encoding.
func (c CipherSuite) Char() byte { return byte(c) }

func (c CipherSuite) String() string {
	switch c {
	case Ed25519:
		return "Ed25519"
	case Secp256k1:
		return "Secp256k1"
	default:
		return "Unknown"
	}
}

// FromChar parses a suite character. The zero value and false are
// returned for anything not in {'e', 's'}.
func FromChar(c byte) (CipherSuite, bool) {
	switch CipherSuite(c) {
	case Ed25519, Secp256k1:
		return CipherSuite(c), true
	default:
		return 0, false
	}
}
