package suite

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/idchain-labs/keyvault/pkg/keyerr"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is required by the Hash160 key-id fingerprint
)

const (
	Secp256k1PrivateKeySize        = 32
	Secp256k1PublicKeyCompressedSize = 33
	Secp256k1KeyIDSize             = 20 // RIPEMD160(SHA256(pubkey))
)

type Secp256k1PrivateKey struct {
	inner *secp256k1.PrivateKey
}

type Secp256k1PublicKey struct {
	inner *secp256k1.PublicKey
}

// Secp256k1Signature wraps a DER-encoded ECDSA signature. Unlike the other
// suite's fixed-size signature, DER length varies with the R/S encoding, so
// ToBytes/FromBytes here are a straight passthrough rather than a fixed
// array copy.
type Secp256k1Signature struct {
	der []byte
}

type Secp256k1KeyID struct {
	bytes [Secp256k1KeyIDSize]byte
}

func Secp256k1PrivateKeyFromBytes(b []byte) (Secp256k1PrivateKey, error) {
	if len(b) != Secp256k1PrivateKeySize {
		return Secp256k1PrivateKey{}, keyerr.New(keyerr.KindInvalidLength, "secp256k1 private key must be 32 bytes")
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	return Secp256k1PrivateKey{inner: priv}, nil
}

func (k Secp256k1PrivateKey) ToBytes() []byte {
	return k.inner.Serialize()
}

func (k Secp256k1PrivateKey) PublicKey() Secp256k1PublicKey {
	return Secp256k1PublicKey{inner: k.inner.PubKey()}
}

// Sign produces a deterministic (RFC6979) DER-encoded ECDSA signature over
// the SHA-256 digest of msg, matching the DPoS signing convention (§4.J).
func (k Secp256k1PrivateKey) Sign(msg []byte) Secp256k1Signature {
	hash := sha256.Sum256(msg)
	sig := ecdsa.Sign(k.inner, hash[:])
	return Secp256k1Signature{der: sig.Serialize()}
}

func Secp256k1PublicKeyFromBytes(b []byte) (Secp256k1PublicKey, error) {
	if len(b) != Secp256k1PublicKeyCompressedSize {
		return Secp256k1PublicKey{}, keyerr.New(keyerr.KindInvalidLength, "secp256k1 public key must be 33 bytes compressed")
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return Secp256k1PublicKey{}, keyerr.Wrap(keyerr.KindInvalidLength, "parse secp256k1 public key", err)
	}
	return Secp256k1PublicKey{inner: pub}, nil
}

func (p Secp256k1PublicKey) ToBytes() []byte {
	return p.inner.SerializeCompressed()
}

// Verify checks a DER-encoded ECDSA signature over the SHA-256 digest of msg.
func (p Secp256k1PublicKey) Verify(msg []byte, sig Secp256k1Signature) bool {
	parsed, err := ecdsa.ParseDERSignature(sig.der)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(msg)
	return parsed.Verify(hash[:], p.inner)
}

// KeyID computes Hash160(compressed pubkey) = RIPEMD160(SHA256(pubkey)),
// the fingerprint used for P2PKH addresses and recipient ids.
func (p Secp256k1PublicKey) KeyID() Secp256k1KeyID {
	sum := sha256.Sum256(p.inner.SerializeCompressed())
	h := ripemd160.New()
	h.Write(sum[:])
	var out Secp256k1KeyID
	copy(out.bytes[:], h.Sum(nil))
	return out
}

func (s Secp256k1Signature) ToBytes() []byte {
	out := make([]byte, len(s.der))
	copy(out, s.der)
	return out
}

func Secp256k1SignatureFromBytes(b []byte) (Secp256k1Signature, error) {
	if len(b) == 0 {
		return Secp256k1Signature{}, keyerr.New(keyerr.KindInvalidLength, "secp256k1 signature must not be empty")
	}
	if _, err := ecdsa.ParseDERSignature(b); err != nil {
		return Secp256k1Signature{}, keyerr.Wrap(keyerr.KindInvalidLength, "parse DER signature", err)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return Secp256k1Signature{der: out}, nil
}

func (id Secp256k1KeyID) ToBytes() []byte {
	out := make([]byte, Secp256k1KeyIDSize)
	copy(out, id.bytes[:])
	return out
}

func Secp256k1KeyIDFromBytes(b []byte) (Secp256k1KeyID, error) {
	var id Secp256k1KeyID
	if len(b) != Secp256k1KeyIDSize {
		return id, keyerr.New(keyerr.KindInvalidLength, "secp256k1 key id must be 20 bytes")
	}
	copy(id.bytes[:], b)
	return id, nil
}
