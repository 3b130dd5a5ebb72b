package suite

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"

	"github.com/idchain-labs/keyvault/pkg/keyerr"
)

// Ed25519 key, signature, and key-id sizes (fixed, per §4.A to_bytes/from_bytes).
const (
	Ed25519PrivateKeySize = 32 // seed, not the expanded 64-byte signing key
	Ed25519PublicKeySize  = 32
	Ed25519SignatureSize  = 64
	Ed25519KeyIDSize      = 32
	Ed25519ChainCodeSize  = 32
)

// ed25519SeedModifier is the SLIP-10 HMAC key used to derive the Ed25519
// master node from a BIP-39 seed. See anyproto-go-slip10's derive.go for
// the reference shape this mirrors.
var ed25519SeedModifier = []byte("ed25519 seed")

// Ed25519PrivateKey stores the 32-byte seed; the expanded 64-byte signing
// key is derived on demand so the seed is the only thing that needs to be
// zeroed on drop.
type Ed25519PrivateKey struct {
	seed [Ed25519PrivateKeySize]byte
}

type Ed25519PublicKey struct {
	key [Ed25519PublicKeySize]byte
}

type Ed25519Signature struct {
	bytes [Ed25519SignatureSize]byte
}

type Ed25519KeyID struct {
	bytes [Ed25519KeyIDSize]byte
}

func NewEd25519PrivateKeyFromSeed(seed []byte) (Ed25519PrivateKey, error) {
	var k Ed25519PrivateKey
	if len(seed) != Ed25519PrivateKeySize {
		return k, keyerr.New(keyerr.KindInvalidLength, "ed25519 private key seed must be 32 bytes")
	}
	copy(k.seed[:], seed)
	return k, nil
}

func (k Ed25519PrivateKey) ToBytes() []byte {
	out := make([]byte, Ed25519PrivateKeySize)
	copy(out, k.seed[:])
	return out
}

func Ed25519PrivateKeyFromBytes(b []byte) (Ed25519PrivateKey, error) {
	return NewEd25519PrivateKeyFromSeed(b)
}

func (k Ed25519PrivateKey) expanded() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.seed[:])
}

// PublicKey derives the public key corresponding to this private key.
func (k Ed25519PrivateKey) PublicKey() Ed25519PublicKey {
	pub := k.expanded().Public().(ed25519.PublicKey)
	var out Ed25519PublicKey
	copy(out.key[:], pub)
	return out
}

// Sign signs msg, returning a fixed-size Ed25519 signature.
func (k Ed25519PrivateKey) Sign(msg []byte) Ed25519Signature {
	sig := ed25519.Sign(k.expanded(), msg)
	var out Ed25519Signature
	copy(out.bytes[:], sig)
	return out
}

func (p Ed25519PublicKey) ToBytes() []byte {
	out := make([]byte, Ed25519PublicKeySize)
	copy(out, p.key[:])
	return out
}

func Ed25519PublicKeyFromBytes(b []byte) (Ed25519PublicKey, error) {
	var p Ed25519PublicKey
	if len(b) != Ed25519PublicKeySize {
		return p, keyerr.New(keyerr.KindInvalidLength, "ed25519 public key must be 32 bytes")
	}
	copy(p.key[:], b)
	return p, nil
}

// Verify checks sig against msg under this public key.
func (p Ed25519PublicKey) Verify(msg []byte, sig Ed25519Signature) bool {
	return ed25519.Verify(p.key[:], msg, sig.bytes[:])
}

// KeyID fingerprints this public key: the first 32 bytes of SHA-512/256 of
// the raw key bytes.
func (p Ed25519PublicKey) KeyID() Ed25519KeyID {
	sum := sha512.Sum512_256(p.key[:])
	return Ed25519KeyID{bytes: sum}
}

func (s Ed25519Signature) ToBytes() []byte {
	out := make([]byte, Ed25519SignatureSize)
	copy(out, s.bytes[:])
	return out
}

func Ed25519SignatureFromBytes(b []byte) (Ed25519Signature, error) {
	var s Ed25519Signature
	if len(b) != Ed25519SignatureSize {
		return s, keyerr.New(keyerr.KindInvalidLength, "ed25519 signature must be 64 bytes")
	}
	copy(s.bytes[:], b)
	return s, nil
}

func (id Ed25519KeyID) ToBytes() []byte {
	out := make([]byte, Ed25519KeyIDSize)
	copy(out, id.bytes[:])
	return out
}

func Ed25519KeyIDFromBytes(b []byte) (Ed25519KeyID, error) {
	var id Ed25519KeyID
	if len(b) != Ed25519KeyIDSize {
		return id, keyerr.New(keyerr.KindInvalidLength, "ed25519 key id must be 32 bytes")
	}
	copy(id.bytes[:], b)
	return id, nil
}

// Ed25519ExtendedPrivateKey is an HD node: a private key plus the chain
// code needed to derive hardened children (SLIP-10). Ed25519 allows no
// normal derivation and no xpub-side derivation at all, so unlike the
// secp256k1 extended key there is no companion extended public key type.
type Ed25519ExtendedPrivateKey struct {
	Key       Ed25519PrivateKey
	ChainCode [Ed25519ChainCodeSize]byte
}

// MasterEd25519 derives the SLIP-10 Ed25519 master node from a seed via
// HMAC-SHA512 with the fixed "ed25519 seed" key.
func MasterEd25519(seed []byte) (Ed25519ExtendedPrivateKey, error) {
	mac := hmac.New(sha512.New, ed25519SeedModifier)
	mac.Write(seed)
	sum := mac.Sum(nil)

	priv, err := NewEd25519PrivateKeyFromSeed(sum[:32])
	if err != nil {
		return Ed25519ExtendedPrivateKey{}, err
	}
	var out Ed25519ExtendedPrivateKey
	out.Key = priv
	copy(out.ChainCode[:], sum[32:])
	return out, nil
}

// DeriveHardened derives child index i (the hardened bit is added by the
// caller's path builder, not here — see hdkey.ChildIndex). Ed25519 per
// SLIP-10 only ever derives hardened children; this method does not branch
// on the index, callers (hdkey) are responsible for rejecting normal
// indices before reaching here.
func (x Ed25519ExtendedPrivateKey) DeriveHardened(i uint32) (Ed25519ExtendedPrivateKey, error) {
	data := make([]byte, 0, 1+Ed25519PrivateKeySize+4)
	data = append(data, 0x00)
	data = append(data, x.Key.seed[:]...)
	data = append(data, byte(i>>24), byte(i>>16), byte(i>>8), byte(i))

	mac := hmac.New(sha512.New, x.ChainCode[:])
	mac.Write(data)
	sum := mac.Sum(nil)

	priv, err := NewEd25519PrivateKeyFromSeed(sum[:32])
	if err != nil {
		return Ed25519ExtendedPrivateKey{}, err
	}
	var out Ed25519ExtendedPrivateKey
	out.Key = priv
	copy(out.ChainCode[:], sum[32:])
	return out, nil
}
