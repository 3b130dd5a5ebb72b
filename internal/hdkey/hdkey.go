// Package hdkey implements §4.C: BIP-32 hierarchical derivation over
// secp256k1 (delegated to github.com/tyler-smith/go-bip32, the same library
// OKaluzny-wallet-demo and not-for-prod-crypto both derive BIP-44 paths
// with) and SLIP-10 derivation over Ed25519 (built on the hand-rolled
// HMAC-SHA512 primitives in internal/suite, since no pack repository ships
// an Ed25519 HD implementation to delegate to). A BIP-44 path builder sits
// on top of both.
package hdkey

import (
	"github.com/idchain-labs/keyvault/internal/suite"
	"github.com/idchain-labs/keyvault/pkg/keyerr"
	"github.com/tyler-smith/go-bip32"
)

// ChildIndex is one level of a derivation path. The hardened bit
// (bip32.FirstHardenedChild) is folded into the value, mirroring the way
// OKaluzny-wallet-demo and not-for-prod-crypto both add HardenedOffset to
// plain indices before calling NewChildKey.
type ChildIndex uint32

const HardenedOffset uint32 = bip32.FirstHardenedChild

// Hardened returns the child index with the hardened bit set.
func Hardened(i uint32) ChildIndex { return ChildIndex(i + HardenedOffset) }

// Normal returns the child index without the hardened bit.
func Normal(i uint32) ChildIndex { return ChildIndex(i) }

// IsHardened reports whether the hardened bit is set.
func (c ChildIndex) IsHardened() bool { return uint32(c) >= HardenedOffset }

// BIP44Path builds the standard m/44'/coin_type'/account'/change/address_index
// path as a slice of ChildIndex values, ready for DeriveSecp256k1Path.
func BIP44Path(coinType, account, change, addressIndex uint32) []ChildIndex {
	return []ChildIndex{
		Hardened(44),
		Hardened(coinType),
		Hardened(account),
		Normal(change),
		Normal(addressIndex),
	}
}

// SecpExtendedPrivateKey is an HD secp256k1 private node: go-bip32's Key
// already carries private material, chain code, depth, parent fingerprint,
// and child number, so this type is a thin label rather than a
// reimplementation.
type SecpExtendedPrivateKey struct {
	key *bip32.Key
}

// SecpExtendedPublicKey is the neutered (public-only) counterpart. Deriving
// further children from it only supports normal (non-hardened) indices,
// same as BIP-32 mandates.
type SecpExtendedPublicKey struct {
	key *bip32.Key
}

// MasterSecp256k1 derives the BIP-32 master node from a BIP-39 seed via
// HMAC-SHA512 keyed by "Bitcoin seed".
func MasterSecp256k1(seed []byte) (SecpExtendedPrivateKey, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return SecpExtendedPrivateKey{}, keyerr.Wrap(keyerr.KindDerivationFailed, "derive secp256k1 master key", err)
	}
	return SecpExtendedPrivateKey{key: key}, nil
}

// Derive walks a single child step. BIP-32 rejects roughly 1-in-2^127
// indices (resulting scalar out of range or zero); go-bip32 surfaces that
// as an error rather than silently skipping to the next index, so callers
// asking for a specific path will get a KindDerivationFailed rather than a
// silently different key.
func (x SecpExtendedPrivateKey) Derive(i ChildIndex) (SecpExtendedPrivateKey, error) {
	child, err := x.key.NewChildKey(uint32(i))
	if err != nil {
		return SecpExtendedPrivateKey{}, keyerr.Wrap(keyerr.KindDerivationFailed, "derive secp256k1 child key", err)
	}
	return SecpExtendedPrivateKey{key: child}, nil
}

// DerivePath walks a full path from this node.
func (x SecpExtendedPrivateKey) DerivePath(path []ChildIndex) (SecpExtendedPrivateKey, error) {
	cur := x
	var err error
	for _, idx := range path {
		cur, err = cur.Derive(idx)
		if err != nil {
			return SecpExtendedPrivateKey{}, err
		}
	}
	return cur, nil
}

// PrivateKey extracts the suite-level private key at this node.
func (x SecpExtendedPrivateKey) PrivateKey() (suite.Secp256k1PrivateKey, error) {
	return suite.Secp256k1PrivateKeyFromBytes(x.key.Key)
}

// Neuter strips private material, returning the extended public key.
func (x SecpExtendedPrivateKey) Neuter() SecpExtendedPublicKey {
	return SecpExtendedPublicKey{key: x.key.PublicKey()}
}

// ChainCode returns the raw 32-byte chain code at this node.
func (x SecpExtendedPrivateKey) ChainCode() []byte {
	out := make([]byte, len(x.key.ChainCode))
	copy(out, x.key.ChainCode)
	return out
}

// Derive walks a single normal child step from a public node. Requesting a
// hardened index here is a caller error, not a crypto failure: BIP-32 makes
// it mathematically impossible, not merely disallowed.
func (x SecpExtendedPublicKey) Derive(i ChildIndex) (SecpExtendedPublicKey, error) {
	if i.IsHardened() {
		return SecpExtendedPublicKey{}, keyerr.New(keyerr.KindInvalidDerivationPath, "cannot derive a hardened child from a public key")
	}
	child, err := x.key.NewChildKey(uint32(i))
	if err != nil {
		return SecpExtendedPublicKey{}, keyerr.Wrap(keyerr.KindDerivationFailed, "derive secp256k1 public child key", err)
	}
	return SecpExtendedPublicKey{key: child}, nil
}

// PublicKey extracts the suite-level public key at this node.
func (x SecpExtendedPublicKey) PublicKey() (suite.Secp256k1PublicKey, error) {
	return suite.Secp256k1PublicKeyFromBytes(x.key.Key)
}

// Serialize renders the extended public key as go-bip32's own base58check
// string (Bitcoin mainnet xpub version bytes baked into the library,
// independent of any Network in this module — it is used as an opaque,
// round-trippable persistence blob for plugin public state, not as the
// network-specific textual xpub network.EncodeExtendedPublicKey produces).
func (x SecpExtendedPublicKey) Serialize() string {
	return x.key.String()
}

// SecpExtendedPublicKeyFromString parses the string Serialize produced.
func SecpExtendedPublicKeyFromString(s string) (SecpExtendedPublicKey, error) {
	key, err := bip32.B58Deserialize(s)
	if err != nil {
		return SecpExtendedPublicKey{}, keyerr.Wrap(keyerr.KindMalformedTransaction, "deserialize extended public key", err)
	}
	return SecpExtendedPublicKey{key: key}, nil
}

// Ed25519Node is an HD Ed25519 private node (SLIP-10). There is no public
// counterpart: SLIP-10 Ed25519 supports hardened derivation only, which
// always requires the private key, so an Ed25519 xpub can neuter but never
// derive further.
type Ed25519Node struct {
	ext suite.Ed25519ExtendedPrivateKey
}

// MasterEd25519 derives the SLIP-10 Ed25519 master node from a seed.
func MasterEd25519(seed []byte) (Ed25519Node, error) {
	ext, err := suite.MasterEd25519(seed)
	if err != nil {
		return Ed25519Node{}, err
	}
	return Ed25519Node{ext: ext}, nil
}

// Derive walks a single hardened child step. A normal-derivation request is
// rejected loudly (ErrNormalDerivationUnsupported in spec terms) rather
// than silently re-interpreted as hardened.
func (n Ed25519Node) Derive(i ChildIndex) (Ed25519Node, error) {
	if !i.IsHardened() {
		return Ed25519Node{}, keyerr.New(keyerr.KindInvalidDerivationPath, "ed25519 (SLIP-10) supports hardened derivation only")
	}
	child, err := n.ext.DeriveHardened(uint32(i) - HardenedOffset)
	if err != nil {
		return Ed25519Node{}, err
	}
	return Ed25519Node{ext: child}, nil
}

// DerivePath walks a full hardened-only path from this node.
func (n Ed25519Node) DerivePath(path []ChildIndex) (Ed25519Node, error) {
	cur := n
	var err error
	for _, idx := range path {
		cur, err = cur.Derive(idx)
		if err != nil {
			return Ed25519Node{}, err
		}
	}
	return cur, nil
}

// PrivateKey extracts the suite-level private key at this node.
func (n Ed25519Node) PrivateKey() suite.Ed25519PrivateKey { return n.ext.Key }
