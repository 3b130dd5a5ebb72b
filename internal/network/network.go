// Package network implements §4.D: the process-wide, immutable network
// registry (address prefixes, xpub/xprv magics, SLIP-44 coin types) plus
// the base58check address/extended-key encoders built on top of it. The
// base58check-with-double-SHA256-checksum pattern is lifted straight from
// OKaluzny-wallet-demo's internal/wallet/btc.go (base58CheckEncode,
// hash160, doubleSHA256), generalized from a 1-byte version to a
// variable-length one so it can serve both p2pkh addresses (1 byte) and
// BIP-32 extended keys (4 bytes).
package network

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/idchain-labs/keyvault/pkg/keyerr"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is required by Hash160
)

// Network is the immutable tuple described in §4.D: a human name, the
// address/WIF/extended-key version bytes, a signed-message prefix, and the
// SLIP-44 coin type. Every network currently registered is bound to the
// secp256k1 ciphersuite.
type Network struct {
	Name string

	P2PKHVersion byte
	P2SHVersion  byte
	WIFVersion   byte

	BIP32Xpub [4]byte
	BIP32Xprv [4]byte

	MessagePrefix string
	SLIP44        int32
}

var registry = map[string]Network{
	"btc-mainnet": {
		Name:          "btc-mainnet",
		P2PKHVersion:  0x00,
		P2SHVersion:   0x05,
		WIFVersion:    0x80,
		BIP32Xpub:     [4]byte{0x04, 0x88, 0xB2, 0x1E},
		BIP32Xprv:     [4]byte{0x04, 0x88, 0xAD, 0xE4},
		MessagePrefix: "\x18Bitcoin Signed Message:\n",
		SLIP44:        0,
	},
	"btc-testnet": {
		Name:          "btc-testnet",
		P2PKHVersion:  0x6F,
		P2SHVersion:   0xC4,
		WIFVersion:    0xEF,
		BIP32Xpub:     [4]byte{0x04, 0x35, 0x87, 0xCF},
		BIP32Xprv:     [4]byte{0x04, 0x35, 0x83, 0x94},
		MessagePrefix: "\x18Bitcoin Signed Message:\n",
		SLIP44:        1,
	},
	"iop-mainnet": {
		Name:          "iop-mainnet",
		P2PKHVersion:  0x75,
		P2SHVersion:   0xAE,
		WIFVersion:    0x31,
		BIP32Xpub:     [4]byte{0x27, 0x80, 0x91, 0x5F},
		BIP32Xprv:     [4]byte{0xAE, 0x34, 0x16, 0xF6},
		MessagePrefix: "\x18IoP Signed Message:\n",
		SLIP44:        0x42,
	},
	"iop-testnet": {
		Name:          "iop-testnet",
		P2PKHVersion:  0x82,
		P2SHVersion:   0x31,
		WIFVersion:    0x4C,
		BIP32Xpub:     [4]byte{0xBB, 0x8F, 0x48, 0x52},
		BIP32Xprv:     [4]byte{0x2B, 0x7F, 0xA4, 0x2A},
		MessagePrefix: "\x18IoP SignedMessage:\n",
		SLIP44:        0x42,
	},
	// hyd-mainnet and hyd-testnet: the Hydra network table was not present
	// in the retrieved original source (its network-parameter file was
	// never checked into the files this repo was distilled from), except
	// for the hyd-testnet p2pkh version byte and SLIP-44 coin type, which
	// the scenario in §8 pins at 0x82 and 1 (the path m/44'/1'/0'/0/0, the
	// shared "testnet" coin type convention BIP-44 networks fall back to).
	// Everything else here is a documented placeholder consistent with how
	// the other four networks are laid out: a distinct, unused xpub/xprv
	// magic pair, chosen for internal consistency with the Hydra plugin's
	// BIP-44 path (m/44'/{slip44}'/account'/change/index) rather than
	// recovered from any retained reference.
	"hyd-mainnet": {
		Name:          "hyd-mainnet",
		P2PKHVersion:  0x28,
		P2SHVersion:   0x0A,
		WIFVersion:    0xAA,
		BIP32Xpub:     [4]byte{0x2F, 0xE5, 0x2F, 0x71},
		BIP32Xprv:     [4]byte{0x2F, 0xE5, 0x2D, 0x25},
		MessagePrefix: "\x18Hydra Signed Message:\n",
		SLIP44:        100,
	},
	"hyd-testnet": {
		Name:          "hyd-testnet",
		P2PKHVersion:  0x82,
		P2SHVersion:   0x0A,
		WIFVersion:    0xAA,
		BIP32Xpub:     [4]byte{0x2F, 0xE5, 0x2F, 0x71},
		BIP32Xprv:     [4]byte{0x2F, 0xE5, 0x2D, 0x25},
		MessagePrefix: "\x18Hydra Signed Message:\n",
		SLIP44:        1,
	},
}

// ByName looks up a registered network by its canonical name.
func ByName(name string) (Network, error) {
	n, ok := registry[name]
	if !ok {
		return Network{}, keyerr.New(keyerr.KindUnknownNetwork, "unknown network: "+name)
	}
	return n, nil
}

// Hash160 computes RIPEMD160(SHA256(data)), the fingerprint used for
// addresses and recipient ids.
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	return ripe.Sum(nil)
}

func doubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// base58CheckEncode appends a 4-byte double-SHA256 checksum to version+payload
// and base58-encodes the result.
func base58CheckEncode(version []byte, payload []byte) string {
	data := make([]byte, 0, len(version)+len(payload)+4)
	data = append(data, version...)
	data = append(data, payload...)
	checksum := doubleSHA256(data)
	data = append(data, checksum[:4]...)
	return base58.Encode(data)
}

// RecipientIDBytes returns the raw 21-byte recipient id (version byte +
// Hash160 of the compressed public key) used in the DPoS wire layout — not
// the textual address.
func (n Network) RecipientIDBytes(compressedPubKey []byte) []byte {
	h := Hash160(compressedPubKey)
	out := make([]byte, 0, 21)
	out = append(out, n.P2PKHVersion)
	out = append(out, h...)
	return out
}

// Address returns the base58check P2PKH address for a compressed public key.
func (n Network) Address(compressedPubKey []byte) string {
	h := Hash160(compressedPubKey)
	return base58CheckEncode([]byte{n.P2PKHVersion}, h)
}

// AddressFromRecipientID renders the textual base58check address for a
// 21-byte recipient id (version byte + hash160), the form the DPoS
// transaction's recipient_id field carries in binary (§4.J) but the JSON
// wire format carries as text (§6).
func (n Network) AddressFromRecipientID(recipientID []byte) string {
	if len(recipientID) != 21 {
		return ""
	}
	return base58CheckEncode(recipientID[:1], recipientID[1:])
}

// EncodeExtendedPublicKey base58check-encodes a BIP-32 extended public key
// under this network's xpub magic. payload is the 78-byte BIP-32 body
// (depth, parent fingerprint, child number, chain code, public key) that
// hdkey assembles.
func (n Network) EncodeExtendedPublicKey(payload []byte) string {
	return base58CheckEncode(n.BIP32Xpub[:], payload)
}

// EncodeExtendedPrivateKey base58check-encodes a BIP-32 extended private
// key under this network's xprv magic.
func (n Network) EncodeExtendedPrivateKey(payload []byte) string {
	return base58CheckEncode(n.BIP32Xprv[:], payload)
}
