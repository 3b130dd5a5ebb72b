// Package mnemonic implements §4.B: BIP-39 mnemonic generation, validation,
// and seed derivation. It is a thin, error-taxonomy-aware wrapper over
// github.com/tyler-smith/go-bip39, the same library not-for-prod-crypto and
// OKaluzny-wallet-demo both build their wallet generation on.
package mnemonic

import (
	"github.com/idchain-labs/keyvault/pkg/keyerr"
	"github.com/tyler-smith/go-bip39"
)

// Strength is the BIP-39 entropy strength in bits. Valid values are
// multiples of 32 between 128 and 256; they determine word count:
// 128 bits -> 12 words, 160 -> 15, 192 -> 18, 224 -> 21, 256 -> 24.
type Strength int

const (
	Strength12Words Strength = 128
	Strength15Words Strength = 160
	Strength18Words Strength = 192
	Strength21Words Strength = 224
	Strength24Words Strength = 256
)

// Phrase is a validated BIP-39 mnemonic phrase together with the entropy it
// was generated from (or decoded from, for a phrase a caller handed us).
type Phrase struct {
	words   string
	entropy []byte
}

// Generate creates a new random mnemonic phrase at the given strength.
func Generate(strength Strength) (Phrase, error) {
	entropy, err := bip39.NewEntropy(int(strength))
	if err != nil {
		return Phrase{}, keyerr.Wrap(keyerr.KindInvalidMnemonic, "generate entropy", err)
	}
	words, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return Phrase{}, keyerr.Wrap(keyerr.KindInvalidMnemonic, "build mnemonic from entropy", err)
	}
	return Phrase{words: words, entropy: entropy}, nil
}

// Parse validates an existing mnemonic phrase (checksum and wordlist
// membership) and returns it wrapped for seed derivation.
func Parse(words string) (Phrase, error) {
	if !bip39.IsMnemonicValid(words) {
		return Phrase{}, keyerr.New(keyerr.KindInvalidMnemonic, "mnemonic failed wordlist/checksum validation")
	}
	entropy, err := bip39.EntropyFromMnemonic(words)
	if err != nil {
		return Phrase{}, keyerr.Wrap(keyerr.KindInvalidMnemonic, "recover entropy from mnemonic", err)
	}
	return Phrase{words: words, entropy: entropy}, nil
}

// Words returns the space-separated mnemonic phrase.
func (p Phrase) Words() string { return p.words }

// Entropy returns the raw entropy the phrase encodes.
func (p Phrase) Entropy() []byte {
	out := make([]byte, len(p.entropy))
	copy(out, p.entropy)
	return out
}

// Seed derives the 64-byte BIP-39 seed via PBKDF2-HMAC-SHA512 (2048
// iterations) over the mnemonic and an optional passphrase.
func (p Phrase) Seed(passphrase string) []byte {
	return bip39.NewSeed(p.words, passphrase)
}
