package mnemonic

import (
	"encoding/hex"
	"testing"

	"github.com/idchain-labs/keyvault/pkg/keyerr"
)

func TestSeed_BIP39TestVector(t *testing.T) {
	words := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	p, err := Parse(words)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	seed := p.Seed("TREZOR")
	want, err := hex.DecodeString("c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")
	if err != nil {
		t.Fatalf("decode expected seed: %v", err)
	}
	if len(seed) != len(want) {
		t.Fatalf("seed length = %d, want %d", len(seed), len(want))
	}
	for i := range want {
		if seed[i] != want[i] {
			t.Fatalf("seed mismatch at byte %d: got %x, want %x", i, seed, want)
		}
	}
}

func TestParse_RejectsInvalidChecksum(t *testing.T) {
	_, err := Parse("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon")
	if !keyerr.Is(err, keyerr.KindInvalidMnemonic) {
		t.Fatalf("expected KindInvalidMnemonic, got %v", err)
	}
}

func TestGenerate_RoundTripsThroughParse(t *testing.T) {
	for _, strength := range []Strength{Strength12Words, Strength15Words, Strength18Words, Strength21Words, Strength24Words} {
		p, err := Generate(strength)
		if err != nil {
			t.Fatalf("Generate(%d): %v", strength, err)
		}
		reparsed, err := Parse(p.Words())
		if err != nil {
			t.Fatalf("Parse(Generate(%d).Words()): %v", strength, err)
		}
		if reparsed.Words() != p.Words() {
			t.Fatalf("round trip mismatch: %q != %q", reparsed.Words(), p.Words())
		}
	}
}

func TestSeed_DeterministicForSamePhraseAndPassphrase(t *testing.T) {
	p, err := Generate(Strength12Words)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	a := p.Seed("passphrase")
	b := p.Seed("passphrase")
	if hex.EncodeToString(a) != hex.EncodeToString(b) {
		t.Fatalf("seed is not deterministic across calls")
	}
	c := p.Seed("different")
	if hex.EncodeToString(a) == hex.EncodeToString(c) {
		t.Fatalf("different passphrases produced the same seed")
	}
}
