package morpheus

import (
	"testing"

	"github.com/idchain-labs/keyvault/internal/multicipher"
	"github.com/idchain-labs/keyvault/internal/vault"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
const testPassword = "correct horse battery staple"

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.Create(testPhrase, "")
	if err != nil {
		t.Fatalf("vault.Create: %v", err)
	}
	return v
}

func TestInit_CountsFirstPersona(t *testing.T) {
	v := newTestVault(t)
	p, err := Init(v, testPassword)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := p.PersonaCount(); got != 1 {
		t.Fatalf("PersonaCount = %d, want 1", got)
	}
}

func TestCreate_StartsWithNoPersonas(t *testing.T) {
	v := newTestVault(t)
	p, err := Create(v, testPassword)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := p.PersonaCount(); got != 0 {
		t.Fatalf("PersonaCount = %d, want 0", got)
	}
}

func TestPersona_IsDeterministicAndDistinctAcrossIndices(t *testing.T) {
	v := newTestVault(t)
	p, err := Init(v, testPassword)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	handle, err := p.Private(v, testPassword)
	if err != nil {
		t.Fatalf("Private: %v", err)
	}

	a, err := handle.Persona(0)
	if err != nil {
		t.Fatalf("Persona (first): %v", err)
	}
	b, err := handle.Persona(0)
	if err != nil {
		t.Fatalf("Persona (second): %v", err)
	}
	if string(a.ToBytes()) != string(b.ToBytes()) {
		t.Fatalf("persona 0 is not deterministic across calls")
	}

	c, err := handle.Persona(1)
	if err != nil {
		t.Fatalf("Persona (1): %v", err)
	}
	if string(a.ToBytes()) == string(c.ToBytes()) {
		t.Fatalf("distinct persona indices must derive distinct keys")
	}
}

func TestSigner_SignsVerifiableSignature(t *testing.T) {
	v := newTestVault(t)
	p, err := Init(v, testPassword)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	handle, err := p.Private(v, testPassword)
	if err != nil {
		t.Fatalf("Private: %v", err)
	}
	signer := handle.Signer(0)
	pub, sig, err := signer.Sign([]byte("hello"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !pub.Verify([]byte("hello"), sig) {
		t.Fatalf("signature failed to verify under its own public key")
	}
}

func TestKeyID_MatchesPersonaPublicKeyID(t *testing.T) {
	v := newTestVault(t)
	p, err := Init(v, testPassword)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	handle, err := p.Private(v, testPassword)
	if err != nil {
		t.Fatalf("Private: %v", err)
	}
	priv, err := handle.Persona(0)
	if err != nil {
		t.Fatalf("Persona: %v", err)
	}
	want := multicipher.FromEd25519KeyID(priv.PublicKey().KeyID())

	got, err := KeyID(v, testPassword, 0)
	if err != nil {
		t.Fatalf("KeyID: %v", err)
	}
	if got.String() != want.String() {
		t.Fatalf("KeyID = %q, want %q", got.String(), want.String())
	}
}

func TestMarshalState_UnmarshalPluginRoundTrip(t *testing.T) {
	v := newTestVault(t)
	p, err := Init(v, testPassword)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	p.Count()

	paramsJSON, stateJSON, err := p.MarshalState()
	if err != nil {
		t.Fatalf("MarshalState: %v", err)
	}

	otherVault := newTestVault(t)
	reloaded, err := UnmarshalPlugin(otherVault, paramsJSON, stateJSON)
	if err != nil {
		t.Fatalf("UnmarshalPlugin: %v", err)
	}
	if reloaded.PersonaCount() != p.PersonaCount() {
		t.Fatalf("reloaded persona count = %d, want %d", reloaded.PersonaCount(), p.PersonaCount())
	}
}

func TestAddPlugin_SecondMorpheusPluginIsAlwaysADuplicate(t *testing.T) {
	v := newTestVault(t)
	if _, err := Create(v, testPassword); err != nil {
		t.Fatalf("Create (first): %v", err)
	}
	if _, err := Create(v, testPassword); err == nil {
		t.Fatalf("expected a duplicate-plugin error: Morpheus parameters always compare equal")
	}
}
