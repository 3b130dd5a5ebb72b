// Package morpheus implements §4.I: the identity-key plugin. Personas are
// Ed25519 leaf keys reached via SLIP-10 hardened derivation down the fixed
// path m/128'/0'/{persona_index}', grounded on the same hydra-sdk
// plugin.rs shape internal/plugin/hydra follows (public_state + parameters,
// vault-scoped private handle), but over internal/hdkey.Ed25519Node instead
// of a secp256k1 xpub.
package morpheus

import (
	"encoding/json"
	"sync"

	"github.com/idchain-labs/keyvault/internal/hdkey"
	"github.com/idchain-labs/keyvault/internal/multicipher"
	"github.com/idchain-labs/keyvault/internal/suite"
	"github.com/idchain-labs/keyvault/internal/vault"
	"github.com/idchain-labs/keyvault/pkg/keyerr"
)

// PersonaSigner adapts one persona of a PrivateHandle to the
// identitytx.Signer interface (sign.rs's PrivateKeySigner, specialized to a
// single already-selected persona index rather than one master key).
type PersonaSigner struct {
	handle *PrivateHandle
	index  uint32
}

// Sign implements identitytx.Signer.
func (s PersonaSigner) Sign(msg []byte) (multicipher.MPublicKey, multicipher.MSignature, error) {
	return s.handle.Sign(s.index, msg)
}

const TypeTag = "Morpheus"

// Parameters identifies one Morpheus plugin instance within a vault. Unlike
// Hydra there is no per-plugin network or account: every Morpheus plugin in
// a vault shares the same m/128'/0' subtree and differs only in how many
// personas it has counted.
type Parameters struct{}

func (Parameters) Equal(vault.Plugin) bool { return true }

// Plugin tracks how many personas have been derived; personas themselves
// are re-derived on demand from the seed, never cached in plaintext.
type Plugin struct {
	mu       sync.RWMutex
	personas uint32
}

func derivePersona(seed []byte, index uint32) (hdkey.Ed25519Node, error) {
	master, err := hdkey.MasterEd25519(seed)
	if err != nil {
		return hdkey.Ed25519Node{}, err
	}
	return master.DerivePath([]hdkey.ChildIndex{
		hdkey.Hardened(128),
		hdkey.Hardened(0),
		hdkey.Hardened(index),
	})
}

func instantiate(v *vault.Vault, unlockPassword string, personas uint32) (*Plugin, error) {
	seed, err := v.Unlock(unlockPassword)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < personas; i++ {
		if _, err := derivePersona(seed, i); err != nil {
			return nil, err
		}
	}
	p := &Plugin{personas: personas}
	if err := v.AddPlugin(adapter{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// Create registers a fresh Morpheus plugin with no personas derived yet.
func Create(v *vault.Vault, unlockPassword string) (*Plugin, error) {
	return instantiate(v, unlockPassword, 0)
}

// Init registers a Morpheus plugin with the first persona already counted.
func Init(v *vault.Vault, unlockPassword string) (*Plugin, error) {
	return instantiate(v, unlockPassword, 1)
}

// PersonaCount returns how many personas have been counted.
func (p *Plugin) PersonaCount() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.personas
}

// Count registers one more persona as available (the public-state side of
// deriving a new persona; the caller separately needs vault access to
// actually obtain its private key).
func (p *Plugin) Count() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.personas++
	return p.personas - 1
}

// KeyID returns the multicipher key-id of persona i, requiring seed access.
func KeyID(v *vault.Vault, unlockPassword string, index uint32) (multicipher.MKeyID, error) {
	seed, err := v.Unlock(unlockPassword)
	if err != nil {
		return multicipher.MKeyID{}, err
	}
	node, err := derivePersona(seed, index)
	if err != nil {
		return multicipher.MKeyID{}, err
	}
	pub := node.PrivateKey().PublicKey()
	return multicipher.FromEd25519KeyID(pub.KeyID()), nil
}

// Private unlocks the vault and returns a handle that can sign with any
// persona index, regardless of whether it has been counted — a persona is
// just a deterministic function of (seed, index), so there is nothing to
// look up beyond deriving it.
func (p *Plugin) Private(v *vault.Vault, unlockPassword string) (*PrivateHandle, error) {
	seed, err := v.Unlock(unlockPassword)
	if err != nil {
		return nil, err
	}
	return &PrivateHandle{seed: seed}, nil
}

// PrivateHandle signs with Morpheus persona keys.
type PrivateHandle struct {
	seed []byte
}

// Persona returns the Ed25519 private key of persona i.
func (h *PrivateHandle) Persona(index uint32) (suite.Ed25519PrivateKey, error) {
	node, err := derivePersona(h.seed, index)
	if err != nil {
		return suite.Ed25519PrivateKey{}, err
	}
	return node.PrivateKey(), nil
}

// Signer returns an identitytx.Signer bound to persona index, so identity
// operation signing can go through internal/identitytx.SignableOperation.Sign
// without that package needing to know about personas or the vault.
func (h *PrivateHandle) Signer(index uint32) PersonaSigner {
	return PersonaSigner{handle: h, index: index}
}

// Sign signs msg with persona i's private key and returns a
// multicipher-tagged Ed25519 signature alongside the signer's public key.
func (h *PrivateHandle) Sign(index uint32, msg []byte) (multicipher.MPublicKey, multicipher.MSignature, error) {
	priv, err := h.Persona(index)
	if err != nil {
		return multicipher.MPublicKey{}, multicipher.MSignature{}, err
	}
	pub := priv.PublicKey()
	sig := priv.Sign(msg)
	return multicipher.FromEd25519PublicKey(pub), multicipher.FromEd25519Signature(sig), nil
}

// persistedState is the vault-file JSON shape of a Morpheus plugin's public
// state (§6). Parameters is always "{}" — see Parameters.Equal.
type persistedState struct {
	Personas uint32 `json:"personas"`
}

// MarshalState renders this plugin's parameters and public state for
// persistence.
func (p *Plugin) MarshalState() (parametersJSON, publicStateJSON json.RawMessage, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sj, err := json.Marshal(persistedState{Personas: p.personas})
	if err != nil {
		return nil, nil, err
	}
	return json.RawMessage("{}"), sj, nil
}

// UnmarshalPlugin re-hydrates a Morpheus plugin from its persisted public
// state and registers it on v.
func UnmarshalPlugin(v *vault.Vault, _, publicStateJSON json.RawMessage) (*Plugin, error) {
	var state persistedState
	if err := json.Unmarshal(publicStateJSON, &state); err != nil {
		return nil, keyerr.Wrap(keyerr.KindMalformedTransaction, "unmarshal morpheus plugin public state", err)
	}
	p := &Plugin{personas: state.Personas}
	if err := v.AddPlugin(adapter{p}); err != nil {
		return nil, err
	}
	return p, nil
}

type adapter struct{ *Plugin }

func (a adapter) Type() string { return TypeTag }

func (a adapter) Equal(other vault.Plugin) bool {
	_, ok := other.(adapter)
	return ok
}
