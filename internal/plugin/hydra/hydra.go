// Package hydra implements §4.H: the Hydra plugin, a DPoS wallet over
// BIP-44/secp256k1. Grounded on hydra-sdk/src/vault/plugin.rs's Plugin
// (public_state + parameters, Create-vs-Init constructors, linear
// key_by_pk scan) translated into a mutex-protected Go struct in the style
// internal/vault.Vault already establishes.
package hydra

import (
	"encoding/json"
	"sync"

	"github.com/idchain-labs/keyvault/internal/hdkey"
	"github.com/idchain-labs/keyvault/internal/network"
	"github.com/idchain-labs/keyvault/internal/suite"
	"github.com/idchain-labs/keyvault/internal/vault"
	"github.com/idchain-labs/keyvault/pkg/keyerr"
)

const TypeTag = "Hydra"

// Change selects the BIP-44 change level: 0 for receive addresses, 1 for
// change addresses.
type Change uint32

const (
	Receive Change = 0
	Change_ Change = 1
)

// Parameters identifies one Hydra plugin instance within a vault.
type Parameters struct {
	Network string
	Account int32
}

func (p Parameters) Equal(other Parameters) bool {
	return p.Network == other.Network && p.Account == other.Account
}

// publicState is the persisted, seed-independent half of a Plugin: an
// xpub plus monotonic key counters. Re-derivable from (seed, Parameters)
// alone, per §3's "a plugin's public state is a deterministic function of
// (seed, parameters)" invariant.
type publicState struct {
	account      hdkey.SecpExtendedPublicKey
	receiveKeys  uint32
	changeKeys   uint32
}

// Plugin is a Hydra wallet instance registered in a vault.
type Plugin struct {
	mu         sync.RWMutex
	parameters Parameters
	state      publicState
}

func deriveAccount(seed []byte, params Parameters) (hdkey.SecpExtendedPrivateKey, network.Network, error) {
	net, err := network.ByName(params.Network)
	if err != nil {
		return hdkey.SecpExtendedPrivateKey{}, network.Network{}, err
	}
	if params.Account < 0 {
		return hdkey.SecpExtendedPrivateKey{}, network.Network{}, keyerr.New(keyerr.KindInvalidDerivationPath, "hydra account number cannot be negative")
	}
	master, err := hdkey.MasterSecp256k1(seed)
	if err != nil {
		return hdkey.SecpExtendedPrivateKey{}, network.Network{}, err
	}
	account, err := master.DerivePath([]hdkey.ChildIndex{
		hdkey.Hardened(44),
		hdkey.Hardened(uint32(net.SLIP44)),
		hdkey.Hardened(uint32(params.Account)),
	})
	if err != nil {
		return hdkey.SecpExtendedPrivateKey{}, network.Network{}, err
	}
	return account, net, nil
}

func instantiate(v *vault.Vault, unlockPassword string, params Parameters, receiveKeys, changeKeys uint32) (*Plugin, error) {
	seed, err := v.Unlock(unlockPassword)
	if err != nil {
		return nil, err
	}
	account, _, err := deriveAccount(seed, params)
	if err != nil {
		return nil, err
	}
	p := &Plugin{
		parameters: params,
		state: publicState{
			account:     account.Neuter(),
			receiveKeys: receiveKeys,
			changeKeys:  changeKeys,
		},
	}
	if err := v.AddPlugin(adapter{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// Create registers a fresh Hydra plugin with no keys yet derived
// (receive_keys = change_keys = 0).
func Create(v *vault.Vault, unlockPassword string, params Parameters) (*Plugin, error) {
	return instantiate(v, unlockPassword, params, 0, 0)
}

// Init registers a Hydra plugin with the first receive key already
// counted (receive_keys = 1, change_keys = 0), matching the Rust SDK's
// Plugin::init, used when the caller wants a ready-to-use receive address
// without an explicit derive call.
func Init(v *vault.Vault, unlockPassword string, params Parameters) (*Plugin, error) {
	return instantiate(v, unlockPassword, params, 1, 0)
}

// Parameters returns this plugin's identifying parameters.
func (p *Plugin) Parameters() Parameters {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.parameters
}

// deriveKey derives the public key at (change, idx) from the stored xpub.
func (p *Plugin) deriveKey(change Change, idx uint32) (suite.Secp256k1PublicKey, error) {
	child, err := p.state.account.Derive(hdkey.Normal(uint32(change)))
	if err != nil {
		return suite.Secp256k1PublicKey{}, err
	}
	leaf, err := child.Derive(hdkey.Normal(idx))
	if err != nil {
		return suite.Secp256k1PublicKey{}, err
	}
	return leaf.PublicKey()
}

// Key returns the public key at receive/change index idx. idx must
// already have been counted (idx < receive_keys or idx < change_keys,
// depending on change) — requesting beyond that fails with KeyNotDerived,
// since public state only tracks how many keys have been handed out, not
// an unbounded derivation window.
func (p *Plugin) Key(change Change, idx uint32) (suite.Secp256k1PublicKey, error) {
	p.mu.RLock()
	counted := p.state.receiveKeys
	if change == Change_ {
		counted = p.state.changeKeys
	}
	p.mu.RUnlock()
	if idx >= counted {
		return suite.Secp256k1PublicKey{}, keyerr.New(keyerr.KindKeyNotDerived, "key index has not been derived yet")
	}
	return p.deriveKey(change, idx)
}

// NextKey derives and counts the next key for the given change level,
// advancing the corresponding counter.
func (p *Plugin) NextKey(change Change) (uint32, suite.Secp256k1PublicKey, error) {
	p.mu.Lock()
	idx := p.state.receiveKeys
	if change == Change_ {
		idx = p.state.changeKeys
	}
	p.mu.Unlock()

	pk, err := p.deriveKey(change, idx)
	if err != nil {
		return 0, suite.Secp256k1PublicKey{}, err
	}

	p.mu.Lock()
	if change == Change_ {
		p.state.changeKeys = idx + 1
	} else {
		p.state.receiveKeys = idx + 1
	}
	p.mu.Unlock()
	return idx, pk, nil
}

// KeyByPublicKey scans the already-counted receive and change indices
// linearly for pk, returning PublicKeyUnknown if it isn't one of them.
func (p *Plugin) KeyByPublicKey(pk suite.Secp256k1PublicKey) (change Change, idx uint32, err error) {
	target := pk.ToBytes()
	p.mu.RLock()
	receiveKeys, changeKeys := p.state.receiveKeys, p.state.changeKeys
	p.mu.RUnlock()

	for i := uint32(0); i < receiveKeys; i++ {
		candidate, derr := p.deriveKey(Receive, i)
		if derr == nil && bytesEqual(candidate.ToBytes(), target) {
			return Receive, i, nil
		}
	}
	for i := uint32(0); i < changeKeys; i++ {
		candidate, derr := p.deriveKey(Change_, i)
		if derr == nil && bytesEqual(candidate.ToBytes(), target) {
			return Change_, i, nil
		}
	}
	return 0, 0, keyerr.New(keyerr.KindPublicKeyUnknown, "public key does not belong to this plugin")
}

// Private unlocks the vault and returns a handle that can sign with any
// already-derived private key of this plugin.
func (p *Plugin) Private(v *vault.Vault, unlockPassword string) (*PrivateHandle, error) {
	seed, err := v.Unlock(unlockPassword)
	if err != nil {
		return nil, err
	}
	account, _, err := deriveAccount(seed, p.Parameters())
	if err != nil {
		return nil, err
	}
	return &PrivateHandle{plugin: p, account: account}, nil
}

// PrivateHandle can sign with any of this plugin's already-derived keys.
type PrivateHandle struct {
	plugin  *Plugin
	account hdkey.SecpExtendedPrivateKey
}

// SignWith returns the private key at (change, idx) for signing, which must
// already be within the counted range.
func (h *PrivateHandle) SignWith(change Change, idx uint32) (suite.Secp256k1PrivateKey, error) {
	h.plugin.mu.RLock()
	counted := h.plugin.state.receiveKeys
	if change == Change_ {
		counted = h.plugin.state.changeKeys
	}
	h.plugin.mu.RUnlock()
	if idx >= counted {
		return suite.Secp256k1PrivateKey{}, keyerr.New(keyerr.KindKeyNotDerived, "key index has not been derived yet")
	}
	child, err := h.account.Derive(hdkey.Normal(uint32(change)))
	if err != nil {
		return suite.Secp256k1PrivateKey{}, err
	}
	leaf, err := child.Derive(hdkey.Normal(idx))
	if err != nil {
		return suite.Secp256k1PrivateKey{}, err
	}
	return leaf.PrivateKey()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// persistedParameters/persistedState are the vault-file JSON shapes (§6
// "pluginName"/"parameters"/"publicState") for a Hydra plugin.
type persistedParameters struct {
	Network string `json:"network"`
	Account int32  `json:"account"`
}

type persistedState struct {
	AccountXpub string `json:"accountXpub"`
	ReceiveKeys uint32 `json:"receiveKeys"`
	ChangeKeys  uint32 `json:"changeKeys"`
}

// MarshalState renders this plugin's parameters and public state for
// persistence, per §3's "a plugin's public state is a deterministic
// function of (seed, parameters)" invariant — nothing private is ever
// included.
func (p *Plugin) MarshalState() (parameters, publicState json.RawMessage, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	params := persistedParameters{Network: p.parameters.Network, Account: p.parameters.Account}
	state := persistedState{
		AccountXpub: p.state.account.Serialize(),
		ReceiveKeys: p.state.receiveKeys,
		ChangeKeys:  p.state.changeKeys,
	}
	pj, err := json.Marshal(params)
	if err != nil {
		return nil, nil, keyerr.Wrap(keyerr.KindMalformedTransaction, "marshal hydra plugin parameters", err)
	}
	sj, err := json.Marshal(state)
	if err != nil {
		return nil, nil, keyerr.Wrap(keyerr.KindMalformedTransaction, "marshal hydra plugin public state", err)
	}
	return pj, sj, nil
}

// UnmarshalPlugin re-hydrates a Hydra plugin from its persisted parameters
// and public state and registers it on v.
func UnmarshalPlugin(v *vault.Vault, parametersJSON, publicStateJSON json.RawMessage) (*Plugin, error) {
	var params persistedParameters
	if err := json.Unmarshal(parametersJSON, &params); err != nil {
		return nil, keyerr.Wrap(keyerr.KindMalformedTransaction, "unmarshal hydra plugin parameters", err)
	}
	var state persistedState
	if err := json.Unmarshal(publicStateJSON, &state); err != nil {
		return nil, keyerr.Wrap(keyerr.KindMalformedTransaction, "unmarshal hydra plugin public state", err)
	}
	xpub, err := hdkey.SecpExtendedPublicKeyFromString(state.AccountXpub)
	if err != nil {
		return nil, err
	}
	p := &Plugin{
		parameters: Parameters{Network: params.Network, Account: params.Account},
		state: publicState{
			account:     xpub,
			receiveKeys: state.ReceiveKeys,
			changeKeys:  state.ChangeKeys,
		},
	}
	if err := v.AddPlugin(adapter{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// adapter satisfies vault.Plugin without exposing Equal/Type on Plugin
// itself — Plugin's public API is Hydra-specific (Key, NextKey, Private),
// the vault only needs the narrower registry-facing surface.
type adapter struct{ *Plugin }

func (a adapter) Type() string { return TypeTag }

func (a adapter) Equal(other vault.Plugin) bool {
	o, ok := other.(adapter)
	if !ok {
		return false
	}
	return a.Parameters().Equal(o.Parameters())
}
