// Package models holds the wire-level structs shared across packages: the
// DPoS TransactionData JSON projection (§6) and the transaction envelope.
// Field naming (camelCase, "typeGroup", "senderPublicKey", ...) mirrors
// OKaluzny-wallet-demo's pkg/models, which plays the same "shared wire
// types" role in the teacher repo.
package models

import "encoding/json"

// TransactionData is the JSON projection of a DPoS transaction (§3, §6).
// Asset is left as raw JSON since its shape is type-specific (§4.J).
type TransactionData struct {
	Version         byte            `json:"version"`
	Network         byte            `json:"network"`
	TypeGroup       uint32          `json:"typeGroup"`
	Type            uint16          `json:"type"`
	Nonce           uint64          `json:"nonce,string"`
	SenderPublicKey string          `json:"senderPublicKey"`
	Fee             uint64          `json:"fee,string"`
	VendorField     string          `json:"vendorField,omitempty"`
	Amount          uint64          `json:"amount,string"`
	Expiration      uint32          `json:"expiration,omitempty"`
	RecipientID     string          `json:"recipientId,omitempty"`
	Asset           json.RawMessage `json:"asset,omitempty"`
	Signature       string          `json:"signature,omitempty"`
	SecondSignature string          `json:"secondSignature,omitempty"`
	ID              string          `json:"id,omitempty"`
}

// TransactionEnvelope is the wire format §6 specifies for submitting one or
// more transactions together: {"transactions": [...]}.
type TransactionEnvelope struct {
	Transactions []TransactionData `json:"transactions"`
}

// VaultFile is the persisted vault document (§6): an encrypted seed, its
// KDF parameters, and the serialized plugin list.
type VaultFile struct {
	EncryptedSeed string     `json:"encryptedSeed"`
	KDF           KDFParams  `json:"kdf"`
	Plugins       []PluginDoc `json:"plugins"`
}

// KDFParams describes how EncryptedSeed was derived from the unlock
// password.
type KDFParams struct {
	Algo string `json:"algo"`
	Salt string `json:"salt"` // hex
	Iter int    `json:"iter"`
}

// PluginDoc is one persisted plugin entry. Parameters and PublicState are
// left as raw JSON so a plugin implementation's deserializer (routed by
// PluginName) can own their shape; an unrecognized PluginName is kept
// opaque rather than rejected, per §6's "unknown plugin tags" policy.
type PluginDoc struct {
	PluginName  string          `json:"pluginName"`
	Parameters  json.RawMessage `json:"parameters"`
	PublicState json.RawMessage `json:"publicState"`
}
