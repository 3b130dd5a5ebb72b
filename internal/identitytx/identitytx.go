// Package identitytx implements §4.K: the identity operation signer. The
// signable-content construction — canonical JSON, a second JSON-string
// escape pass (a deliberate historical quirk, §9), a varint length prefix,
// then a multicipher signature — is grounded bit-exact on
// morpheus-core/src/hydra/txtype/morpheus.rs's SignableOperation and its
// string_to_protobuf helper from the retained original source. The tagged
// unions (OperationAttempt, SignableOperationDetails) mirror that same
// file's serde-tagged Rust enums, translated into Go's match-on-a-kind-tag
// idiom the way internal/multicipher already treats ciphersuite dispatch.
package identitytx

import (
	"encoding/binary"
	"encoding/json"

	"github.com/idchain-labs/keyvault/internal/canonicaljson"
	"github.com/idchain-labs/keyvault/internal/multicipher"
	"github.com/idchain-labs/keyvault/pkg/keyerr"
)

// Authentication identifies a signer for a key/right operation by public
// key. The retained original source never keeps the full Authentication
// enum definition (only its use sites), so this is the documented common
// case — a bare multicipher public key — not an invented richer type.
type Authentication struct {
	PublicKey multicipher.MPublicKey
}

func (a Authentication) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"publicKey": a.PublicKey.String()})
}

func (a *Authentication) UnmarshalJSON(b []byte) error {
	var v struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	pk, err := multicipher.ParseMPublicKey(v.PublicKey)
	if err != nil {
		return err
	}
	a.PublicKey = pk
	return nil
}

// OperationKind tags the per-DID operation variants (§3 "operation
// variants").
type OperationKind string

const (
	OpAddKey       OperationKind = "AddKey"
	OpRevokeKey    OperationKind = "RevokeKey"
	OpAddRight     OperationKind = "AddRight"
	OpRevokeRight  OperationKind = "RevokeRight"
	OpTombstoneDid OperationKind = "TombstoneDid"
)

// SignableOperationDetails is the tagged union of per-DID operations
// (morpheus.rs's SignableOperationDetails).
type SignableOperationDetails struct {
	Kind            OperationKind
	Auth            *Authentication
	Right           string
	ExpiresAtHeight *uint32
}

func NewAddKey(auth Authentication, expiresAtHeight *uint32) SignableOperationDetails {
	return SignableOperationDetails{Kind: OpAddKey, Auth: &auth, ExpiresAtHeight: expiresAtHeight}
}

func NewRevokeKey(auth Authentication) SignableOperationDetails {
	return SignableOperationDetails{Kind: OpRevokeKey, Auth: &auth}
}

func NewAddRight(auth Authentication, right string) SignableOperationDetails {
	return SignableOperationDetails{Kind: OpAddRight, Auth: &auth, Right: right}
}

func NewRevokeRight(auth Authentication, right string) SignableOperationDetails {
	return SignableOperationDetails{Kind: OpRevokeRight, Auth: &auth, Right: right}
}

func NewTombstoneDid() SignableOperationDetails {
	return SignableOperationDetails{Kind: OpTombstoneDid}
}

func (d SignableOperationDetails) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case OpAddKey:
		if d.Auth == nil {
			return nil, keyerr.New(keyerr.KindMalformedTransaction, "AddKey requires auth")
		}
		return json.Marshal(struct {
			Operation       string          `json:"operation"`
			Auth            Authentication  `json:"auth"`
			ExpiresAtHeight *uint32         `json:"expiresAtHeight,omitempty"`
		}{string(OpAddKey), *d.Auth, d.ExpiresAtHeight})
	case OpRevokeKey:
		if d.Auth == nil {
			return nil, keyerr.New(keyerr.KindMalformedTransaction, "RevokeKey requires auth")
		}
		return json.Marshal(struct {
			Operation string         `json:"operation"`
			Auth      Authentication `json:"auth"`
		}{string(OpRevokeKey), *d.Auth})
	case OpAddRight, OpRevokeRight:
		if d.Auth == nil {
			return nil, keyerr.New(keyerr.KindMalformedTransaction, "AddRight/RevokeRight require auth")
		}
		return json.Marshal(struct {
			Operation string         `json:"operation"`
			Auth      Authentication `json:"auth"`
			Right     string         `json:"right"`
		}{string(d.Kind), *d.Auth, d.Right})
	case OpTombstoneDid:
		return json.Marshal(struct {
			Operation string `json:"operation"`
		}{string(OpTombstoneDid)})
	default:
		return nil, keyerr.New(keyerr.KindMalformedTransaction, "unknown operation kind: "+string(d.Kind))
	}
}

func (d *SignableOperationDetails) UnmarshalJSON(b []byte) error {
	var tag struct {
		Operation string `json:"operation"`
	}
	if err := json.Unmarshal(b, &tag); err != nil {
		return err
	}
	d.Kind = OperationKind(tag.Operation)
	switch d.Kind {
	case OpAddKey:
		var v struct {
			Auth            Authentication `json:"auth"`
			ExpiresAtHeight *uint32        `json:"expiresAtHeight"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		d.Auth = &v.Auth
		d.ExpiresAtHeight = v.ExpiresAtHeight
	case OpRevokeKey:
		var v struct {
			Auth Authentication `json:"auth"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		d.Auth = &v.Auth
	case OpAddRight, OpRevokeRight:
		var v struct {
			Auth  Authentication `json:"auth"`
			Right string         `json:"right"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		d.Auth = &v.Auth
		d.Right = v.Right
	case OpTombstoneDid:
		// no fields
	default:
		return keyerr.New(keyerr.KindMalformedTransaction, "unknown operation kind: "+tag.Operation)
	}
	return nil
}

// SignableOperationAttempt is one per-DID entry of a SignableOperation
// (§3 "{did, last_tx_id?, operation}").
type SignableOperationAttempt struct {
	DID       string
	LastTxID  *string
	Operation SignableOperationDetails
}

func (a SignableOperationAttempt) MarshalJSON() ([]byte, error) {
	opBytes, err := json.Marshal(a.Operation)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(opBytes, &merged); err != nil {
		return nil, err
	}
	didBytes, err := json.Marshal(a.DID)
	if err != nil {
		return nil, err
	}
	merged["did"] = didBytes
	if a.LastTxID != nil {
		ltxBytes, err := json.Marshal(*a.LastTxID)
		if err != nil {
			return nil, err
		}
		merged["lastTxId"] = ltxBytes
	}
	return json.Marshal(merged)
}

func (a *SignableOperationAttempt) UnmarshalJSON(b []byte) error {
	var v struct {
		DID      string  `json:"did"`
		LastTxID *string `json:"lastTxId"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	var op SignableOperationDetails
	if err := json.Unmarshal(b, &op); err != nil {
		return err
	}
	a.DID = v.DID
	a.LastTxID = v.LastTxID
	a.Operation = op
	return nil
}

// Signer produces a multicipher signature over an arbitrary byte string,
// returning the public key it signed with alongside the signature —
// the same two-value shape as morpheus-proto's SyncMorpheusSigner::sign.
type Signer interface {
	Sign(msg []byte) (multicipher.MPublicKey, multicipher.MSignature, error)
}

// SignableOperation is a batch of per-DID operation attempts awaiting a
// signature.
type SignableOperation struct {
	Signables []SignableOperationAttempt
}

func NewSignableOperation(attempts ...SignableOperationAttempt) SignableOperation {
	return SignableOperation{Signables: attempts}
}

// signableBytes renders the exact bytes signed over: canonical_json(signables),
// re-escaped once more as a JSON string literal (the historical double
// encoding quirk §9 says must not be "fixed"), length-prefixed with an
// unsigned varint. binary.PutUvarint implements precisely the unsigned
// LEB128 varint morpheus-core's VarintWrite-based string_to_protobuf uses,
// so no third-party varint package is pulled in for this (see DESIGN.md).
func (s SignableOperation) signableBytes() ([]byte, error) {
	canon, err := canonicaljson.Marshal(s.Signables)
	if err != nil {
		return nil, err
	}
	reescaped, err := json.Marshal(string(canon))
	if err != nil {
		return nil, keyerr.Wrap(keyerr.KindMalformedTransaction, "re-escape canonical json", err)
	}
	header := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(header, uint64(len(reescaped)))
	out := make([]byte, 0, n+len(reescaped))
	out = append(out, header[:n]...)
	return append(out, reescaped...), nil
}

// Sign computes the signable bytes and signs them, producing a
// SignedOperation whose public key and signature are the textual
// multicipher form (§4.K).
func (s SignableOperation) Sign(signer Signer) (SignedOperation, error) {
	msg, err := s.signableBytes()
	if err != nil {
		return SignedOperation{}, err
	}
	pub, sig, err := signer.Sign(msg)
	if err != nil {
		return SignedOperation{}, err
	}
	return SignedOperation{
		Signables:       s.Signables,
		SignerPublicKey: pub.String(),
		Signature:       sig.String(),
	}, nil
}

// SignedOperation bundles a signed batch of operation attempts (§3
// "Signed{signables, signer_public_key, signature}").
type SignedOperation struct {
	Signables       []SignableOperationAttempt `json:"signables"`
	SignerPublicKey string                     `json:"signerPublicKey"`
	Signature       string                     `json:"signature"`
}

// Verify checks the invariant verify(s.public_key, s.signature,
// content_to_sign(s.content)) from §3.
func (s SignedOperation) Verify() (bool, error) {
	pub, err := multicipher.ParseMPublicKey(s.SignerPublicKey)
	if err != nil {
		return false, err
	}
	sig, err := multicipher.ParseMSignature(s.Signature)
	if err != nil {
		return false, err
	}
	msg, err := (SignableOperation{Signables: s.Signables}).signableBytes()
	if err != nil {
		return false, err
	}
	return pub.Verify(msg, sig), nil
}

// OperationAttempt is the asset-level tagged union (§3
// "RegisterBeforeProof{content_id}" | "Signed{...}").
type OperationAttempt struct {
	registerBeforeProof *string
	signed              *SignedOperation
}

// NewRegisterBeforeProof builds a RegisterBeforeProof attempt.
func NewRegisterBeforeProof(contentID string) OperationAttempt {
	return OperationAttempt{registerBeforeProof: &contentID}
}

// NewSignedAttempt builds a Signed attempt.
func NewSignedAttempt(op SignedOperation) OperationAttempt {
	return OperationAttempt{signed: &op}
}

// IsRegisterBeforeProof reports whether this attempt is the
// RegisterBeforeProof variant, returning its content id.
func (o OperationAttempt) IsRegisterBeforeProof() (string, bool) {
	if o.registerBeforeProof == nil {
		return "", false
	}
	return *o.registerBeforeProof, true
}

// AsSigned reports whether this attempt is the Signed variant.
func (o OperationAttempt) AsSigned() (SignedOperation, bool) {
	if o.signed == nil {
		return SignedOperation{}, false
	}
	return *o.signed, true
}

func (o OperationAttempt) MarshalJSON() ([]byte, error) {
	switch {
	case o.registerBeforeProof != nil:
		return json.Marshal(struct {
			Operation string `json:"operation"`
			ContentID string `json:"contentId"`
		}{"registerBeforeProof", *o.registerBeforeProof})
	case o.signed != nil:
		return json.Marshal(struct {
			Operation       string                     `json:"operation"`
			Signables       []SignableOperationAttempt `json:"signables"`
			SignerPublicKey string                     `json:"signerPublicKey"`
			Signature       string                     `json:"signature"`
		}{"signed", o.signed.Signables, o.signed.SignerPublicKey, o.signed.Signature})
	default:
		return nil, keyerr.New(keyerr.KindMalformedTransaction, "empty operation attempt")
	}
}

func (o *OperationAttempt) UnmarshalJSON(b []byte) error {
	var tag struct {
		Operation string `json:"operation"`
	}
	if err := json.Unmarshal(b, &tag); err != nil {
		return err
	}
	switch tag.Operation {
	case "registerBeforeProof":
		var v struct {
			ContentID string `json:"contentId"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		o.registerBeforeProof = &v.ContentID
	case "signed":
		var v SignedOperation
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		o.signed = &v
	default:
		return keyerr.New(keyerr.KindMalformedTransaction, "unknown operation attempt tag: "+tag.Operation)
	}
	return nil
}
