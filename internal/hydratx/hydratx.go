// Package hydratx implements §4.J: the DPoS transaction serializer and
// signer. The little-endian byte layout, asset encodings, and fee table are
// grounded on hydra-proto/src/txtype/hyd_core.rs's CoreTransactionType (type
// numbers, TYPE_GROUP=1, per-type fee table) and
// morpheus-core/src/hydra/txtype/morpheus.rs's TransactionType (TYPE_GROUP
// = 4242) from the retained original source, combined with the exact field
// offsets spec.md §4.J specifies. The JSON projection follows
// pkg/models.TransactionData, in the same "camelCase wire struct, raw bytes
// kept internal" split OKaluzny-wallet-demo's wallet package and pkg/models
// maintain between internal/wallet.Transaction and models.Transaction.
package hydratx

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/idchain-labs/keyvault/internal/canonicaljson"
	"github.com/idchain-labs/keyvault/internal/config"
	"github.com/idchain-labs/keyvault/internal/identitytx"
	"github.com/idchain-labs/keyvault/internal/network"
	"github.com/idchain-labs/keyvault/internal/suite"
	"github.com/idchain-labs/keyvault/pkg/keyerr"
	"github.com/idchain-labs/keyvault/pkg/models"
)

// Version is the fixed transaction format version byte (§4.J offset 0).
const Version byte = 0x02

// Type groups, per hyd_core.rs's CoreTransactionType::TYPE_GROUP and
// morpheus.rs's TransactionType::TYPE_GROUP.
const (
	CoreTypeGroup     uint32 = 1
	MorpheusTypeGroup uint32 = 4242
)

// CoreType enumerates the "core" DPoS transaction types (hyd_core.rs).
type CoreType uint16

const (
	Transfer                    CoreType = 0
	SecondSignatureRegistration CoreType = 1
	DelegateRegistration        CoreType = 2
	Vote                        CoreType = 3
	MultiSignatureRegistration  CoreType = 4
	Ipfs                        CoreType = 5
	TimelockTransfer            CoreType = 6
	MultiPayment                CoreType = 7
	DelegateResignation         CoreType = 8
)

// MorpheusNormal is the sole type value registered under MorpheusTypeGroup.
const MorpheusNormal uint16 = 1

// DefaultFee resolves the type's default fee (spec.md §4.J fee policy
// table), overridable by config.Config.
func (t CoreType) DefaultFee(cfg config.Config) uint64 {
	switch t {
	case Transfer:
		return cfg.TransferFee
	case SecondSignatureRegistration:
		return cfg.SecondSignatureRegistration
	case DelegateRegistration:
		return cfg.DelegateRegistrationFee
	case Vote:
		return cfg.VoteFee
	case MultiSignatureRegistration:
		return cfg.MultiSignatureRegistration
	case Ipfs, TimelockTransfer, MultiPayment, DelegateResignation:
		return 0
	default:
		return 0
	}
}

// Asset is the type-specific transaction body (§4.J "Asset encodings").
// Only Transfer, DelegateRegistration, Vote, and the Morpheus identity-op
// asset get real encoders; every other CoreType carries an empty asset —
// spec.md's asset table never describes a wire format for them, and
// inventing one would be fabrication rather than supplementation (see
// DESIGN.md).
type Asset interface {
	wireBytes() []byte
	wireJSON() (json.RawMessage, error)
}

// TransferAsset is the empty asset body for a Transfer transaction.
type TransferAsset struct{}

func (TransferAsset) wireBytes() []byte { return nil }
func (TransferAsset) wireJSON() (json.RawMessage, error) { return nil, nil }

// DelegateRegistrationAsset registers the sender as a delegate candidate.
type DelegateRegistrationAsset struct {
	Username string
}

func (a DelegateRegistrationAsset) wireBytes() []byte {
	out := make([]byte, 0, 1+len(a.Username))
	out = append(out, byte(len(a.Username)))
	return append(out, a.Username...)
}

func (a DelegateRegistrationAsset) wireJSON() (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{
		"delegate": map[string]string{"username": a.Username},
	})
}

// Vote is one entry of a VoteAsset: a delegate public key plus direction.
type Vote struct {
	DelegatePublicKey suite.Secp256k1PublicKey
	Up                bool // true = '+' (vote), false = '-' (unvote)
}

// VoteAsset casts or retracts votes for one or more delegates.
type VoteAsset struct {
	Votes []Vote
}

func (a VoteAsset) wireBytes() []byte {
	out := make([]byte, 0, 1+len(a.Votes)*34)
	out = append(out, byte(len(a.Votes)))
	for _, v := range a.Votes {
		if v.Up {
			out = append(out, 0x01)
		} else {
			out = append(out, 0x00)
		}
		out = append(out, v.DelegatePublicKey.ToBytes()...)
	}
	return out
}

func (a VoteAsset) wireJSON() (json.RawMessage, error) {
	votes := make([]string, len(a.Votes))
	for i, v := range a.Votes {
		sign := "-"
		if v.Up {
			sign = "+"
		}
		votes[i] = sign + hex.EncodeToString(v.DelegatePublicKey.ToBytes())
	}
	return json.Marshal(map[string]interface{}{"votes": votes})
}

// MorpheusAsset carries a batch of identity operation attempts anchored on
// the DPoS ledger (§4.J "Morpheus (type_group=4242, type=1)").
type MorpheusAsset struct {
	OperationAttempts []identitytx.OperationAttempt
}

func (a MorpheusAsset) canonicalJSON() ([]byte, error) {
	return canonicaljson.Marshal(a.OperationAttempts)
}

// wireBytes encodes varint(len(canonical_json)) || canonical_json_bytes,
// using encoding/binary's PutUvarint — that is exactly the unsigned LEB128
// varint morpheus-core's string_to_protobuf hand-rolls over VarintWrite, so
// the standard library already provides it without a third-party varint
// dependency (see DESIGN.md).
func (a MorpheusAsset) wireBytes() []byte {
	canon, err := a.canonicalJSON()
	if err != nil {
		return nil
	}
	return varintPrefixed(canon)
}

func (a MorpheusAsset) wireJSON() (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{"operationAttempts": a.OperationAttempts})
}

// fee computes the Morpheus fee formula: (len(canonical_json)+15)*3000,
// saturating to uint64 max on overflow, matching morpheus.rs's Asset::fee.
func (a MorpheusAsset) fee(cfg config.Config) (uint64, error) {
	canon, err := a.canonicalJSON()
	if err != nil {
		return 0, err
	}
	bytesLen := uint64(len(canon))
	sum, carry := addUint64(bytesLen, cfg.MorpheusFeeBytesOffset)
	if carry {
		return ^uint64(0), nil
	}
	product, overflow := mulUint64(sum, cfg.MorpheusFlakesPerByte)
	if overflow {
		return ^uint64(0), nil
	}
	return product, nil
}

func addUint64(a, b uint64) (sum uint64, overflow bool) {
	sum = a + b
	return sum, sum < a
}

func mulUint64(a, b uint64) (product uint64, overflow bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	product = a * b
	return product, product/a != b
}

func varintPrefixed(b []byte) []byte {
	header := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(header, uint64(len(b)))
	out := make([]byte, 0, n+len(b))
	out = append(out, header[:n]...)
	return append(out, b...)
}

// Transaction is the in-memory DPoS transaction record (§3 "Transaction
// data (DPoS)").
type Transaction struct {
	Network         network.Network
	TypeGroup       uint32
	Type            uint16
	Nonce           uint64
	SenderPublicKey suite.Secp256k1PublicKey
	Fee             uint64
	VendorField     string
	Amount          uint64
	Expiration      uint32
	RecipientID     []byte // 21 bytes (version + hash160), nil if absent
	Asset           Asset
	Signature       suite.Secp256k1Signature
	SecondSignature suite.Secp256k1Signature
	hasSignature    bool
	hasSecondSig    bool
}

// NewTransfer builds an unsigned Transfer transaction. recipientCompressed
// is the recipient's compressed secp256k1 public key, from which the
// 21-byte recipient id is derived under net.
func NewTransfer(net network.Network, nonce uint64, sender suite.Secp256k1PublicKey, amount uint64, recipientCompressed []byte, vendorField string, manualFee *uint64, cfg config.Config) (*Transaction, error) {
	if len(vendorField) > 255 {
		return nil, keyerr.New(keyerr.KindVendorFieldTooLong, "vendor field exceeds 255 bytes")
	}
	fee := Transfer.DefaultFee(cfg)
	if manualFee != nil {
		fee = *manualFee
	}
	return &Transaction{
		Network:         net,
		TypeGroup:       CoreTypeGroup,
		Type:            uint16(Transfer),
		Nonce:           nonce,
		SenderPublicKey: sender,
		Fee:             fee,
		VendorField:     vendorField,
		Amount:          amount,
		RecipientID:     net.RecipientIDBytes(recipientCompressed),
		Asset:           TransferAsset{},
	}, nil
}

// NewDelegateRegistration builds an unsigned DelegateRegistration transaction.
func NewDelegateRegistration(net network.Network, nonce uint64, sender suite.Secp256k1PublicKey, username string, manualFee *uint64, cfg config.Config) (*Transaction, error) {
	fee := DelegateRegistration.DefaultFee(cfg)
	if manualFee != nil {
		fee = *manualFee
	}
	return &Transaction{
		Network:         net,
		TypeGroup:       CoreTypeGroup,
		Type:            uint16(DelegateRegistration),
		Nonce:           nonce,
		SenderPublicKey: sender,
		Fee:             fee,
		Asset:           DelegateRegistrationAsset{Username: username},
	}, nil
}

// NewVote builds an unsigned Vote transaction.
func NewVote(net network.Network, nonce uint64, sender suite.Secp256k1PublicKey, votes []Vote, manualFee *uint64, cfg config.Config) (*Transaction, error) {
	fee := Vote.DefaultFee(cfg)
	if manualFee != nil {
		fee = *manualFee
	}
	return &Transaction{
		Network:         net,
		TypeGroup:       CoreTypeGroup,
		Type:            uint16(Vote),
		Nonce:           nonce,
		SenderPublicKey: sender,
		Fee:             fee,
		Asset:           VoteAsset{Votes: votes},
	}, nil
}

// NewMorpheusOperation builds an unsigned identity-operation transaction
// whose fee is computed from the operation attempts unless manualFee
// overrides it (§4.J).
func NewMorpheusOperation(net network.Network, nonce uint64, sender suite.Secp256k1PublicKey, attempts []identitytx.OperationAttempt, manualFee *uint64, cfg config.Config) (*Transaction, error) {
	asset := MorpheusAsset{OperationAttempts: attempts}
	computed, err := asset.fee(cfg)
	if err != nil {
		return nil, err
	}
	fee := computed
	if manualFee != nil {
		fee = *manualFee
	}
	return &Transaction{
		Network:         net,
		TypeGroup:       MorpheusTypeGroup,
		Type:            MorpheusNormal,
		Nonce:           nonce,
		SenderPublicKey: sender,
		Fee:             fee,
		Asset:           asset,
	}, nil
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

func writeUint16LE(buf *bytes.Buffer, v uint16) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
}

func writeUint64LE(buf *bytes.Buffer, v uint64) {
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(v >> (8 * i)))
	}
}

// serialize renders the §4.J byte layout. withSignatures controls whether
// the trailing signature fields are appended; the signing digest is taken
// over serialize(false).
func (t *Transaction) serialize(withSignatures bool) ([]byte, error) {
	if len(t.VendorField) > 255 {
		return nil, keyerr.New(keyerr.KindVendorFieldTooLong, "vendor field exceeds 255 bytes")
	}
	senderBytes := t.SenderPublicKey.ToBytes()
	if len(senderBytes) != 33 {
		return nil, keyerr.New(keyerr.KindMalformedTransaction, "sender public key must be 33 bytes compressed")
	}
	if t.RecipientID != nil && len(t.RecipientID) != 21 {
		return nil, keyerr.New(keyerr.KindMalformedTransaction, "recipient id must be 21 bytes")
	}

	var buf bytes.Buffer
	buf.WriteByte(Version)
	buf.WriteByte(t.Network.P2PKHVersion)
	writeUint32LE(&buf, t.TypeGroup)
	writeUint16LE(&buf, t.Type)
	writeUint64LE(&buf, t.Nonce)
	buf.Write(senderBytes)
	writeUint64LE(&buf, t.Fee)
	vf := []byte(t.VendorField)
	buf.WriteByte(byte(len(vf)))
	buf.Write(vf)
	writeUint64LE(&buf, t.Amount)
	writeUint32LE(&buf, t.Expiration)
	if t.RecipientID != nil {
		buf.Write(t.RecipientID)
	}
	if t.Asset != nil {
		buf.Write(t.Asset.wireBytes())
	}
	if withSignatures {
		if t.hasSignature {
			buf.Write(t.Signature.ToBytes())
		}
		if t.hasSecondSig {
			buf.Write(t.SecondSignature.ToBytes())
		}
	}
	return buf.Bytes(), nil
}

// SigningDigest returns the bytes signed over: the layout with both
// signature fields omitted (§4.J). Suite.Sign/Verify apply the SHA-256
// themselves, so this is the pre-hash payload, not a pre-computed digest.
func (t *Transaction) SigningDigest() ([]byte, error) {
	return t.serialize(false)
}

// Sign signs the transaction with priv, setting the primary signature
// field. A second signature (second_signature) can be attached afterward
// with SignSecond for senders with second-signature authentication enabled.
func (t *Transaction) Sign(priv suite.Secp256k1PrivateKey) error {
	digest, err := t.SigningDigest()
	if err != nil {
		return err
	}
	t.Signature = priv.Sign(digest)
	t.hasSignature = true
	slog.Default().With("component", "hydratx").Info("transaction signed", "typeGroup", t.TypeGroup, "type", t.Type, "nonce", t.Nonce)
	return nil
}

// SignSecond attaches a second signature over the layout including the
// primary signature but not the second one.
func (t *Transaction) SignSecond(priv suite.Secp256k1PrivateKey) error {
	if !t.hasSignature {
		return keyerr.New(keyerr.KindMalformedTransaction, "cannot attach a second signature before the primary signature")
	}
	digest, err := t.serialize(true)
	if err != nil {
		return err
	}
	t.SecondSignature = priv.Sign(digest)
	t.hasSecondSig = true
	return nil
}

// Verify checks the primary signature against the signing digest.
func (t *Transaction) Verify() (bool, error) {
	if !t.hasSignature {
		return false, keyerr.New(keyerr.KindMalformedTransaction, "transaction has no signature")
	}
	digest, err := t.SigningDigest()
	if err != nil {
		return false, err
	}
	return t.SenderPublicKey.Verify(digest, t.Signature), nil
}

// ID computes the transaction id: SHA-256 over the full signed layout.
func (t *Transaction) ID() (string, error) {
	full, err := t.serialize(true)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(full)
	return hex.EncodeToString(sum[:]), nil
}

// ToModel projects the transaction to its JSON wire form (§6).
func (t *Transaction) ToModel() (models.TransactionData, error) {
	var assetJSON json.RawMessage
	if t.Asset != nil {
		j, err := t.Asset.wireJSON()
		if err != nil {
			return models.TransactionData{}, err
		}
		assetJSON = j
	}

	var recipient string
	if t.RecipientID != nil {
		recipient = t.Network.AddressFromRecipientID(t.RecipientID)
	}

	data := models.TransactionData{
		Version:         Version,
		Network:         t.Network.P2PKHVersion,
		TypeGroup:       t.TypeGroup,
		Type:            t.Type,
		Nonce:           t.Nonce,
		SenderPublicKey: hex.EncodeToString(t.SenderPublicKey.ToBytes()),
		Fee:             t.Fee,
		VendorField:     t.VendorField,
		Amount:          t.Amount,
		Expiration:      t.Expiration,
		RecipientID:     recipient,
		Asset:           assetJSON,
	}
	if t.hasSignature {
		data.Signature = hex.EncodeToString(t.Signature.ToBytes())
	}
	if t.hasSecondSig {
		data.SecondSignature = hex.EncodeToString(t.SecondSignature.ToBytes())
	}
	if t.hasSignature {
		id, err := t.ID()
		if err != nil {
			return models.TransactionData{}, err
		}
		data.ID = id
	}
	return data, nil
}
