// Package multicipher implements §4.E: the union-type abstraction that lets
// key-ids, public keys, and signatures range over more than one ciphersuite
// behind one textual/binary encoding. The textual format and its parsing
// rules are grounded on keyvault/src/multicipher/sig.rs's MSignature; the
// erased {suite, value} record that both the JSON and MessagePack codecs
// share mirrors that file's ErasedBytes. Textual encoding uses
// github.com/multiformats/go-multibase (base58btc canonical, any multibase
// accepted on decode); binary encoding uses
// github.com/vmihailenco/msgpack/v5, the pack's MessagePack library.
package multicipher

import (
	"encoding/json"

	"github.com/idchain-labs/keyvault/internal/suite"
	"github.com/idchain-labs/keyvault/pkg/keyerr"
	"github.com/multiformats/go-multibase"
	"github.com/vmihailenco/msgpack/v5"
)

// kind is the first-character type tag of the textual encoding (rule 1).
type kind byte

const (
	kindKeyID     kind = 'i'
	kindPublicKey kind = 'p'
	kindSignature kind = 's'
)

// erased is the two-field record {suite, value} shared by the JSON and
// MessagePack codecs of every multicipher type, matching sig.rs's
// ErasedBytes.
type erased struct {
	Suite byte   `json:"suite" msgpack:"suite"`
	Value []byte `json:"value" msgpack:"value"`
}

func encodeText(k kind, s suite.CipherSuite, value []byte) string {
	body := multibase.Encode(multibase.Base58BTC, value)
	out := make([]byte, 0, 2+len(body))
	out = append(out, byte(k), s.Char())
	out = append(out, body...)
	return string(out)
}

// decodeText implements the textual parsing rules 1-3 of §4.E; rule 4
// (length check against the suite's from_bytes) is left to the caller,
// which knows the expected byte length for its concrete type.
func decodeText(expected kind, text string) (suite.CipherSuite, []byte, error) {
	if len(text) < 1 || kind(text[0]) != expected {
		return 0, nil, keyerr.New(keyerr.KindWrongPrefix, "multicipher value has the wrong type prefix")
	}
	if len(text) < 2 {
		return 0, nil, keyerr.New(keyerr.KindUnknownCipherSuite, "multicipher value is missing a ciphersuite tag")
	}
	cs, ok := suite.FromChar(text[1])
	if !ok {
		return 0, nil, keyerr.New(keyerr.KindUnknownCipherSuite, "unrecognized ciphersuite tag")
	}
	_, value, err := multibase.Decode(text[2:])
	if err != nil {
		return 0, nil, keyerr.Wrap(keyerr.KindInvalidLength, "decode multibase payload", err)
	}
	return cs, value, nil
}

// MPublicKey is a ciphersuite-erased public key.
type MPublicKey struct {
	cipherSuite suite.CipherSuite
	ed          suite.Ed25519PublicKey
	secp        suite.Secp256k1PublicKey
}

func FromEd25519PublicKey(k suite.Ed25519PublicKey) MPublicKey {
	return MPublicKey{cipherSuite: suite.Ed25519, ed: k}
}

func FromSecp256k1PublicKey(k suite.Secp256k1PublicKey) MPublicKey {
	return MPublicKey{cipherSuite: suite.Secp256k1, secp: k}
}

func (k MPublicKey) Suite() suite.CipherSuite { return k.cipherSuite }

func (k MPublicKey) toBytes() []byte {
	switch k.cipherSuite {
	case suite.Ed25519:
		return k.ed.ToBytes()
	case suite.Secp256k1:
		return k.secp.ToBytes()
	default:
		return nil
	}
}

func (k MPublicKey) String() string {
	return encodeText(kindPublicKey, k.cipherSuite, k.toBytes())
}

func ParseMPublicKey(text string) (MPublicKey, error) {
	cs, value, err := decodeText(kindPublicKey, text)
	if err != nil {
		return MPublicKey{}, err
	}
	return mPublicKeyFromSuiteBytes(cs, value)
}

func mPublicKeyFromSuiteBytes(cs suite.CipherSuite, value []byte) (MPublicKey, error) {
	switch cs {
	case suite.Ed25519:
		k, err := suite.Ed25519PublicKeyFromBytes(value)
		if err != nil {
			return MPublicKey{}, err
		}
		return FromEd25519PublicKey(k), nil
	case suite.Secp256k1:
		k, err := suite.Secp256k1PublicKeyFromBytes(value)
		if err != nil {
			return MPublicKey{}, err
		}
		return FromSecp256k1PublicKey(k), nil
	default:
		return MPublicKey{}, keyerr.New(keyerr.KindUnknownCipherSuite, "unrecognized ciphersuite")
	}
}

// KeyID returns the erased key-id fingerprint for this public key.
func (k MPublicKey) KeyID() MKeyID {
	switch k.cipherSuite {
	case suite.Ed25519:
		return FromEd25519KeyID(k.ed.KeyID())
	case suite.Secp256k1:
		return FromSecp256k1KeyID(k.secp.KeyID())
	default:
		return MKeyID{}
	}
}

// Verify checks sig against msg under this public key. Signatures from a
// different ciphersuite than the key never verify.
func (k MPublicKey) Verify(msg []byte, sig MSignature) bool {
	if k.cipherSuite != sig.cipherSuite {
		return false
	}
	switch k.cipherSuite {
	case suite.Ed25519:
		return k.ed.Verify(msg, sig.ed)
	case suite.Secp256k1:
		return k.secp.Verify(msg, sig.secp)
	default:
		return false
	}
}

func (k MPublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(erased{Suite: k.cipherSuite.Char(), Value: k.toBytes()})
}

func (k *MPublicKey) UnmarshalJSON(b []byte) error {
	var e erased
	if err := json.Unmarshal(b, &e); err != nil {
		return err
	}
	cs, ok := suite.FromChar(e.Suite)
	if !ok {
		return keyerr.New(keyerr.KindUnknownCipherSuite, "unrecognized ciphersuite in JSON payload")
	}
	parsed, err := mPublicKeyFromSuiteBytes(cs, e.Value)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k MPublicKey) MarshalMsgpack() ([]byte, error) {
	return msgpack.Marshal(erased{Suite: k.cipherSuite.Char(), Value: k.toBytes()})
}

func (k *MPublicKey) UnmarshalMsgpack(b []byte) error {
	var e erased
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return err
	}
	cs, ok := suite.FromChar(e.Suite)
	if !ok {
		return keyerr.New(keyerr.KindUnknownCipherSuite, "unrecognized ciphersuite in msgpack payload")
	}
	parsed, err := mPublicKeyFromSuiteBytes(cs, e.Value)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MSignature is a ciphersuite-erased signature.
type MSignature struct {
	cipherSuite suite.CipherSuite
	ed          suite.Ed25519Signature
	secp        suite.Secp256k1Signature
}

func FromEd25519Signature(s suite.Ed25519Signature) MSignature {
	return MSignature{cipherSuite: suite.Ed25519, ed: s}
}

func FromSecp256k1Signature(s suite.Secp256k1Signature) MSignature {
	return MSignature{cipherSuite: suite.Secp256k1, secp: s}
}

func (s MSignature) Suite() suite.CipherSuite { return s.cipherSuite }

func (s MSignature) toBytes() []byte {
	switch s.cipherSuite {
	case suite.Ed25519:
		return s.ed.ToBytes()
	case suite.Secp256k1:
		return s.secp.ToBytes()
	default:
		return nil
	}
}

func (s MSignature) String() string {
	return encodeText(kindSignature, s.cipherSuite, s.toBytes())
}

func ParseMSignature(text string) (MSignature, error) {
	cs, value, err := decodeText(kindSignature, text)
	if err != nil {
		return MSignature{}, err
	}
	return mSignatureFromSuiteBytes(cs, value)
}

func mSignatureFromSuiteBytes(cs suite.CipherSuite, value []byte) (MSignature, error) {
	switch cs {
	case suite.Ed25519:
		s, err := suite.Ed25519SignatureFromBytes(value)
		if err != nil {
			return MSignature{}, err
		}
		return FromEd25519Signature(s), nil
	case suite.Secp256k1:
		s, err := suite.Secp256k1SignatureFromBytes(value)
		if err != nil {
			return MSignature{}, err
		}
		return FromSecp256k1Signature(s), nil
	default:
		return MSignature{}, keyerr.New(keyerr.KindUnknownCipherSuite, "unrecognized ciphersuite")
	}
}

func (s MSignature) MarshalJSON() ([]byte, error) {
	return json.Marshal(erased{Suite: s.cipherSuite.Char(), Value: s.toBytes()})
}

func (s *MSignature) UnmarshalJSON(b []byte) error {
	var e erased
	if err := json.Unmarshal(b, &e); err != nil {
		return err
	}
	cs, ok := suite.FromChar(e.Suite)
	if !ok {
		return keyerr.New(keyerr.KindUnknownCipherSuite, "unrecognized ciphersuite in JSON payload")
	}
	parsed, err := mSignatureFromSuiteBytes(cs, e.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s MSignature) MarshalMsgpack() ([]byte, error) {
	return msgpack.Marshal(erased{Suite: s.cipherSuite.Char(), Value: s.toBytes()})
}

func (s *MSignature) UnmarshalMsgpack(b []byte) error {
	var e erased
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return err
	}
	cs, ok := suite.FromChar(e.Suite)
	if !ok {
		return keyerr.New(keyerr.KindUnknownCipherSuite, "unrecognized ciphersuite in msgpack payload")
	}
	parsed, err := mSignatureFromSuiteBytes(cs, e.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MKeyID is a ciphersuite-erased key-id fingerprint.
type MKeyID struct {
	cipherSuite suite.CipherSuite
	ed          suite.Ed25519KeyID
	secp        suite.Secp256k1KeyID
}

func FromEd25519KeyID(id suite.Ed25519KeyID) MKeyID {
	return MKeyID{cipherSuite: suite.Ed25519, ed: id}
}

func FromSecp256k1KeyID(id suite.Secp256k1KeyID) MKeyID {
	return MKeyID{cipherSuite: suite.Secp256k1, secp: id}
}

func (id MKeyID) Suite() suite.CipherSuite { return id.cipherSuite }

func (id MKeyID) toBytes() []byte {
	switch id.cipherSuite {
	case suite.Ed25519:
		return id.ed.ToBytes()
	case suite.Secp256k1:
		return id.secp.ToBytes()
	default:
		return nil
	}
}

func (id MKeyID) String() string {
	return encodeText(kindKeyID, id.cipherSuite, id.toBytes())
}

func ParseMKeyID(text string) (MKeyID, error) {
	cs, value, err := decodeText(kindKeyID, text)
	if err != nil {
		return MKeyID{}, err
	}
	switch cs {
	case suite.Ed25519:
		k, err := suite.Ed25519KeyIDFromBytes(value)
		if err != nil {
			return MKeyID{}, err
		}
		return FromEd25519KeyID(k), nil
	case suite.Secp256k1:
		k, err := suite.Secp256k1KeyIDFromBytes(value)
		if err != nil {
			return MKeyID{}, err
		}
		return FromSecp256k1KeyID(k), nil
	default:
		return MKeyID{}, keyerr.New(keyerr.KindUnknownCipherSuite, "unrecognized ciphersuite")
	}
}

func (id MKeyID) MarshalJSON() ([]byte, error) {
	return json.Marshal(erased{Suite: id.cipherSuite.Char(), Value: id.toBytes()})
}

func (id MKeyID) MarshalMsgpack() ([]byte, error) {
	return msgpack.Marshal(erased{Suite: id.cipherSuite.Char(), Value: id.toBytes()})
}
