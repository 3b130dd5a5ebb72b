// Package canonicaljson implements §4.F: a canonical JSON renderer and the
// content-id digester used for selective disclosure. The starting point is
// certenIO-certen-validator's CanonicalizeJSON (decode to interface{}, sort
// object keys, re-encode) — adapted here with a hand-written writer because
// the spec needs three things encoding/json's own Marshal can't give us:
// UTF-16 code-unit key ordering (not raw byte order), integer-only numbers
// (NonCanonicalNumber on any float), and, for content-id computation, the
// selective-disclosure substitution rule.
package canonicaljson

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"unicode/utf16"

	"github.com/idchain-labs/keyvault/pkg/keyerr"
	"github.com/multiformats/go-multibase"
)

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// decode parses arbitrary Go data into the plain JSON value tree
// (map[string]interface{}, []interface{}, json.Number, string, bool, nil)
// by round-tripping it through encoding/json with UseNumber, so canonicalize
// can inspect whether each number was written as an integer or a float.
func decode(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.KindMalformedTransaction, "marshal value for canonicalization", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, keyerr.Wrap(keyerr.KindMalformedTransaction, "decode value for canonicalization", err)
	}
	return out, nil
}

// Marshal renders v as canonical JSON: object keys sorted by UTF-16 code
// unit, integers only (NonCanonicalNumber on any float), minimal escaping,
// arrays in source order. Nested containers are fully expanded inline — no
// selective-disclosure reduction; use ContentID for that.
func Marshal(v interface{}) ([]byte, error) {
	tree, err := decode(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch vv := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if vv {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		return writeNumber(buf, vv)
	case string:
		writeString(buf, vv)
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, e := range vv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]interface{}:
		keys := sortedKeys(vv)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, vv[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return keyerr.New(keyerr.KindMalformedTransaction, fmt.Sprintf("unsupported canonical JSON value type %T", v))
	}
}

// writeNumber rejects anything with a fractional or exponent part —
// canonical form is integers only.
func writeNumber(buf *bytes.Buffer, n json.Number) error {
	i, ok := new(big.Int).SetString(n.String(), 10)
	if !ok {
		return keyerr.New(keyerr.KindNonCanonicalNumber, "non-integer number: "+n.String())
	}
	buf.WriteString(i.String())
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// sortedKeys orders object keys by UTF-16 code unit, per §4.F — not Go's
// default byte-wise string order, which disagrees with it above the Basic
// Multilingual Plane (surrogate pairs sort differently than their raw UTF-8
// bytes).
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessUTF16(keys[i], keys[j])
	})
	return keys
}

func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	n := len(ua)
	if len(ub) < n {
		n = len(ub)
	}
	for i := 0; i < n; i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

const contentIDTag = "cj"

// ContentID computes "cj" + multibase_base58btc(SHA-256(canonical_json(v))).
// Hashing is selective-disclosure aware (§4.F): any string value already
// holding a valid content-id contributes its decoded raw digest bytes to
// its enclosing container's hash input instead of its own quoted text, so
// the root digest of a value is unchanged by redacting arbitrary subtrees
// down to their content-ids. This makes content-id computation a Merkle
// hash rather than a flat sha256-of-the-canonical-text: every child
// container's contribution to its parent's digest input is always that
// child's own 32-byte digest (whether it was redacted by the caller or is
// present in full makes no observable difference at the parent). Only
// scalar leaves (non-content-id strings, integers, bools, null) and
// already-redacted content-id strings participate below the digest layer.
func ContentID(v interface{}) (string, error) {
	tree, err := decode(v)
	if err != nil {
		return "", err
	}
	sum, err := digest(tree)
	if err != nil {
		return "", err
	}
	return contentIDTag + multibase.Encode(multibase.Base58BTC, sum), nil
}

// digest returns the 32-byte SHA-256 digest of v's contribution to a
// parent container, per the Merkle rule described on ContentID.
func digest(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDigestible(&buf, v); err != nil {
		return nil, err
	}
	return sha256Sum(buf.Bytes()), nil
}

// writeDigestible renders v the way writeCanonical does, except every
// object/array child is written as its own raw digest bytes (not its
// expanded text), and a string already in content-id form is substituted
// back to its decoded raw bytes rather than re-quoted.
func writeDigestible(buf *bytes.Buffer, v interface{}) error {
	switch vv := v.(type) {
	case nil, bool, json.Number:
		return writeCanonical(buf, v)
	case string:
		if raw, ok := decodeContentID(vv); ok {
			buf.Write(raw)
			return nil
		}
		writeString(buf, vv)
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, e := range vv {
			if i > 0 {
				buf.WriteByte(',')
			}
			d, err := childContribution(e)
			if err != nil {
				return err
			}
			buf.Write(d)
		}
		buf.WriteByte(']')
		return nil
	case map[string]interface{}:
		keys := sortedKeys(vv)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			d, err := childContribution(vv[k])
			if err != nil {
				return err
			}
			buf.Write(d)
		}
		buf.WriteByte('}')
		return nil
	default:
		return keyerr.New(keyerr.KindMalformedTransaction, fmt.Sprintf("unsupported canonical JSON value type %T", v))
	}
}

// childContribution is what a child value contributes to its enclosing
// container's digest input: the decoded raw digest bytes if the child is
// already a content-id string (substituted back "before hashing its
// enclosing container", per §4.F, not hashed a second time), otherwise
// this child's own digest.
func childContribution(v interface{}) ([]byte, error) {
	if s, ok := v.(string); ok {
		if raw, ok := decodeContentID(s); ok {
			return raw, nil
		}
	}
	return digest(v)
}

// decodeContentID reports whether s is a syntactically valid content-id
// ("cj" + multibase base58btc of exactly 32 bytes) and, if so, returns the
// decoded digest. A malformed "cj..." string is treated as an ordinary
// string, per §4.F.
func decodeContentID(s string) ([]byte, bool) {
	if len(s) <= len(contentIDTag) || s[:len(contentIDTag)] != contentIDTag {
		return nil, false
	}
	_, raw, err := multibase.Decode(s[len(contentIDTag):])
	if err != nil || len(raw) != 32 {
		return nil, false
	}
	return raw, true
}
