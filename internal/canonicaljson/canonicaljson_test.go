package canonicaljson

import (
	"testing"

	"github.com/idchain-labs/keyvault/pkg/keyerr"
)

func TestMarshal_SortsObjectKeys(t *testing.T) {
	a, err := Marshal(map[string]interface{}{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(a) != `{"a":2,"b":1}` {
		t.Fatalf("got %s, want canonical key order a before b", a)
	}
}

// TestContentID_StableUnderKeyOrder exercises spec.md §8 scenario 5: two
// JSON objects differing only in source key order must produce the same
// content-id digest.
func TestContentID_StableUnderKeyOrder(t *testing.T) {
	first, err := ContentID(map[string]interface{}{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("ContentID: %v", err)
	}
	second, err := ContentID(map[string]interface{}{"a": 2, "b": 1})
	if err != nil {
		t.Fatalf("ContentID: %v", err)
	}
	if first != second {
		t.Fatalf("content-id depends on key order: %q != %q", first, second)
	}
}

// TestContentID_SelectiveDisclosureSubstitution exercises the universal
// property: replacing any subtree with its own content-id string leaves the
// root digest unchanged.
func TestContentID_SelectiveDisclosureSubstitution(t *testing.T) {
	full := map[string]interface{}{
		"name": "alice",
		"address": map[string]interface{}{
			"city":    "Springfield",
			"country": "US",
		},
		"tags": []interface{}{"a", "b", "c"},
	}

	rootBefore, err := ContentID(full)
	if err != nil {
		t.Fatalf("ContentID(full): %v", err)
	}

	addressID, err := ContentID(full["address"])
	if err != nil {
		t.Fatalf("ContentID(address): %v", err)
	}
	tagsID, err := ContentID(full["tags"])
	if err != nil {
		t.Fatalf("ContentID(tags): %v", err)
	}

	redacted := map[string]interface{}{
		"name":    "alice",
		"address": addressID,
		"tags":    tagsID,
	}

	rootAfter, err := ContentID(redacted)
	if err != nil {
		t.Fatalf("ContentID(redacted): %v", err)
	}

	if rootBefore != rootAfter {
		t.Fatalf("redacting subtrees to their content-ids changed the root digest: %q != %q", rootBefore, rootAfter)
	}
}

func TestContentID_PartialRedactionAlsoPreservesRoot(t *testing.T) {
	full := map[string]interface{}{
		"name": "alice",
		"address": map[string]interface{}{
			"city":    "Springfield",
			"country": "US",
		},
	}
	rootBefore, err := ContentID(full)
	if err != nil {
		t.Fatalf("ContentID(full): %v", err)
	}

	addressID, err := ContentID(full["address"])
	if err != nil {
		t.Fatalf("ContentID(address): %v", err)
	}
	partiallyRedacted := map[string]interface{}{
		"name":    "alice",
		"address": addressID,
	}
	rootAfter, err := ContentID(partiallyRedacted)
	if err != nil {
		t.Fatalf("ContentID(partiallyRedacted): %v", err)
	}
	if rootBefore != rootAfter {
		t.Fatalf("partial redaction changed the root digest: %q != %q", rootBefore, rootAfter)
	}
}

func TestMarshal_RejectsFloats(t *testing.T) {
	_, err := Marshal(map[string]interface{}{"x": 1.5})
	if !keyerr.Is(err, keyerr.KindNonCanonicalNumber) {
		t.Fatalf("expected KindNonCanonicalNumber, got %v", err)
	}
}

func TestMarshal_KeepsArrayOrder(t *testing.T) {
	b, err := Marshal([]interface{}{3, 1, 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `[3,1,2]` {
		t.Fatalf("got %s, want array order preserved", b)
	}
}

func TestContentID_HasStableTagAndLength(t *testing.T) {
	id, err := ContentID(map[string]interface{}{"a": 1})
	if err != nil {
		t.Fatalf("ContentID: %v", err)
	}
	if id[:2] != "cj" {
		t.Fatalf("content-id must start with %q, got %q", "cj", id)
	}
	if raw, ok := decodeContentID(id); !ok || len(raw) != 32 {
		t.Fatalf("content-id must decode to a 32-byte digest, got %d bytes (ok=%v)", len(raw), ok)
	}
}
