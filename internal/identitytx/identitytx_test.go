package identitytx

import (
	"encoding/json"
	"testing"

	"github.com/idchain-labs/keyvault/internal/multicipher"
	"github.com/idchain-labs/keyvault/internal/suite"
)

type ed25519Signer struct {
	priv suite.Ed25519PrivateKey
}

func (s ed25519Signer) Sign(msg []byte) (multicipher.MPublicKey, multicipher.MSignature, error) {
	sig := s.priv.Sign(msg)
	return multicipher.FromEd25519PublicKey(s.priv.PublicKey()), multicipher.FromEd25519Signature(sig), nil
}

func testSigner(t *testing.T, b byte) ed25519Signer {
	t.Helper()
	seed := make([]byte, suite.Ed25519PrivateKeySize)
	for i := range seed {
		seed[i] = b
	}
	priv, err := suite.NewEd25519PrivateKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("NewEd25519PrivateKeyFromSeed: %v", err)
	}
	return ed25519Signer{priv: priv}
}

func TestSignableOperation_SignAndVerifyRoundTrip(t *testing.T) {
	signer := testSigner(t, 0x11)
	authKey := multicipher.FromEd25519PublicKey(signer.priv.PublicKey())

	op := NewSignableOperation(SignableOperationAttempt{
		DID:       "did:morpheus:ezFz5BKhpSAUtNobWeQKnJjYYXjtUHYdaJqMyQzrc8g3gE9",
		Operation: NewAddKey(Authentication{PublicKey: authKey}, nil),
	})

	signed, err := op.Sign(signer)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := signed.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("signed operation failed to verify")
	}
}

func TestSignableOperation_VerifyFailsAfterTamperingWithDID(t *testing.T) {
	signer := testSigner(t, 0x12)
	authKey := multicipher.FromEd25519PublicKey(signer.priv.PublicKey())

	op := NewSignableOperation(SignableOperationAttempt{
		DID:       "did:morpheus:ezFz5BKhpSAUtNobWeQKnJjYYXjtUHYdaJqMyQzrc8g3gE9",
		Operation: NewAddKey(Authentication{PublicKey: authKey}, nil),
	})
	signed, err := op.Sign(signer)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	signed.Signables[0].DID = "did:morpheus:tampered"
	ok, err := signed.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification to fail after tampering with the DID")
	}
}

func TestSignableOperationDetails_JSONRoundTripEachKind(t *testing.T) {
	signer := testSigner(t, 0x13)
	authKey := multicipher.FromEd25519PublicKey(signer.priv.PublicKey())
	auth := Authentication{PublicKey: authKey}

	kinds := []SignableOperationDetails{
		NewAddKey(auth, nil),
		NewRevokeKey(auth),
		NewAddRight(auth, "impersonate"),
		NewRevokeRight(auth, "impersonate"),
		NewTombstoneDid(),
	}

	for _, d := range kinds {
		b, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", d.Kind, err)
		}
		var decoded SignableOperationDetails
		if err := json.Unmarshal(b, &decoded); err != nil {
			t.Fatalf("Unmarshal(%s): %v", d.Kind, err)
		}
		if decoded.Kind != d.Kind {
			t.Fatalf("kind mismatch: got %s, want %s", decoded.Kind, d.Kind)
		}
		if decoded.Right != d.Right {
			t.Fatalf("right mismatch: got %q, want %q", decoded.Right, d.Right)
		}
	}
}

func TestOperationAttempt_JSONRoundTripBothVariants(t *testing.T) {
	signer := testSigner(t, 0x14)
	authKey := multicipher.FromEd25519PublicKey(signer.priv.PublicKey())
	op := NewSignableOperation(SignableOperationAttempt{
		DID:       "did:morpheus:ezFz5BKhpSAUtNobWeQKnJjYYXjtUHYdaJqMyQzrc8g3gE9",
		Operation: NewAddKey(Authentication{PublicKey: authKey}, nil),
	})
	signed, err := op.Sign(signer)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	signedAttempt := NewSignedAttempt(signed)
	registerAttempt := NewRegisterBeforeProof("cjExampleContentId")

	for _, attempt := range []OperationAttempt{signedAttempt, registerAttempt} {
		b, err := json.Marshal(attempt)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var decoded OperationAttempt
		if err := json.Unmarshal(b, &decoded); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if contentID, isRegister := attempt.IsRegisterBeforeProof(); isRegister {
			decodedID, ok := decoded.IsRegisterBeforeProof()
			if !ok || decodedID != contentID {
				t.Fatalf("registerBeforeProof round trip mismatch: got (%q, %v), want %q", decodedID, ok, contentID)
			}
		}
		if so, isSigned := attempt.AsSigned(); isSigned {
			decodedSigned, ok := decoded.AsSigned()
			if !ok || decodedSigned.Signature != so.Signature {
				t.Fatalf("signed round trip mismatch: got %+v, want %+v", decodedSigned, so)
			}
		}
	}
}

func TestSignableOperationAttempt_LastTxIDRoundTrips(t *testing.T) {
	signer := testSigner(t, 0x15)
	authKey := multicipher.FromEd25519PublicKey(signer.priv.PublicKey())
	lastTxID := "abc123"
	attempt := SignableOperationAttempt{
		DID:       "did:morpheus:ezFz5BKhpSAUtNobWeQKnJjYYXjtUHYdaJqMyQzrc8g3gE9",
		LastTxID:  &lastTxID,
		Operation: NewRevokeKey(Authentication{PublicKey: authKey}),
	}

	b, err := json.Marshal(attempt)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded SignableOperationAttempt
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.LastTxID == nil || *decoded.LastTxID != lastTxID {
		t.Fatalf("lastTxId mismatch: got %v, want %q", decoded.LastTxID, lastTxID)
	}
	if decoded.DID != attempt.DID {
		t.Fatalf("did mismatch: got %q, want %q", decoded.DID, attempt.DID)
	}
}
