package hydratx

import (
	"testing"

	"github.com/idchain-labs/keyvault/internal/config"
	"github.com/idchain-labs/keyvault/internal/network"
	"github.com/idchain-labs/keyvault/internal/suite"
)

func testKey(t *testing.T, b byte) suite.Secp256k1PrivateKey {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = b
	}
	priv, err := suite.Secp256k1PrivateKeyFromBytes(seed)
	if err != nil {
		t.Fatalf("Secp256k1PrivateKeyFromBytes: %v", err)
	}
	return priv
}

// TestTransfer_SignsAndVerifies exercises spec.md §8 scenario 6: a DPoS
// Transfer transaction on hyd-testnet with nonce=245, amount=3141593, and an
// explicit 1000000-flake fee must serialize, sign, and verify.
func TestTransfer_SignsAndVerifies(t *testing.T) {
	net, err := network.ByName("hyd-testnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	cfg := config.Default()
	sender := testKey(t, 0x01)
	recipient := testKey(t, 0x02)

	fee := uint64(1_000_000)
	tx, err := NewTransfer(net, 245, sender.PublicKey(), 3_141_593, recipient.PublicKey().ToBytes(), "", &fee, cfg)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}

	if err := tx.Sign(sender); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	ok, err := tx.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("signed transfer failed to verify")
	}

	full, err := tx.serialize(true)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if full[0] != Version {
		t.Fatalf("byte 0 = %#x, want version %#x", full[0], Version)
	}
	if full[1] != net.P2PKHVersion {
		t.Fatalf("byte 1 = %#x, want network magic %#x", full[1], net.P2PKHVersion)
	}

	model, err := tx.ToModel()
	if err != nil {
		t.Fatalf("ToModel: %v", err)
	}
	if model.ID == "" {
		t.Fatalf("expected a transaction id once signed")
	}
	if model.Fee != fee {
		t.Fatalf("model fee = %d, want %d", model.Fee, fee)
	}
}

func TestTransfer_RejectsOversizedVendorField(t *testing.T) {
	net, err := network.ByName("hyd-testnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	cfg := config.Default()
	sender := testKey(t, 0x03)
	recipient := testKey(t, 0x04)

	vendorField := make([]byte, 256)
	for i := range vendorField {
		vendorField[i] = 'x'
	}
	_, err = NewTransfer(net, 1, sender.PublicKey(), 1, recipient.PublicKey().ToBytes(), string(vendorField), nil, cfg)
	if err == nil {
		t.Fatalf("expected an error for an oversized vendor field")
	}
}

func TestVerify_FailsAfterTamperingWithAmount(t *testing.T) {
	net, err := network.ByName("hyd-testnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	cfg := config.Default()
	sender := testKey(t, 0x05)
	recipient := testKey(t, 0x06)

	tx, err := NewTransfer(net, 1, sender.PublicKey(), 1000, recipient.PublicKey().ToBytes(), "", nil, cfg)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}
	if err := tx.Sign(sender); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tx.Amount = 2000
	ok, err := tx.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification to fail after tampering with the amount")
	}
}

func TestMorpheusAsset_FeeFollowsLengthFormula(t *testing.T) {
	net, err := network.ByName("hyd-mainnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	cfg := config.Default()
	sender := testKey(t, 0x07)

	tx, err := NewMorpheusOperation(net, 1, sender.PublicKey(), nil, nil, cfg)
	if err != nil {
		t.Fatalf("NewMorpheusOperation: %v", err)
	}

	asset := tx.Asset.(MorpheusAsset)
	canon, err := asset.canonicalJSON()
	if err != nil {
		t.Fatalf("canonicalJSON: %v", err)
	}
	want := (uint64(len(canon)) + cfg.MorpheusFeeBytesOffset) * cfg.MorpheusFlakesPerByte
	if tx.Fee != want {
		t.Fatalf("fee = %d, want %d", tx.Fee, want)
	}
}

func TestSignSecond_RequiresPrimarySignatureFirst(t *testing.T) {
	net, err := network.ByName("hyd-testnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	cfg := config.Default()
	sender := testKey(t, 0x08)
	recipient := testKey(t, 0x09)

	tx, err := NewTransfer(net, 1, sender.PublicKey(), 1, recipient.PublicKey().ToBytes(), "", nil, cfg)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}
	if err := tx.SignSecond(sender); err == nil {
		t.Fatalf("expected an error attaching a second signature before the primary one")
	}
}
