package network

import (
	"testing"

	"github.com/idchain-labs/keyvault/pkg/keyerr"
)

func TestByName_UnknownNetworkFails(t *testing.T) {
	_, err := ByName("does-not-exist")
	if !keyerr.Is(err, keyerr.KindUnknownNetwork) {
		t.Fatalf("expected KindUnknownNetwork, got %v", err)
	}
}

func TestAddress_IsDeterministicAndVaryWithNetwork(t *testing.T) {
	pub := make([]byte, 33)
	pub[0] = 0x02
	for i := 1; i < 33; i++ {
		pub[i] = byte(i)
	}

	testnet, err := ByName("hyd-testnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	mainnet, err := ByName("hyd-mainnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}

	a1 := testnet.Address(pub)
	a2 := testnet.Address(pub)
	if a1 != a2 {
		t.Fatalf("address is not deterministic: %q != %q", a1, a2)
	}
	if a1 == mainnet.Address(pub) {
		t.Fatalf("same public key should produce different addresses on different networks")
	}
}

func TestAddressFromRecipientID_MatchesRecipientIDBytes(t *testing.T) {
	pub := make([]byte, 33)
	pub[0] = 0x03
	for i := 1; i < 33; i++ {
		pub[i] = byte(2 * i)
	}
	net, err := ByName("hyd-testnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}

	want := net.Address(pub)
	recipientID := net.RecipientIDBytes(pub)
	got := net.AddressFromRecipientID(recipientID)
	if got != want {
		t.Fatalf("AddressFromRecipientID(RecipientIDBytes(pub)) = %q, want %q", got, want)
	}
}

func TestAddressFromRecipientID_RejectsWrongLength(t *testing.T) {
	net, err := ByName("hyd-testnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if got := net.AddressFromRecipientID([]byte{1, 2, 3}); got != "" {
		t.Fatalf("expected an empty string for a malformed recipient id, got %q", got)
	}
}

func TestEncodeExtendedPublicKey_VariesByNetworkMagic(t *testing.T) {
	payload := make([]byte, 78)
	for i := range payload {
		payload[i] = byte(i)
	}
	testnet, err := ByName("hyd-testnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	btc, err := ByName("btc-mainnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if testnet.EncodeExtendedPublicKey(payload) == btc.EncodeExtendedPublicKey(payload) {
		t.Fatalf("different xpub magics should encode differently")
	}
}
