package hdkey

import (
	"testing"

	"github.com/idchain-labs/keyvault/internal/mnemonic"
	"github.com/idchain-labs/keyvault/internal/network"
)

func testSeed(t *testing.T) []byte {
	t.Helper()
	p, err := mnemonic.Parse("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	if err != nil {
		t.Fatalf("parse mnemonic: %v", err)
	}
	return p.Seed("")
}

func TestSecp256k1_HydraTestnetAddressIsDeterministic(t *testing.T) {
	seed := testSeed(t)
	net, err := network.ByName("hyd-testnet")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}

	derive := func() string {
		master, err := MasterSecp256k1(seed)
		if err != nil {
			t.Fatalf("MasterSecp256k1: %v", err)
		}
		path := BIP44Path(uint32(net.SLIP44), 0, 0, 0)
		leaf, err := master.DerivePath(path)
		if err != nil {
			t.Fatalf("DerivePath: %v", err)
		}
		pub, err := leaf.PrivateKey()
		if err != nil {
			t.Fatalf("PrivateKey: %v", err)
		}
		return net.Address(pub.PublicKey().ToBytes())
	}

	a := derive()
	b := derive()
	if a != b {
		t.Fatalf("address is not deterministic: %q != %q", a, b)
	}
	if a == "" {
		t.Fatalf("address must not be empty")
	}
}

func TestSecp256k1_NeuterCommutesWithNormalDerivation(t *testing.T) {
	seed := testSeed(t)
	master, err := MasterSecp256k1(seed)
	if err != nil {
		t.Fatalf("MasterSecp256k1: %v", err)
	}
	account, err := master.DerivePath([]ChildIndex{Hardened(44), Hardened(1), Hardened(0)})
	if err != nil {
		t.Fatalf("derive account: %v", err)
	}

	for _, i := range []uint32{0, 1, 5} {
		viaPrivateThenNeuter := account.Neuter()
		child, err := viaPrivateThenNeuter.Derive(Normal(i))
		if err != nil {
			t.Fatalf("derive from neutered account: %v", err)
		}
		privChild, err := account.Derive(Normal(i))
		if err != nil {
			t.Fatalf("derive from private account: %v", err)
		}
		neuteredAfter := privChild.Neuter()

		childPub, err := child.PublicKey()
		if err != nil {
			t.Fatalf("PublicKey: %v", err)
		}
		neuteredPub, err := neuteredAfter.PublicKey()
		if err != nil {
			t.Fatalf("PublicKey: %v", err)
		}
		if string(childPub.ToBytes()) != string(neuteredPub.ToBytes()) {
			t.Fatalf("neuter(derive_normal(xprv, %d)) != derive_normal(neuter(xprv), %d)", i, i)
		}
	}
}

func TestSecp256k1_PublicDeriveRejectsHardenedIndex(t *testing.T) {
	seed := testSeed(t)
	master, err := MasterSecp256k1(seed)
	if err != nil {
		t.Fatalf("MasterSecp256k1: %v", err)
	}
	pub := master.Neuter()
	if _, err := pub.Derive(Hardened(0)); err == nil {
		t.Fatalf("expected an error deriving a hardened child from a public key")
	}
}

func TestEd25519_HardenedOnlyDerivation(t *testing.T) {
	seed := testSeed(t)
	master, err := MasterEd25519(seed)
	if err != nil {
		t.Fatalf("MasterEd25519: %v", err)
	}
	if _, err := master.Derive(Normal(0)); err == nil {
		t.Fatalf("expected an error requesting normal derivation on an Ed25519 node")
	}
	child, err := master.DerivePath([]ChildIndex{Hardened(128), Hardened(0), Hardened(0)})
	if err != nil {
		t.Fatalf("DerivePath: %v", err)
	}
	again, err := master.DerivePath([]ChildIndex{Hardened(128), Hardened(0), Hardened(0)})
	if err != nil {
		t.Fatalf("DerivePath (again): %v", err)
	}
	if string(child.PrivateKey().ToBytes()) != string(again.PrivateKey().ToBytes()) {
		t.Fatalf("ed25519 hardened derivation is not deterministic")
	}
}
