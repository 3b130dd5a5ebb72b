// Command example walks through the core keyvault lifecycle: generate a
// mnemonic, create a vault, register a Hydra wallet and a Morpheus identity
// plugin, sign a DPoS transfer and an identity operation, then persist the
// vault file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/idchain-labs/keyvault/internal/config"
	"github.com/idchain-labs/keyvault/internal/hydratx"
	"github.com/idchain-labs/keyvault/internal/identitytx"
	"github.com/idchain-labs/keyvault/internal/mnemonic"
	"github.com/idchain-labs/keyvault/internal/multicipher"
	"github.com/idchain-labs/keyvault/internal/network"
	"github.com/idchain-labs/keyvault/internal/plugin/hydra"
	"github.com/idchain-labs/keyvault/internal/plugin/morpheus"
	"github.com/idchain-labs/keyvault/internal/vault"
	"github.com/idchain-labs/keyvault/internal/vaultfile"
)

const unlockPassword = "correct horse battery staple"

func main() {
	logger := slog.Default().With("component", "example")
	cfg := config.Default()

	phrase, err := mnemonic.Generate(mnemonic.Strength12Words)
	if err != nil {
		logger.Error("generate mnemonic", "error", err)
		os.Exit(1)
	}
	fmt.Println("mnemonic:", phrase.Words())

	v, err := vault.Create(phrase.Words(), "")
	if err != nil {
		logger.Error("create vault", "error", err)
		os.Exit(1)
	}

	net, err := network.ByName("hyd-testnet")
	if err != nil {
		logger.Error("look up network", "error", err)
		os.Exit(1)
	}

	wallet, err := hydra.Init(v, unlockPassword, hydra.Parameters{Network: net.Name, Account: 0})
	if err != nil {
		logger.Error("register hydra plugin", "error", err)
		os.Exit(1)
	}
	senderPub, err := wallet.Key(hydra.Receive, 0)
	if err != nil {
		logger.Error("derive receive key", "error", err)
		os.Exit(1)
	}
	fmt.Println("hydra receive address:", net.Address(senderPub.ToBytes()))

	identity, err := morpheus.Init(v, unlockPassword)
	if err != nil {
		logger.Error("register morpheus plugin", "error", err)
		os.Exit(1)
	}

	_, recipientKey, err := wallet.NextKey(hydra.Change_)
	if err != nil {
		logger.Error("derive change key", "error", err)
		os.Exit(1)
	}

	tx, err := hydratx.NewTransfer(net, 1, senderPub, 3_141_593, recipientKey.ToBytes(), "example transfer", nil, cfg)
	if err != nil {
		logger.Error("build transfer", "error", err)
		os.Exit(1)
	}

	walletPriv, err := wallet.Private(v, unlockPassword)
	if err != nil {
		logger.Error("unlock hydra wallet", "error", err)
		os.Exit(1)
	}
	signingKey, err := walletPriv.SignWith(hydra.Receive, 0)
	if err != nil {
		logger.Error("derive signing key", "error", err)
		os.Exit(1)
	}
	if err := tx.Sign(signingKey); err != nil {
		logger.Error("sign transfer", "error", err)
		os.Exit(1)
	}
	txModel, err := tx.ToModel()
	if err != nil {
		logger.Error("project transfer", "error", err)
		os.Exit(1)
	}
	fmt.Println("transfer id:", txModel.ID)

	identityPriv, err := identity.Private(v, unlockPassword)
	if err != nil {
		logger.Error("unlock morpheus identity", "error", err)
		os.Exit(1)
	}
	persona, err := identityPriv.Persona(0)
	if err != nil {
		logger.Error("derive persona", "error", err)
		os.Exit(1)
	}
	authKey := multicipher.FromEd25519PublicKey(persona.PublicKey())
	op := identitytx.NewSignableOperation(
		identitytx.SignableOperationAttempt{
			DID:       "did:morpheus:ezFz5BKhpSAUtNobWeQKnJjYYXjtUHYdaJqMyQzrc8g3gE9",
			Operation: identitytx.NewAddKey(identitytx.Authentication{PublicKey: authKey}, nil),
		},
	)
	signed, err := op.Sign(identityPriv.Signer(0))
	if err != nil {
		logger.Error("sign identity operation", "error", err)
		os.Exit(1)
	}
	ok, err := signed.Verify()
	if err != nil {
		logger.Error("verify identity operation", "error", err)
		os.Exit(1)
	}
	fmt.Println("identity operation verifies:", ok)

	path := "vault.json"
	if err := vaultfile.Save(path, v, mustUnlock(v), unlockPassword, cfg); err != nil {
		logger.Error("save vault file", "error", err)
		os.Exit(1)
	}
	fmt.Println("vault persisted to", path)
}

func mustUnlock(v *vault.Vault) []byte {
	seed, err := v.Unlock(unlockPassword)
	if err != nil {
		panic(err)
	}
	return seed
}
