// Package vaultfile implements the §6 "Persisted vault file" schema and the
// §5/§7 resource discipline around it: password-based AEAD sealing of the
// seed (PBKDF2-HMAC-SHA512 key derivation, golang.org/x/crypto/pbkdf2 — the
// same library go-bip39 uses internally for the mnemonic-to-seed KDF, now
// exercised directly for the vault's at-rest KDF, per SPEC_FULL §2) and an
// atomic write-to-temp/fsync/rename writer bounded to a configurable retry
// budget (§5 "the vault's file-write operation may retry ... bounded to
// three attempts"). Plugin (de)serialization is routed by PluginDoc's
// pluginName tag; an unrecognized tag is kept opaque rather than rejected
// (§6, §9 "Open question").
package vaultfile

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/idchain-labs/keyvault/internal/config"
	"github.com/idchain-labs/keyvault/internal/plugin/hydra"
	"github.com/idchain-labs/keyvault/internal/plugin/morpheus"
	"github.com/idchain-labs/keyvault/internal/vault"
	"github.com/idchain-labs/keyvault/pkg/keyerr"
	"github.com/idchain-labs/keyvault/pkg/models"
	"golang.org/x/crypto/pbkdf2"
)

var logger = slog.Default().With("component", "vaultfile")

const kdfAlgo = "pbkdf2-sha512"

// sealKey derives an AES-256-GCM key from password and salt via
// PBKDF2-HMAC-SHA512, iters rounds, matching the KDF the rest of this spec
// already uses for mnemonic seeds (§1 Non-goals treats PBKDF2-HMAC-SHA512
// as a trusted capability).
func sealKey(password string, salt []byte, iters int) []byte {
	return pbkdf2.Key([]byte(password), salt, iters, 32, sha512.New)
}

// SealSeed encrypts seed under password, returning the encryptedSeed and
// kdf fields of the vault file (§6). A fresh random salt and AEAD nonce are
// generated for every call; the nonce is prefixed onto the ciphertext so
// Open can recover it.
func SealSeed(seed []byte, password string, cfg config.Config) (encryptedSeed string, kdf models.KDFParams, err error) {
	salt := make([]byte, cfg.KDFSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", models.KDFParams{}, keyerr.Wrap(keyerr.KindPersistenceFailed, "generate kdf salt", err)
	}
	key := sealKey(password, salt, cfg.KDFIterations)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", models.KDFParams{}, keyerr.Wrap(keyerr.KindDecryptionFailed, "initialize seed cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", models.KDFParams{}, keyerr.Wrap(keyerr.KindDecryptionFailed, "initialize seed AEAD", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", models.KDFParams{}, keyerr.Wrap(keyerr.KindPersistenceFailed, "generate AEAD nonce", err)
	}
	sealed := gcm.Seal(nonce, nonce, seed, nil)

	return base64.StdEncoding.EncodeToString(sealed), models.KDFParams{
		Algo: kdfAlgo,
		Salt: hex.EncodeToString(salt),
		Iter: cfg.KDFIterations,
	}, nil
}

// OpenSeed recovers the plaintext seed from a vault file's encryptedSeed
// and kdf fields. DecryptionFailed covers both a wrong password and a
// corrupted ciphertext — the AEAD tag does not distinguish the two, and
// neither should the caller-visible error.
func OpenSeed(encryptedSeed string, kdf models.KDFParams, password string) ([]byte, error) {
	if kdf.Algo != kdfAlgo {
		return nil, keyerr.New(keyerr.KindDecryptionFailed, "unsupported kdf algorithm: "+kdf.Algo)
	}
	salt, err := hex.DecodeString(kdf.Salt)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.KindDecryptionFailed, "decode kdf salt", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(encryptedSeed)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.KindDecryptionFailed, "decode encrypted seed", err)
	}

	key := sealKey(password, salt, kdf.Iter)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.KindDecryptionFailed, "initialize seed cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.KindDecryptionFailed, "initialize seed AEAD", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, keyerr.New(keyerr.KindDecryptionFailed, "encrypted seed is too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	seed, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, keyerr.Wrap(keyerr.KindDecryptionFailed, "decrypt seed (wrong password?)", err)
	}
	return seed, nil
}

// MarshalPlugins renders every plugin in v to its PluginDoc entry, routed
// by concrete type. Unrecognized plugin implementations are rejected here
// (this is the write path — only Load's read path has an "unknown tag"
// case, for documents this binary didn't write).
func MarshalPlugins(v *vault.Vault) ([]models.PluginDoc, error) {
	plugins := v.Plugins()
	docs := make([]models.PluginDoc, 0, len(plugins))
	for _, p := range plugins {
		var doc models.PluginDoc
		switch typed := p.(type) {
		case interface {
			MarshalState() (json.RawMessage, json.RawMessage, error)
		}:
			params, state, err := typed.MarshalState()
			if err != nil {
				return nil, err
			}
			doc = models.PluginDoc{PluginName: p.Type(), Parameters: params, PublicState: state}
		case OpaquePlugin:
			doc = typed.Raw
		default:
			return nil, keyerr.New(keyerr.KindMalformedTransaction, "plugin type does not support persistence: "+p.Type())
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// OpaquePlugin is a vault.Plugin standing in for a plugin tag this binary
// doesn't recognize — §6's "the vault remains usable for other plugins"
// policy. Its raw document is carried through unchanged on re-save.
type OpaquePlugin struct {
	Raw models.PluginDoc
}

func (o OpaquePlugin) Type() string { return o.Raw.PluginName }

func (o OpaquePlugin) Equal(other vault.Plugin) bool {
	p, ok := other.(OpaquePlugin)
	return ok && p.Raw.PluginName == o.Raw.PluginName
}

// Load reconstructs a Vault from a previously-persisted document (plus the
// unlock password needed to recover the seed). Unknown plugin tags are
// retained as OpaquePlugin rather than rejected; err is only non-nil for a
// structurally malformed document or a failed seed decryption.
func Load(doc models.VaultFile, unlockPassword string) (*vault.Vault, error) {
	seed, err := OpenSeed(doc.EncryptedSeed, doc.KDF, unlockPassword)
	if err != nil {
		return nil, err
	}
	v := vault.Rehydrate(seed, nil)
	for _, pd := range doc.Plugins {
		if err := loadPlugin(v, pd); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func loadPlugin(v *vault.Vault, pd models.PluginDoc) error {
	switch pd.PluginName {
	case hydra.TypeTag:
		_, err := hydra.UnmarshalPlugin(v, pd.Parameters, pd.PublicState)
		return err
	case morpheus.TypeTag:
		_, err := morpheus.UnmarshalPlugin(v, pd.Parameters, pd.PublicState)
		return err
	default:
		logger.Warn("vault file has an unrecognized plugin tag; retaining it opaquely", "pluginName", pd.PluginName)
		return v.AddPlugin(OpaquePlugin{Raw: pd})
	}
}

// Save renders v, seals its seed under unlockPassword, and atomically
// writes the resulting document to path (write-to-temp, fsync, rename),
// making at most cfg.PersistMaxRetries write attempts in total (§5, §7).
func Save(path string, v *vault.Vault, seed []byte, unlockPassword string, cfg config.Config) error {
	encryptedSeed, kdf, err := SealSeed(seed, unlockPassword, cfg)
	if err != nil {
		return err
	}
	docs, err := MarshalPlugins(v)
	if err != nil {
		return err
	}
	doc := models.VaultFile{EncryptedSeed: encryptedSeed, KDF: kdf, Plugins: docs}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return keyerr.Wrap(keyerr.KindPersistenceFailed, "marshal vault file", err)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.PersistMaxRetries; attempt++ {
		if err := atomicWrite(path, payload); err != nil {
			lastErr = err
			logger.Warn("vault file write attempt failed", "attempt", attempt, "max_retries", cfg.PersistMaxRetries, "error", err)
			time.Sleep(cfg.PersistRetryDelay)
			continue
		}
		v.ClearDirty()
		logger.Info("vault file persisted", "path", path, "attempt", attempt)
		return nil
	}
	return keyerr.Wrap(keyerr.KindPersistenceFailed, "vault file write exhausted retries", lastErr)
}

func atomicWrite(path string, payload []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
