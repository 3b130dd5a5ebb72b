// Package config holds the ambient, overridable parameters of the keyvault
// core: KDF cost, vault-file write retry budget, and default DPoS fees.
// Mirrors the Default()/FromEnv() split the rest of this codebase's lineage
// uses for runtime configuration.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configurable parameters for the keyvault core.
type Config struct {
	// Vault at-rest KDF (PBKDF2-HMAC-SHA512 over the unlock password).
	KDFIterations int
	KDFSaltBytes  int

	// Vault file persistence.
	PersistMaxRetries int
	PersistRetryDelay time.Duration

	// DPoS default fees (flakes), used when the caller supplies no manual fee.
	TransferFee                 uint64
	DelegateRegistrationFee     uint64
	VoteFee                     uint64
	SecondSignatureRegistration uint64
	MultiSignatureRegistration  uint64

	// Morpheus identity-transaction fee model.
	MorpheusFeeBytesOffset uint64
	MorpheusFlakesPerByte  uint64
}

// Default returns a Config populated with the values this spec's component
// tables call out.
func Default() Config {
	return Config{
		KDFIterations: 2048,
		KDFSaltBytes:  16,

		PersistMaxRetries: 3,
		PersistRetryDelay: 50 * time.Millisecond,

		TransferFee:                 10_000_000,
		DelegateRegistrationFee:     2_500_000_000,
		VoteFee:                     100_000_000,
		SecondSignatureRegistration: 500_000_000,
		MultiSignatureRegistration:  500_000_000,

		MorpheusFeeBytesOffset: 15,
		MorpheusFlakesPerByte:  3000,
	}
}

// FromEnv returns a Config populated from environment variables, falling
// back to defaults for unset values.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("KEYVAULT_KDF_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.KDFIterations = n
		}
	}
	if v := os.Getenv("KEYVAULT_PERSIST_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PersistMaxRetries = n
		}
	}
	if v := os.Getenv("KEYVAULT_PERSIST_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PersistRetryDelay = d
		}
	}
	if v := os.Getenv("KEYVAULT_TRANSFER_FEE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.TransferFee = n
		}
	}

	return cfg
}
