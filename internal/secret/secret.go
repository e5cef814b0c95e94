// Package secret implements the hashlock primitives for HTLC swaps:
// secret generation, commitment computation, and constant-time reveal
// verification.
package secret

import (
	"crypto/sha256"
	"fmt"

	"github.com/crosslock/crosslockd/pkg/helpers"
)

// Protocol constants. The hashlock digest is SHA-256 over a 32-byte
// preimage; both sides of the swap and both chain contracts assume these
// lengths.
const (
	SecretSize = 32
	HashSize   = sha256.Size
)

// Generate produces a cryptographically random 32-byte secret and its
// SHA-256 hash. It is stateless; the caller is responsible for persisting
// the pair. Fails only if the entropy source is exhausted.
func Generate() (secret, hash []byte, err error) {
	secret, err = helpers.GenerateSecureRandom(SecretSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	hashArray := sha256.Sum256(secret)
	return secret, hashArray[:], nil
}

// Verify checks whether a secret is the preimage of the expected hash.
// The digest comparison runs in constant time regardless of where the
// first mismatching byte sits. Malformed input (wrong length) is a
// verification failure, never an error.
func Verify(secret, expectedHash []byte) bool {
	if len(secret) != SecretSize || len(expectedHash) != HashSize {
		return false
	}
	actualHash := sha256.Sum256(secret)
	return helpers.ConstantTimeCompare(actualHash[:], expectedHash)
}

// VerifyHex verifies a hex-encoded secret against a hex-encoded hash.
// Both values may carry a 0x prefix. Any decode failure is a verification
// failure.
func VerifyHex(secretHex, hashHex string) bool {
	secret, err := helpers.HexToBytes(secretHex)
	if err != nil {
		return false
	}
	hash, err := helpers.HexToBytes(hashHex)
	if err != nil {
		return false
	}
	return Verify(secret, hash)
}

// ValidHashHex reports whether a hex string decodes to a digest of the
// protocol's fixed length.
func ValidHashHex(hashHex string) bool {
	hash, err := helpers.HexToBytes(hashHex)
	if err != nil {
		return false
	}
	return len(hash) == HashSize
}
