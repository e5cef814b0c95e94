package chain

import (
	"crypto/sha512"
	"encoding/base32"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crosslock/crosslockd/pkg/helpers"
)

// Algorand addresses are 58-character base32 strings encoding a 32-byte
// public key followed by a 4-byte SHA-512/256 checksum.
const (
	algoAddressLen   = 58
	algoPublicKeyLen = 32
	algoChecksumLen  = 4
)

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// ValidateAddress checks that an address conforms to the chain's address
// grammar. For EVM chains this is a 20-byte hex address; for Algorand a
// checksummed base32 address.
func ValidateAddress(symbol string, network Network, address string) error {
	params, ok := Get(symbol, network)
	if !ok {
		return fmt.Errorf("unsupported chain: %s", symbol)
	}

	switch params.Type {
	case ChainTypeEVM:
		return validateEVMAddress(address)
	case ChainTypeAVM:
		return validateAlgorandAddress(address)
	default:
		return fmt.Errorf("no address grammar for chain type %s", params.Type)
	}
}

func validateEVMAddress(address string) error {
	if address == "" {
		return fmt.Errorf("empty address")
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("not a valid EVM address: %s", address)
	}
	if common.HexToAddress(address) == (common.Address{}) {
		return fmt.Errorf("zero address not allowed")
	}
	return nil
}

func validateAlgorandAddress(address string) error {
	if len(address) != algoAddressLen {
		return fmt.Errorf("algorand address must be %d characters, got %d", algoAddressLen, len(address))
	}

	decoded, err := base32NoPad.DecodeString(address)
	if err != nil {
		return fmt.Errorf("invalid base32 encoding: %w", err)
	}
	if len(decoded) < algoPublicKeyLen+algoChecksumLen {
		return fmt.Errorf("decoded address too short: %d bytes", len(decoded))
	}

	publicKey := decoded[:algoPublicKeyLen]
	checksum := decoded[algoPublicKeyLen : algoPublicKeyLen+algoChecksumLen]

	digest := sha512.Sum512_256(publicKey)
	expected := digest[len(digest)-algoChecksumLen:]

	if !helpers.ConstantTimeCompare(checksum, expected) {
		return fmt.Errorf("address checksum mismatch")
	}
	return nil
}

// EncodeAlgorandAddress encodes a 32-byte public key as a checksummed
// Algorand address. Used in tests and when deriving addresses from order
// metadata.
func EncodeAlgorandAddress(publicKey []byte) (string, error) {
	if len(publicKey) != algoPublicKeyLen {
		return "", fmt.Errorf("public key must be %d bytes, got %d", algoPublicKeyLen, len(publicKey))
	}
	digest := sha512.Sum512_256(publicKey)
	checksum := digest[len(digest)-algoChecksumLen:]
	return base32NoPad.EncodeToString(append(append([]byte{}, publicKey...), checksum...)), nil
}
