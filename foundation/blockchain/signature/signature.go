// Package signature provides helper functions for fingerprinting values
// so tampering with persisted data can be detected.
package signature

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// GenesisHash represents the previous hash recorded by the first block
// in the chain.
const GenesisHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrSerialization is returned when a value can't be serialized for
// fingerprinting. Channels, functions and cyclic values are examples.
var ErrSerialization = errors.New("value is not serializable")

// =============================================================================

// Fingerprint returns a 64 character hex digest for the JSON form of the
// value. The digest is only reproducible if the value serializes the same
// way every time, which holds for structs and maps but not for values that
// were decoded into different shapes.
func Fingerprint(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSerialization, err)
	}

	return FingerprintBytes(data), nil
}

// FingerprintBytes returns the 64 character hex digest for the raw bytes.
func FingerprintBytes(data []byte) string {
	return hex.EncodeToString(crypto.Keccak256(data))
}

// Match recomputes the fingerprint for the value and compares it to the
// one provided. Any serialization failure is treated as a mismatch.
func Match(value any, fingerprint string) bool {
	fp, err := Fingerprint(value)
	if err != nil {
		return false
	}

	return fp == fingerprint
}
