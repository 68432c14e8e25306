// SPDX-License-Identifier: Apache-2.0

package keygen

import (
	"crypto/rand"
	"fmt"
	"math/bits"
)

// GenerateRandomKey returns 16 cryptographically secure random bytes.
// It is independent of any Generator's enumeration state.
func GenerateRandomKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating random key: %w", err)
	}
	return key, nil
}

// CheckParity verifies DES odd parity: every key byte must have an odd
// number of set bits. It returns the 0-indexed positions of violating
// bytes; allValid is true when the list is empty.
func CheckParity(key []byte) (allValid bool, invalid []int) {
	invalid = []int{}
	for i, b := range key {
		if bits.OnesCount8(b)%2 == 0 {
			invalid = append(invalid, i)
		}
	}
	return len(invalid) == 0, invalid
}

// FixParity returns a copy of key with the low bit of each byte forced
// so that its total set-bit count is odd. The upper 7 bits, which carry
// the actual key material under the DES key format, are untouched.
// FixParity is idempotent.
func FixParity(key []byte) []byte {
	fixed := make([]byte, len(key))
	for i, b := range key {
		if bits.OnesCount8(b&0xFE)%2 == 0 {
			fixed[i] = b | 0x01
		} else {
			fixed[i] = b &^ 0x01
		}
	}
	return fixed
}
