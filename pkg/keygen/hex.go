// SPDX-License-Identifier: Apache-2.0

package keygen

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidHex is returned when a key string is not valid hex.
var ErrInvalidHex = errors.New("invalid hex string")

// ParseKey parses a whitespace-tolerant hex string into a 16-byte key.
// "11 22 33 ..." and "112233..." are both accepted.
func ParseKey(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)

	key, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrBadKeyLength, len(key))
	}
	return key, nil
}

// FormatKey formats a key as uppercase hex bytes separated by spaces.
// The output round-trips through ParseKey.
func FormatKey(key []byte) string {
	var sb strings.Builder
	for i, b := range key {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
