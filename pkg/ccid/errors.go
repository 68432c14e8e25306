// SPDX-License-Identifier: Apache-2.0

package ccid

import "errors"

var (
	// ErrInvalidKeyLength is returned when a key is not exactly 16 bytes.
	ErrInvalidKeyLength = errors.New("key must be exactly 16 bytes")

	// ErrInvalidPageData is returned when page data is not exactly 4 bytes.
	ErrInvalidPageData = errors.New("page data must be exactly 4 bytes")

	// ErrShortFrame is returned when an envelope is smaller than
	// STX + 1 byte + ETX + checksum.
	ErrShortFrame = errors.New("framed message too short")

	// ErrBadFraming is returned when the STX or ETX marker is missing.
	ErrBadFraming = errors.New("missing frame marker")

	// ErrMalformedResponse is returned when the CCID header is truncated
	// or the declared payload length exceeds the available bytes.
	ErrMalformedResponse = errors.New("malformed CCID response")
)
