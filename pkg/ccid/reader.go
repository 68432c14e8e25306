// SPDX-License-Identifier: Apache-2.0

package ccid

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadFrame reads exactly one framed envelope from r and returns it with
// the framing intact, ready for ParseResponse. The payload length is
// taken from the CCID header so the read stops at the frame boundary
// even when the transport delivers bytes in arbitrary chunks.
//
// Read timeouts are the transport's concern: a transport that supports
// deadlines surfaces them as read errors, which ReadFrame propagates.
func ReadFrame(r io.Reader) ([]byte, error) {
	var stx [1]byte
	if _, err := io.ReadFull(r, stx[:]); err != nil {
		return nil, fmt.Errorf("reading STX: %w", err)
	}
	if stx[0] != STX {
		return nil, fmt.Errorf("%w: first byte is 0x%02X, want STX", ErrBadFraming, stx[0])
	}

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading CCID header: %w", err)
	}

	length := binary.LittleEndian.Uint32(header[1:5])
	if length > MaxPayloadSize {
		return nil, fmt.Errorf("%w: declared payload %d bytes", ErrMalformedResponse, length)
	}

	frame := make([]byte, 0, 1+HeaderSize+int(length)+2)
	frame = append(frame, stx[0])
	frame = append(frame, header...)

	if length > 0 {
		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("reading %d-byte payload: %w", length, err)
		}
		frame = append(frame, payload...)
	}

	var trailer [2]byte // ETX + checksum
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, fmt.Errorf("reading frame trailer: %w", err)
	}
	if trailer[0] != ETX {
		return nil, fmt.Errorf("%w: byte after payload is 0x%02X, want ETX", ErrBadFraming, trailer[0])
	}
	frame = append(frame, trailer[:]...)

	return frame, nil
}
