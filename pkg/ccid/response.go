// SPDX-License-Identifier: Apache-2.0

package ccid

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Response is a parsed reader-to-PC message.
type Response struct {
	MessageType byte
	Slot        byte
	Seq         byte
	Status      byte
	ErrorCode   byte
	Payload     []byte

	// ChecksumOK is false when the envelope checksum did not match.
	// A mismatch does not abort parsing: some reader firmware computes
	// the checksum over a different span, so the nominal fields are
	// still used and the mismatch is surfaced for logging.
	ChecksumOK bool
}

// Unframe strips the STX/ETX/checksum envelope from a framed message and
// returns the raw CCID bytes. checksumOK reports whether the trailing
// checksum matched the XOR of message+ETX; a mismatch is deliberately
// not an error.
func Unframe(envelope []byte) (message []byte, checksumOK bool, err error) {
	if len(envelope) < MinEnvelopeSize {
		return nil, false, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(envelope))
	}
	if envelope[0] != STX {
		return nil, false, fmt.Errorf("%w: first byte is 0x%02X, want STX", ErrBadFraming, envelope[0])
	}
	if envelope[len(envelope)-2] != ETX {
		return nil, false, fmt.Errorf("%w: byte at -2 is 0x%02X, want ETX", ErrBadFraming, envelope[len(envelope)-2])
	}

	message = envelope[1 : len(envelope)-2]

	// Checksum covers message + ETX, excluding STX and the checksum itself.
	expected := Checksum(envelope[1 : len(envelope)-1])
	checksumOK = expected == envelope[len(envelope)-1]

	return message, checksumOK, nil
}

// ParseResponse unframes and parses a reader response envelope.
func ParseResponse(envelope []byte) (*Response, error) {
	message, checksumOK, err := Unframe(envelope)
	if err != nil {
		return nil, err
	}

	if len(message) < HeaderSize {
		return nil, fmt.Errorf("%w: header is %d bytes, want %d", ErrMalformedResponse, len(message), HeaderSize)
	}

	length := binary.LittleEndian.Uint32(message[1:5])
	if length > MaxPayloadSize || int(length) > len(message)-HeaderSize {
		return nil, fmt.Errorf("%w: declared payload %d bytes, %d available", ErrMalformedResponse, length, len(message)-HeaderSize)
	}

	resp := &Response{
		MessageType: message[0],
		Slot:        message[5],
		Seq:         message[6],
		Status:      message[7],
		ErrorCode:   message[8],
		ChecksumOK:  checksumOK,
	}
	if length > 0 {
		resp.Payload = append([]byte(nil), message[HeaderSize:HeaderSize+length]...)
	}
	return resp, nil
}

// IsSuccess reports whether the transport-level status and error bytes
// both indicate success.
func IsSuccess(status, errorCode byte) bool {
	return status == 0x00 && errorCode == 0x00
}

// IsAuthSuccess classifies a General Authenticate response.
//
// Authentication is judged on the APDU status words in the payload, not
// on the transport status. Success is a payload starting with 90 00.
// Some readers echo their own success word after the card's, so
// "90 00 90 00" is success and "63 00 90 00" is failure. A response with
// no status words at all is treated as failure: a transport-level
// success without SW1/SW2 is unproven authentication.
func IsAuthSuccess(status, errorCode byte, payload []byte) bool {
	if len(payload) >= 2 {
		return bytes.HasPrefix(payload, []byte{SW1Success, SW2Success})
	}
	return false
}
