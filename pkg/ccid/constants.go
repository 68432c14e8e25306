// SPDX-License-Identifier: Apache-2.0

// Package ccid implements the CCID 1.1 command subset spoken by the
// serial ULC reader: frame construction, envelope framing with an XOR
// checksum, response parsing, and status classification.
//
// Only the commands needed to power a card, read its UID, stage and
// authenticate a 3DES key, and commit a key to the tag's OTP pages are
// implemented. This is not a general CCID stack.
package ccid

// Envelope framing bytes. Every message on the wire is
// STX + header+payload + ETX + checksum, where the checksum is the XOR
// of all bytes from the header through ETX inclusive.
const (
	STX = 0x02
	ETX = 0x03
)

// Message types - PC to Reader
const (
	MsgIccPowerOn  = 0x62
	MsgIccPowerOff = 0x63
	MsgXfrBlock    = 0x6F
)

// Message types - Reader to PC
const (
	MsgDataBlock  = 0x80
	MsgSlotStatus = 0x81
)

// Frame geometry
const (
	HeaderSize      = 10           // fixed CCID header
	MinEnvelopeSize = 4            // STX + 1 byte + ETX + checksum
	MaxPayloadSize  = 0x0000FFFF   // sanity cap on the 32-bit length field
)

// APDU status words (SW1 SW2)
const (
	SW1Success = 0x90
	SW2Success = 0x00
)

// Default reader parameters for ULC authentication
const (
	DefaultKeySlot  = 3 // reader key-storage slot used to stage candidates
	DefaultAuthPage = 4 // first user page protected by 3DES auth
	AuthModeKeyA    = 0x60
)
