// SPDX-License-Identifier: Apache-2.0

package ccid

import "encoding/binary"

// Codec builds outbound CCID command envelopes. The only state is the
// sequence counter, which the codec assigns itself; callers never supply
// sequence numbers. A Codec is owned by a single session and is not safe
// for concurrent use.
type Codec struct {
	seq byte
}

// NewCodec creates a codec with the sequence counter at its initial value.
func NewCodec() *Codec {
	return &Codec{seq: 1}
}

// ResetSeq resets the sequence counter to 1. Called at session start so
// that reader and host agree on numbering.
func (c *Codec) ResetSeq() {
	c.seq = 1
}

// nextSeq returns the current sequence number and advances it mod 256.
func (c *Codec) nextSeq() byte {
	seq := c.seq
	c.seq++
	return seq
}

// Checksum computes the XOR of all bytes in data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// Frame wraps a raw CCID message in the wire envelope:
// STX + message + ETX + checksum(message + ETX).
func Frame(message []byte) []byte {
	framed := make([]byte, 0, len(message)+3)
	framed = append(framed, STX)
	framed = append(framed, message...)
	framed = append(framed, ETX)
	framed = append(framed, Checksum(framed[1:]))
	return framed
}

// buildCommand assembles a 10-byte CCID header plus optional APDU payload
// and wraps it in the wire envelope.
func (c *Codec) buildCommand(msgType byte, apdu []byte) []byte {
	message := make([]byte, HeaderSize, HeaderSize+len(apdu))
	message[0] = msgType
	binary.LittleEndian.PutUint32(message[1:5], uint32(len(apdu)))
	// message[5] = slot 0
	message[6] = c.nextSeq()
	// message[7:10] = bSpecific, zero for all commands we send
	message = append(message, apdu...)
	return Frame(message)
}

// PowerOn constructs a PC_to_RDR_IccPowerOn command.
func (c *Codec) PowerOn() []byte {
	return c.buildCommand(MsgIccPowerOn, nil)
}

// PowerOff constructs a PC_to_RDR_IccPowerOff command.
func (c *Codec) PowerOff() []byte {
	return c.buildCommand(MsgIccPowerOff, nil)
}

// GetUID constructs an XfrBlock wrapping the Get Data APDU
// FF CA 00 00 00.
func (c *Codec) GetUID() []byte {
	return c.buildCommand(MsgXfrBlock, []byte{0xFF, 0xCA, 0x00, 0x00, 0x00})
}

// LoadKey constructs an XfrBlock wrapping the Load Authentication Key
// APDU FF 82 00 <slot> 10 <key>. The key is staged in the reader's
// volatile key storage; it is not written to the card.
func (c *Codec) LoadKey(key []byte, slot byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, ErrInvalidKeyLength
	}
	apdu := make([]byte, 0, 5+16)
	apdu = append(apdu, 0xFF, 0x82, 0x00, slot, 0x10)
	apdu = append(apdu, key...)
	return c.buildCommand(MsgXfrBlock, apdu), nil
}

// Authenticate constructs an XfrBlock wrapping the General Authenticate
// APDU FF 86 00 00 05 01 00 <page> 60 <keySlot>. The authentication mode
// is fixed to 0x60, the legacy 3DES key-A mode used by ULC.
func (c *Codec) Authenticate(page, keySlot byte) []byte {
	apdu := []byte{
		0xFF, 0x86, // CLA INS
		0x00, 0x00, // P1 P2
		0x05,          // Lc
		0x01,          // version
		0x00, page,    // block address
		AuthModeKeyA,  // auth mode
		keySlot,       // key number
	}
	return c.buildCommand(MsgXfrBlock, apdu)
}

// WritePage constructs an XfrBlock wrapping the Update Binary APDU
// FF D6 00 <page> 04 <data>.
func (c *Codec) WritePage(page byte, data []byte) ([]byte, error) {
	if len(data) != 4 {
		return nil, ErrInvalidPageData
	}
	apdu := make([]byte, 0, 5+4)
	apdu = append(apdu, 0xFF, 0xD6, 0x00, page, 0x04)
	apdu = append(apdu, data...)
	return c.buildCommand(MsgXfrBlock, apdu), nil
}

// WriteAuthKey constructs an XfrBlock wrapping FF 87 00 00 00, which
// commits the key previously staged with LoadKey into the tag's key
// pages. The hardware storage is one-time-programmable: the codec does
// not guard against re-issuing this command, callers must.
func (c *Codec) WriteAuthKey() []byte {
	return c.buildCommand(MsgXfrBlock, []byte{0xFF, 0x87, 0x00, 0x00, 0x00})
}
