// SPDX-License-Identifier: Apache-2.0

package ccid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// unwrap strips the envelope from a built command for header inspection.
func unwrap(t *testing.T, envelope []byte) []byte {
	t.Helper()
	message, checksumOK, err := Unframe(envelope)
	if err != nil {
		t.Fatalf("Unframe error: %v", err)
	}
	if !checksumOK {
		t.Fatal("built command has bad checksum")
	}
	return message
}

func TestCodec_PowerOn(t *testing.T) {
	c := NewCodec()
	message := unwrap(t, c.PowerOn())

	if message[0] != MsgIccPowerOn {
		t.Errorf("message type = 0x%02X, want 0x%02X", message[0], MsgIccPowerOn)
	}
	if length := binary.LittleEndian.Uint32(message[1:5]); length != 0 {
		t.Errorf("dwLength = %d, want 0", length)
	}
	if len(message) != HeaderSize {
		t.Errorf("message length = %d, want %d", len(message), HeaderSize)
	}
	if message[6] != 1 {
		t.Errorf("first sequence number = %d, want 1", message[6])
	}
}

func TestCodec_PowerOff(t *testing.T) {
	c := NewCodec()
	message := unwrap(t, c.PowerOff())

	if message[0] != MsgIccPowerOff {
		t.Errorf("message type = 0x%02X, want 0x%02X", message[0], MsgIccPowerOff)
	}
	if len(message) != HeaderSize {
		t.Errorf("message length = %d, want %d", len(message), HeaderSize)
	}
}

func TestCodec_GetUID(t *testing.T) {
	c := NewCodec()
	message := unwrap(t, c.GetUID())

	want := []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}
	if !bytes.Equal(message[HeaderSize:], want) {
		t.Errorf("APDU = % X, want % X", message[HeaderSize:], want)
	}
	if length := binary.LittleEndian.Uint32(message[1:5]); int(length) != len(want) {
		t.Errorf("dwLength = %d, want %d", length, len(want))
	}
}

func TestCodec_LoadKey(t *testing.T) {
	c := NewCodec()
	key := bytes.Repeat([]byte{0xAB}, 16)

	envelope, err := c.LoadKey(key, 3)
	if err != nil {
		t.Fatalf("LoadKey error: %v", err)
	}
	message := unwrap(t, envelope)

	apdu := message[HeaderSize:]
	wantPrefix := []byte{0xFF, 0x82, 0x00, 0x03, 0x10}
	if !bytes.HasPrefix(apdu, wantPrefix) {
		t.Errorf("APDU prefix = % X, want % X", apdu[:5], wantPrefix)
	}
	if !bytes.Equal(apdu[5:], key) {
		t.Errorf("APDU key = % X, want % X", apdu[5:], key)
	}
}

func TestCodec_LoadKey_WrongLength(t *testing.T) {
	c := NewCodec()
	for _, n := range []int{0, 8, 15, 17, 24} {
		if _, err := c.LoadKey(make([]byte, n), 3); !errors.Is(err, ErrInvalidKeyLength) {
			t.Errorf("LoadKey with %d-byte key: error = %v, want ErrInvalidKeyLength", n, err)
		}
	}
}

func TestCodec_Authenticate(t *testing.T) {
	c := NewCodec()
	message := unwrap(t, c.Authenticate(4, 3))

	want := []byte{0xFF, 0x86, 0x00, 0x00, 0x05, 0x01, 0x00, 0x04, 0x60, 0x03}
	if !bytes.Equal(message[HeaderSize:], want) {
		t.Errorf("APDU = % X, want % X", message[HeaderSize:], want)
	}
}

func TestCodec_WritePage(t *testing.T) {
	c := NewCodec()

	envelope, err := c.WritePage(0x10, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	if err != nil {
		t.Fatalf("WritePage error: %v", err)
	}
	message := unwrap(t, envelope)

	want := []byte{0xFF, 0xD6, 0x00, 0x10, 0x04, 0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(message[HeaderSize:], want) {
		t.Errorf("APDU = % X, want % X", message[HeaderSize:], want)
	}
}

func TestCodec_WritePage_WrongLength(t *testing.T) {
	c := NewCodec()
	for _, n := range []int{0, 3, 5} {
		if _, err := c.WritePage(0x10, make([]byte, n)); !errors.Is(err, ErrInvalidPageData) {
			t.Errorf("WritePage with %d bytes: error = %v, want ErrInvalidPageData", n, err)
		}
	}
}

func TestCodec_WriteAuthKey(t *testing.T) {
	c := NewCodec()
	message := unwrap(t, c.WriteAuthKey())

	want := []byte{0xFF, 0x87, 0x00, 0x00, 0x00}
	if !bytes.Equal(message[HeaderSize:], want) {
		t.Errorf("APDU = % X, want % X", message[HeaderSize:], want)
	}
}

func TestCodec_SequenceNumbering(t *testing.T) {
	c := NewCodec()

	for want := byte(1); want <= 5; want++ {
		message := unwrap(t, c.PowerOn())
		if message[6] != want {
			t.Errorf("sequence = %d, want %d", message[6], want)
		}
	}

	c.ResetSeq()
	message := unwrap(t, c.PowerOn())
	if message[6] != 1 {
		t.Errorf("sequence after ResetSeq = %d, want 1", message[6])
	}
}

func TestCodec_SequenceWraps(t *testing.T) {
	c := NewCodec()
	// Consume sequence numbers 1..255, then 0, then 1 again.
	for i := 0; i < 255; i++ {
		c.PowerOn()
	}
	message := unwrap(t, c.PowerOn())
	if message[6] != 0 {
		t.Errorf("sequence after wrap = %d, want 0", message[6])
	}
	message = unwrap(t, c.PowerOn())
	if message[6] != 1 {
		t.Errorf("sequence after wrap+1 = %d, want 1", message[6])
	}
}

func TestChecksum_XorProperties(t *testing.T) {
	frame := []byte{0x62, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, ETX}
	sum := Checksum(frame)

	// XOR of a value with itself is zero.
	if Checksum(append(append([]byte(nil), frame...), sum)) != 0 {
		t.Error("checksum over frame+checksum should be zero")
	}

	// Flipping any single byte changes the checksum.
	for i := range frame {
		mutated := append([]byte(nil), frame...)
		mutated[i] ^= 0x5A
		if Checksum(mutated) == sum {
			t.Errorf("flipping byte %d did not change the checksum", i)
		}
	}
}

func TestFrame_Layout(t *testing.T) {
	message := []byte{0x62, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}
	framed := Frame(message)

	if framed[0] != STX {
		t.Errorf("frame[0] = 0x%02X, want STX", framed[0])
	}
	if framed[len(framed)-2] != ETX {
		t.Errorf("frame[-2] = 0x%02X, want ETX", framed[len(framed)-2])
	}
	if got := Checksum(framed[1 : len(framed)-1]); got != framed[len(framed)-1] {
		t.Errorf("trailing checksum = 0x%02X, want 0x%02X", framed[len(framed)-1], got)
	}
	if len(framed) != len(message)+3 {
		t.Errorf("frame length = %d, want %d", len(framed), len(message)+3)
	}
}
