// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/robertchoi/ulc-finder/pkg/ccid"
	"github.com/robertchoi/ulc-finder/pkg/keygen"
)

// fakeConn scripts the reader side of a Connection. Reads drain the
// queued frame in fixed-size chunks; an empty queue reads as the serial
// library's timed-out (0, nil).
type fakeConn struct {
	pending   []byte
	chunkSize int
	written   bytes.Buffer
	closed    bool
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		// Emulate a serial read timeout without real delay
		return 0, nil
	}
	n := c.chunkSize
	if n <= 0 || n > len(c.pending) {
		n = len(c.pending)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.pending[:n])
	c.pending = c.pending[n:]
	return n, nil
}

func (c *fakeConn) Write(p []byte) (int, error) {
	return c.written.Write(p)
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) SetReadTimeout(d time.Duration) error {
	return nil
}

func statusFrame() []byte {
	message := make([]byte, ccid.HeaderSize)
	message[0] = ccid.MsgSlotStatus
	binary.LittleEndian.PutUint32(message[1:5], 0)
	return ccid.Frame(message)
}

func TestFrameTransport_ReceiveReassemblesChunks(t *testing.T) {
	frame := statusFrame()
	conn := &fakeConn{pending: append([]byte(nil), frame...), chunkSize: 3}
	tr := newFrameTransport(conn)

	got, err := tr.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("frame = % X, want % X", got, frame)
	}
}

func TestFrameTransport_ReceiveTimesOut(t *testing.T) {
	conn := &fakeConn{}
	tr := newFrameTransport(conn)

	_, err := tr.Receive(10 * time.Millisecond)
	if !errors.Is(err, ErrReceiveTimeout) {
		t.Fatalf("err = %v, want ErrReceiveTimeout", err)
	}
}

func TestFrameTransport_SendReceive(t *testing.T) {
	frame := statusFrame()
	conn := &fakeConn{pending: append([]byte(nil), frame...)}
	tr := newFrameTransport(conn)

	cmd := []byte{0x02, 0x62, 0x00, 0x03, 0x61}
	got, err := tr.SendReceive(cmd, time.Second)
	if err != nil {
		t.Fatalf("SendReceive: %v", err)
	}
	if !bytes.Equal(conn.written.Bytes(), cmd) {
		t.Errorf("wrote % X, want % X", conn.written.Bytes(), cmd)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("frame = % X, want % X", got, frame)
	}
}

func TestParseStartKey(t *testing.T) {
	key, err := parseStartKey("")
	if err != nil {
		t.Fatalf("default start key: %v", err)
	}
	if !bytes.Equal(key, make([]byte, keygen.KeySize)) {
		t.Errorf("default start key = % X, want all zeros", key)
	}

	key, err = parseStartKey("000102030405060708090A0B0C0D0E0F")
	if err != nil {
		t.Fatalf("hex start key: %v", err)
	}
	if key[15] != 0x0F {
		t.Errorf("last byte = %02X, want 0F", key[15])
	}

	if _, err := parseStartKey("zz"); err == nil {
		t.Error("expected error for non-hex start key")
	}
}
