// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/robertchoi/ulc-finder/pkg/ccid"
)

// ErrReceiveTimeout is returned when no complete frame arrives in time.
var ErrReceiveTimeout = fmt.Errorf("receive timeout")

// frameTransport adapts a Connection to the scanner's transport
// contract: writes go out raw, reads return one complete framed
// envelope or a timeout.
type frameTransport struct {
	conn Connection
}

func newFrameTransport(conn Connection) *frameTransport {
	return &frameTransport{conn: conn}
}

func (t *frameTransport) Send(data []byte) error {
	n, err := t.conn.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(data))
	}
	return nil
}

func (t *frameTransport) Receive(timeout time.Duration) ([]byte, error) {
	// Cap each underlying Read well below the frame deadline so the
	// serial path (which reports a timed-out Read as 0, nil) gets
	// several chances to deliver a frame that arrives in pieces.
	readTimeout := timeout / 4
	if readTimeout < 50*time.Millisecond {
		readTimeout = 50 * time.Millisecond
	}
	if err := t.conn.SetReadTimeout(readTimeout); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	r := &deadlineReader{conn: t.conn, deadline: time.Now().Add(timeout)}
	frame, err := ccid.ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

func (t *frameTransport) SendReceive(data []byte, timeout time.Duration) ([]byte, error) {
	if err := t.Send(data); err != nil {
		return nil, err
	}
	return t.Receive(timeout)
}

// deadlineReader converts the serial library's timed-out reads
// (0 bytes, nil error) into a hard timeout once the frame deadline
// passes.
type deadlineReader struct {
	conn     Connection
	deadline time.Time
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	for {
		n, err := r.conn.Read(p)
		if err != nil {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
		if time.Now().After(r.deadline) {
			return 0, ErrReceiveTimeout
		}
	}
}
