// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"errors"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Capture record directions.
const (
	DirTX  = "tx"
	DirRX  = "rx"
	DirErr = "err"
)

// CaptureRecord is one transport event in a session capture. Records
// are appended to the capture stream as a CBOR sequence.
type CaptureRecord struct {
	Seq  uint64 `cbor:"1,keyasint"`
	Time int64  `cbor:"2,keyasint"` // unix milliseconds
	Dir  string `cbor:"3,keyasint"`
	Data []byte `cbor:"4,keyasint,omitempty"`
	Note string `cbor:"5,keyasint,omitempty"`
}

// CaptureTransport decorates a Transport, appending a CBOR record of
// every send, receive, and transport error to w. Used by `scan
// --capture` to produce session traces that can be replayed against the
// codec offline.
type CaptureTransport struct {
	inner Transport
	enc   *cbor.Encoder
	seq   uint64
}

// NewCaptureTransport wraps inner, writing capture records to w.
func NewCaptureTransport(inner Transport, w io.Writer) *CaptureTransport {
	return &CaptureTransport{
		inner: inner,
		enc:   cbor.NewEncoder(w),
	}
}

func (t *CaptureTransport) record(dir string, data []byte, note string) {
	t.seq++
	// Capture is diagnostics; an encode failure must never disturb the
	// scan, so the error is dropped.
	t.enc.Encode(CaptureRecord{
		Seq:  t.seq,
		Time: time.Now().UnixMilli(),
		Dir:  dir,
		Data: data,
		Note: note,
	})
}

// Send forwards to the inner transport and records the outbound frame.
func (t *CaptureTransport) Send(data []byte) error {
	t.record(DirTX, data, "")
	err := t.inner.Send(data)
	if err != nil {
		t.record(DirErr, nil, "send: "+err.Error())
	}
	return err
}

// Receive forwards to the inner transport and records the inbound frame
// or the receive error.
func (t *CaptureTransport) Receive(timeout time.Duration) ([]byte, error) {
	data, err := t.inner.Receive(timeout)
	if err != nil {
		t.record(DirErr, nil, "receive: "+err.Error())
		return nil, err
	}
	t.record(DirRX, data, "")
	return data, nil
}

// SendReceive records both halves of the exchange.
func (t *CaptureTransport) SendReceive(data []byte, timeout time.Duration) ([]byte, error) {
	t.record(DirTX, data, "")
	resp, err := t.inner.SendReceive(data, timeout)
	if err != nil {
		t.record(DirErr, nil, "receive: "+err.Error())
		return nil, err
	}
	t.record(DirRX, resp, "")
	return resp, nil
}

// ReadCapture decodes a full capture stream back into records.
func ReadCapture(r io.Reader) ([]CaptureRecord, error) {
	dec := cbor.NewDecoder(r)
	var records []CaptureRecord
	for {
		var rec CaptureRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, err
		}
		records = append(records, rec)
	}
}
