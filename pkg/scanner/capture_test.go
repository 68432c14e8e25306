// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"bytes"
	"testing"
	"time"
)

func TestCaptureTransport_RecordsExchanges(t *testing.T) {
	sim := &simReader{}
	var buf bytes.Buffer
	capture := NewCaptureTransport(sim, &buf)

	e := newTestEngine(capture, nil)
	if !e.TestConnection() {
		t.Fatal("TestConnection failed through the capture wrapper")
	}

	records, err := ReadCapture(&buf)
	if err != nil {
		t.Fatalf("ReadCapture: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want tx+rx pair", len(records))
	}

	tx, rx := records[0], records[1]
	if tx.Dir != DirTX || rx.Dir != DirRX {
		t.Errorf("directions = %s,%s, want tx,rx", tx.Dir, rx.Dir)
	}
	if tx.Seq != 1 || rx.Seq != 2 {
		t.Errorf("sequence = %d,%d, want 1,2", tx.Seq, rx.Seq)
	}
	if len(sim.sent) != 1 || !bytes.Equal(tx.Data, sim.sent[0]) {
		t.Error("tx record does not match the frame the reader received")
	}
	if tx.Time == 0 || rx.Time == 0 {
		t.Error("records carry no timestamp")
	}
}

func TestCaptureTransport_RecordsErrors(t *testing.T) {
	var buf bytes.Buffer
	capture := NewCaptureTransport(timeoutTransport{}, &buf)

	if _, err := capture.SendReceive([]byte{0x02, 0x00, 0x03, 0x03}, 10*time.Millisecond); err == nil {
		t.Fatal("expected the inner transport's error to propagate")
	}

	records, err := ReadCapture(&buf)
	if err != nil {
		t.Fatalf("ReadCapture: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want tx+err pair", len(records))
	}
	if records[1].Dir != DirErr {
		t.Errorf("second record dir = %s, want err", records[1].Dir)
	}
	if records[1].Note == "" {
		t.Error("error record carries no note")
	}
}

func TestReadCapture_Empty(t *testing.T) {
	records, err := ReadCapture(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ReadCapture on empty stream: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from an empty stream", len(records))
	}
}
