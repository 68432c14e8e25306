// SPDX-License-Identifier: Apache-2.0

package scanner

import "time"

// Transport is the byte-oriented duplex channel to the reader. The
// engine is the transport's exclusive owner for the duration of a
// session; implementations do not need to be safe for concurrent use.
//
// Receive and SendReceive return one complete framed envelope
// (STX..checksum) or an error when nothing arrives within the timeout.
// Serial-line discipline (57600 8N1, no flow control) is an
// implementation concern, not part of this contract.
type Transport interface {
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	SendReceive(data []byte, timeout time.Duration) ([]byte, error)
}
