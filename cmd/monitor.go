// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/robertchoi/ulc-finder/pkg/ccid"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display reader frames in human-readable format",
	Long: `Continuously decode and display framed reader messages as they arrive.

Useful for watching another host drive the reader, or for checking what a
reader emits on its own. Each frame is shown with a timestamp, message
type, header status, and payload hex dump.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("ulc-finder - Frame Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	// Short per-read timeout keeps the loop responsive; an idle line
	// just cycles through receive timeouts.
	conn.SetReadTimeout(500 * time.Millisecond)
	r := &deadlineReader{conn: conn, deadline: time.Now().Add(24 * time.Hour)}

	for {
		frame, err := ccid.ReadFrame(r)
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				log.Printf("Connection closed")
				return nil
			}
			// Idle line: WebSocket reads surface deadline expiry as a
			// net timeout error.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			// A framing error consumes one byte, so repeated reads
			// resynchronize on the next STX.
			if errors.Is(err, ccid.ErrBadFraming) {
				continue
			}
			log.Printf("Read error: %v", err)
			continue
		}

		printFrame(frame)
	}
}

func printFrame(frame []byte) {
	timestamp := time.Now().Format("15:04:05.000")

	resp, err := ccid.ParseResponse(frame)
	if err != nil {
		fmt.Printf("[%s] MALFORMED: %v\n  Raw: %s\n", timestamp, err, ccid.FormatHex(frame))
		return
	}

	fmt.Printf("[%s] %s slot=%d seq=%d status=0x%02X error=0x%02X\n",
		timestamp, ccid.FormatMessageType(resp.MessageType),
		resp.Slot, resp.Seq, resp.Status, resp.ErrorCode)
	if !resp.ChecksumOK {
		fmt.Printf("  CHECKSUM MISMATCH\n")
	}
	if len(resp.Payload) > 0 {
		fmt.Printf("  Payload: %s\n", ccid.FormatHex(resp.Payload))
	}
}
